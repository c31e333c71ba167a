package store

import (
	"context"
	"fmt"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

func CountProducts(ctx context.Context, db database.DBTX) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// WeeklyIncome sums non-cancelled sales per day over the last seven days,
// including days without sales.
func WeeklyIncome(ctx context.Context, db database.DBTX) ([]models.IncomePoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT TO_CHAR(d.day, 'YYYY-MM-DD'), COALESCE(SUM(o.total_amount), 0)
		FROM GENERATE_SERIES(CURRENT_DATE - 6, CURRENT_DATE, INTERVAL '1 day') AS d(day)
		LEFT JOIN orders o
		       ON o.created_at::date = d.day::date AND o.status <> $1
		GROUP BY d.day
		ORDER BY d.day`,
		models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("weekly income: %w", err)
	}
	defer rows.Close()

	points := []models.IncomePoint{}
	for rows.Next() {
		var p models.IncomePoint
		if err := rows.Scan(&p.Date, &p.Sales); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// MonthlyIncome sums non-cancelled sales per month (YYYY-MM) for the
// current year.
func MonthlyIncome(ctx context.Context, db database.DBTX) (map[string]decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT TO_CHAR(created_at, 'YYYY-MM'), SUM(total_amount)
		FROM orders
		WHERE status <> $1 AND DATE_TRUNC('year', created_at) = DATE_TRUNC('year', NOW())
		GROUP BY 1`,
		models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("monthly income: %w", err)
	}
	defer rows.Close()

	income := map[string]decimal.Decimal{}
	for rows.Next() {
		var month string
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		income[month] = total
	}
	return income, rows.Err()
}

func TopProducts(ctx context.Context, db database.DBTX, limit int) ([]models.TopProduct, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.name, SUM(oi.quantity)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.status <> $1
		GROUP BY p.id, p.name
		ORDER BY 2 DESC, p.name
		LIMIT $2`,
		models.OrderStatusCancelled, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	top := []models.TopProduct{}
	for rows.Next() {
		var t models.TopProduct
		if err := rows.Scan(&t.ProductName, &t.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

// OrdersByStatus counts orders per status; every status is present.
func OrdersByStatus(ctx context.Context, db database.DBTX) (map[string]int64, error) {
	counts := map[string]int64{
		models.OrderStatusProcessing: 0,
		models.OrderStatusShipped:    0,
		models.OrderStatusDelivered:  0,
		models.OrderStatusCancelled:  0,
	}

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func LowStock(ctx context.Context, db database.DBTX, threshold int) ([]models.Product, error) {
	return queryProducts(ctx, db,
		`SELECT `+productColumns+` FROM products p WHERE p.stock_quantity <= $1 ORDER BY p.stock_quantity, p.id`,
		threshold)
}
