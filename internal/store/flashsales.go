package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

func ListFlashSales(ctx context.Context, db database.DBTX) ([]models.FlashSale, error) {
	return queryFlashSales(ctx, db,
		`SELECT id, title, start_datetime, end_datetime, status FROM flash_sales ORDER BY start_datetime DESC, id DESC`)
}

// ActiveFlashSales lists enabled sales whose window contains now.
func ActiveFlashSales(ctx context.Context, db database.DBTX, now time.Time) ([]models.FlashSale, error) {
	return queryFlashSales(ctx, db,
		`SELECT id, title, start_datetime, end_datetime, status
		 FROM flash_sales
		 WHERE status AND start_datetime <= $1 AND end_datetime >= $1
		 ORDER BY end_datetime, id`,
		now)
}

func CreateFlashSale(ctx context.Context, db *sql.DB, sale models.FlashSale) (*models.FlashSale, error) {
	if !sale.EndDatetime.After(sale.StartDatetime) {
		return nil, fmt.Errorf("flash sale must end after it starts")
	}

	var id int64
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO flash_sales (title, start_datetime, end_datetime, status)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			strings.TrimSpace(sale.Title), sale.StartDatetime, sale.EndDatetime, sale.Status).Scan(&id)
		if err != nil {
			return fmt.Errorf("create flash sale: %w", err)
		}

		for _, p := range sale.Products {
			if _, err := GetProduct(ctx, tx, p.ProductID); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO flash_sale_products (flash_sale_id, product_id, discount_type, discount_value)
				 VALUES ($1, $2, $3, $4)`,
				id, p.ProductID, strings.ToLower(p.DiscountType), p.DiscountValue)
			if err != nil {
				return fmt.Errorf("add flash sale product: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sales, err := queryFlashSales(ctx, db,
		`SELECT id, title, start_datetime, end_datetime, status FROM flash_sales WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, database.ErrFlashSaleNotFound
	}
	return &sales[0], nil
}

func DeleteFlashSale(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM flash_sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flash sale: %w", err)
	}
	return expectRow(result, database.ErrFlashSaleNotFound)
}

func queryFlashSales(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.FlashSale, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flash sales: %w", err)
	}
	defer rows.Close()

	sales := []models.FlashSale{}
	index := map[int64]int{}
	var ids []int64
	for rows.Next() {
		var s models.FlashSale
		if err := rows.Scan(&s.ID, &s.Title, &s.StartDatetime, &s.EndDatetime, &s.Status); err != nil {
			return nil, fmt.Errorf("scan flash sale: %w", err)
		}
		s.Products = []models.FlashSaleProduct{}
		index[s.ID] = len(sales)
		ids = append(ids, s.ID)
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(ids) == 0 {
		return sales, nil
	}

	prows, err := db.QueryContext(ctx,
		`SELECT fp.id, fp.flash_sale_id, fp.product_id, p.name, fp.discount_type, fp.discount_value
		 FROM flash_sale_products fp
		 JOIN products p ON p.id = fp.product_id
		 WHERE fp.flash_sale_id = ANY($1)
		 ORDER BY fp.id`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list flash sale products: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var p models.FlashSaleProduct
		var saleID int64
		if err := prows.Scan(&p.ID, &saleID, &p.ProductID, &p.ProductName, &p.DiscountType, &p.DiscountValue); err != nil {
			return nil, fmt.Errorf("scan flash sale product: %w", err)
		}
		s := &sales[index[saleID]]
		s.Products = append(s.Products, p)
	}
	return sales, prows.Err()
}
