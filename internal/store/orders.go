package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `
	id, user_id, status, total_amount,
	ship_name, ship_email, ship_phone, ship_address, ship_city, ship_state, ship_zip, ship_country,
	created_at, updated_at, version`

func scanOrder(row scanner) (*models.Order, error) {
	order := &models.Order{}
	addr := &order.ShippingAddress
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalPrice,
		&addr.Name,
		&addr.Email,
		&addr.Phone,
		&addr.Address,
		&addr.City,
		&addr.State,
		&addr.Zip,
		&addr.Country,
		&order.OrderDate,
		&order.UpdatedAt,
		&order.Version,
	)
	return order, err
}

// CreateOrder places an order for userID. Products are locked without
// waiting, stock is checked and decremented, an optional coupon is applied
// and the ordered lines leave the cart, all in one serializable
// transaction retried on contention.
func CreateOrder(ctx context.Context, db *sql.DB, userID int64, req models.OrderRequest) (*models.Order, error) {
	lines := mergeLines(req.Items)
	if len(lines) == 0 {
		return nil, fmt.Errorf("create order: no items")
	}

	var orderID int64

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			userID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		var totalAmount decimal.Decimal
		productPrices := make(map[int64]decimal.Decimal, len(lines))

		for _, line := range lines {
			product, err := LockProduct(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			productPrices[line.ProductID] = product.Price
			totalAmount = totalAmount.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		if code := strings.TrimSpace(req.CouponCode); code != "" {
			quote, err := redeemCoupon(ctx, tx, code, totalAmount)
			if err != nil {
				return err
			}
			totalAmount = quote.DiscountedAmount
		}

		addr := req.ShippingAddress
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, status, total_amount, payment_method,
			                     ship_name, ship_email, ship_phone, ship_address, ship_city, ship_state, ship_zip, ship_country,
			                     created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW(), 1)
			 RETURNING id`,
			userID, models.OrderStatusProcessing, totalAmount, req.PaymentMethod,
			addr.Name, addr.Email, addr.Phone, addr.Address, addr.City, addr.State, addr.Zip, addr.Country,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range lines {
			unitPrice := productPrices[line.ProductID]
			subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5)`,
				orderID, line.ProductID, line.Quantity, unitPrice, subtotal)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			if err := DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		productIDs := make([]int64, 0, len(lines))
		for _, line := range lines {
			productIDs = append(productIDs, line.ProductID)
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM cart_items
			 WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
			   AND product_id = ANY($2)`,
			userID, pq.Array(productIDs))
		if err != nil {
			return fmt.Errorf("empty cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

func mergeLines(items []models.OrderLine) []models.OrderLine {
	var lines []models.OrderLine
	index := make(map[int64]int)
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, item)
	}
	return lines
}

func GetOrder(ctx context.Context, db database.DBTX, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := attachOrderItems(ctx, db, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// UserOrders lists one customer's orders, newest first.
func UserOrders(ctx context.Context, db database.DBTX, userID int64) ([]models.Order, error) {
	return queryOrders(ctx, db,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID)
}

func AllOrders(ctx context.Context, db database.DBTX) ([]models.Order, error) {
	return queryOrders(ctx, db, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

// ListOrdersCursor pages through orders newest first. userID 0 lists every
// customer's orders.
func ListOrdersCursor(ctx context.Context, db database.DBTX, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	_, limit = normalizePage(1, limit)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = 0 OR user_id = $1)
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	orders, err := queryOrders(ctx, db, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(Cursor{
			CreatedAt: lastOrder.OrderDate,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus sets a new status. A non-zero expectedVersion makes the
// update conditional, failing with ErrOptimisticLockFailed if the order
// changed in between.
func UpdateOrderStatus(ctx context.Context, db database.DBTX, id int64, status string, expectedVersion int) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("invalid order status %q", status)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE orders SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND ($3 = 0 OR version = $3)`,
		status, id, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := GetOrder(ctx, db, id); err != nil {
			return nil, err
		}
		return nil, database.ErrOptimisticLockFailed
	}

	return GetOrder(ctx, db, id)
}

// CancelOrder cancels the user's own order and puts its items back in
// stock. Delivered orders cannot be cancelled; cancelling twice is a no-op.
func CancelOrder(ctx context.Context, db *sql.DB, userID, orderID int64) (*models.Order, error) {
	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var owner int64
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT user_id, status FROM orders WHERE id = $1 FOR UPDATE`,
			orderID).Scan(&owner, &status)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if owner != userID {
			return database.ErrOrderNotFound
		}

		switch status {
		case models.OrderStatusDelivered:
			return database.ErrOrderNotCancellable
		case models.OrderStatusCancelled:
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, version = version + 1, updated_at = NOW() WHERE id = $2`,
			models.OrderStatusCancelled, orderID)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		var lines []models.OrderLine
		for rows.Next() {
			var line models.OrderLine
			if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("scan order item: %w", err)
			}
			lines = append(lines, line)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		for _, line := range lines {
			if err := RestoreStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// NextProcessingOrder claims the oldest order still being processed,
// skipping rows another worker already holds.
func NextProcessingOrder(ctx context.Context, tx *sql.Tx) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		ORDER BY created_at, id
		FOR UPDATE SKIP LOCKED
		LIMIT 1`

	order, err := scanOrder(tx.QueryRowContext(ctx, query, models.OrderStatusProcessing))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get next processing order: %w", err)
	}

	return order, nil
}

// ShipNextOrder marks the oldest processing order as shipped.
func ShipNextOrder(ctx context.Context, db *sql.DB) (*models.Order, error) {
	var id int64

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := NextProcessingOrder(ctx, tx)
		if err != nil {
			return err
		}
		id = order.ID

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, version = version + 1, updated_at = NOW() WHERE id = $2`,
			models.OrderStatusShipped, id)
		if err != nil {
			return fmt.Errorf("ship order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, id)
}

func queryOrders(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachOrderItems(ctx, db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func attachOrderItems(ctx context.Context, db database.DBTX, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	var productIDs []int64
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Product.ID, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
		productIDs = append(productIDs, item.Product.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	products, err := productsByID(ctx, db, productIDs)
	if err != nil {
		return err
	}

	for _, item := range items {
		if p, ok := products[item.Product.ID]; ok {
			item.Product = p
		}
		o := &orders[index[item.OrderID]]
		o.Items = append(o.Items, item)
	}
	return nil
}
