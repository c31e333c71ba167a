package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

func cartID(ctx context.Context, db database.DBTX, userID int64) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id`,
		userID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get cart: %w", err)
	}
	return id, nil
}

// GetCart returns the user's cart, creating an empty one on first use.
func GetCart(ctx context.Context, db database.DBTX, userID int64) (*models.Cart, error) {
	id, err := cartID(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, quantity, price FROM cart_items WHERE cart_id = $1 ORDER BY id`,
		id)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	cart := &models.Cart{ID: id, Items: []models.CartItem{}, TotalPrice: decimal.Zero}
	var productIDs []int64
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.Product.ID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
		productIDs = append(productIDs, item.Product.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	products, err := productsByID(ctx, db, productIDs)
	if err != nil {
		return nil, err
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		if p, ok := products[item.Product.ID]; ok {
			item.Product = p
		}
		cart.TotalPrice = cart.TotalPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return cart, nil
}

// AddToCart adds quantity units, merging with an existing line for the
// same product.
func AddToCart(ctx context.Context, db database.DBTX, userID, productID int64, quantity int) (*models.Cart, error) {
	product, err := GetProduct(ctx, db, productID)
	if err != nil {
		return nil, err
	}

	id, err := cartID(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity, price)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		id, productID, quantity, product.Price)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return GetCart(ctx, db, userID)
}

func UpdateCartItem(ctx context.Context, db database.DBTX, userID, productID int64, quantity int) (*models.Cart, error) {
	id, err := cartID(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE cart_id = $2 AND product_id = $3`,
		quantity, id, productID)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	if err := expectRow(result, database.ErrCartItemNotFound); err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}

// RemoveCartItem is a no-op when the product is not in the cart.
func RemoveCartItem(ctx context.Context, db database.DBTX, userID, productID int64) (*models.Cart, error) {
	id, err := cartID(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, id, productID); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}

	return GetCart(ctx, db, userID)
}

func ClearCart(ctx context.Context, db database.DBTX, userID int64) (*models.Cart, error) {
	id, err := cartID(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, id); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	return GetCart(ctx, db, userID)
}

func productsByID(ctx context.Context, db database.DBTX, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	products, err := queryProducts(ctx, db,
		`SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
