package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

const variantColumns = `id, product_id, variant_name, color, size, storage, price, stock, sku`

func ListVariants(ctx context.Context, db database.DBTX, productID int64) ([]models.ProductVariant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	variants := []models.ProductVariant{}
	for rows.Next() {
		var v models.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.VariantName, &v.Color, &v.Size, &v.Storage, &v.Price, &v.Stock, &v.SKU); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return variants, nil
}

func AddVariant(ctx context.Context, db database.DBTX, productID int64, v models.ProductVariant) (*models.ProductVariant, error) {
	if _, err := GetProduct(ctx, db, productID); err != nil {
		return nil, err
	}

	out := &models.ProductVariant{}
	err := db.QueryRowContext(ctx,
		`INSERT INTO product_variants (product_id, variant_name, color, size, storage, price, stock, sku)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+variantColumns,
		productID, strings.TrimSpace(v.VariantName), v.Color, v.Size, v.Storage, v.Price, v.Stock, v.SKU,
	).Scan(&out.ID, &out.ProductID, &out.VariantName, &out.Color, &out.Size, &out.Storage, &out.Price, &out.Stock, &out.SKU)
	if err != nil {
		return nil, fmt.Errorf("add variant: %w", err)
	}
	return out, nil
}

func DeleteVariant(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	return expectRow(result, database.ErrVariantNotFound)
}
