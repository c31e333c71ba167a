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

const productColumns = `
	p.id, p.sku, p.name, p.description, p.price, p.stock_quantity, p.category, p.sub_category,
	(SELECT AVG(r.stars)::float8 FROM product_ratings r WHERE r.product_id = p.id) AS avg_rating,
	p.created_at, p.updated_at, p.version`

func scanProduct(row scanner) (*models.Product, error) {
	product := &models.Product{}
	var rating sql.NullFloat64
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Category,
		&product.SubCategory,
		&rating,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if rating.Valid {
		product.AverageRating = &rating.Float64
	}
	return product, err
}

// CreateProduct inserts the product and its images; the first image is
// the primary one.
func CreateProduct(ctx context.Context, db *sql.DB, in models.ProductInput, imageURLs []string) (*models.Product, error) {
	var id int64

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO products (sku, name, description, price, stock_quantity, category, sub_category, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
			 RETURNING id`,
			skuFor(in), strings.TrimSpace(in.Name), in.Description, in.Price, in.Stock,
			strings.TrimSpace(in.Category), strings.TrimSpace(in.SubCategory)).Scan(&id)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return database.ErrSKUTaken
			}
			return fmt.Errorf("create product: %w", err)
		}

		for i, url := range imageURLs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO product_images (product_id, image_url, is_primary) VALUES ($1, $2, $3)`,
				id, url, i == 0)
			if err != nil {
				return fmt.Errorf("add product image: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetProduct(ctx, db, id)
}

func GetProduct(ctx context.Context, db database.DBTX, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	products := []models.Product{*product}
	if err := attachImages(ctx, db, products); err != nil {
		return nil, err
	}

	return &products[0], nil
}

// UpdateProduct replaces the editable fields. A non-zero expectedVersion
// makes the update conditional on the row not having changed since it was
// read.
func UpdateProduct(ctx context.Context, db database.DBTX, id int64, in models.ProductInput, expectedVersion int) (*models.Product, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, stock_quantity = $4,
		     sku = COALESCE(NULLIF($5, ''), sku), category = $6, sub_category = $7,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $8 AND ($9 = 0 OR version = $9)`,
		strings.TrimSpace(in.Name), in.Description, in.Price, in.Stock, strings.TrimSpace(in.SKU),
		strings.TrimSpace(in.Category), strings.TrimSpace(in.SubCategory), id, expectedVersion)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrSKUTaken
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := GetProduct(ctx, db, id); err != nil {
			return nil, err
		}
		return nil, database.ErrOptimisticLockFailed
	}

	return GetProduct(ctx, db, id)
}

func DeleteProduct(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectRow(result, database.ErrProductNotFound)
}

// AllProducts returns every product in insertion order.
func AllProducts(ctx context.Context, db database.DBTX) ([]models.Product, error) {
	return queryProducts(ctx, db, `SELECT `+productColumns+` FROM products p ORDER BY p.id`)
}

func ListProducts(ctx context.Context, db database.DBTX, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	page, pageSize = normalizePage(page, pageSize)
	query := `
		SELECT ` + productColumns + `
		FROM products p
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2`

	products, err := queryProducts(ctx, db, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

func ProductsByCategory(ctx context.Context, db database.DBTX, category string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE LOWER(p.category) = LOWER($1) ORDER BY p.id`
	return queryProducts(ctx, db, query, category)
}

type ProductFilter struct {
	Category    string
	SubCategory string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	SortBy      string
}

var productOrderings = map[string]string{
	"":            "p.id",
	"rating_desc": "avg_rating DESC NULLS LAST, p.id",
	"price_asc":   "p.price ASC, p.id",
	"price_desc":  "p.price DESC, p.id",
	"newest":      "p.created_at DESC, p.id DESC",
}

func ValidProductSort(sortBy string) bool {
	_, ok := productOrderings[sortBy]
	return ok
}

// FilterProducts narrows a category by sub-category and price range and
// orders by one of rating_desc, price_asc, price_desc or newest.
func FilterProducts(ctx context.Context, db database.DBTX, f ProductFilter) ([]models.Product, error) {
	order, ok := productOrderings[f.SortBy]
	if !ok {
		return nil, fmt.Errorf("unknown sort %q", f.SortBy)
	}

	var min, max any
	if f.MinPrice != nil {
		min = *f.MinPrice
	}
	if f.MaxPrice != nil {
		max = *f.MaxPrice
	}

	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE LOWER(p.category) = LOWER($1)
		  AND ($2 = '' OR LOWER(p.sub_category) = LOWER($2))
		  AND ($3::numeric IS NULL OR p.price >= $3::numeric)
		  AND ($4::numeric IS NULL OR p.price <= $4::numeric)
		ORDER BY ` + order

	return queryProducts(ctx, db, query, f.Category, f.SubCategory, min, max)
}

func SearchProducts(ctx context.Context, db database.DBTX, q string) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.name ILIKE '%' || $1 || '%'
		   OR p.description ILIKE '%' || $1 || '%'
		   OR p.category ILIKE '%' || $1 || '%'
		ORDER BY p.name ILIKE $1 || '%' DESC, p.name
		LIMIT 50`
	return queryProducts(ctx, db, query, strings.TrimSpace(q))
}

// RelatedProducts returns other products from the same category.
func RelatedProducts(ctx context.Context, db database.DBTX, category string, excludeID int64, limit int) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE LOWER(p.category) = LOWER($1) AND p.id <> $2
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3`
	return queryProducts(ctx, db, query, category, excludeID, limit)
}

func Categories(ctx context.Context, db database.DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return categories, nil
}

func CategoryTree(ctx context.Context, db database.DBTX) ([]models.CategoryTree, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT category, COALESCE(ARRAY_AGG(DISTINCT sub_category) FILTER (WHERE sub_category <> ''), '{}')
		FROM products
		GROUP BY category
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list category tree: %w", err)
	}
	defer rows.Close()

	tree := []models.CategoryTree{}
	for rows.Next() {
		var node models.CategoryTree
		if err := rows.Scan(&node.Category, pq.Array(&node.SubCategories)); err != nil {
			return nil, fmt.Errorf("scan category tree: %w", err)
		}
		tree = append(tree, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tree, nil
}

// LockProduct takes a row lock without waiting; a held lock surfaces as
// ErrLockTimeout so the surrounding retry loop can back off.
func LockProduct(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 FOR UPDATE NOWAIT`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, productID))
	if err != nil {
		if database.IsLockNotAvailable(err) {
			return nil, fmt.Errorf("%w: %w", database.ErrLockTimeout, err)
		}
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	if product.Stock < quantity {
		return nil, fmt.Errorf("%w for %s", database.ErrInsufficientStock, product.Name)
	}

	return product, nil
}

func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return expectRow(result, database.ErrInsufficientStock)
}

func RestoreStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func queryProducts(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachImages(ctx, db, products); err != nil {
		return nil, err
	}
	return products, nil
}

func attachImages(ctx context.Context, db database.DBTX, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, image_url, is_primary
		 FROM product_images
		 WHERE product_id = ANY($1)
		 ORDER BY is_primary DESC, id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		var productID int64
		if err := rows.Scan(&img.ID, &productID, &img.ImageURL, &img.IsPrimary); err != nil {
			return fmt.Errorf("scan product image: %w", err)
		}
		i := index[productID]
		products[i].Images = append(products[i].Images, img)
	}
	return rows.Err()
}

func skuFor(in models.ProductInput) string {
	if sku := strings.TrimSpace(in.SKU); sku != "" {
		return sku
	}
	return "SKU-" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.Name), " ", "-"))
}
