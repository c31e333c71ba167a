package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

// RateProduct records the user's rating, replacing an earlier one.
func RateProduct(ctx context.Context, db database.DBTX, productID, userID int64, req models.RatingRequest) error {
	if _, err := GetProduct(ctx, db, productID); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO product_ratings (product_id, user_id, stars, comment, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (product_id, user_id)
		 DO UPDATE SET stars = EXCLUDED.stars, comment = EXCLUDED.comment, created_at = NOW()`,
		productID, userID, req.Stars, strings.TrimSpace(req.Comment))
	if err != nil {
		return fmt.Errorf("rate product: %w", err)
	}
	return nil
}

func ProductRatings(ctx context.Context, db database.DBTX, productID int64) ([]models.ProductRating, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT u.name, r.stars, r.comment
		 FROM product_ratings r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.product_id = $1
		 ORDER BY r.created_at DESC, r.id DESC`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := []models.ProductRating{}
	for rows.Next() {
		var r models.ProductRating
		if err := rows.Scan(&r.Username, &r.Stars, &r.Comment); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ratings, nil
}
