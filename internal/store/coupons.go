package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// QuoteCoupon prices total under c at time now. It does not count a use.
func QuoteCoupon(c models.Coupon, total decimal.Decimal, now time.Time) (*models.CouponQuote, error) {
	switch {
	case !c.Status:
		return nil, fmt.Errorf("%w: coupon is inactive", database.ErrCouponInvalid)
	case now.Before(c.StartDate) || now.After(c.EndDate):
		return nil, fmt.Errorf("%w: coupon is not valid at this time", database.ErrCouponInvalid)
	case total.LessThan(c.MinPurchaseAmount):
		return nil, fmt.Errorf("%w: cart total is less than the minimum of %s", database.ErrCouponInvalid, c.MinPurchaseAmount.StringFixed(2))
	case c.TimesUsed >= c.UsageLimit:
		return nil, fmt.Errorf("%w: coupon usage limit reached", database.ErrCouponInvalid)
	}

	var discounted decimal.Decimal
	switch strings.ToLower(c.DiscountType) {
	case models.DiscountPercentage:
		discounted = total.Sub(total.Mul(c.DiscountValue).Div(hundred))
	case models.DiscountFixed:
		discounted = total.Sub(c.DiscountValue)
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", database.ErrCouponInvalid, c.DiscountType)
	}

	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	return &models.CouponQuote{OriginalAmount: total, DiscountedAmount: discounted.Round(2)}, nil
}

// ApplyCoupon quotes the coupon and counts one use of it.
func ApplyCoupon(ctx context.Context, db *sql.DB, code string, total decimal.Decimal) (*models.CouponQuote, error) {
	var quote *models.CouponQuote

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		quote, err = redeemCoupon(ctx, tx, code, total)
		return err
	})
	if err != nil {
		return nil, err
	}

	return quote, nil
}

func redeemCoupon(ctx context.Context, tx *sql.Tx, code string, total decimal.Decimal) (*models.CouponQuote, error) {
	coupon, err := scanCoupon(tx.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE UPPER(code) = UPPER($1) FOR UPDATE`,
		strings.TrimSpace(code)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("lock coupon: %w", err)
	}

	quote, err := QuoteCoupon(*coupon, total, time.Now())
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE coupons SET times_used = times_used + 1 WHERE id = $1`, coupon.ID); err != nil {
		return nil, fmt.Errorf("count coupon use: %w", err)
	}

	return quote, nil
}

const couponColumns = `id, code, discount_type, discount_value, min_purchase_amount,
	start_date, end_date, usage_limit, times_used, status`

func scanCoupon(row scanner) (*models.Coupon, error) {
	c := &models.Coupon{}
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MinPurchaseAmount,
		&c.StartDate,
		&c.EndDate,
		&c.UsageLimit,
		&c.TimesUsed,
		&c.Status,
	)
	return c, err
}

func ListCoupons(ctx context.Context, db database.DBTX) ([]models.Coupon, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return coupons, nil
}

func CreateCoupon(ctx context.Context, db database.DBTX, c models.Coupon) (*models.Coupon, error) {
	coupon, err := scanCoupon(db.QueryRowContext(ctx,
		`INSERT INTO coupons (code, discount_type, discount_value, min_purchase_amount,
		                      start_date, end_date, usage_limit, times_used, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		 RETURNING `+couponColumns,
		strings.ToUpper(strings.TrimSpace(c.Code)), strings.ToLower(c.DiscountType), c.DiscountValue,
		c.MinPurchaseAmount, c.StartDate, c.EndDate, c.UsageLimit, c.Status))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("coupon %s already exists: %w", c.Code, err)
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

func DeleteCoupon(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	return expectRow(result, database.ErrCouponNotFound)
}
