package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/safar/neokart/internal/database"
)

// IssueOTP stores a fresh six-digit code for phone, replacing any earlier one.
func IssueOTP(ctx context.Context, db database.DBTX, phone string, ttl time.Duration) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	_, err = db.ExecContext(ctx,
		`INSERT INTO otp_codes (phone, code, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (phone) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`,
		phone, code, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	return code, nil
}

// ConsumeOTP checks code for phone and deletes it on success.
func ConsumeOTP(ctx context.Context, db database.DBTX, phone, code string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE phone = $1 AND code = $2 AND expires_at > NOW()`,
		phone, code)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return expectRow(result, database.ErrInvalidOTP)
}

func CreatePasswordReset(ctx context.Context, db database.DBTX, userID int64, ttl time.Duration) (string, error) {
	token := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}
	return token.String(), nil
}

// ResetPassword swaps the password for the account behind a reset token and
// invalidates the token along with every open session of that account.
func ResetPassword(ctx context.Context, db *sql.DB, token, hash string) error {
	id, err := uuid.Parse(token)
	if err != nil {
		return database.ErrInvalidResetToken
	}

	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var userID int64
		err := tx.QueryRowContext(ctx,
			`DELETE FROM password_resets WHERE token = $1 AND expires_at > NOW() RETURNING user_id`,
			id).Scan(&userID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrInvalidResetToken
			}
			return fmt.Errorf("consume reset token: %w", err)
		}

		if err := UpdatePassword(ctx, tx, userID, hash); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("end sessions: %w", err)
		}
		return nil
	})
}
