package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

// CreateSession issues an opaque bearer token for userID.
func CreateSession(ctx context.Context, db database.DBTX, userID int64, ttl time.Duration) (string, error) {
	token := uuid.New()

	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, NOW(), $3)`,
		token, userID, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return token.String(), nil
}

// SessionUser resolves a bearer token to an enabled account.
func SessionUser(ctx context.Context, db database.DBTX, token string) (*models.User, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return nil, database.ErrSessionNotFound
	}

	query := `
		SELECT u.id, u.name, u.email, u.phone, u.verified, u.enabled, u.role, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW() AND u.enabled`

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	return user, nil
}

func DeleteSession(ctx context.Context, db database.DBTX, token string) error {
	id, err := uuid.Parse(token)
	if err != nil {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func PurgeExpiredSessions(ctx context.Context, db database.DBTX) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return result.RowsAffected()
}
