package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, email, phone, verified, enabled, role, created_at`

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Verified,
		&user.Enabled,
		&user.Role,
		&user.CreatedAt,
	)
	return user, err
}

type NewUser struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	Verified     bool
}

func CreateUser(ctx context.Context, db database.DBTX, in NewUser) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	query := `
		INSERT INTO users (name, email, phone, password_hash, role, verified, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query,
		strings.TrimSpace(in.Name),
		normalizeEmail(in.Email),
		strings.TrimSpace(in.Phone),
		in.PasswordHash,
		role,
		in.Verified,
	))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db database.DBTX, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func UserByPhone(ctx context.Context, db database.DBTX, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1 ORDER BY id LIMIT 1`

	user, err := scanUser(db.QueryRowContext(ctx, query, strings.TrimSpace(phone)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by phone: %w", err)
	}

	return user, nil
}

// GetUserCredentials returns the account together with its password hash.
func GetUserCredentials(ctx context.Context, db database.DBTX, email string) (*models.User, string, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE email = $1`

	user := &models.User{}
	var hash string
	err := db.QueryRowContext(ctx, query, normalizeEmail(email)).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Verified,
		&user.Enabled,
		&user.Role,
		&user.CreatedAt,
		&hash,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", database.ErrUserNotFound
		}
		return nil, "", fmt.Errorf("get user credentials: %w", err)
	}

	return user, hash, nil
}

func GetPasswordHash(ctx context.Context, db database.DBTX, userID int64) (string, error) {
	var hash string
	err := db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", database.ErrUserNotFound
		}
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func UpdatePassword(ctx context.Context, db database.DBTX, userID int64, hash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, version = version + 1, updated_at = NOW() WHERE id = $2`,
		hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectRow(result, database.ErrUserNotFound)
}

// UpdateProfile changes the non-empty fields of the profile.
func UpdateProfile(ctx context.Context, db database.DBTX, userID int64, req models.UpdateProfileRequest) (*models.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE(NULLIF($1, ''), name),
		    phone = COALESCE(NULLIF($2, ''), phone),
		    email = COALESCE(NULLIF($3, ''), email),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $4
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query,
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Phone),
		normalizeEmail(req.Email),
		userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

func MarkPhoneVerified(ctx context.Context, db database.DBTX, phone string) (*models.User, error) {
	query := `
		UPDATE users SET verified = TRUE, updated_at = NOW()
		WHERE id = (SELECT id FROM users WHERE phone = $1 ORDER BY id LIMIT 1)
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	return user, nil
}

func AllUsers(ctx context.Context, db database.DBTX) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`
	return queryUsers(ctx, db, query, models.RoleUser)
}

// ListUsers returns customer accounts, newest first.
func ListUsers(ctx context.Context, db database.DBTX, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, models.RoleUser).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	page, pageSize = normalizePage(page, pageSize)
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	users, err := queryUsers(ctx, db, query, models.RoleUser, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(users, total, page, pageSize), nil
}

func SearchUsers(ctx context.Context, db database.DBTX, email string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND email ILIKE '%' || $2 || '%'
		ORDER BY email`

	return queryUsers(ctx, db, query, models.RoleUser, strings.TrimSpace(email))
}

// ToggleUserStatus flips the enabled flag. Disabling an account ends its
// sessions.
func ToggleUserStatus(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	var user *models.User

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		query := `
			UPDATE users SET enabled = NOT enabled, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + userColumns

		var err error
		user, err = scanUser(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrUserNotFound
			}
			return fmt.Errorf("toggle user: %w", err)
		}

		if !user.Enabled {
			if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); err != nil {
				return fmt.Errorf("end sessions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func queryUsers(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.User, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func expectRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
