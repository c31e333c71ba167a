package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

// SaveContactMessage stamps msg with the server clock and stores it.
func SaveContactMessage(ctx context.Context, db database.DBTX, msg models.ContactMessage) (*models.ContactMessage, error) {
	saved := msg
	saved.Name = strings.TrimSpace(msg.Name)
	saved.Email = normalizeEmail(msg.Email)
	saved.Subject = strings.TrimSpace(msg.Subject)

	err := db.QueryRowContext(ctx,
		`INSERT INTO contact_messages (name, email, subject, message, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, created_at`,
		saved.Name, saved.Email, saved.Subject, saved.Message,
	).Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save contact message: %w", err)
	}
	return &saved, nil
}

// ContactMessages returns the inbox newest first.
func ContactMessages(ctx context.Context, db database.DBTX) ([]models.ContactMessage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, email, subject, message, created_at
		 FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.ContactMessage{}
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return msgs, nil
}
