package store

import (
	"context"
	"fmt"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
)

func RecordAudit(ctx context.Context, db database.DBTX, action, performedBy string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_logs (action, performed_by, created_at) VALUES ($1, $2, NOW())`,
		action, performedBy)
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// AuditLogs returns the most recent entries first.
func AuditLogs(ctx context.Context, db database.DBTX, limit int) ([]models.AuditLog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, action, performed_by, created_at FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.Action, &l.PerformedBy, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return logs, nil
}
