package repository

import (
	"context"
	"fmt"

	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/model"
)

// DeliveryLogRepository persists send history. Entries are only ever
// appended; there is no update or delete.
type DeliveryLogRepository struct {
	db *database.Postgres
}

// NewDeliveryLogRepository creates a new DeliveryLogRepository
func NewDeliveryLogRepository(db *database.Postgres) *DeliveryLogRepository {
	return &DeliveryLogRepository{db: db}
}

// Append inserts one history entry
func (r *DeliveryLogRepository) Append(ctx context.Context, entry *model.DeliveryLog) error {
	query := `
		INSERT INTO delivery_logs (id, owner_id, batch_id, email_key, beneficiary_name,
		    beneficiary_email, beneficiary_initials, trainer, appointment, status, message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.BatchID,
		entry.EmailKey,
		entry.Beneficiary.Name,
		entry.Beneficiary.Email,
		entry.Beneficiary.Initials,
		entry.Trainer,
		entry.Date,
		string(entry.Status),
		entry.Message,
		entry.SentAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}

// EmailKeys returns the distinct dedup keys recorded for an owner. When
// includeFailed is false only Delivered entries count.
func (r *DeliveryLogRepository) EmailKeys(ctx context.Context, ownerID string, includeFailed bool) ([]string, error) {
	query := `
		SELECT DISTINCT email_key
		FROM delivery_logs
		WHERE owner_id = $1 AND ($2::boolean OR status = 'Delivered')
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, includeFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list email keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan email key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate email keys: %w", err)
	}
	return keys, nil
}

// List returns the owner's most recent entries, newest first. A non-positive
// limit returns everything.
func (r *DeliveryLogRepository) List(ctx context.Context, ownerID string, limit int) ([]model.DeliveryLog, error) {
	query := `
		SELECT id, owner_id, batch_id, email_key, beneficiary_name, beneficiary_email,
		       beneficiary_initials, trainer, appointment, status, message, sent_at
		FROM delivery_logs
		WHERE owner_id = $1
		ORDER BY sent_at DESC, id
	`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer rows.Close()

	var logs []model.DeliveryLog
	for rows.Next() {
		var (
			l      model.DeliveryLog
			status string
		)
		if err := rows.Scan(
			&l.ID, &l.OwnerID, &l.BatchID, &l.EmailKey,
			&l.Beneficiary.Name, &l.Beneficiary.Email, &l.Beneficiary.Initials,
			&l.Trainer, &l.Date, &status, &l.Message, &l.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		l.Status = model.DeliveryStatus(status)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery logs: %w", err)
	}
	return logs, nil
}

// Stats counts the owner's entries by status
func (r *DeliveryLogRepository) Stats(ctx context.Context, ownerID string) (model.DeliveryStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'Delivered'),
		       COUNT(*) FILTER (WHERE status = 'Failed')
		FROM delivery_logs
		WHERE owner_id = $1
	`
	var s model.DeliveryStats
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&s.Total, &s.Delivered, &s.Failed); err != nil {
		return model.DeliveryStats{}, fmt.Errorf("failed to compute delivery stats: %w", err)
	}
	return s, nil
}
