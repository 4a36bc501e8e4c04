package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/model"
)

// RecipientRepository handles recipient persistence. Every query is scoped
// by owner.
type RecipientRepository struct {
	db *database.Postgres
}

// NewRecipientRepository creates a new RecipientRepository
func NewRecipientRepository(db *database.Postgres) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// ReplaceAll deletes the owner's recipients and inserts the new batch in one
// transaction.
func (r *RecipientRepository) ReplaceAll(ctx context.Context, ownerID string, recipients []model.Recipient) error {
	if ownerID == "" {
		return ErrInvalidInput
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipients WHERE owner_id = $1`, ownerID); err != nil {
			return fmt.Errorf("failed to clear recipients: %w", err)
		}

		if len(recipients) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO recipients (id, owner_id, position, fields, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare recipient insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range recipients {
			fields, err := json.Marshal(rec.Fields)
			if err != nil {
				return fmt.Errorf("failed to encode recipient %s: %w", rec.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, rec.ID, ownerID, rec.Position, fields, rec.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert recipient %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// List returns the owner's recipients in import order
func (r *RecipientRepository) List(ctx context.Context, ownerID string) ([]model.Recipient, error) {
	query := `
		SELECT id, owner_id, position, fields, created_at
		FROM recipients
		WHERE owner_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return scanRecipients(rows)
}

// ListByIDs returns the owner's recipients among ids, in import order.
// Unknown ids are ignored.
func (r *RecipientRepository) ListByIDs(ctx context.Context, ownerID string, ids []string) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, owner_id, position, fields, created_at
		FROM recipients
		WHERE owner_id = $1 AND id::text = ANY($2)
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients by id: %w", err)
	}
	return scanRecipients(rows)
}

// GetByID retrieves one of the owner's recipients
func (r *RecipientRepository) GetByID(ctx context.Context, ownerID, id string) (*model.Recipient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, owner_id, position, fields, created_at
		FROM recipients
		WHERE owner_id = $1 AND id = $2
	`
	rec, err := scanRecipient(r.db.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	return rec, nil
}

// Count returns how many recipients the owner has
func (r *RecipientRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row scanner) (*model.Recipient, error) {
	var (
		rec    model.Recipient
		fields []byte
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Position, &fields, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode recipient %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func scanRecipients(rows *sql.Rows) ([]model.Recipient, error) {
	defer rows.Close()

	var out []model.Recipient
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}
	return out, nil
}
