package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/model"
)

// SMTPSettingsRepository stores one SMTP configuration per owner. Only the
// sealed password is persisted.
type SMTPSettingsRepository struct {
	db *database.Postgres
}

// NewSMTPSettingsRepository creates a new SMTPSettingsRepository
func NewSMTPSettingsRepository(db *database.Postgres) *SMTPSettingsRepository {
	return &SMTPSettingsRepository{db: db}
}

// Get returns the owner's settings or ErrNotFound
func (r *SMTPSettingsRepository) Get(ctx context.Context, ownerID string) (*model.SMTPSettings, error) {
	query := `
		SELECT owner_id, host, port, username, sealed_pass, secure, save_password, updated_at
		FROM smtp_settings
		WHERE owner_id = $1
	`
	var s model.SMTPSettings
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&s.OwnerID, &s.Host, &s.Port, &s.User, &s.SealedPass, &s.Secure, &s.SavePassword, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get smtp settings: %w", err)
	}
	return &s, nil
}

// Save inserts or replaces the owner's settings
func (r *SMTPSettingsRepository) Save(ctx context.Context, s *model.SMTPSettings) error {
	query := `
		INSERT INTO smtp_settings (owner_id, host, port, username, sealed_pass, secure, save_password, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id) DO UPDATE SET
		    host = EXCLUDED.host,
		    port = EXCLUDED.port,
		    username = EXCLUDED.username,
		    sealed_pass = EXCLUDED.sealed_pass,
		    secure = EXCLUDED.secure,
		    save_password = EXCLUDED.save_password,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.OwnerID, s.Host, s.Port, s.User, s.SealedPass, s.Secure, s.SavePassword, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save smtp settings: %w", err)
	}
	return nil
}
