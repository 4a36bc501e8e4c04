package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mailpilot/mailpilot/internal/config"
	"github.com/mailpilot/mailpilot/internal/importer"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/placeholder"
	"github.com/mailpilot/mailpilot/internal/spreadsheet"
)

// RecipientStore is the persistence boundary for imported recipients
type RecipientStore interface {
	RecipientSource
	ReplaceAll(ctx context.Context, ownerID string, recipients []model.Recipient) error
	GetByID(ctx context.Context, ownerID, id string) (*model.Recipient, error)
}

// RecipientService handles spreadsheet import and recipient lookup
type RecipientService struct {
	store RecipientStore
	opts  importer.Options
	now   func() time.Time
	log   *logger.Logger
}

// NewRecipientService creates a RecipientService
func NewRecipientService(store RecipientStore, cfg config.ImportConfig, log *logger.Logger) *RecipientService {
	s := &RecipientService{
		store: store,
		now:   time.Now,
		log:   log.WithComponent("recipients"),
	}
	s.opts = importer.Options{
		Now:                    func() time.Time { return s.now() },
		DefaultTrainerCivility: cfg.DefaultTrainerCivility,
		WorkingDays:            cfg.DefaultRDVWorkingDays,
	}
	return s
}

// ImportResult summarises one import
type ImportResult struct {
	Sheet    string   `json:"sheet"`
	Headers  []string `json:"headers"`
	Imported int      `json:"imported"`
	Dropped  int      `json:"dropped"`
}

// Import parses an uploaded workbook and replaces the owner's recipients
// with its rows.
func (s *RecipientService) Import(ctx context.Context, ownerID string, r io.Reader, filename string) (*ImportResult, error) {
	sheet, err := spreadsheet.Read(r, filename)
	if err != nil {
		return nil, err
	}

	res, err := importer.Normalize(sheet.Rows, sheet.Headers, s.opts)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	for i := range res.Recipients {
		res.Recipients[i].ID = uuid.NewString()
		res.Recipients[i].OwnerID = ownerID
		res.Recipients[i].CreatedAt = createdAt
	}

	if err := s.store.ReplaceAll(ctx, ownerID, res.Recipients); err != nil {
		return nil, fmt.Errorf("failed to store recipients: %w", err)
	}

	s.log.Info().
		Str("owner_id", ownerID).
		Str("file", filename).
		Int("imported", len(res.Recipients)).
		Int("dropped", res.Dropped).
		Msg("recipients imported")

	return &ImportResult{
		Sheet:    sheet.Name,
		Headers:  sheet.Headers,
		Imported: len(res.Recipients),
		Dropped:  res.Dropped,
	}, nil
}

// List returns the owner's recipients in import order
func (s *RecipientService) List(ctx context.Context, ownerID string) ([]model.Recipient, error) {
	return s.store.List(ctx, ownerID)
}

// Get returns one recipient
func (s *RecipientService) Get(ctx context.Context, ownerID, id string) (*model.Recipient, error) {
	return s.store.GetByID(ctx, ownerID, id)
}

// Preview is a rendered message
type Preview struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Preview renders subject and body for one recipient. Without an id the
// templates come back unchanged.
func (s *RecipientService) Preview(ctx context.Context, ownerID, id, subject, body string) (*Preview, error) {
	if id == "" {
		return &Preview{Subject: subject, Body: body}, nil
	}
	rec, err := s.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Subject: placeholder.Render(subject, &rec.Fields),
		Body:    placeholder.RenderHTML(body, &rec.Fields),
	}, nil
}
