package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailpilot/mailpilot/internal/ai"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/model"
)

// ErrGenerationFailed wraps any provider failure other than ai.ErrDisabled
var ErrGenerationFailed = errors.New("message generation failed")

// RecipientLookup finds one recipient
type RecipientLookup interface {
	GetByID(ctx context.Context, ownerID, id string) (*model.Recipient, error)
}

// MessageService drafts confirmation messages
type MessageService struct {
	generator  ai.Generator
	recipients RecipientLookup
	log        *logger.Logger
}

// NewMessageService creates a MessageService. recipients may be nil.
func NewMessageService(generator ai.Generator, recipients RecipientLookup, log *logger.Logger) *MessageService {
	return &MessageService{
		generator:  generator,
		recipients: recipients,
		log:        log.WithComponent("messages"),
	}
}

// GenerateInput is a draft request. Fields left empty are filled from the
// recipient named by RecipientID, when given.
type GenerateInput struct {
	ai.ConfirmationInput
	RecipientID string `json:"recipientId,omitempty"`
}

// Generate returns a drafted message body
func (s *MessageService) Generate(ctx context.Context, ownerID string, in GenerateInput) (string, error) {
	req := in.ConfirmationInput
	if in.RecipientID != "" && s.recipients != nil {
		rec, err := s.recipients.GetByID(ctx, ownerID, in.RecipientID)
		if err != nil {
			return "", err
		}
		fillFromRecord(&req, rec.Fields)
	}

	msg, err := s.generator.GenerateConfirmation(ctx, req)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return "", err
		}
		s.log.Error().Err(err).Str("owner_id", ownerID).Msg("confirmation generation failed")
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return msg, nil
}

func fillFromRecord(in *ai.ConfirmationInput, rec model.Record) {
	if in.RecipientName == "" {
		in.RecipientName = rec.Get(model.FieldBeneficiaryName)
	}
	if in.TrainerName == "" {
		in.TrainerName = rec.Get(model.FieldTrainerName)
	}
	if in.EventDate == "" {
		date := rec.Get(model.FieldRDVDate)
		if t := rec.Get(model.FieldRDVTime); t != "" && date != "" {
			date += " à " + t
		}
		in.EventDate = date
	}
}
