package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mailpilot/mailpilot/internal/ai"
	"github.com/mailpilot/mailpilot/internal/classify"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/importer"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/middleware"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/repository"
	"github.com/mailpilot/mailpilot/internal/service"
	"github.com/mailpilot/mailpilot/internal/spreadsheet"
)

// RecipientService is the recipient API used by the handlers
type RecipientService interface {
	Import(ctx context.Context, ownerID string, r io.Reader, filename string) (*service.ImportResult, error)
	List(ctx context.Context, ownerID string) ([]model.Recipient, error)
	Get(ctx context.Context, ownerID, id string) (*model.Recipient, error)
	Preview(ctx context.Context, ownerID, id, subject, body string) (*service.Preview, error)
}

// SendService is the send API used by the handlers
type SendService interface {
	Confirm(ctx context.Context, ownerID string, ids []string) (classify.Counts, error)
	Send(ctx context.Context, ownerID string, in service.SendInput) (*model.SendSummary, error)
	Progress(ctx context.Context, ownerID string) (*model.SendProgress, error)
	Cancel(ownerID string) error
}

// HistoryService is the history API used by the handlers
type HistoryService interface {
	List(ctx context.Context, ownerID string, limit int) ([]model.DeliveryLog, error)
	Stats(ctx context.Context, ownerID string) (model.DeliveryStats, error)
}

// SettingsService is the SMTP settings API used by the handlers
type SettingsService interface {
	Get(ctx context.Context, ownerID string) (*model.SMTPSettings, error)
	Save(ctx context.Context, ownerID string, in service.SaveSettingsInput) (*model.SMTPSettings, error)
	Test(ctx context.Context, ownerID, sessionPass string) (email.Result, error)
}

// MessageService is the message drafting API used by the handlers
type MessageService interface {
	Generate(ctx context.Context, ownerID string, in service.GenerateInput) (string, error)
}

// HealthChecker is a dependency probed by the health endpoints
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services are the collaborators of a Handler
type Services struct {
	Recipients RecipientService
	Send       SendService
	History    HistoryService
	Settings   SettingsService
	Messages   MessageService
}

// Handler holds all HTTP handlers
type Handler struct {
	log            *logger.Logger
	recipients     RecipientService
	send           SendService
	history        HistoryService
	settings       SettingsService
	messages       MessageService
	checks         map[string]HealthChecker
	maxUploadBytes int64
}

const defaultMaxUploadBytes = 10 << 20

// New creates a new Handler instance. checks maps a dependency name to its
// health probe.
func New(log *logger.Logger, svcs Services, checks map[string]HealthChecker, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		log:            log.WithComponent("http"),
		recipients:     svcs.Recipients,
		send:           svcs.Send,
		history:        svcs.History,
		settings:       svcs.Settings,
		messages:       svcs.Messages,
		checks:         checks,
		maxUploadBytes: maxUploadBytes,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// ownerID returns the authenticated owner, writing a 401 when there is none
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, _ := r.Context().Value(middleware.OwnerIDKey).(string)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return "", false
	}
	return id, true
}

const generationFailedMessage = "Échec de la génération du message par l'IA. Veuillez réessayer."

// writeServiceError maps service errors onto the HTTP error envelope
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, service.ErrMissingTransportConfig):
		writeError(w, http.StatusPreconditionFailed, "missing_transport_config", "Mail transport settings are not configured")
	case errors.Is(err, service.ErrMissingPassword):
		writeError(w, http.StatusPreconditionFailed, "missing_password", "An SMTP password is required")
	case errors.Is(err, service.ErrSealingUnavailable):
		writeError(w, http.StatusBadRequest, "password_storage_unavailable", "Passwords cannot be saved on this server")
	case errors.Is(err, service.ErrInvalidSettings),
		errors.Is(err, service.ErrMissingTemplate):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "empty_batch", "No recipients to send to")
	case errors.Is(err, service.ErrSendInProgress):
		writeError(w, http.StatusConflict, "send_in_progress", "A send is already running for this account")
	case errors.Is(err, service.ErrNoActiveSend),
		errors.Is(err, service.ErrNoProgress):
		writeError(w, http.StatusNotFound, "no_active_send", err.Error())
	case errors.Is(err, importer.ErrMissingEmailColumn),
		errors.Is(err, importer.ErrNoDataRows),
		errors.Is(err, spreadsheet.ErrNoHeaderRow),
		errors.Is(err, spreadsheet.ErrUnsupportedFormat),
		errors.Is(err, spreadsheet.ErrCorruptFile):
		writeError(w, http.StatusBadRequest, "invalid_file", err.Error())
	case errors.Is(err, ai.ErrDisabled):
		writeError(w, http.StatusNotImplemented, "generation_disabled", "Message generation is not configured")
	case errors.Is(err, service.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, "generation_failed", generationFailedMessage)
	default:
		h.log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg(fallback)
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
