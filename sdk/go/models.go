package mailpilot

import (
	"github.com/mailpilot/mailpilot/internal/ai"
	"github.com/mailpilot/mailpilot/internal/classify"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/service"
)

// Resource types shared with the server.
type (
	Record        = model.Record
	Field         = model.Field
	Recipient     = model.Recipient
	DeliveryLog   = model.DeliveryLog
	DeliveryStats = model.DeliveryStats
	SendSummary   = model.SendSummary
	SendProgress  = model.SendProgress
	SMTPSettings  = model.SMTPSettings
	Counts        = classify.Counts
	ImportResult  = service.ImportResult
	Preview       = service.Preview
	TestResult    = email.Result
)

// Request bodies. GenerateRequest fields left empty are filled from the
// recipient when RecipientID is set.
type (
	SendRequest         = service.SendInput
	SaveSettingsRequest = service.SaveSettingsInput
	GenerateRequest     = service.GenerateInput
	MessageDetails      = ai.ConfirmationInput
)

// SendResult is the outcome of a send call
type SendResult struct {
	SendSummary
	// Cancelled is set when the batch was stopped before it finished
	Cancelled bool `json:"cancelled,omitempty"`
}

// Health is the server health report
type Health struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}

type recipientList struct {
	Recipients []Recipient `json:"recipients"`
	Total      int         `json:"total"`
}

type historyList struct {
	Entries []DeliveryLog `json:"entries"`
	Total   int           `json:"total"`
}

type confirmRequest struct {
	RecipientIDs []string `json:"recipientIds,omitempty"`
}

type previewRequest struct {
	RecipientID string `json:"recipientId,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

type testRequest struct {
	Password string `json:"password,omitempty"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
