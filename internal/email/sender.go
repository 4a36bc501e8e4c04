package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned when transport settings are unusable
var ErrInvalidConfig = errors.New("invalid mail transport configuration")

// Config holds the per-owner SMTP connection settings
type Config struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Secure bool
}

// Validate checks that every field needed to open an authenticated session is set
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d is out of range", ErrInvalidConfig, c.Port)
	case strings.TrimSpace(c.User) == "":
		return fmt.Errorf("%w: user is required", ErrInvalidConfig)
	case c.Pass == "":
		return fmt.Errorf("%w: password is required", ErrInvalidConfig)
	}
	return nil
}

// Result is the outcome of one dispatch. Ordinary delivery failures are
// reported here rather than as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Transport sends a single HTML message with caller-supplied settings.
type Transport interface {
	SendEmail(ctx context.Context, cfg Config, to, subject, htmlBody string) Result
}

// Sender is implemented by providers that carry their own credentials.
type Sender interface {
	// Send sends an email to the specified recipient.
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	From     string // envelope sender, provider default when empty
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
	TextBody string // plain-text fallback body
}

func sentResult(to string) Result {
	return Result{Success: true, Message: fmt.Sprintf("E-mail envoyé à %s", to)}
}

func failedResult(to string, err error) Result {
	return Result{Success: false, Message: fmt.Sprintf("Échec de l'envoi à %s: %v", to, err)}
}

// SenderTransport adapts a Sender to the Transport interface. The per-call
// SMTP settings are ignored.
type SenderTransport struct {
	Sender Sender
}

// SendEmail implements Transport
func (t SenderTransport) SendEmail(ctx context.Context, _ Config, to, subject, htmlBody string) Result {
	err := t.Sender.Send(ctx, Message{To: to, Subject: subject, HTMLBody: htmlBody})
	if err != nil {
		return failedResult(to, err)
	}
	return sentResult(to)
}

// NoopTransport accepts every message without sending it
type NoopTransport struct{}

// SendEmail implements Transport
func (NoopTransport) SendEmail(_ context.Context, _ Config, to, _, _ string) Result {
	return sentResult(to)
}
