package email

import (
	"context"
	"fmt"

	"github.com/mailpilot/mailpilot/internal/config"
)

// NewTransport builds the campaign transport selected by cfg.Provider
func NewTransport(ctx context.Context, cfg config.EmailConfig) (Transport, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPTransport(cfg.SkipTLSVerify), nil
	case "gmail":
		sender, err := NewGmailSender(ctx, GmailConfig{
			CredentialsJSON: cfg.Gmail.CredentialsJSON,
			ClientID:        cfg.Gmail.ClientID,
			ClientSecret:    cfg.Gmail.ClientSecret,
			RefreshToken:    cfg.Gmail.RefreshToken,
			SenderAddress:   cfg.Gmail.SenderAddress,
			SenderName:      cfg.Gmail.SenderName,
		})
		if err != nil {
			return nil, err
		}
		return SenderTransport{Sender: sender}, nil
	case "noop":
		return NoopTransport{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// UsesOwnerSettings reports whether the provider dials the owner's own SMTP server
func UsesOwnerSettings(provider string) bool {
	return provider == "" || provider == "smtp"
}
