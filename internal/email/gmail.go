package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	mail "gopkg.in/gomail.v2"
)

// GmailConfig holds the configuration for the Gmail sender.
type GmailConfig struct {
	// CredentialsJSON is a service account key with domain-wide delegation.
	CredentialsJSON string
	// ClientID, ClientSecret and RefreshToken authenticate a personal mailbox
	// when no service account is available.
	ClientID     string
	ClientSecret string
	RefreshToken string
	// SenderAddress is the mailbox messages are sent from.
	SenderAddress string
	SenderName    string
}

// GmailSender implements Sender using the Gmail API.
type GmailSender struct {
	service       *gmail.Service
	senderAddress string
	senderName    string
}

// NewGmailSender picks service account or refresh token auth depending on
// which credentials are present.
func NewGmailSender(ctx context.Context, cfg GmailConfig) (*GmailSender, error) {
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("gmail: sender address is required")
	}

	var opt option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
		}
		// impersonate the sender mailbox
		jwtConfig.Subject = cfg.SenderAddress
		opt = option.WithHTTPClient(jwtConfig.Client(ctx))
	case cfg.RefreshToken != "":
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		}
		opt = option.WithHTTPClient(oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	default:
		return nil, fmt.Errorf("%w: gmail needs credentials JSON or a refresh token", ErrInvalidConfig)
	}

	svc, err := gmail.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}

	return &GmailSender{
		service:       svc,
		senderAddress: cfg.SenderAddress,
		senderName:    cfg.SenderName,
	}, nil
}

// Send sends an email via the Gmail API.
func (g *GmailSender) Send(ctx context.Context, msg Message) error {
	raw, err := g.encode(msg)
	if err != nil {
		return err
	}

	_, err = g.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail: failed to send email: %w", err)
	}
	return nil
}

func (g *GmailSender) encode(msg Message) (string, error) {
	m := mail.NewMessage()
	if msg.From != "" {
		m.SetHeader("From", msg.From)
	} else {
		m.SetAddressHeader("From", g.senderAddress, g.senderName)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("gmail: failed to encode message: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}
