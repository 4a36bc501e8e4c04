package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "gopkg.in/gomail.v2"
)

// SMTPTransport delivers through the owner's SMTP server
type SMTPTransport struct {
	// SkipTLSVerify accepts self-signed certificates, which many hosted
	// mailboxes present on their submission port.
	SkipTLSVerify bool

	dial func(d *mail.Dialer, m ...*mail.Message) error
}

// NewSMTPTransport creates an SMTPTransport
func NewSMTPTransport(skipTLSVerify bool) *SMTPTransport {
	return &SMTPTransport{SkipTLSVerify: skipTLSVerify}
}

// SendEmail implements Transport. From is the authenticated user. It returns
// only once the SMTP exchange has finished; ctx is checked before dialing.
func (t *SMTPTransport) SendEmail(ctx context.Context, cfg Config, to, subject, htmlBody string) Result {
	m := mail.NewMessage()
	m.SetHeader("From", cfg.User)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := t.send(ctx, cfg, m); err != nil {
		return failedResult(to, err)
	}
	return sentResult(to)
}

// Verify opens and authenticates a session without sending anything
func (t *SMTPTransport) Verify(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := t.dialer(cfg).Dial()
	if err != nil {
		return err
	}
	return s.Close()
}

// SendTest sends a connectivity check message from the user to themselves
func (t *SMTPTransport) SendTest(ctx context.Context, cfg Config, appName string) Result {
	if err := cfg.Validate(); err != nil {
		return Result{Success: false, Message: "La configuration SMTP est incomplète. Le mot de passe est requis pour le test."}
	}
	if err := t.Verify(ctx, cfg); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Échec de la connexion: %v", err)}
	}

	m := mail.NewMessage()
	m.SetHeader("From", cfg.User)
	m.SetHeader("To", cfg.User)
	m.SetHeader("Subject", TestEmailSubject)
	m.SetBody("text/plain", TestEmailText(appName))
	m.AddAlternative("text/html", TestEmailHTML(appName))

	if err := t.send(ctx, cfg, m); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Échec de la connexion: %v", err)}
	}
	return Result{Success: true, Message: "Connexion réussie. E-mail de test envoyé."}
}

func (t *SMTPTransport) dialer(cfg Config) *mail.Dialer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.SSL = cfg.Secure
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: t.SkipTLSVerify,
	}
	return d
}

// send runs the whole exchange synchronously. gomail has no context
// support; its dialer bounds connection setup with a fixed timeout.
func (t *SMTPTransport) send(ctx context.Context, cfg Config, m *mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dial := t.dial
	if dial == nil {
		dial = func(d *mail.Dialer, m ...*mail.Message) error { return d.DialAndSend(m...) }
	}
	return dial(t.dialer(cfg), m)
}
