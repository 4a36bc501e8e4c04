package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailpilot/mailpilot/internal/auth"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/repository"
)

// Settings errors
var (
	ErrMissingTransportConfig = errors.New("mail transport settings are not configured")
	ErrMissingPassword        = errors.New("smtp password is required")
	ErrSealingUnavailable     = errors.New("saving passwords requires an encryption key")
	ErrInvalidSettings        = errors.New("invalid smtp settings")
)

// SettingsStore persists per-owner SMTP settings
type SettingsStore interface {
	Get(ctx context.Context, ownerID string) (*model.SMTPSettings, error)
	Save(ctx context.Context, s *model.SMTPSettings) error
}

// ConnectionTester sends the SMTP connectivity check
type ConnectionTester interface {
	SendTest(ctx context.Context, cfg email.Config, appName string) email.Result
}

// SettingsService manages SMTP settings and resolves them into transport
// configuration at send time.
type SettingsService struct {
	store   SettingsStore
	sealer  *auth.Sealer
	tester  ConnectionTester
	appName string
	now     func() time.Time
	log     *logger.Logger
}

// NewSettingsService creates a SettingsService. sealer may be nil, in which
// case passwords can only be supplied per session.
func NewSettingsService(store SettingsStore, sealer *auth.Sealer, tester ConnectionTester, appName string, log *logger.Logger) *SettingsService {
	return &SettingsService{
		store:   store,
		sealer:  sealer,
		tester:  tester,
		appName: appName,
		now:     time.Now,
		log:     log.WithComponent("settings"),
	}
}

// SaveSettingsInput is the user-editable part of SMTP settings
type SaveSettingsInput struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	Secure       bool   `json:"secure"`
	SavePassword bool   `json:"savePassword"`
}

func (in SaveSettingsInput) validate() error {
	switch {
	case strings.TrimSpace(in.Host) == "":
		return fmt.Errorf("%w: host is required", ErrInvalidSettings)
	case in.Port <= 0 || in.Port > 65535:
		return fmt.Errorf("%w: port must be between 1 and 65535", ErrInvalidSettings)
	case strings.TrimSpace(in.User) == "":
		return fmt.Errorf("%w: user is required", ErrInvalidSettings)
	}
	return nil
}

// Get returns the owner's settings, redacted
func (s *SettingsService) Get(ctx context.Context, ownerID string) (*model.SMTPSettings, error) {
	settings, err := s.store.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMissingTransportConfig
		}
		return nil, err
	}
	redacted := settings.Redacted()
	return &redacted, nil
}

// Save stores settings. With SavePassword and an empty Pass the previously
// saved password is kept; without SavePassword any saved password is dropped.
func (s *SettingsService) Save(ctx context.Context, ownerID string, in SaveSettingsInput) (*model.SMTPSettings, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	settings := &model.SMTPSettings{
		OwnerID:      ownerID,
		Host:         strings.TrimSpace(in.Host),
		Port:         in.Port,
		User:         strings.TrimSpace(in.User),
		Secure:       in.Secure,
		SavePassword: in.SavePassword,
		UpdatedAt:    s.now().UTC(),
	}

	if in.SavePassword {
		switch {
		case in.Pass != "":
			if s.sealer == nil {
				return nil, ErrSealingUnavailable
			}
			sealed, err := s.sealer.Seal(in.Pass)
			if err != nil {
				return nil, fmt.Errorf("failed to seal password: %w", err)
			}
			settings.SealedPass = sealed
		default:
			prev, err := s.store.Get(ctx, ownerID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			if prev != nil {
				settings.SealedPass = prev.SealedPass
			}
		}
	}

	if err := s.store.Save(ctx, settings); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("owner_id", ownerID).
		Str("host", settings.Host).
		Bool("password_saved", settings.HasSavedPassword()).
		Msg("smtp settings saved")

	redacted := settings.Redacted()
	return &redacted, nil
}

// TransportConfig resolves the owner's settings into a ready-to-dial config.
// sessionPass takes precedence over a saved password.
func (s *SettingsService) TransportConfig(ctx context.Context, ownerID, sessionPass string) (email.Config, error) {
	settings, err := s.store.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return email.Config{}, ErrMissingTransportConfig
		}
		return email.Config{}, err
	}
	if !settings.IsConfigured() {
		return email.Config{}, ErrMissingTransportConfig
	}

	pass := sessionPass
	if pass == "" && settings.HasSavedPassword() {
		if s.sealer == nil {
			return email.Config{}, ErrSealingUnavailable
		}
		pass, err = s.sealer.Open(settings.SealedPass)
		if err != nil {
			return email.Config{}, fmt.Errorf("failed to open saved password: %w", err)
		}
	}
	if pass == "" {
		return email.Config{}, ErrMissingPassword
	}

	return email.Config{
		Host:   settings.Host,
		Port:   settings.Port,
		User:   settings.User,
		Pass:   pass,
		Secure: settings.Secure,
	}, nil
}

// Test sends a connectivity check to the configured user address
func (s *SettingsService) Test(ctx context.Context, ownerID, sessionPass string) (email.Result, error) {
	cfg, err := s.TransportConfig(ctx, ownerID, sessionPass)
	if err != nil {
		return email.Result{}, err
	}
	res := s.tester.SendTest(ctx, cfg, s.appName)
	s.log.Info().Str("owner_id", ownerID).Bool("success", res.Success).Msg("smtp connection tested")
	return res, nil
}
