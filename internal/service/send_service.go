package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mailpilot/mailpilot/internal/classify"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/model"
)

// Send errors
var (
	ErrEmptyBatch      = errors.New("no recipients to send to")
	ErrMissingTemplate = errors.New("subject and body are required")
	ErrSendInProgress  = errors.New("a send is already running for this account")
	ErrNoActiveSend    = errors.New("no active send to cancel")
)

const defaultLockTTL = 30 * time.Minute

// RecipientSource loads recipients for a send
type RecipientSource interface {
	List(ctx context.Context, ownerID string) ([]model.Recipient, error)
	ListByIDs(ctx context.Context, ownerID string, ids []string) ([]model.Recipient, error)
}

// TransportResolver turns stored owner settings into a transport config
type TransportResolver interface {
	TransportConfig(ctx context.Context, ownerID, sessionPass string) (email.Config, error)
}

// Locker is a distributed mutual exclusion primitive keyed by string
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// SendServiceDeps are the collaborators of a SendService. Settings, Locker
// and Progress are optional.
type SendServiceDeps struct {
	Recipients   RecipientSource
	Orchestrator *Orchestrator
	// Settings is nil when the transport does not read per-owner settings
	Settings TransportResolver
	Locker   Locker
	Progress ProgressStore
	LockTTL  time.Duration
	Log      *logger.Logger
}

// SendService checks send preconditions and runs batches through the
// Orchestrator, one at a time per owner.
type SendService struct {
	recipients   RecipientSource
	orchestrator *Orchestrator
	settings     TransportResolver
	locker       Locker
	progress     ProgressStore
	lockTTL      time.Duration
	log          *logger.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewSendService creates a SendService
func NewSendService(deps SendServiceDeps) *SendService {
	s := &SendService{
		recipients:   deps.Recipients,
		orchestrator: deps.Orchestrator,
		settings:     deps.Settings,
		locker:       deps.Locker,
		progress:     deps.Progress,
		lockTTL:      deps.LockTTL,
		log:          deps.Log,
		running:      make(map[string]context.CancelFunc),
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.WithComponent("send")
	return s
}

// SendInput is a send request
type SendInput struct {
	// RecipientIDs restricts the batch. Empty means every recipient.
	RecipientIDs []string `json:"recipientIds,omitempty"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	ForceResend  bool     `json:"forceResend"`
	// Password is used when no password is saved with the settings
	Password string `json:"password,omitempty"`
}

// Confirm classifies the selected recipients without sending anything
func (s *SendService) Confirm(ctx context.Context, ownerID string, ids []string) (classify.Counts, error) {
	recipients, err := s.load(ctx, ownerID, ids)
	if err != nil {
		return classify.Counts{}, err
	}
	res, err := s.orchestrator.Classify(ctx, ownerID, recipients)
	if err != nil {
		return classify.Counts{}, err
	}
	return res.Counts(), nil
}

// Send runs one batch to completion, or until ctx is cancelled or Cancel is
// called for the owner.
func (s *SendService) Send(ctx context.Context, ownerID string, in SendInput) (*model.SendSummary, error) {
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Body) == "" {
		return nil, ErrMissingTemplate
	}

	recipients, err := s.load(ctx, ownerID, in.RecipientIDs)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrEmptyBatch
	}

	var cfg email.Config
	if s.settings != nil {
		cfg, err = s.settings.TransportConfig(ctx, ownerID, in.Password)
		if err != nil {
			return nil, err
		}
	}

	batchID := uuid.NewString()
	release, err := s.lock(ctx, ownerID, batchID)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.register(ownerID, cancel)
	defer s.unregister(ownerID)

	return s.orchestrator.Send(runCtx, Batch{
		OwnerID:     ownerID,
		BatchID:     batchID,
		Recipients:  recipients,
		Subject:     in.Subject,
		Body:        in.Body,
		ForceResend: in.ForceResend,
		Transport:   cfg,
		OnProgress:  s.saveProgress(ctx, ownerID),
	})
}

// Progress returns the owner's latest batch progress
func (s *SendService) Progress(ctx context.Context, ownerID string) (*model.SendProgress, error) {
	if s.progress == nil {
		return nil, ErrNoProgress
	}
	return s.progress.Load(ctx, ownerID)
}

// Cancel stops the owner's running batch after the current recipient
func (s *SendService) Cancel(ownerID string) error {
	s.mu.Lock()
	cancel, ok := s.running[ownerID]
	s.mu.Unlock()
	if !ok {
		return ErrNoActiveSend
	}
	cancel()
	s.log.Info().Str("owner_id", ownerID).Msg("send cancel requested")
	return nil
}

func (s *SendService) load(ctx context.Context, ownerID string, ids []string) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return s.recipients.List(ctx, ownerID)
	}
	return s.recipients.ListByIDs(ctx, ownerID, ids)
}

func sendLockKey(ownerID string) string {
	return "send:lock:" + ownerID
}

func (s *SendService) lock(ctx context.Context, ownerID, token string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := sendLockKey(ownerID)
	ok, err := s.locker.AcquireLock(ctx, key, token, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSendInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, key, token); err != nil {
			s.log.Warn().Err(err).Str("owner_id", ownerID).Msg("failed to release send lock")
		}
	}, nil
}

func (s *SendService) register(ownerID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[ownerID] = cancel
	s.mu.Unlock()
}

func (s *SendService) unregister(ownerID string) {
	s.mu.Lock()
	delete(s.running, ownerID)
	s.mu.Unlock()
}

// saveProgress writes snapshots outside the batch context so the final
// snapshot of a cancelled batch is still stored.
func (s *SendService) saveProgress(ctx context.Context, ownerID string) func(model.SendProgress) {
	if s.progress == nil {
		return nil
	}
	base := context.WithoutCancel(ctx)
	return func(p model.SendProgress) {
		saveCtx, cancel := context.WithTimeout(base, 2*time.Second)
		defer cancel()
		if err := s.progress.Save(saveCtx, ownerID, p); err != nil {
			s.log.Warn().Err(err).Str("batch_id", p.BatchID).Msg("failed to save send progress")
		}
	}
}
