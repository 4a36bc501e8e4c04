package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mailpilot/mailpilot/internal/classify"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/placeholder"
)

// HistoryStore is the append-only send history
type HistoryStore interface {
	EmailKeys(ctx context.Context, ownerID string, includeFailed bool) ([]string, error)
	Append(ctx context.Context, entry *model.DeliveryLog) error
}

// OrchestratorDeps are the collaborators of an Orchestrator
type OrchestratorDeps struct {
	History   HistoryStore
	Transport email.Transport
	Log       *logger.Logger
	// RetryFailed makes a previously Failed key sendable without forcing.
	RetryFailed bool
	Now         func() time.Time
	GenerateID  func() string
}

// Orchestrator runs one batch sequentially: classify, render, dispatch, log.
type Orchestrator struct {
	history     HistoryStore
	transport   email.Transport
	log         *logger.Logger
	retryFailed bool
	now         func() time.Time
	newID       func() string
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		history:     deps.History,
		transport:   deps.Transport,
		log:         deps.Log,
		retryFailed: deps.RetryFailed,
		now:         deps.Now,
		newID:       deps.GenerateID,
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	o.log = o.log.WithComponent("orchestrator")
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

// Batch is the input of one send pass
type Batch struct {
	OwnerID     string
	BatchID     string
	Recipients  []model.Recipient
	Subject     string
	Body        string
	ForceResend bool
	Transport   email.Config
	// OnProgress is called after every recipient. It must not block for long.
	OnProgress func(model.SendProgress)
}

// HistoryKeys fetches the dedup snapshot for an owner
func (o *Orchestrator) HistoryKeys(ctx context.Context, ownerID string) (classify.KeySet, error) {
	keys, err := o.history.EmailKeys(ctx, ownerID, !o.retryFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to load send history: %w", err)
	}
	return classify.NewKeySet(keys...), nil
}

// Classify partitions recipients against the owner's current history
func (o *Orchestrator) Classify(ctx context.Context, ownerID string, recipients []model.Recipient) (classify.Result, error) {
	history, err := o.HistoryKeys(ctx, ownerID)
	if err != nil {
		return classify.Result{}, err
	}
	return classify.Batch(recipients, history), nil
}

// Send processes every recipient in order. A transport failure is recorded
// and the batch moves on. Cancelling ctx stops between recipients and
// returns the partial summary with ctx's error. A history write failure also
// stops the batch.
func (o *Orchestrator) Send(ctx context.Context, b Batch) (*model.SendSummary, error) {
	if b.BatchID == "" {
		b.BatchID = o.newID()
	}
	log := o.log.WithOwnerID(b.OwnerID).WithBatchID(b.BatchID)

	summary := &model.SendSummary{BatchID: b.BatchID, Total: len(b.Recipients)}
	report := func(done bool) {
		if b.OnProgress != nil {
			b.OnProgress(summary.Progress(done))
		}
	}

	history, err := o.HistoryKeys(ctx, b.OwnerID)
	if err != nil {
		return summary, err
	}

	log.Info().
		Int("total", summary.Total).
		Int("history", len(history)).
		Bool("force_resend", b.ForceResend).
		Msg("starting batch")
	report(false)

	for i := range b.Recipients {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("processed", summary.Processed()).Msg("batch cancelled")
			report(true)
			return summary, err
		}

		rec := &b.Recipients[i]
		switch classify.Recipient(rec.Fields, history) {
		case classify.Invalid:
			log.Debug().Int("position", rec.Position).Msg("skipping recipient without email")
			summary.Skipped++
			summary.Invalid++
			report(false)
			continue
		case classify.AlreadySent:
			if !b.ForceResend {
				log.Debug().Str("email_key", rec.EmailKey()).Msg("skipping already sent recipient")
				summary.Skipped++
				summary.AlreadySent++
				report(false)
				continue
			}
		}

		entry := o.dispatch(ctx, log, b, rec)
		if entry.Status == model.DeliveryStatusDelivered {
			summary.Sent++
		} else {
			summary.Failed++
		}

		// an attempted dispatch is always recorded, even after cancellation
		if err := o.history.Append(context.WithoutCancel(ctx), &entry); err != nil {
			log.Error().Err(err).Str("email_key", entry.EmailKey).Msg("failed to record delivery")
			report(true)
			return summary, fmt.Errorf("failed to record delivery for %s: %w", entry.EmailKey, err)
		}
		report(false)
	}

	log.Info().
		Int("sent", summary.Sent).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("batch finished")
	report(true)

	return summary, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, log *logger.Logger, b Batch, rec *model.Recipient) model.DeliveryLog {
	subject := placeholder.Render(b.Subject, &rec.Fields)
	body := placeholder.RenderHTML(b.Body, &rec.Fields)

	start := o.now()
	// cancellation takes effect between recipients, never mid-dispatch
	res := o.transport.SendEmail(context.WithoutCancel(ctx), b.Transport, rec.Email(), subject, body)

	status := model.DeliveryStatusDelivered
	if !res.Success {
		status = model.DeliveryStatusFailed
	}

	sentAt := o.now()
	log.Delivery(rec.EmailKey(), string(status), res.Message, sentAt.Sub(start))

	return model.NewDeliveryLog(o.newID(), b.OwnerID, b.BatchID, rec.Fields, status, res.Message, sentAt)
}
