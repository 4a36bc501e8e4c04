package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/mailpilot/internal/auth"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/model"
)

type sendFixture struct {
	recipients *memRecipients
	history    *memHistory
	transport  *stubTransport
	settings   *memSettings
	locker     *memLocker
	progress   *memProgress
	svc        *SendService
}

func newSendFixture(t *testing.T) *sendFixture {
	t.Helper()
	f := &sendFixture{
		recipients: newMemRecipients(),
		history:    &memHistory{},
		transport:  &stubTransport{},
		settings:   newMemSettings(),
		locker:     newMemLocker(),
		progress:   newMemProgress(),
	}
	sealer, err := auth.NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)

	settingsSvc := NewSettingsService(f.settings, sealer, &stubTester{}, "Mail Pilot", logger.Nop())
	orch := NewOrchestrator(OrchestratorDeps{History: f.history, Transport: f.transport})
	f.svc = NewSendService(SendServiceDeps{
		Recipients:   f.recipients,
		Orchestrator: orch,
		Settings:     settingsSvc,
		Locker:       f.locker,
		Progress:     f.progress,
	})
	return f
}

func (f *sendFixture) configure(t *testing.T) {
	t.Helper()
	f.settings.byOwner[owner] = model.SMTPSettings{OwnerID: owner, Host: "smtp.example.com", Port: 587, User: "me@example.com"}
}

func (f *sendFixture) load(recipients ...model.Recipient) {
	f.recipients.byOwner[owner] = recipients
}

var input = SendInput{Subject: "Objet", Body: "Bonjour {{Nom}}", Password: "session-pw"}

func TestSendServiceRequiresTemplate(t *testing.T) {
	f := newSendFixture(t)
	_, err := f.svc.Send(context.Background(), owner, SendInput{Subject: " ", Body: "x"})
	assert.ErrorIs(t, err, ErrMissingTemplate)
}

func TestSendServiceEmptyBatch(t *testing.T) {
	f := newSendFixture(t)
	f.configure(t)
	_, err := f.svc.Send(context.Background(), owner, input)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestSendServiceMissingSettings(t *testing.T) {
	f := newSendFixture(t)
	f.load(rec("a", 0, "a@x.com", "01/01/2025"))

	_, err := f.svc.Send(context.Background(), owner, input)
	assert.ErrorIs(t, err, ErrMissingTransportConfig)
	assert.Equal(t, 0, f.transport.count())
	assert.Equal(t, 0, f.locker.calls)
}

func TestSendServiceMissingPassword(t *testing.T) {
	f := newSendFixture(t)
	f.configure(t)
	f.load(rec("a", 0, "a@x.com", "01/01/2025"))

	in := input
	in.Password = ""
	_, err := f.svc.Send(context.Background(), owner, in)
	assert.ErrorIs(t, err, ErrMissingPassword)
}

func TestSendServiceRunsBatch(t *testing.T) {
	f := newSendFixture(t)
	f.configure(t)
	f.load(rec("a", 0, "a@x.com", "01/01/2025"), rec("b", 1, "", "01/01/2025"))

	summary, err := f.svc.Send(context.Background(), owner, input)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)
	assert.NotEmpty(t, summary.BatchID)

	require.Len(t, f.transport.sent, 1)
	assert.Equal(t, "session-pw", f.transport.sent[0].cfg.Pass)
	assert.Equal(t, "Bonjour Durand a", f.transport.sent[0].body)

	assert.Empty(t, f.locker.held, "lock released")

	p, err := f.svc.Progress(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, summary.BatchID, p.BatchID)
	assert.Equal(t, 2, p.Processed)
}

func TestSendServiceSelectedRecipients(t *testing.T) {
	f := newSendFixture(t)
	f.configure(t)
	f.load(rec("a", 0, "a@x.com", "01/01/2025"), rec("b", 1, "b@x.com", "01/01/2025"))

	in := input
	in.RecipientIDs = []string{"b"}
	summary, err := f.svc.Send(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	require.Len(t, f.transport.sent, 1)
	assert.Equal(t, "b@x.com", f.transport.sent[0].to)
}

func TestSendServiceRejectsConcurrentBatch(t *testing.T) {
	f := newSendFixture(t)
	f.configure(t)
	f.load(rec("a", 0, "a@x.com", "01/01/2025"))
	f.locker.held[sendLockKey(owner)] = "other-batch"

	_, err := f.svc.Send(context.Background(), owner, input)
	assert.ErrorIs(t, err, ErrSendInProgress)
	assert.Equal(t, 0, f.transport.count())
	assert.Equal(t, "other-batch", f.locker.held[sendLockKey(owner)])
}

func TestSendServiceCancel(t *testing.T) {
	f := newSendFixture(t)
	f.configure(t)
	f.load(
		rec("a", 0, "a@x.com", "01/01/2025"),
		rec("b", 1, "b@x.com", "01/01/2025"),
	)
	assert.ErrorIs(t, f.svc.Cancel(owner), ErrNoActiveSend)

	f.transport.onSend = func(string) { require.NoError(t, f.svc.Cancel(owner)) }

	summary, err := f.svc.Send(context.Background(), owner, input)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Sent)

	p, err := f.svc.Progress(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, 1, p.Processed)
	assert.Empty(t, f.locker.held)
	assert.ErrorIs(t, f.svc.Cancel(owner), ErrNoActiveSend)
}

func TestSendServiceConfirm(t *testing.T) {
	f := newSendFixture(t)
	f.history.seed(owner, "b@x.com_01/01/2025", model.DeliveryStatusDelivered)
	f.load(
		rec("a", 0, "a@x.com", "01/01/2025"),
		rec("b", 1, "b@x.com", "01/01/2025"),
		rec("c", 2, "", "01/01/2025"),
	)

	counts, err := f.svc.Confirm(context.Background(), owner, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.New)
	assert.Equal(t, 1, counts.AlreadySent)
	assert.Equal(t, 1, counts.Invalid)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 0, f.transport.count())
}

func TestSendServiceProgressWithoutBatch(t *testing.T) {
	f := newSendFixture(t)
	_, err := f.svc.Progress(context.Background(), owner)
	assert.ErrorIs(t, err, ErrNoProgress)
}
