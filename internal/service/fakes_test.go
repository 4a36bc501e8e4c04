package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/repository"
)

type memHistory struct {
	mu        sync.Mutex
	entries   []model.DeliveryLog
	appendErr error
}

func (h *memHistory) EmailKeys(_ context.Context, ownerID string, includeFailed bool) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var keys []string
	for _, e := range h.entries {
		if e.OwnerID != ownerID {
			continue
		}
		if !includeFailed && e.Status != model.DeliveryStatusDelivered {
			continue
		}
		keys = append(keys, e.EmailKey)
	}
	return keys, nil
}

func (h *memHistory) Append(_ context.Context, entry *model.DeliveryLog) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	h.entries = append(h.entries, *entry)
	return nil
}

func (h *memHistory) seed(ownerID, emailKey string, status model.DeliveryStatus) {
	h.entries = append(h.entries, model.DeliveryLog{OwnerID: ownerID, EmailKey: emailKey, Status: status})
}

func (h *memHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

type sentMail struct {
	cfg     email.Config
	to      string
	subject string
	body    string
}

type stubTransport struct {
	mu     sync.Mutex
	fail   map[string]bool
	sent   []sentMail
	onSend func(to string)

	// ctxErrs holds ctx.Err() as seen once each dispatch finished
	ctxErrs []error
}

func (t *stubTransport) SendEmail(ctx context.Context, cfg email.Config, to, subject, htmlBody string) email.Result {
	t.mu.Lock()
	t.sent = append(t.sent, sentMail{cfg: cfg, to: to, subject: subject, body: htmlBody})
	hook := t.onSend
	failed := t.fail[to]
	t.mu.Unlock()

	if hook != nil {
		hook(to)
	}
	t.mu.Lock()
	t.ctxErrs = append(t.ctxErrs, ctx.Err())
	t.mu.Unlock()
	if failed {
		return email.Result{Success: false, Message: "535 authentication failed"}
	}
	return email.Result{Success: true, Message: "E-mail envoyé à " + to}
}

func (t *stubTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

type memRecipients struct {
	mu      sync.Mutex
	byOwner map[string][]model.Recipient
}

func newMemRecipients() *memRecipients {
	return &memRecipients{byOwner: make(map[string][]model.Recipient)}
}

func (m *memRecipients) ReplaceAll(_ context.Context, ownerID string, recipients []model.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byOwner[ownerID] = append([]model.Recipient(nil), recipients...)
	return nil
}

func (m *memRecipients) List(_ context.Context, ownerID string) ([]model.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Recipient(nil), m.byOwner[ownerID]...), nil
}

func (m *memRecipients) ListByIDs(_ context.Context, ownerID string, ids []string) ([]model.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Recipient
	for _, r := range m.byOwner[ownerID] {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecipients) GetByID(_ context.Context, ownerID, id string) (*model.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byOwner[ownerID] {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	calls int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) AcquireLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = token
	return true, nil
}

func (l *memLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type memProgress struct {
	mu        sync.Mutex
	snapshots map[string][]model.SendProgress
}

func newMemProgress() *memProgress {
	return &memProgress{snapshots: make(map[string][]model.SendProgress)}
}

func (p *memProgress) Save(_ context.Context, ownerID string, s model.SendProgress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[ownerID] = append(p.snapshots[ownerID], s)
	return nil
}

func (p *memProgress) Load(_ context.Context, ownerID string) (*model.SendProgress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	all := p.snapshots[ownerID]
	if len(all) == 0 {
		return nil, ErrNoProgress
	}
	last := all[len(all)-1]
	return &last, nil
}

type memSettings struct {
	mu      sync.Mutex
	byOwner map[string]model.SMTPSettings
}

func newMemSettings() *memSettings {
	return &memSettings{byOwner: make(map[string]model.SMTPSettings)}
}

func (m *memSettings) Get(_ context.Context, ownerID string) (*model.SMTPSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byOwner[ownerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memSettings) Save(_ context.Context, s *model.SMTPSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byOwner[s.OwnerID] = *s
	return nil
}

type stubTester struct {
	got email.Config
	res email.Result
}

func (t *stubTester) SendTest(_ context.Context, cfg email.Config, _ string) email.Result {
	t.got = cfg
	return t.res
}

func rec(id string, pos int, addr, date string) model.Recipient {
	return model.Recipient{
		ID:       id,
		Position: pos,
		Fields: model.NewRecord(
			model.Field{Header: "Nom", Value: "Durand " + id},
			model.Field{Header: "Civilité", Value: "Mme"},
			model.Field{Header: model.FieldEmail, Value: addr},
			model.Field{Header: model.FieldRDVDate, Value: date},
			model.Field{Header: model.FieldRDVTime, Value: "09:00"},
			model.Field{Header: model.FieldRDVEnd, Value: "10:00"},
		),
	}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var errBoom = errors.New("boom")
