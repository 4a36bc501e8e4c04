package mailpilot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: "tok"})
}

func TestConfigDefaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://mail.example.com/"})
	assert.Equal(t, "https://mail.example.com/api/v1", c.cfg.BaseURL)
	assert.Equal(t, "https://mail.example.com", c.root)

	c = NewClient(Config{BaseURL: "https://mail.example.com/api/v1"})
	assert.Equal(t, "https://mail.example.com/api/v1", c.cfg.BaseURL)
}

func TestSendPostsJSONWithToken(t *testing.T) {
	var got SendRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/send", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"batchId":"b1","sent":2,"skipped":1,"failed":0,"total":3,"invalid":1,"alreadySent":0}`))
	})

	res, err := c.Send(context.Background(), SendRequest{Subject: "Bonjour {{Bénéficiare}}", Body: "<p>RDV</p>", ForceResend: true})
	require.NoError(t, err)
	assert.Equal(t, "b1", res.BatchID)
	assert.Equal(t, 2, res.Sent)
	assert.False(t, res.Cancelled)
	assert.Equal(t, "Bonjour {{Bénéficiare}}", got.Subject)
	assert.True(t, got.ForceResend)
}

func TestListRecipientsKeepsFieldOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recipients":[{"id":"r1","position":0,"fields":{"adresse mail":"a@b.fr","Date du RDV":"21/10/2025","Bénéficiare":"Jean"}}],"total":1}`))
	})

	recipients, err := c.ListRecipients(context.Background())
	require.NoError(t, err)
	require.Len(t, recipients, 1)

	fields := recipients[0].Fields.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "adresse mail", fields[0].Header)
	assert.Equal(t, "Bénéficiare", fields[2].Header)
	assert.Equal(t, "a@b.fr_21/10/2025", recipients[0].EmailKey())
}

func TestImportUploadsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/recipients/import", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "list.csv", hdr.Filename)
		assert.Equal(t, "adresse mail\na@b.fr\n", string(data))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sheet":"list","headers":["adresse mail"],"imported":1,"dropped":0}`))
	})

	res, err := c.ImportRecipients(context.Background(), "/tmp/list.csv", strings.NewReader("adresse mail\na@b.fr\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []string{"adresse mail"}, res.Headers)
}

func TestErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"send_in_progress","message":"A send is already running"}}`))
	})

	_, err := c.Send(context.Background(), SendRequest{Subject: "s", Body: "b"})
	require.Error(t, err)
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.True(t, HasCode(err, "send_in_progress"))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestUnauthorizedMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"invalid_token","message":"Invalid or expired token"}}`))
	})

	_, err := c.HistoryStats(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMissingToken(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Progress(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestHistoryLimitQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"entries":[{"id":"h1","emailKey":"a@b.fr_21/10/2025","status":"Delivered"}],"total":1}`))
	})

	entries, err := c.History(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Delivered", string(entries[0].Status))
}

func TestGenerateMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "r1", req["recipientId"])
		w.Write([]byte(`{"success":true,"message":"<p>Bonjour</p>"}`))
	})

	msg, err := c.GenerateMessage(context.Background(), GenerateRequest{RecipientID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Bonjour</p>", msg)
}

func TestHealthDegraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","version":"0.1.0","services":{"redis":"unhealthy"}}`))
	})

	h, err := c.Health(context.Background())
	require.Error(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "unhealthy", h.Services["redis"])
}
