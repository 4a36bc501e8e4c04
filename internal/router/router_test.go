package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/mailpilot/internal/auth"
	"github.com/mailpilot/mailpilot/internal/config"
	"github.com/mailpilot/mailpilot/internal/handler"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/middleware"
	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/router"
)

type stubHistory struct{ owner string }

func (s *stubHistory) List(_ context.Context, ownerID string, _ int) ([]model.DeliveryLog, error) {
	s.owner = ownerID
	return []model.DeliveryLog{}, nil
}

func (s *stubHistory) Stats(context.Context, string) (model.DeliveryStats, error) {
	return model.DeliveryStats{}, nil
}

func newServer(t *testing.T) (http.Handler, *auth.TokenService, *stubHistory) {
	t.Helper()
	cfg := &config.Config{}
	tokens, err := auth.NewTokenService(config.TokenConfig{Secret: "f3b1c0a9e8d7c6b5a4f3e2d1c0b9a8f7", Issuer: "mailpilot", TokenTTL: time.Hour})
	require.NoError(t, err)

	history := &stubHistory{}
	h := handler.New(logger.Nop(), handler.Services{History: history}, nil, 0)
	mw := middleware.New(nil, logger.Nop(), cfg)
	return router.New(h, mw, tokens, []string{"http://localhost:3000"}), tokens, history
}

func TestRoutesRequireToken(t *testing.T) {
	srv, tokens, history := newServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	issued, err := tokens.Issue("owner-7", "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner-7", history.owner)
}

func TestPublicRoutes(t *testing.T) {
	srv, _, _ := newServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mail Pilot API v1")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/send", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
