package router

import (
	"net/http"
	"time"

	"github.com/mailpilot/mailpilot/internal/handler"
	"github.com/mailpilot/mailpilot/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, tokens middleware.TokenValidator, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	mux.HandleFunc("GET /api/v1/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Mail Pilot API v1","version":"` + handler.Version + `"}`))
	})

	authMw := mw.Auth(tokens)
	apiRateLimit := mw.RateLimit(middleware.RateLimitConfig{Name: "api"})
	protected := func(fn http.HandlerFunc) http.Handler {
		return authMw(apiRateLimit(fn))
	}

	// Uploads and outbound traffic get tighter limits
	importRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "import",
		Limit:  10,
		Window: 1 * time.Minute,
	})
	sendRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "send",
		Limit:  5,
		Window: 1 * time.Minute,
	})
	aiRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "ai",
		Limit:  20,
		Window: 1 * time.Minute,
	})

	// Recipients
	mux.Handle("POST /api/v1/recipients/import", authMw(importRateLimit(http.HandlerFunc(h.ImportRecipients))))
	mux.Handle("GET /api/v1/recipients", protected(h.ListRecipients))
	mux.Handle("GET /api/v1/recipients/{id}", protected(h.GetRecipient))
	mux.Handle("GET /api/v1/recipients/{id}/preview", protected(h.PreviewRecipient))
	mux.Handle("POST /api/v1/preview", protected(h.Preview))

	// Sending
	mux.Handle("POST /api/v1/send/confirm", protected(h.ConfirmSend))
	mux.Handle("POST /api/v1/send", authMw(sendRateLimit(http.HandlerFunc(h.Send))))
	mux.Handle("GET /api/v1/send/progress", protected(h.SendProgress))
	mux.Handle("POST /api/v1/send/cancel", protected(h.CancelSend))

	// History
	mux.Handle("GET /api/v1/history", protected(h.ListHistory))
	mux.Handle("GET /api/v1/history/stats", protected(h.HistoryStats))

	// SMTP settings
	mux.Handle("GET /api/v1/settings/smtp", protected(h.GetSMTPSettings))
	mux.Handle("PUT /api/v1/settings/smtp", protected(h.SaveSMTPSettings))
	mux.Handle("POST /api/v1/settings/smtp/test", authMw(sendRateLimit(http.HandlerFunc(h.TestSMTPSettings))))

	// Message drafting
	mux.Handle("POST /api/v1/messages/generate", authMw(aiRateLimit(http.HandlerFunc(h.GenerateMessage))))

	// Apply middleware stack
	var handler http.Handler = mux

	handler = mw.CORS(allowedOrigins)(handler)

	// Security headers
	handler = mw.SecurityHeaders(handler)

	// Request logging
	handler = mw.Logger(handler)

	// Timing
	handler = mw.Timing(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
