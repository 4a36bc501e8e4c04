package middleware

import (
	"net/http"

	"github.com/mailpilot/mailpilot/internal/config"
	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/logger"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	rdb *database.Redis
	log *logger.Logger
	cfg *config.Config
}

// New creates a new Middleware instance. rdb may be nil when rate limiting
// is disabled.
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config) *Middleware {
	return &Middleware{
		rdb: rdb,
		log: log.WithComponent("middleware"),
		cfg: cfg,
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
