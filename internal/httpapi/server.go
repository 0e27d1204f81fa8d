package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"gasfinder-server/internal/config"
)

// NewServer wraps handler in the standard middleware chain.
func NewServer(cfg config.Config, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: Chain(handler,
			Recovery(logger),
			RequestID,
			RequestLogger(logger),
			CORS(cfg.CORSAllowedOrigin),
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Covers the places lookup (PLACES_TIMEOUT) plus the price join.
		WriteTimeout: cfg.PlacesTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
