package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/textsync/internal/version"
)

// Pinger checks a backing service. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig configures the operational handler.
type OpsConfig struct {
	MetricsPath string
	Metrics     http.Handler
	DB          Pinger // nil when the file backend is in use
}

// NewOpsHandler creates the handler for /health and the metrics path.
func NewOpsHandler(cfg OpsConfig, state StateSource, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Version,
			Components: make(map[string]any),
		}

		if cfg.DB != nil {
			if err := cfg.DB.Ping(ctx); err != nil {
				logger.Warn("health check: database unreachable", "error", err)
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		snap := state.Snapshot()
		health.Components["sessions"] = map[string]int{
			"online": snap.Online,
			"limit":  snap.MaxSessions,
		}
		health.Components["notebooks"] = map[string]any{
			"active": snap.Active,
			"count":  len(snap.Notebooks),
			"limit":  snap.MaxBuffers,
		}

		status := http.StatusOK
		if health.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	})

	if cfg.Metrics != nil {
		r.Handle(cfg.MetricsPath, cfg.Metrics)
	}

	return r
}
