package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// StatsProvider is implemented by ledgers that can report per-source
// seen-item counts.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]int64, error)
}

// Admin exposes a small operational HTTP surface over the ledger:
// health, seen-item statistics and seen-set resets. It carries no
// authentication and must only be bound to a trusted network.
type Admin struct {
	ledger  core.Ledger
	logger  *zap.Logger
	started time.Time
	server  *http.Server
}

// NewAdmin creates an admin server bound to addr.
func NewAdmin(addr string, ledger core.Ledger, logger *zap.Logger) *Admin {
	a := &Admin{
		ledger:  ledger,
		logger:  logger,
		started: time.Now().UTC(),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)
	r.Get("/status", a.handleStatus)
	r.Get("/stats", a.handleStats)
	r.Post("/seen/reset", a.handleSeenReset)

	a.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return a
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (a *Admin) ListenAndServe() error {
	a.logger.Info("Admin server listening", zap.String("addr", a.server.Addr))
	err := a.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (a *Admin) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *Admin) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
	})
}

func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if sp, ok := a.ledger.(StatsProvider); ok {
		counts, err := sp.Stats(r.Context())
		if err != nil {
			a.logger.Error("Failed to read ledger stats", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "stats unavailable"})
			return
		}
		resp["seen_counts"] = counts
	}
	lastRun, err := a.ledger.GetMeta(r.Context(), core.MetaLastRun)
	if err != nil {
		a.logger.Error("Failed to read run cursor", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "stats unavailable"})
		return
	}
	resp["last_run_at"] = lastRun
	writeJSON(w, http.StatusOK, resp)
}

func (a *Admin) handleSeenReset(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	switch source {
	case "", core.SourceEmail, core.SourceRSS:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "source must be email or rss"})
		return
	}
	if err := a.ledger.Clear(r.Context(), source); err != nil {
		a.logger.Error("Failed to clear seen items", zap.String("source", source), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "reset failed"})
		return
	}
	a.logger.Info("Seen items cleared", zap.String("source", source))
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true, "source": source})
}

func (a *Admin) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Debug("Handled request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
