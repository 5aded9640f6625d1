package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/inbox-digest/internal/adapters/ledger"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

func newTestAdmin(t *testing.T) (*Admin, *ledger.MemoryLedger) {
	t.Helper()
	l := ledger.NewMemoryLedger()
	return NewAdmin("127.0.0.1:0", l, zap.NewNop()), l
}

func TestStatusEndpoint(t *testing.T) {
	a, _ := newTestAdmin(t)

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	a, l := newTestAdmin(t)
	ctx := context.Background()
	_ = l.MarkSeen(ctx, []core.SeenKey{
		{ID: "m1", Source: core.SourceEmail},
		{ID: "f1", Source: core.SourceRSS},
	})
	_ = l.SetMeta(ctx, core.MetaLastRun, "2026-08-31T08:00:00Z")

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		SeenCounts map[string]int64 `json:"seen_counts"`
		LastRunAt  string           `json:"last_run_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.SeenCounts[core.SourceEmail] != 1 || body.SeenCounts[core.SourceRSS] != 1 {
		t.Errorf("unexpected counts: %v", body.SeenCounts)
	}
	if body.LastRunAt != "2026-08-31T08:00:00Z" {
		t.Errorf("last_run_at = %q", body.LastRunAt)
	}
}

func TestSeenResetEndpoint(t *testing.T) {
	a, l := newTestAdmin(t)
	ctx := context.Background()
	_ = l.MarkSeen(ctx, []core.SeenKey{
		{ID: "m1", Source: core.SourceEmail},
		{ID: "f1", Source: core.SourceRSS},
	})

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seen/reset?source=email", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	seen, _ := l.Seen(ctx)
	if seen.Contains(core.SeenKey{ID: "m1", Source: core.SourceEmail}) {
		t.Error("email keys should have been cleared")
	}
	if !seen.Contains(core.SeenKey{ID: "f1", Source: core.SourceRSS}) {
		t.Error("rss keys must survive")
	}
}

func TestSeenResetRejectsUnknownSource(t *testing.T) {
	a, _ := newTestAdmin(t)

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seen/reset?source=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
