package ledger

import (
	"context"
	"testing"

	"github.com/mikey/inbox-digest/internal/core"
)

func TestMemoryLedgerSeenRoundTrip(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	keys := []core.SeenKey{
		{ID: "m1", Source: core.SourceEmail},
		{ID: "f1", Source: core.SourceRSS},
	}
	if err := l.MarkSeen(ctx, keys); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	// Re-inserting must be a no-op.
	if err := l.MarkSeen(ctx, keys[:1]); err != nil {
		t.Fatalf("MarkSeen twice: %v", err)
	}

	seen, err := l.Seen(ctx)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 seen keys, got %d", len(seen))
	}
	for _, k := range keys {
		if !seen.Contains(k) {
			t.Errorf("missing key %v", k)
		}
	}
}

func TestMemoryLedgerClearBySource(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	_ = l.MarkSeen(ctx, []core.SeenKey{
		{ID: "m1", Source: core.SourceEmail},
		{ID: "f1", Source: core.SourceRSS},
	})

	if err := l.Clear(ctx, core.SourceEmail); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	seen, _ := l.Seen(ctx)
	if seen.Contains(core.SeenKey{ID: "m1", Source: core.SourceEmail}) {
		t.Error("email keys should have been cleared")
	}
	if !seen.Contains(core.SeenKey{ID: "f1", Source: core.SourceRSS}) {
		t.Error("rss keys must survive an email-only clear")
	}

	if err := l.Clear(ctx, ""); err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	seen, _ = l.Seen(ctx)
	if len(seen) != 0 {
		t.Errorf("expected empty seen-set, got %d keys", len(seen))
	}
}

func TestMemoryLedgerMeta(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	got, err := l.GetMeta(ctx, core.MetaLastRun)
	if err != nil || got != "" {
		t.Fatalf("absent meta should read as empty, got %q err %v", got, err)
	}

	if err := l.SetMeta(ctx, core.MetaLastRun, "2026-08-30T12:00:00Z"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := l.SetMeta(ctx, core.MetaLastRun, "2026-08-31T12:00:00Z"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}
	got, _ = l.GetMeta(ctx, core.MetaLastRun)
	if got != "2026-08-31T12:00:00Z" {
		t.Errorf("meta = %q, want the overwritten value", got)
	}
}

func TestMemoryLedgerStats(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	_ = l.MarkSeen(ctx, []core.SeenKey{
		{ID: "m1", Source: core.SourceEmail},
		{ID: "m2", Source: core.SourceEmail},
		{ID: "f1", Source: core.SourceRSS},
	})
	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[core.SourceEmail] != 2 || stats[core.SourceRSS] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
