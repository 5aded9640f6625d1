package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
)

// MemoryLedger is an in-memory implementation of the core.Ledger
// interface. State does not survive the process; useful for tests and
// dry runs.
type MemoryLedger struct {
	mu    sync.RWMutex
	seen  map[core.SeenKey]string // key -> first_seen_at
	metas map[string]string
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		seen:  make(map[core.SeenKey]string),
		metas: make(map[string]string),
	}
}

// Seen returns a copy of the seen-item set.
func (l *MemoryLedger) Seen(ctx context.Context) (core.SeenSet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set := make(core.SeenSet, len(l.seen))
	for key := range l.seen {
		set[key] = struct{}{}
	}
	return set, nil
}

// MarkSeen inserts the given keys; existing keys keep their original
// first_seen_at.
func (l *MemoryLedger) MarkSeen(ctx context.Context, keys []core.SeenKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range keys {
		if _, exists := l.seen[key]; !exists {
			l.seen[key] = now
		}
	}
	return nil
}

// GetMeta returns the value for key, or "" when absent.
func (l *MemoryLedger) GetMeta(ctx context.Context, key string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.metas[key], nil
}

// SetMeta overwrites the value for key.
func (l *MemoryLedger) SetMeta(ctx context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metas[key] = value
	return nil
}

// Clear removes seen items, restricted to one source kind when source is
// non-empty.
func (l *MemoryLedger) Clear(ctx context.Context, source string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if source == "" {
		l.seen = make(map[core.SeenKey]string)
		return nil
	}
	for key := range l.seen {
		if key.Source == source {
			delete(l.seen, key)
		}
	}
	return nil
}

// Stats returns per-source seen counts.
func (l *MemoryLedger) Stats(ctx context.Context) (map[string]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := make(map[string]int64)
	for key := range l.seen {
		stats[key.Source]++
	}
	return stats, nil
}

// Close is a no-op for the in-memory ledger.
func (l *MemoryLedger) Close() error {
	return nil
}
