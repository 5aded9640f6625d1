package core

import (
	"context"
	"time"
)

// MailboxFetcher fetches unread notification emails from one monitored
// account. Implementations must never mutate message flags.
type MailboxFetcher interface {
	// Fetch returns unread emails received strictly after since, newest
	// first, capped per the account configuration. skipFilters bypasses
	// sender/subject matching.
	Fetch(ctx context.Context, account string, since time.Time, skipFilters bool) ([]EmailItem, error)

	// Accounts lists the monitored account names, in configuration order.
	Accounts() []string
}

// FeedFetcher fetches items from the configured RSS/Atom feeds.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]FeedItem, error)
}

// CompletionClient defines the interface for a text-completion LLM service.
type CompletionClient interface {
	// Complete sends a prompt and returns the model's trimmed response text.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// DigestBuilder turns a batch of new items into one human-readable digest.
type DigestBuilder interface {
	Summarize(ctx context.Context, emails []EmailItem, feedItems []FeedItem) (string, error)
}

// Deliverer sends a finished digest on the configured channel.
type Deliverer interface {
	Deliver(ctx context.Context, digest string) (*DeliveryOutcome, error)
}

// SMSSender sends a text message and returns the provider message id.
type SMSSender interface {
	Send(ctx context.Context, body string) (string, error)
}

// EmailSender sends a plain-text email over an authenticated session.
type EmailSender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Ledger is the durable seen-item store plus a small metadata map.
// One run owns the ledger exclusively; no locking beyond the storage
// layer's own atomicity is assumed.
type Ledger interface {
	// Seen returns the full seen-item set.
	Seen(ctx context.Context) (SeenSet, error)

	// MarkSeen inserts the given keys. Re-inserting an existing key is a no-op.
	MarkSeen(ctx context.Context, keys []SeenKey) error

	// GetMeta returns the value for key, or "" when absent.
	GetMeta(ctx context.Context, key string) (string, error)

	// SetMeta overwrites the value for key.
	SetMeta(ctx context.Context, key, value string) error

	// Clear removes seen items, restricted to one source kind when
	// source is non-empty.
	Clear(ctx context.Context, source string) error

	Close() error
}
