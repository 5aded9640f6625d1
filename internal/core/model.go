package core

import (
	"time"
)

// Source kinds used as the second half of a dedup key. An item id is only
// unique within its kind, so the ledger always stores the pair.
const (
	SourceEmail = "email"
	SourceRSS   = "rss"
)

// EmailItem represents a single notification email fetched from a
// monitored mailbox.
type EmailItem struct {
	ID         string // Message-ID without angle brackets, or the server UID
	Sender     string // "Name <email>" as decoded from the From header
	Subject    string
	Snippet    string // plain-text excerpt, bounded length
	ReceivedAt time.Time
	Account    string   // monitored mailbox this was fetched from
	Links      []string // up to 5 distinct URLs, first-appearance order
}

// FeedItem represents a single RSS/Atom feed entry.
type FeedItem struct {
	ID          string // guid, falling back to the entry link
	Source      string // feed title, falling back to the feed URL
	Title       string
	Snippet     string
	PublishedAt time.Time
}

// SeenKey identifies an item in the seen-item ledger.
type SeenKey struct {
	ID     string
	Source string
}

// SeenSet is the ledger's full seen-item set, keyed for O(1) membership.
type SeenSet map[SeenKey]struct{}

// Contains reports whether the key has already been processed.
func (s SeenSet) Contains(key SeenKey) bool {
	_, ok := s[key]
	return ok
}

// DeliveryOutcome records which channel a digest went out on.
type DeliveryOutcome struct {
	Channel     string // "sms" or "email"
	MessageID   string // provider message id, if any
	FellBack    bool   // true when the primary channel failed and email took over
	DeliveredAt time.Time
}

// RunReport summarizes a single completed run.
type RunReport struct {
	RunID      string
	Fetched    int
	NewEmails  int
	NewFeed    int
	Delivered  bool
	Outcome    *DeliveryOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}
