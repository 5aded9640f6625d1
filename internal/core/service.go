package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetaLastRun is the ledger metadata key holding the run cursor: the
// lower bound for the next fetch window, written only after a fully
// successful run.
const MetaLastRun = "last_run_at"

// RunService sequences one fetch → dedup → summarize → deliver → commit
// cycle. Nothing is marked seen and the cursor does not advance unless
// delivery succeeded, so a failed run redelivers the same items next time.
type RunService struct {
	mailboxes MailboxFetcher
	feeds     FeedFetcher // nil when RSS is disabled
	digester  DigestBuilder
	deliverer Deliverer
	ledger    Ledger
	logger    *zap.Logger
	lookback  time.Duration

	// skipFilters digests every unread email regardless of the
	// configured sender/subject rules. Fixed at construction.
	skipFilters bool
}

// NewRunService creates a run orchestrator. feeds may be nil.
func NewRunService(
	mailboxes MailboxFetcher,
	feeds FeedFetcher,
	digester DigestBuilder,
	deliverer Deliverer,
	ledger Ledger,
	logger *zap.Logger,
	lookback time.Duration,
	skipFilters bool,
) *RunService {
	if lookback <= 0 {
		lookback = 15 * time.Minute
	}
	return &RunService{
		mailboxes:   mailboxes,
		feeds:       feeds,
		digester:    digester,
		deliverer:   deliverer,
		ledger:      ledger,
		logger:      logger,
		lookback:    lookback,
		skipFilters: skipFilters,
	}
}

// Run performs a single run-to-completion cycle.
func (s *RunService) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID))

	since, err := s.fetchWindow(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("Starting run", zap.Time("since", since))

	emails := s.fetchEmails(ctx, since, logger)
	feedItems := s.fetchFeedItems(ctx, logger)
	report.Fetched = len(emails) + len(feedItems)

	seen, err := s.ledger.Seen(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: loading seen-set: %v", ErrLedger, err)
	}

	newEmails := FilterNewEmails(emails, seen)
	newFeed := FilterNewFeedItems(feedItems, seen)
	report.NewEmails = len(newEmails)
	report.NewFeed = len(newFeed)

	if len(newEmails) == 0 && len(newFeed) == 0 {
		logger.Info("No new items; run complete",
			zap.Int("fetched", report.Fetched))
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	// Newest first, per item kind. The digest re-groups emails by account
	// but keeps this ordering inside each group.
	sort.Slice(newEmails, func(i, j int) bool {
		return newEmails[i].ReceivedAt.After(newEmails[j].ReceivedAt)
	})
	sort.Slice(newFeed, func(i, j int) bool {
		return newFeed[i].PublishedAt.After(newFeed[j].PublishedAt)
	})

	logger.Info("Summarizing new items",
		zap.Int("new_emails", len(newEmails)),
		zap.Int("new_feed_items", len(newFeed)))

	digest, err := s.digester.Summarize(ctx, newEmails, newFeed)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrSummarize, err)
	}

	if digest != "" {
		outcome, err := s.deliverer.Deliver(ctx, digest)
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrDeliver, err)
		}
		report.Delivered = true
		report.Outcome = outcome
		logger.Info("Digest delivered",
			zap.String("channel", outcome.Channel),
			zap.Bool("fell_back", outcome.FellBack))
	} else {
		logger.Info("Digest is empty; nothing to deliver")
	}

	if err := s.commit(ctx, newEmails, newFeed); err != nil {
		return report, err
	}

	report.FinishedAt = time.Now().UTC()
	logger.Info("Run completed",
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// fetchWindow derives the lower bound for this run's fetch from the run
// cursor, substituting the default lookback on first run or an
// unparseable cursor.
func (s *RunService) fetchWindow(ctx context.Context) (time.Time, error) {
	raw, err := s.ledger.GetMeta(ctx, MetaLastRun)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reading run cursor: %v", ErrLedger, err)
	}
	if raw == "" {
		return time.Now().UTC().Add(-s.lookback), nil
	}
	cursor, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("Unparseable run cursor; using default lookback",
			zap.String("cursor", raw), zap.Error(err))
		return time.Now().UTC().Add(-s.lookback), nil
	}
	return cursor.UTC(), nil
}

// fetchEmails polls every monitored account sequentially. A failure on
// one account is logged and contributes zero items; the run continues.
func (s *RunService) fetchEmails(ctx context.Context, since time.Time, logger *zap.Logger) []EmailItem {
	var all []EmailItem
	for _, account := range s.mailboxes.Accounts() {
		items, err := s.mailboxes.Fetch(ctx, account, since, s.skipFilters)
		if err != nil {
			logger.Error("Failed to fetch from account; continuing with remaining accounts",
				zap.String("account", account), zap.Error(err))
			continue
		}
		logger.Info("Fetched unread emails",
			zap.String("account", account), zap.Int("count", len(items)))
		all = append(all, items...)
	}
	return all
}

func (s *RunService) fetchFeedItems(ctx context.Context, logger *zap.Logger) []FeedItem {
	if s.feeds == nil {
		return nil
	}
	items, err := s.feeds.Fetch(ctx)
	if err != nil {
		logger.Error("Failed to fetch feeds; continuing without feed items", zap.Error(err))
		return nil
	}
	logger.Info("Fetched feed items", zap.Int("count", len(items)))
	return items
}

// commit marks every delivered item seen and advances the run cursor.
// This is the final step of a successful run; both writes are skipped
// entirely when anything upstream failed.
func (s *RunService) commit(ctx context.Context, emails []EmailItem, feedItems []FeedItem) error {
	if err := s.ledger.MarkSeen(ctx, SeenKeys(emails, feedItems)); err != nil {
		return fmt.Errorf("%w: marking items seen: %v", ErrLedger, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.ledger.SetMeta(ctx, MetaLastRun, now); err != nil {
		return fmt.Errorf("%w: advancing run cursor: %v", ErrLedger, err)
	}
	return nil
}
