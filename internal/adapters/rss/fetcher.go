package rss

import (
	"context"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/utils"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// Fetcher polls the configured RSS/Atom feeds. A failure on one feed is
// logged and skipped; the remaining feeds still contribute items.
type Fetcher struct {
	feeds     []string
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
	text      *utils.TextProcessor
	logger    *zap.Logger
	timeout   time.Duration
}

// NewFetcher creates a feed fetcher over the given feed URLs.
func NewFetcher(feeds []string, text *utils.TextProcessor, logger *zap.Logger, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		feeds:     feeds,
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
		text:      text,
		logger:    logger,
		timeout:   timeout,
	}
}

// Fetch returns the items of every configured feed.
func (f *Fetcher) Fetch(ctx context.Context) ([]core.FeedItem, error) {
	var all []core.FeedItem
	for _, url := range f.feeds {
		items, err := f.fetchOne(ctx, url)
		if err != nil {
			f.logger.Warn("Failed to fetch feed; skipping",
				zap.String("feed_url", url), zap.Error(err))
			continue
		}
		f.logger.Info("Fetched feed",
			zap.String("feed_url", url), zap.Int("items", len(items)))
		all = append(all, items...)
	}
	return all, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]core.FeedItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(url, fetchCtx)
	if err != nil {
		return nil, err
	}

	source := feed.Title
	if source == "" {
		source = url
	}

	var items []core.FeedItem
	for _, entry := range feed.Items {
		id := entry.GUID
		if id == "" {
			id = entry.Link
		}
		if id == "" {
			continue
		}

		title := entry.Title
		if title == "" {
			title = "No title"
		}

		snippet := entry.Description
		if snippet == "" {
			snippet = entry.Content
		}
		snippet = f.text.Snippet(f.sanitizer.Sanitize(snippet))

		publishedAt := time.Now().UTC()
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			publishedAt = entry.UpdatedParsed.UTC()
		}

		items = append(items, core.FeedItem{
			ID:          id,
			Source:      source,
			Title:       title,
			Snippet:     snippet,
			PublishedAt: publishedAt,
		})
	}
	return items, nil
}
