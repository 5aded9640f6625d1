package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/utils"
	"go.uber.org/zap"
)

const (
	itemPromptMaxTokens  = 150
	itemContentLimit     = 500
	fallbackTitleLimit   = 80
	fallbackItemsPerType = 10
	batchEmailsPerAcct   = 10
	batchFeedItemsLimit  = 5
	timeLayout           = "Jan 2, 2006 3:04 PM"
)

// Summarizer turns a batch of new emails and feed items into a
// phone-sized digest via a completion client.
type Summarizer struct {
	client    core.CompletionClient
	text      *utils.TextProcessor
	logger    *zap.Logger
	perItem   bool
	maxTokens int
	temp      float32
	timeout   time.Duration
}

// Options tunes how the digest is generated.
type Options struct {
	// PerItem summarizes each email individually and assembles the
	// digest locally. When false one aggregate prompt covers the run.
	PerItem     bool
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// NewSummarizer creates a digest builder on top of client.
func NewSummarizer(client core.CompletionClient, text *utils.TextProcessor, opts Options, logger *zap.Logger) *Summarizer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Summarizer{
		client:    client,
		text:      text,
		logger:    logger,
		perItem:   opts.PerItem,
		maxTokens: opts.MaxTokens,
		temp:      opts.Temperature,
		timeout:   opts.Timeout,
	}
}

// Summarize produces the digest text for the given items. An empty
// digest means there was nothing worth delivering.
func (s *Summarizer) Summarize(ctx context.Context, emails []core.EmailItem, feedItems []core.FeedItem) (string, error) {
	if len(emails) == 0 && len(feedItems) == 0 {
		return "", nil
	}

	var digest string
	var err error
	if s.perItem {
		digest, err = s.summarizePerItem(ctx, emails, feedItems)
	} else {
		digest, err = s.summarizeBatch(ctx, emails, feedItems)
	}
	if err != nil {
		return "", err
	}

	// Models occasionally declare a quiet day even when handed items.
	// Replace that with a plain listing so nothing is silently lost.
	if strings.Contains(strings.ToLower(digest), "no notable updates") {
		s.logger.Warn("Model reported no notable updates despite new items, using fallback digest",
			zap.Int("email_count", len(emails)),
			zap.Int("feed_item_count", len(feedItems)))
		return s.fallbackDigest(emails, feedItems), nil
	}
	return digest, nil
}

// summarizePerItem asks for a short summary of each email and lays out
// the digest grouped by account, newest first within the group.
func (s *Summarizer) summarizePerItem(ctx context.Context, emails []core.EmailItem, feedItems []core.FeedItem) (string, error) {
	byAccount := groupByAccount(emails)
	accounts := make([]string, 0, len(byAccount))
	for account := range byAccount {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	var b strings.Builder
	for _, account := range accounts {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Email: %s\n\n", account)
		group := byAccount[account]
		for i, email := range group {
			summaryText, err := s.summarizeOne(ctx, email)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "Sender: %s\n", shortSender(email.Sender))
			fmt.Fprintf(&b, "Time: %s\n", email.ReceivedAt.Format(timeLayout))
			fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
			fmt.Fprintf(&b, "Summary: %s\n", summaryText)
			if i < len(group)-1 {
				b.WriteString("\n")
			}
		}
	}

	if section := feedSection(feedItems); section != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(section)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Summarizer) summarizeOne(ctx context.Context, email core.EmailItem) (string, error) {
	content := s.text.TruncateText(email.Snippet, itemContentLimit)
	prompt := fmt.Sprintf(
		"Summarize this email in a very concise way (maximum 2-3 sentences, under 100 words).\n\n"+
			"From: %s\nSubject: %s\nContent: %s",
		email.Sender, email.Subject, content)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.client.Complete(callCtx, prompt, itemPromptMaxTokens, s.temp)
	if err != nil {
		return "", fmt.Errorf("summarizing email %q: %w", email.ID, err)
	}
	return strings.TrimSpace(out), nil
}

// summarizeBatch builds one aggregate prompt covering the whole run.
func (s *Summarizer) summarizeBatch(ctx context.Context, emails []core.EmailItem, feedItems []core.FeedItem) (string, error) {
	prompt := s.buildBatchPrompt(emails, feedItems)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.client.Complete(callCtx, prompt, s.maxTokens, s.temp)
	if err != nil {
		return "", fmt.Errorf("summarizing batch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (s *Summarizer) buildBatchPrompt(emails []core.EmailItem, feedItems []core.FeedItem) string {
	byAccount := groupByAccount(emails)

	// Order account groups by their newest item, busiest inbox first.
	accounts := make([]string, 0, len(byAccount))
	for account := range byAccount {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return byAccount[accounts[i]][0].ReceivedAt.After(byAccount[accounts[j]][0].ReceivedAt)
	})

	var b strings.Builder
	b.WriteString("You are writing a short SMS digest of new inbox and feed activity.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Cover every email and feed item below, do not skip any.\n")
	b.WriteString("- One short line per item, plain text only.\n")
	b.WriteString("- Group by account, keep the account headers.\n")
	b.WriteString("- If there is truly nothing, say exactly: no notable updates.\n\n")

	for _, account := range accounts {
		fmt.Fprintf(&b, "=== Account: %s ===\n", account)
		group := byAccount[account]
		if len(group) > batchEmailsPerAcct {
			group = group[:batchEmailsPerAcct]
		}
		for _, email := range group {
			fmt.Fprintf(&b, "From: %s | Time: %s | Subject: %s\n%s\n\n",
				email.Sender,
				email.ReceivedAt.Format(timeLayout),
				email.Subject,
				s.text.TruncateText(email.Snippet, itemContentLimit))
		}
	}

	if len(feedItems) > 0 {
		items := feedItems
		if len(items) > batchFeedItemsLimit {
			items = items[:batchFeedItemsLimit]
		}
		b.WriteString("=== RSS ===\n")
		for _, item := range items {
			fmt.Fprintf(&b, "Source: %s | Title: %s\n%s\n\n",
				item.Source, item.Title,
				s.text.TruncateText(item.Snippet, itemContentLimit))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// fallbackDigest is a deterministic listing used when the model refuses
// to engage with the items it was given.
func (s *Summarizer) fallbackDigest(emails []core.EmailItem, feedItems []core.FeedItem) string {
	var lines []string
	for i, email := range emails {
		if i >= fallbackItemsPerType {
			break
		}
		lines = append(lines, fmt.Sprintf("Email from %s: %s",
			shortSender(email.Sender), s.text.TruncateText(email.Subject, fallbackTitleLimit)))
	}
	for i, item := range feedItems {
		if i >= fallbackItemsPerType {
			break
		}
		lines = append(lines, fmt.Sprintf("RSS %s: %s",
			item.Source, s.text.TruncateText(item.Title, fallbackTitleLimit)))
	}
	return strings.Join(lines, "\n\n")
}

func feedSection(feedItems []core.FeedItem) string {
	if len(feedItems) == 0 {
		return ""
	}
	items := feedItems
	if len(items) > batchFeedItemsLimit {
		items = items[:batchFeedItemsLimit]
	}
	var b strings.Builder
	b.WriteString("RSS:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "Source: %s\n", item.Source)
		fmt.Fprintf(&b, "Time: %s\n", item.PublishedAt.Format(timeLayout))
		fmt.Fprintf(&b, "Title: %s\n", item.Title)
		if i < len(items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// groupByAccount buckets emails per account preserving the incoming
// newest-first order within each bucket.
func groupByAccount(emails []core.EmailItem) map[string][]core.EmailItem {
	byAccount := make(map[string][]core.EmailItem)
	for _, email := range emails {
		byAccount[email.Account] = append(byAccount[email.Account], email)
	}
	return byAccount
}

// shortSender reduces "Display Name <addr>" to the display name, or
// the raw address when no name is present.
func shortSender(sender string) string {
	if idx := strings.Index(sender, "<"); idx > 0 {
		return strings.TrimSpace(sender[:idx])
	}
	return strings.TrimSpace(sender)
}
