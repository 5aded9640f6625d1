package imapcli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/filter"
	"github.com/mikey/inbox-digest/internal/retry"
	"github.com/mikey/inbox-digest/internal/utils"
	"go.uber.org/zap"
)

const (
	maxConnectAttempts = 3
	connectRetryDelay  = 2 * time.Second
)

// Fetcher polls monitored mailboxes over IMAP. All mailbox operations are
// read-only: messages are fetched with BODY.PEEK so the unread flag is
// never touched.
type Fetcher struct {
	accounts map[string]config.AccountConfig
	order    []string
	rules    *filter.Rules
	text     *utils.TextProcessor
	logger   *zap.Logger
	maxFetch int
	timeout  time.Duration
}

// NewFetcher creates a mailbox fetcher over the configured accounts.
func NewFetcher(
	accounts []config.AccountConfig,
	rules *filter.Rules,
	text *utils.TextProcessor,
	logger *zap.Logger,
	maxFetch int,
	timeout time.Duration,
) *Fetcher {
	if maxFetch <= 0 {
		maxFetch = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	byName := make(map[string]config.AccountConfig, len(accounts))
	order := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		byName[acc.Username] = acc
		order = append(order, acc.Username)
	}
	return &Fetcher{
		accounts: byName,
		order:    order,
		rules:    rules,
		text:     text,
		logger:   logger,
		maxFetch: maxFetch,
		timeout:  timeout,
	}
}

// Accounts lists the monitored account names, in configuration order.
func (f *Fetcher) Accounts() []string {
	return f.order
}

// Fetch returns unread emails for one account received strictly after
// since, newest first, capped at the configured per-run maximum.
func (f *Fetcher) Fetch(ctx context.Context, account string, since time.Time, skipFilters bool) ([]core.EmailItem, error) {
	acc, ok := f.accounts[account]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", account)
	}
	logger := f.logger.With(zap.String("account", account))

	c, err := f.connect(ctx, acc, logger)
	if err != nil {
		return nil, err
	}
	// Release the connection on every exit path.
	defer c.Logout()

	// Read-only SELECT keeps the server from recording any state change.
	if _, err := c.Select(acc.Folder, true); err != nil {
		logger.Error("Failed to select folder; skipping account this run",
			zap.String("folder", acc.Folder), zap.Error(err))
		return nil, nil
	}

	// Server-side SINCE has date granularity only; the exact cutoff is
	// re-checked per message below.
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if !since.IsZero() {
		criteria.Since = since
	}

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(seqNums) == 0 {
		logger.Info("No unread emails found")
		return nil, nil
	}

	// Sequence numbers arrive oldest first; reverse and cap to keep the
	// newest.
	sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] > seqNums[j] })
	if len(seqNums) > f.maxFetch {
		logger.Info("Capping unread emails to most recent",
			zap.Int("found", len(seqNums)), zap.Int("cap", f.maxFetch))
		seqNums = seqNums[:f.maxFetch]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	fetchItems := []imap.FetchItem{imap.FetchFlags, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, fetchItems, messages)
	}()

	var items []core.EmailItem
	for msg := range messages {
		item, ok := f.buildItem(msg, section, acc, since, skipFilters, logger)
		if ok {
			items = append(items, item)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ReceivedAt.After(items[j].ReceivedAt)
	})
	logger.Info("Extracted unread emails", zap.Int("count", len(items)))
	return items, nil
}

// connect dials and logs in, retrying transient failures with a fixed
// delay. Credential rejections abort immediately with remediation hints.
func (f *Fetcher) connect(ctx context.Context, acc config.AccountConfig, logger *zap.Logger) (*client.Client, error) {
	var c *client.Client
	dialer := &net.Dialer{Timeout: f.timeout}

	attempt := 0
	err := retry.Do(ctx, maxConnectAttempts, connectRetryDelay, func() error {
		attempt++
		var err error
		if acc.UseSSL {
			c, err = client.DialWithDialerTLS(dialer, acc.Addr(), &tls.Config{ServerName: acc.Host})
		} else {
			c, err = client.DialWithDialer(dialer, acc.Addr())
		}
		if err != nil {
			logger.Warn("IMAP connection attempt failed",
				zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		c.Timeout = f.timeout

		if err := c.Login(acc.Username, acc.Password); err != nil {
			c.Logout()
			if isAuthError(err) {
				logAuthHints(logger, acc, err)
				return retry.Permanent(fmt.Errorf("%w: %v", core.ErrAuth, err))
			}
			logger.Warn("IMAP login attempt failed",
				zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrAuth) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrConnect, err)
	}
	return c, nil
}

// buildItem parses one fetched message into an EmailItem, applying the
// unread re-check, filter rules and the strictly-after cutoff.
func (f *Fetcher) buildItem(
	msg *imap.Message,
	section *imap.BodySectionName,
	acc config.AccountConfig,
	since time.Time,
	skipFilters bool,
	logger *zap.Logger,
) (core.EmailItem, bool) {
	// A message read between search and fetch is not acted on.
	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			logger.Debug("Message marked read between search and fetch; skipping",
				zap.Uint32("seq", msg.SeqNum))
			return core.EmailItem{}, false
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		logger.Debug("Message has no body section", zap.Uint32("seq", msg.SeqNum))
		return core.EmailItem{}, false
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		logger.Debug("Failed to parse message", zap.Uint32("seq", msg.SeqNum), zap.Error(err))
		return core.EmailItem{}, false
	}

	sender := formatFrom(mr.Header)
	subject, _ := mr.Header.Subject()

	if !skipFilters && !f.rules.Matches(sender, subject) {
		return core.EmailItem{}, false
	}

	id, err := mr.Header.MessageID()
	if err != nil || id == "" {
		id = fmt.Sprintf("%s/%d", acc.Username, msg.SeqNum)
	}

	textContent, htmlContent := extractContent(mr)

	receivedAt, err := mr.Header.Date()
	if err != nil || receivedAt.IsZero() {
		if !msg.InternalDate.IsZero() {
			receivedAt = msg.InternalDate
		} else {
			receivedAt = time.Now()
		}
	}
	receivedAt = receivedAt.UTC()

	// The server-side SINCE filter is coarse; enforce the exact cutoff.
	if !afterCutoff(receivedAt, since) {
		logger.Debug("Message at or before cutoff; skipping",
			zap.String("id", id), zap.Time("received_at", receivedAt))
		return core.EmailItem{}, false
	}

	snippetSource := textContent
	if snippetSource == "" {
		snippetSource = htmlContent
	}

	// HTML carries the more reliable links; fall back to plain text.
	links := f.text.ExtractLinks(htmlContent)
	if len(links) == 0 {
		links = f.text.ExtractLinks(textContent)
	}

	return core.EmailItem{
		ID:         id,
		Sender:     sender,
		Subject:    subject,
		Snippet:    f.text.Snippet(snippetSource),
		ReceivedAt: receivedAt,
		Account:    acc.Username,
		Links:      links,
	}, true
}

// afterCutoff reports whether a message received at t is strictly inside
// the fetch window. A zero cutoff means no lower bound.
func afterCutoff(t, since time.Time) bool {
	return since.IsZero() || t.After(since)
}

// extractContent walks the MIME parts collecting the first text/plain and
// first text/html inline bodies.
func extractContent(mr *mail.Reader) (textContent, htmlContent string) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			if textContent == "" {
				raw, err := io.ReadAll(part.Body)
				if err == nil {
					textContent = string(raw)
				}
			}
		case "text/html":
			if htmlContent == "" {
				raw, err := io.ReadAll(part.Body)
				if err == nil {
					htmlContent = string(raw)
				}
			}
		}
		if textContent != "" && htmlContent != "" {
			break
		}
	}
	return textContent, htmlContent
}

// formatFrom renders the decoded From header as "Name <email>".
func formatFrom(header mail.Header) string {
	addrs, err := header.AddressList("From")
	if err != nil || len(addrs) == 0 {
		from := header.Get("From")
		return strings.TrimSpace(from)
	}
	addr := addrs[0]
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return addr.Address
}

func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "AUTHENTICATIONFAILED") ||
		strings.Contains(msg, "Invalid credentials") ||
		strings.Contains(msg, "Lookup failed") ||
		strings.Contains(strings.ToLower(msg), "authentication failed")
}

// logAuthHints points the operator at the usual credential fixes. Consumer
// providers require app passwords, which is the most common failure.
func logAuthHints(logger *zap.Logger, acc config.AccountConfig, err error) {
	if strings.Contains(acc.Host, "yahoo") {
		logger.Error("Yahoo IMAP authentication failed; a Yahoo app password is required "+
			"(Account Security > App Passwords, 2-step verification must be on; "+
			"remove spaces from the generated password)",
			zap.String("username", acc.Username), zap.Error(err))
		return
	}
	logger.Error("IMAP authentication failed; for Gmail use an app password "+
		"(myaccount.google.com/apppasswords, requires 2-step verification), "+
		"and verify host, port and username",
		zap.String("username", acc.Username),
		zap.String("host", acc.Host), zap.Error(err))
}
