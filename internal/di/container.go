package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/adapters/imapcli"
	"github.com/mikey/inbox-digest/internal/adapters/rss"
	"github.com/mikey/inbox-digest/internal/adapters/smtpout"
	"github.com/mikey/inbox-digest/internal/adapters/twilio"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/delivery"
	"github.com/mikey/inbox-digest/internal/factory"
	"github.com/mikey/inbox-digest/internal/filter"
	"github.com/mikey/inbox-digest/internal/logging"
	"github.com/mikey/inbox-digest/internal/summary"
	"github.com/mikey/inbox-digest/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register filter rules
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *filter.Rules {
		filters := cfg.GetFilters()
		return filter.NewRules(filters.FromFilters, filters.SubjectKeywords, logger)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLedgerFactory); err != nil {
		return nil, err
	}

	// Register completion client
	if err := container.Provide(func(f *factory.LLMFactory) (core.CompletionClient, error) {
		return f.CreateCompletionClient()
	}); err != nil {
		return nil, err
	}

	// Register ledger
	if err := container.Provide(func(f *factory.LedgerFactory) (core.Ledger, error) {
		return f.CreateLedger()
	}); err != nil {
		return nil, err
	}

	// Register mailbox fetcher
	if err := container.Provide(func(cfg *config.Config, rules *filter.Rules, text *utils.TextProcessor, logger *zap.Logger) core.MailboxFetcher {
		fetch := cfg.GetFetch()
		return imapcli.NewFetcher(cfg.GetAccounts(), rules, text, logger, fetch.MaxPerAccount, parseDuration(fetch.Timeout, 30*time.Second))
	}); err != nil {
		return nil, err
	}

	// Register feed fetcher
	if err := container.Provide(func(cfg *config.Config, text *utils.TextProcessor, logger *zap.Logger) core.FeedFetcher {
		rssCfg := cfg.GetRSS()
		if !rssCfg.Enabled || len(rssCfg.Feeds) == 0 {
			return nil
		}
		return rss.NewFetcher(rssCfg.Feeds, text, logger, parseDuration(rssCfg.Timeout, 30*time.Second))
	}); err != nil {
		return nil, err
	}

	// Register digest builder
	if err := container.Provide(func(cfg *config.Config, client core.CompletionClient, text *utils.TextProcessor, logger *zap.Logger) core.DigestBuilder {
		llm := cfg.GetLLM()
		opts := summary.Options{
			PerItem: llm.PerItem,
			Timeout: parseDuration(llm.Timeout, 60*time.Second),
		}
		switch llm.Provider {
		case "bedrock":
			opts.MaxTokens = cfg.GetBedrock().MaxTokens
			opts.Temperature = cfg.GetBedrock().Temperature
		case "gemini":
			opts.MaxTokens = cfg.GetGemini().MaxTokens
			opts.Temperature = cfg.GetGemini().Temperature
		default:
			opts.MaxTokens = cfg.GetOpenAI().MaxTokens
			opts.Temperature = cfg.GetOpenAI().Temperature
		}
		return summary.NewSummarizer(client, text, opts, logger)
	}); err != nil {
		return nil, err
	}

	// Register delivery channels and router
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SMSSender {
		tw := cfg.GetTwilio()
		if tw.AccountSID == "" {
			return nil
		}
		return twilio.NewSMSSender(tw, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.EmailSender {
		return smtpout.NewSender(cfg.GetAccounts(), cfg.GetNotify(), logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, sms core.SMSSender, email core.EmailSender, logger *zap.Logger) core.Deliverer {
		return delivery.NewRouter(sms, email, cfg.GetNotify(), cfg.GetAccounts(), logger)
	}); err != nil {
		return nil, err
	}

	// Register run service
	if err := container.Provide(func(
		cfg *config.Config,
		mailboxes core.MailboxFetcher,
		feeds core.FeedFetcher,
		digester core.DigestBuilder,
		deliverer core.Deliverer,
		ledger core.Ledger,
		logger *zap.Logger,
	) *core.RunService {
		lookback := parseDuration(cfg.GetFetch().Lookback, 15*time.Minute)
		return core.NewRunService(mailboxes, feeds, digester, deliverer, ledger, logger, lookback, cfg.GetFilters().Skip)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
