package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/di"
	"github.com/mikey/inbox-digest/internal/logging"
	"github.com/mikey/inbox-digest/internal/schedule"
	"go.uber.org/zap"
)

var (
	method    = flag.String("method", "", "Delivery method override (sms or email)")
	to        = flag.String("to", "", "Recipient override (phone number for sms, address for email)")
	resetSeen = flag.String("reset-seen", "", "Clear the seen-item ledger and exit (all, email or rss)")
	force     = flag.Bool("force", false, "Run even when the scheduler jitter gate would skip this slot")
	verbose   = flag.Bool("verbose", false, "Enable verbose console logging")
	jsonLog   = flag.Bool("json-log", false, "Output console logs in JSON format")
)

func main() {
	flag.Parse()

	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Interactive invocations get a console logger in place of the
	// configured one.
	if *verbose || *jsonLog {
		if err := container.Decorate(func(*zap.Logger) (*zap.Logger, error) {
			return logging.InitConsoleLogger(*verbose, *jsonLog)
		}); err != nil {
			fmt.Printf("Failed to set up console logging: %v\n", err)
			os.Exit(1)
		}
	}

	// Flag overrides must land before the adapters are constructed.
	if err := container.Invoke(applyFlagOverrides); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Run failed: %v\n", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *config.Config) error {
	v := cfg.GetViper()
	if *method != "" {
		if *method != "sms" && *method != "email" {
			return fmt.Errorf("unknown delivery method %q", *method)
		}
		v.Set("notify.method", *method)
	}
	if *to != "" {
		switch v.GetString("notify.method") {
		case "email":
			v.Set("notify.email", *to)
		default:
			v.Set("twilio.to_number", *to)
		}
	}
	switch *resetSeen {
	case "", "all", core.SourceEmail, core.SourceRSS:
	default:
		return fmt.Errorf("unknown reset-seen source %q", *resetSeen)
	}
	return nil
}

func run(
	cfg *config.Config,
	service *core.RunService,
	ledger core.Ledger,
	client core.CompletionClient,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer ledger.Close()
	if closer, ok := client.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ctx := context.Background()

	if *resetSeen != "" {
		source := *resetSeen
		if source == "all" {
			source = ""
		}
		if err := ledger.Clear(ctx, source); err != nil {
			return fmt.Errorf("clearing seen items: %w", err)
		}
		logger.Info("Seen items cleared", zap.String("source", *resetSeen))
		return nil
	}

	if gated, err := jitterGated(ctx, cfg, ledger, logger); err != nil {
		return err
	} else if gated && !*force {
		return nil
	}

	report, err := service.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Run report",
		zap.String("run_id", report.RunID),
		zap.Int("fetched", report.Fetched),
		zap.Int("new_emails", report.NewEmails),
		zap.Int("new_feed_items", report.NewFeed),
		zap.Bool("delivered", report.Delivered))
	return nil
}

// jitterGated consults the scheduler gate when it is enabled. A gated
// run exits cleanly without touching the ledger.
func jitterGated(ctx context.Context, cfg *config.Config, ledger core.Ledger, logger *zap.Logger) (bool, error) {
	sched := cfg.GetScheduler()
	if !sched.JitterEnabled {
		return false, nil
	}
	minGap, err := time.ParseDuration(sched.MinGap)
	if err != nil {
		return false, fmt.Errorf("invalid scheduler.min_gap: %w", err)
	}
	maxGap, err := time.ParseDuration(sched.MaxGap)
	if err != nil {
		return false, fmt.Errorf("invalid scheduler.max_gap: %w", err)
	}

	var lastRun *time.Time
	raw, err := ledger.GetMeta(ctx, core.MetaLastRun)
	if err != nil {
		return false, fmt.Errorf("reading run cursor: %w", err)
	}
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			lastRun = &t
		}
	}

	gate := schedule.NewGate(minGap, maxGap)
	if !gate.ShouldRun(lastRun, time.Now().UTC()) {
		logger.Info("Jitter gate skipped this slot",
			zap.Duration("min_gap", minGap), zap.Duration("max_gap", maxGap))
		return true, nil
	}
	return false, nil
}
