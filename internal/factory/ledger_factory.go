package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/inbox-digest/internal/adapters/ledger"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// LedgerFactory creates seen-item ledgers
type LedgerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLedgerFactory creates a new ledger factory
func NewLedgerFactory(cfg *config.Config, logger *zap.Logger) *LedgerFactory {
	return &LedgerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLedger creates a ledger based on the configuration
func (f *LedgerFactory) CreateLedger() (core.Ledger, error) {
	ledgerConfig := f.cfg.GetLedger()

	switch ledgerConfig.Type {
	case "sqlite":
		if dir := filepath.Dir(ledgerConfig.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create ledger directory: %w", err)
			}
		}
		return ledger.NewSQLiteLedger(ledgerConfig.SQLitePath, f.logger)
	case "mysql":
		return ledger.NewMySQLLedger(ledgerConfig.MySQLDSN, f.logger)
	case "memory":
		f.logger.Warn("Using in-memory ledger, seen items will not survive restarts")
		return ledger.NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", ledgerConfig.Type)
	}
}
