package gemini

import (
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateCompletionClient creates a new GeminiClient
func (f *Factory) CreateCompletionClient() (core.CompletionClient, error) {
	geminiCfg := f.cfg.GetGemini()
	return NewGeminiClient(geminiCfg.APIKey, geminiCfg.ModelName, f.logger)
}
