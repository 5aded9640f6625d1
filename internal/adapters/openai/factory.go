package openai

import (
	"strings"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// Factory creates OpenAI completion clients from configuration.
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new OpenAI client factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateCompletionClient creates a new completion client based on the
// configuration.
func (f *Factory) CreateCompletionClient() (core.CompletionClient, error) {
	return NewOpenAIClient(f.cfg.GetOpenAI(), f.logger), nil
}

func trimContent(content string) string {
	return strings.TrimSpace(content)
}
