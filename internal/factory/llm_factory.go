package factory

import (
	"fmt"

	"github.com/mikey/inbox-digest/internal/adapters/bedrock"
	"github.com/mikey/inbox-digest/internal/adapters/gemini"
	"github.com/mikey/inbox-digest/internal/adapters/openai"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates completion clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompletionClient creates a completion client based on the configuration
func (f *LLMFactory) CreateCompletionClient() (core.CompletionClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger)
		client, err := factory.CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger)
		return factory.CreateCompletionClient()
	case "openai":
		factory := openai.NewFactory(f.cfg, f.logger)
		return factory.CreateCompletionClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
