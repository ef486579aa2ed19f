package llm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/adapters/llm/anthropic"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("LLM client not configured")

// Config holds LLM client configuration
type Config struct {
	Provider         string
	APIKey           string
	DefaultModel     string
	DefaultMaxTokens int
	Logger           *zap.Logger
}

// NewClient creates a new LLM client based on provider
func NewClient(cfg *Config) (ports.LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(cfg.APIKey, cfg.DefaultModel, cfg.DefaultMaxTokens, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
