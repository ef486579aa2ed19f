package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

// Client implements LLMClient with the Anthropic Messages API
type Client struct {
	client           anthropic.Client
	defaultModel     string
	defaultMaxTokens int
	logger           *zap.Logger
}

// NewClient creates a new Anthropic client. Extra request options are
// applied after the API key.
func NewClient(apiKey, defaultModel string, defaultMaxTokens int, logger *zap.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &Client{
		client:           anthropic.NewClient(opts...),
		defaultModel:     defaultModel,
		defaultMaxTokens: defaultMaxTokens,
		logger:           logger,
	}
}

// Complete sends a single user message and returns the concatenated text
// blocks of the reply
func (c *Client) Complete(ctx context.Context, req *ports.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.defaultMaxTokens
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	c.logger.Debug("completion received",
		zap.String("model", model),
		zap.Int("blocks", len(msg.Content)),
		zap.Duration("latency", time.Since(start)))

	return sb.String(), nil
}
