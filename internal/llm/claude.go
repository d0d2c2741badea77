package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Claude calls the Anthropic messages API through the official SDK.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newClaude(cfg Config) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// Retries are the coordinator's business.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Claude{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *Claude) Name() string  { return ProviderClaude }
func (c *Claude) Model() string { return c.model }

func (c *Claude) Submit(ctx context.Context, req Request) ([]Suggestion, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(req))),
		},
	})
	if err != nil {
		return nil, classifyClaude(ctx, err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return ParseResponse(block.Text, req)
		}
	}
	return nil, fmt.Errorf("claude: %w: empty content", ErrResponseInvalid)
}

// classifyClaude maps SDK failures onto the package errors. Anything that
// is neither an API error nor a transport error is an undecodable answer.
func classifyClaude(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusError(ProviderClaude, apiErr.StatusCode, apiErr.Error())
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("claude: %w", err)
	}
	return fmt.Errorf("claude: %w: %v", ErrResponseInvalid, err)
}
