// Package llm talks to the language model providers used for proofreading
// suggestions. Providers are interchangeable and selected by name.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mozuku.llm")

var (
	ErrDisabled        = errors.New("llm: provider disabled")
	ErrRateLimited     = errors.New("llm: rate limited")
	ErrUnauthorized    = errors.New("llm: unauthorized")
	ErrResponseInvalid = errors.New("llm: invalid response")
)

// UpstreamError is a non-success HTTP answer from the provider.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream %d: %s", e.Provider, e.Status, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.Status == http.StatusRequestTimeout || e.Status/100 == 5
}

// statusError classifies an HTTP status. body is kept for the log.
func statusError(provider string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", provider, ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", provider, ErrUnauthorized)
	}
	return &UpstreamError{Provider: provider, Status: status, Body: strings.TrimSpace(body)}
}

// Retryable reports whether a failed call should be attempted again: rate
// limits, temporary upstream failures and network timeouts are. A
// cancelled context never is.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Temporary()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// Request is one proofreading question.
type Request struct {
	Text string
	// Context is surrounding prose shown to the model but not corrected.
	Context string
	// Issue names a problem already detected by the rules, if any.
	Issue string
}

// Suggestion is one proposed correction. Original is the span of the
// request text it replaces.
type Suggestion struct {
	Original    string  `json:"original"`
	Suggestion  string  `json:"suggestion"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

// Provider submits text and returns suggestions.
type Provider interface {
	Name() string
	Model() string
	Submit(ctx context.Context, req Request) ([]Suggestion, error)
}

const (
	ProviderNone   = "none"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"

	DefaultClaudeModel = "claude-3-5-sonnet-20241022"
	DefaultOpenAIModel = "gpt-4o"
	DefaultMaxTokens   = 1024
	DefaultTimeout     = 60 * time.Second
)

// Config selects and configures a provider.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

func (c *Config) defaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderClaude:
			c.Model = DefaultClaudeModel
		case ProviderOpenAI:
			c.Model = DefaultOpenAIModel
		}
	}
}

// New builds the provider named by cfg.Provider. "none", "disabled" and a
// missing key yield ErrDisabled.
func New(cfg Config) (Provider, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.defaults()

	switch cfg.Provider {
	case "", ProviderNone, "disabled":
		return nil, ErrDisabled
	case ProviderClaude, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no api key for %s", ErrDisabled, cfg.Provider)
	}

	log.Infof("using %s provider with model %s", cfg.Provider, cfg.Model)
	if cfg.Provider == ProviderClaude {
		return newClaude(cfg), nil
	}
	return newOpenAI(cfg), nil
}
