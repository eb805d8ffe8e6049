// Package llm talks to hosted language models. A Gateway failure satisfies
// errors.Is(err, domain.ErrTransport) when a retry may succeed and
// domain.ErrRejected when the provider refused the request itself.
package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuongbtq/job-hoarder/internal/config"
	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const (
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultAnthropicModel   = "claude-3-5-sonnet-20241022"

	defaultMaxTokens = 1024
	// maxErrorBody bounds how much of a failed response ends up in errors
	maxErrorBody = 2048
)

// Gateway sends a system and user prompt and returns the raw completion.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// HTTPError is a non-2xx response from a provider.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // zero if the header was absent
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm returned HTTP %d: %s", e.StatusCode, e.Body)
}

// newHTTPError reads a bounded slice of the body for diagnostics.
func newHTTPError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// statusError classifies a non-2xx response. Timeouts, throttling and
// server errors are transient; any other 4xx (bad key, unknown model) is not.
func statusError(op string, resp *http.Response) error {
	httpErr := newHTTPError(resp)
	switch code := resp.StatusCode; {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return domain.TransportError(op, httpErr)
	case code >= 400 && code < 500:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRejected, httpErr)
	default:
		return domain.TransportError(op, httpErr)
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Resolver builds the configured Gateway. All gateways it returns share
// one rate limiter.
type Resolver struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewResolver creates a resolver. A nil httpClient gets one bounded by
// cfg.Timeout.
func NewResolver(cfg config.LLMConfig, httpClient *http.Client, logger *slog.Logger) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}
	return &Resolver{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// Resolve returns domain.ErrNoCredential when the selected provider has no
// API key.
func (r *Resolver) Resolve() (Gateway, error) {
	provider := strings.ToLower(strings.TrimSpace(r.cfg.Provider))
	if provider == "" {
		provider = config.ProviderOpenAI
	}
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, fmt.Errorf("provider %s: %w", provider, domain.ErrNoCredential)
	}

	maxTokens := r.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var gw Gateway
	switch provider {
	case config.ProviderOpenAI:
		gw = NewOpenAIClient(OpenAIOptions{
			BaseURL:     firstNonEmpty(r.cfg.BaseURL, DefaultOpenAIBaseURL),
			APIKey:      r.cfg.APIKey,
			Model:       firstNonEmpty(r.cfg.Model, DefaultOpenAIModel),
			Temperature: r.cfg.Temperature,
			MaxTokens:   maxTokens,
		}, r.httpClient)
	case config.ProviderAnthropic:
		gw = NewAnthropicClient(AnthropicOptions{
			BaseURL:     firstNonEmpty(r.cfg.BaseURL, DefaultAnthropicBaseURL),
			APIKey:      r.cfg.APIKey,
			Model:       firstNonEmpty(r.cfg.Model, DefaultAnthropicModel),
			Temperature: r.cfg.Temperature,
			MaxTokens:   maxTokens,
		}, r.httpClient)
	default:
		return nil, fmt.Errorf("unsupported provider %q: %w", provider, domain.ErrNoCredential)
	}

	if r.limiter != nil {
		gw = NewRateLimited(gw, r.limiter)
	}
	return gw, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimRight(strings.TrimSpace(v), "/")
		}
	}
	return ""
}
