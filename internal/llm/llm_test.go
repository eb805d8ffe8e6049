package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cuongbtq/job-hoarder/internal/config"
	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/shared/logger"
)

func makeTestServer(t *testing.T, statusCode int, body any, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openAIBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	var auth string
	srv := makeTestServer(t, http.StatusOK, openAIBody(`{"summary":"ok"}`), func(r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	client := NewOpenAIClient(OpenAIOptions{
		BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini", MaxTokens: 256,
	}, srv.Client())

	out, err := client.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system prompt", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAIClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{name: "server error", status: http.StatusInternalServerError, body: map[string]string{"error": "boom"}},
		{name: "rate limited", status: http.StatusTooManyRequests, body: map[string]string{"error": "slow down"}},
		{name: "request timeout", status: http.StatusRequestTimeout, body: map[string]string{"error": "too slow"}},
		{name: "no choices", status: http.StatusOK, body: map[string]any{"choices": []any{}}},
		{name: "error payload", status: http.StatusOK, body: map[string]any{
			"error": map[string]string{"type": "invalid_request_error", "message": "bad"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := makeTestServer(t, tt.status, tt.body, nil)
			client := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())

			_, err := client.Complete(context.Background(), "s", "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrTransport)
			assert.Equal(t, domain.KindTransport, domain.KindOf(err))
		})
	}
}

func TestGateway_RejectedStatusesAreNotRetryable(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		status   int
	}{
		{name: "openai bad request", provider: config.ProviderOpenAI, status: http.StatusBadRequest},
		{name: "openai bad key", provider: config.ProviderOpenAI, status: http.StatusUnauthorized},
		{name: "openai forbidden", provider: config.ProviderOpenAI, status: http.StatusForbidden},
		{name: "openai unknown model", provider: config.ProviderOpenAI, status: http.StatusNotFound},
		{name: "anthropic bad request", provider: config.ProviderAnthropic, status: http.StatusBadRequest},
		{name: "anthropic bad key", provider: config.ProviderAnthropic, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := makeTestServer(t, tt.status, map[string]string{"error": "no"}, func(r *http.Request) { calls++ })

			var gw Gateway
			if tt.provider == config.ProviderAnthropic {
				gw = NewAnthropicClient(AnthropicOptions{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())
			} else {
				gw = NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())
			}

			_, err := gw.Complete(context.Background(), "s", "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRejected)
			assert.NotErrorIs(t, err, domain.ErrTransport)
			assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
			assert.False(t, domain.KindOf(err).Retryable())
			assert.Equal(t, 1, calls)

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
		})
	}
}

func TestOpenAIClient_HTTPErrorCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())
	_, err := client.Complete(context.Background(), "s", "u")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, 7*time.Second, httpErr.RetryAfter)
}

func TestOpenAIClient_DeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got messagesRequest
	var key, version string
	body := map[string]any{
		"content": []map[string]string{
			{"type": "text", "text": "```json\n{}"},
			{"type": "text", "text": "\n```"},
		},
	}
	srv := makeTestServer(t, http.StatusOK, body, func(r *http.Request) {
		key = r.Header.Get("x-api-key")
		version = r.Header.Get("anthropic-version")
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	client := NewAnthropicClient(AnthropicOptions{
		BaseURL: srv.URL, APIKey: "ak-test", Model: DefaultAnthropicModel, MaxTokens: 512,
	}, srv.Client())

	out, err := client.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", out)
	assert.Equal(t, "ak-test", key)
	assert.Equal(t, anthropicVersion, version)
	assert.Equal(t, "system prompt", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user prompt", got.Messages[0].Content)
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	srv := makeTestServer(t, http.StatusOK, map[string]any{"content": []any{}}, nil)
	client := NewAnthropicClient(AnthropicOptions{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())

	_, err := client.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestResolver_Resolve(t *testing.T) {
	log := logger.NewNop()

	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantType any
		wantErr  error
	}{
		{
			name:    "openai without key",
			cfg:     config.LLMConfig{Provider: "openai"},
			wantErr: domain.ErrNoCredential,
		},
		{
			name:    "anthropic without key",
			cfg:     config.LLMConfig{Provider: "anthropic", APIKey: "   "},
			wantErr: domain.ErrNoCredential,
		},
		{
			name:     "openai with key",
			cfg:      config.LLMConfig{Provider: "OpenAI", APIKey: "sk"},
			wantType: &OpenAIClient{},
		},
		{
			name:     "default provider",
			cfg:      config.LLMConfig{APIKey: "sk"},
			wantType: &OpenAIClient{},
		},
		{
			name:     "anthropic with key",
			cfg:      config.LLMConfig{Provider: "anthropic", APIKey: "ak"},
			wantType: &AnthropicClient{},
		},
		{
			name:     "rate limited",
			cfg:      config.LLMConfig{Provider: "openai", APIKey: "sk", RateLimit: config.RateLimitConfig{RequestsPerSecond: 1}},
			wantType: &RateLimited{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := NewResolver(tt.cfg, nil, log).Resolve()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, gw)
		})
	}
}

func TestResolver_DefaultsModel(t *testing.T) {
	gw, err := NewResolver(config.LLMConfig{Provider: "anthropic", APIKey: "ak"}, nil, logger.NewNop()).Resolve()
	require.NoError(t, err)

	client, ok := gw.(*AnthropicClient)
	require.True(t, ok)
	assert.Equal(t, DefaultAnthropicModel, client.opts.Model)
	assert.Equal(t, DefaultAnthropicBaseURL, client.opts.BaseURL)
	assert.Equal(t, defaultMaxTokens, client.opts.MaxTokens)
}

type stubGateway struct{ calls int }

func (s *stubGateway) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	return "ok", nil
}

func TestRateLimited_CanceledWait(t *testing.T) {
	inner := &stubGateway{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	gw := NewRateLimited(inner, limiter)

	_, err := gw.Complete(context.Background(), "s", "u")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gw.Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 1, inner.calls)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}
