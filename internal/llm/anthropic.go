package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const anthropicVersion = "2023-06-01"

type AnthropicOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// AnthropicClient calls the /v1/messages endpoint.
type AnthropicClient struct {
	opts       AnthropicOptions
	httpClient *http.Client
}

func NewAnthropicClient(opts AnthropicOptions, httpClient *http.Client) *AnthropicClient {
	return &AnthropicClient{opts: opts, httpClient: httpClient}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       c.opts.Model,
		System:      systemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: userPrompt}},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.opts.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.TransportError("anthropic request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("anthropic request", resp)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.TransportError("read anthropic response", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBytes, &msgResp); err != nil {
		return "", domain.TransportError("decode anthropic response", err)
	}
	if msgResp.Error != nil {
		return "", domain.TransportError("anthropic request",
			fmt.Errorf("%s: %s", msgResp.Error.Type, msgResp.Error.Message))
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", domain.TransportError("anthropic request", fmt.Errorf("no text content returned"))
	}
	return sb.String(), nil
}
