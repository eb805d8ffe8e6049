package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

type OpenAIOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenAIClient calls the /chat/completions endpoint.
type OpenAIClient struct {
	opts       OpenAIOptions
	httpClient *http.Client
}

func NewOpenAIClient(opts OpenAIOptions, httpClient *http.Client) *OpenAIClient {
	return &OpenAIClient{opts: opts, httpClient: httpClient}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.TransportError("openai request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("openai request", resp)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.TransportError("read openai response", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", domain.TransportError("decode openai response", err)
	}
	if chatResp.Error != nil {
		return "", domain.TransportError("openai request",
			fmt.Errorf("%s: %s", chatResp.Error.Type, chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return "", domain.TransportError("openai request", fmt.Errorf("no choices returned"))
	}

	return chatResp.Choices[0].Message.Content, nil
}
