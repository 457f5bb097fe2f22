package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to an Anthropic-style messages endpoint. It is deliberately
// non-streaming on the wire; APIProvider chops the reply into chunk callbacks
// so the rest of the program only ever sees incremental text.
type Client struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	HTTP      *http.Client
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewClient(apiKey, model, baseURL string, maxTokens int) *Client {
	if model == "" {
		model = "minimax-m2.1"
	}
	if baseURL == "" {
		baseURL = "https://api.minimax.io/anthropic/v1/messages"
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		APIKey:    apiKey,
		Model:     model,
		BaseURL:   baseURL,
		MaxTokens: maxTokens,
		HTTP:      &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Complete(ctx context.Context, history []ChatTurn) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("api key is required")
	}
	msgs := make([]chatMessage, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == RoleModel {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: turn.Content})
	}
	payload, err := json.Marshal(chatRequest{Model: c.Model, MaxTokens: c.MaxTokens, Messages: msgs})
	if err != nil {
		return "", err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	request.Header.Set("Authorization", "Bearer "+c.APIKey)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-api-key", c.APIKey)
	request.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.HTTP.Do(request)
	if err != nil {
		return "", fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(bodyBytes, &errResp)
		if errResp.Message != "" {
			return "", fmt.Errorf("api error: status %d, message: %s", resp.StatusCode, errResp.Message)
		}
		if errResp.Error != "" {
			return "", fmt.Errorf("api error: status %d, error: %s", resp.StatusCode, errResp.Error)
		}
		return "", fmt.Errorf("api error: status %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed chatResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err == nil {
		if parsed.Error != nil {
			return "", fmt.Errorf("api error: %s", parsed.Error.Message)
		}
		for _, block := range parsed.Content {
			if block.Type == "text" && block.Text != "" {
				return block.Text, nil
			}
		}
	}
	return "", fmt.Errorf("invalid api response format: %s", string(bodyBytes))
}

// APIProvider adapts Client to the streaming provider contract. The reply
// arrives whole and is re-emitted word by word; delivery is in order and
// append-only, which is all downstream code assumes.
type APIProvider struct {
	Client *Client
}

func (p *APIProvider) Name() string { return p.Client.Model }

func (p *APIProvider) StreamCompletion(ctx context.Context, history []ChatTurn, onChunk func(string)) error {
	text, err := p.Client.Complete(ctx, history)
	if err != nil {
		return err
	}
	for _, word := range strings.SplitAfter(text, " ") {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onChunk(word)
	}
	return nil
}
