package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chaindesk/chaindesk/internal/config"
)

const insightSystemPrompt = "You are a concise crypto market analyst. " +
	"Given a JSON snapshot of spot prices, gas fees and chain TVL, write a short " +
	"plain-text market summary (3-5 sentences). Mention notable gas conditions " +
	"and TVL concentration. Do not give financial advice."

// LLMProvider calls an OpenAI-compatible chat-completions API
type LLMProvider struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	max     int
	client  *http.Client
	breaker *Breaker
}

// Insight is the model's summary of a market snapshot
type Insight struct {
	Model   string `json:"model"`
	Summary string `json:"summary"`
}

// NewLLMProvider creates an LLM provider from configuration
func NewLLMProvider(cfg config.LLMConfig, apiKey string) *LLMProvider {
	return &LLMProvider{
		name:    "llm",
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  apiKey,
		max:     cfg.MaxTokens,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		breaker: NewBreaker("llm"),
	}
}

func (l *LLMProvider) Name() string {
	return l.name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarize asks the model for a market summary of the snapshot JSON
func (l *LLMProvider) Summarize(ctx context.Context, snapshot []byte) (*Insight, error) {
	payload, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: insightSystemPrompt},
			{Role: "user", Content: string(snapshot)},
		},
		MaxTokens: l.max,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	result, err := l.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			l.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if l.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+l.apiKey)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		var chat chatResponse
		if err := json.Unmarshal(body, &chat); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			if chat.Error != nil {
				return nil, fmt.Errorf("API error: status %d: %s", resp.StatusCode, chat.Error.Message)
			}
			return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
		}
		if len(chat.Choices) == 0 {
			return nil, fmt.Errorf("empty completion")
		}

		return &Insight{Model: chat.Model, Summary: chat.Choices[0].Message.Content}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.name, err)
	}

	return result.(*Insight), nil
}
