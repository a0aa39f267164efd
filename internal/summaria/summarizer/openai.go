package summarizer

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

	"github.com/TirzGirlsBot/TirzGirlsTLDR/common/retry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// Config configures the OpenAI-compatible client.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for local models (Ollama)
	// or any other OpenAI-compatible endpoint. Defaults to the public
	// OpenAI endpoint when empty.
	BaseURL string

	// Model is the chat model to use. Defaults to gpt-4o-mini when empty.
	Model string

	// Timeout is the per-attempt HTTP timeout. Defaults to 30 s.
	Timeout time.Duration
}

// Client implements Summarizer and Chatter against an OpenAI-compatible
// chat completions API. Safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
}

// New returns a Client with defaults filled in.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model     string       `json:"model"`
	Messages  []oaiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message oaiMessage `json:"message"`
}

// Summarize sends the transcript with the style instruction as the system
// message. Transient failures (429, timeouts) are retried a bounded number
// of times with exponential backoff before giving up.
func (c *Client) Summarize(ctx context.Context, transcript, style string) (string, error) {
	return c.complete(ctx, []oaiMessage{
		{Role: "system", Content: style},
		{Role: "user", Content: "Summarize this:\n" + transcript},
	}, 512)
}

// Reply answers a single prompt in character.
func (c *Client) Reply(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, []oaiMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}, 300)
}

func (c *Client) complete(ctx context.Context, messages []oaiMessage, maxTokens int) (string, error) {
	var out string
	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		ShouldRetry: func(err error) bool {
			return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimedOut)
		},
	}, func() error {
		var err error
		out, err = c.completeOnce(ctx, messages, maxTokens)
		return err
	})
	return out, err
}

func (c *Client) completeOnce(ctx context.Context, messages []oaiMessage, maxTokens int) (string, error) {
	body := oaiRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("summarizer: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return "", fmt.Errorf("summarizer: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimedOut, err)
		}
		return "", fmt.Errorf("summarizer: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("summarizer: read response body: %w", err)
	}

	// Rate limiting is classified on the status line alone: proxies and
	// gateways return 429 with empty or plain-text bodies that the JSON
	// decode below would choke on.
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(respBody)))
	}

	var apiResp oaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("summarizer: decode API response (HTTP %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		switch {
		case apiResp.Error.Code == "content_filter" || apiResp.Error.Type == "invalid_request_error" && strings.Contains(apiResp.Error.Message, "policy"):
			return "", fmt.Errorf("%w: %s", ErrContentPolicy, apiResp.Error.Message)
		default:
			return "", fmt.Errorf("summarizer: API error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)
		}
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("summarizer: unexpected HTTP status %d", resp.StatusCode)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("summarizer: no choices returned")
	}

	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Compile-time interface satisfaction checks.
var (
	_ Summarizer = (*Client)(nil)
	_ Chatter    = (*Client)(nil)
)
