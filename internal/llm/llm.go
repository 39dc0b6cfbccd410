// Package llm wraps an OpenAI-compatible API for the collaborators that need
// one: the requirement generator, LLM justifications and remote embeddings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

const (
	defaultModel      = "gpt-4o-mini"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Config holds connection settings for an OpenAI-compatible endpoint.
type Config struct {
	APIKey     string
	BaseURL    string // empty means api.openai.com
	Model      string
	Timeout    time.Duration
	MaxRetries uint64
	Backoff    time.Duration // initial exponential backoff
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	return c
}

// NewClient builds a go-openai client for cfg. A key is required unless a
// custom base URL (e.g. a local server) is set.
func NewClient(cfg Config) (*openai.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("llm: API key not set (ARCHLENS_LLM_API_KEY)")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openai.NewClientWithConfig(oc), nil
}

// Do runs fn, retrying with exponential backoff while Retryable reports
// the error as transient.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	b := retry.WithMaxRetries(cfg.MaxRetries, retry.NewExponential(cfg.Backoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if Retryable(err) {
			slog.Warn("llm request failed, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// Retryable reports whether err is a transient API failure: rate limiting,
// a 5xx response, or a network error.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Chat sends single-turn prompts to a chat completion model.
type Chat struct {
	client *openai.Client
	cfg    Config
	system string
}

// NewChat creates a Chat client. system is the system-role persona; empty
// sends only the user prompt.
func NewChat(cfg Config, system string) (*Chat, error) {
	cfg = cfg.withDefaults()
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("llm chat client ready", "model", cfg.Model, "base_url", cfg.BaseURL)
	return &Chat{client: client, cfg: cfg, system: system}, nil
}

// Complete returns the model's reply to prompt. Sampling is disabled
// (temperature 0) so repeated calls are as stable as the backend allows.
func (c *Chat) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if c.system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: 0,
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	var reply string
	err := Do(ctx, c.cfg, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices returned")
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	return reply, nil
}
