package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/output"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithRetry sets the retry count and initial backoff. Default: 3 retries
// starting at 1s.
func WithRetry(maxRetries uint64, backoff time.Duration) Option {
	return func(o *Output) {
		o.maxRetries = maxRetries
		o.backoff = backoff
	}
}

// Output POSTs the artifact as a JSON object. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses are not.
type Output struct {
	client     *http.Client
	url        string
	headers    map[string]string
	maxRetries uint64
	backoff    time.Duration
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:     &http.Client{Timeout: defaultTimeout},
		url:        url,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) Write(ctx context.Context, exp model.Explanation) error {
	body, err := output.Marshal(exp, false)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	b := retry.WithMaxRetries(o.maxRetries, retry.NewExponential(o.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := o.post(ctx, body)
		if err != nil {
			slog.Warn("webhook delivery failed", "url", o.url, "error", err)
		}
		return err
	})
}

func (o *Output) Close() error { return nil }

// post sends one request. Retryable failures are wrapped with
// retry.RetryableError.
func (o *Output) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		return retry.RetryableError(fmt.Errorf("webhook: %w", err))
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.RetryableError(fmt.Errorf("webhook: HTTP %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
	}
}
