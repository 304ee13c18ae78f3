package huggingface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Transport defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second

	maxErrorBodySize = 2048
)

// StatusError is returned when a request finishes with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("hugging face returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// NewLimiter returns a token bucket allowing rps requests per second with a
// burst of at least one.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}

// Transport performs authenticated, rate-limited, retried HTTP calls.
type Transport struct {
	httpClient *http.Client
	token      string
	limiter    *rate.Limiter
	maxRetries uint64
	baseDelay  time.Duration
	logger     *slog.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.httpClient = c }
}

// WithLimiter shares a token bucket across transports.
func WithLimiter(l *rate.Limiter) TransportOption {
	return func(t *Transport) { t.limiter = l }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n uint64) TransportOption {
	return func(t *Transport) { t.maxRetries = n }
}

// WithBaseDelay sets the first backoff interval.
func WithBaseDelay(d time.Duration) TransportOption {
	return func(t *Transport) { t.baseDelay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) { t.logger = l }
}

// NewTransport creates a Transport authenticating with token. An empty token
// sends anonymous requests.
func NewTransport(token string, opts ...TransportOption) *Transport {
	t := &Transport{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		token:      token,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(slog.String("component", "huggingface_transport"))
	return t
}

// Do sends the request produced by build, rebuilding it for every attempt.
// The caller owns the returned body, which always belongs to a 2xx response.
func (t *Transport) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	log := logger.FromContextOrDefault(ctx, t.logger)

	backoff := retry.NewExponential(t.baseDelay)
	backoff = retry.WithCappedDuration(DefaultMaxDelay, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(t.maxRetries, backoff)

	var (
		resp    *http.Response
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := build(ctx)
		if err != nil {
			return err
		}
		if t.token != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", "Bearer "+t.token)
		}

		r, err := t.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("request failed, will retry",
				slog.String("url", req.URL.Redacted()),
				slog.Int("attempt", attempt),
				slog.String("error", redact.Error(err)))
			return retry.RetryableError(err)
		}

		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		body, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBodySize))
		_ = r.Body.Close()
		statusErr := &StatusError{StatusCode: r.StatusCode, Body: redact.String(string(body))}
		if statusErr.Retryable() {
			log.Warn("transient status, will retry",
				slog.String("url", req.URL.Redacted()),
				slog.Int("status", r.StatusCode),
				slog.Int("attempt", attempt))
			return retry.RetryableError(statusErr)
		}
		return statusErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
