package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/logger"
)

// Default timeouts per request class. Scoring and tagging completions
// run long; embedding requests should not.
const (
	DefaultChatTimeout  = 120 * time.Second
	DefaultEmbedTimeout = 60 * time.Second
)

// Retry policy for transient failures.
const (
	maxAttempts     = 3
	initialInterval = time.Second

	// requestsPerSecond paces outbound calls below common provider
	// rate limits.
	requestsPerSecond = 2
)

// bodySnippetLimit caps how much of an error response is carried into
// error messages.
const bodySnippetLimit = 300

// HTTPClient is the shared transport for all vendor adapters. It
// paces requests, retries transient failures with exponential
// backoff, and maps HTTP and network failures into the
// domain.RemoteError taxonomy exactly once, at this layer.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a transport with the given per-request timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// PostJSON sends payload as JSON and returns the response body.
// Transient failures (429, 5xx, network errors) are retried up to
// maxAttempts; configuration and content failures are returned
// immediately.
func (c *HTTPClient) PostJSON(
	ctx context.Context,
	url string,
	headers map[string]string,
	payload any,
) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	attempt := 0
	return backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		data, err := c.post(ctx, url, headers, body)
		if err == nil {
			return data, nil
		}

		var remote *domain.RemoteError
		if errors.As(err, &remote) && remote.Retryable() {
			if attempt < maxAttempts {
				logger.Debug("Transient failure (attempt %d/%d): %v", attempt, maxAttempts, err)
			}
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
}

// Get performs a single unretried request, for connectivity checks.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyNetworkError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewRemoteError(0, "reading response: "+err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewRemoteError(resp.StatusCode, snippet(data))
	}
	return data, nil
}

// Close releases transport resources.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// post performs one paced attempt.
func (c *HTTPClient) post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyNetworkError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewRemoteError(0, "reading response: "+err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewRemoteError(resp.StatusCode, snippet(data))
	}
	return data, nil
}

// classifyNetworkError maps transport-level failures into the error
// taxonomy. Cancellation propagates as-is so callers can distinguish
// a cancelled run from an unreachable provider; everything else (DNS,
// refused connections, timeouts) is transient with status 0.
func classifyNetworkError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewRemoteError(0, "request timed out: "+err.Error())
	}
	return domain.NewRemoteError(0, err.Error())
}

// snippet truncates a response body for error messages.
func snippet(data []byte) string {
	s := string(data)
	if len(s) > bodySnippetLimit {
		s = s[:bodySnippetLimit] + "..."
	}
	return s
}
