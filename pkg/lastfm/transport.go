package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// apiError is the body Last.fm sends, with HTTP 200, for logical failures.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// call makes a GET request to the Last.fm API with retry logic and decodes
// the JSON body into out.
//
// It handles:
// - Rate limiting through the client's token bucket
// - Request construction with api_key and format=json
// - Per-request timeouts
// - Normalizing {"error": code} bodies into *Error
// - Retry with exponential backoff for network, 5xx and temporary API errors
// - Context cancellation
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")

	endpoint := c.baseURL + "?" + query.Encode()

	var lastErr error
	backoff := c.retryBackoff

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		c.logDebugf("lastfm: calling %s (attempt %d/%d)", method, i+1, c.maxRetries)

		body, retry, err := c.do(ctx, method, endpoint)
		if err == nil {
			if err := decodeBody(method, body, out); err != nil {
				if isRetryableError(err) && i < c.maxRetries-1 {
					c.logDebugf("lastfm: temporary error, retrying: %v", err)
					lastErr = err
					if !sleep(ctx, backoff) {
						return ctx.Err()
					}
					backoff = nextBackoff(backoff)
					continue
				}
				return err
			}

			c.logDebugf("lastfm: %s succeeded", method)
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		if retry && i < c.maxRetries-1 {
			c.logDebugf("lastfm: %s failed, retrying: %v", method, err)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		return err
	}

	return &FetchError{Method: method, Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

// do performs one HTTP round trip. It reports whether a failure is worth
// retrying.
func (c *Client) do(ctx context.Context, method, endpoint string) ([]byte, bool, error) {
	reqCtx := ctx
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "borahae/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shouldRetryNetworkError(err), &FetchError{Method: method, Err: err}
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, true, &FetchError{Method: method, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return nil, true, &FetchError{Method: method, Err: fmt.Errorf("server error: %s", resp.Status)}
	}

	// Last.fm reports some logical errors with 4xx and a JSON error body.
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != 0 {
			return body, false, nil
		}
		return nil, false, &FetchError{Method: method, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	return body, false, nil
}

// decodeBody checks a response body for an API error and otherwise decodes
// it into out.
func decodeBody(method string, body []byte, out interface{}) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &FetchError{Method: method, Err: fmt.Errorf("failed to parse JSON response: %w", err)}
	}
	if apiErr.Error != 0 {
		return &Error{Code: apiErr.Error, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Method: method, Err: fmt.Errorf("failed to decode %s response: %w", method, err)}
	}
	return nil
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential increase.
// Maximum backoff is capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
