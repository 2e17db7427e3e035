// Package lastfm provides a read-only client for the Last.fm API 2.0.
//
// This package implements the user.* listening-history methods needed to
// reconstruct listening timelines. It is designed to be used as a
// standalone SDK.
package lastfm

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	APIKey         string        // Required at request time: Last.fm API key
	HTTPClient     *http.Client  // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL        string        // Optional: Base URL for API (defaults to Last.fm API, used for testing)
	Logger         Logger        // Optional: Logger interface for debug logging
	RequestTimeout time.Duration // Optional: Per-request deadline (defaults to 15s, negative disables)
	RateLimit      float64       // Optional: Tokens refilled per second (defaults to 5)
	Burst          int           // Optional: Token bucket capacity (defaults to 5)
	MaxRetries     int           // Optional: Attempts per request (defaults to 3)
	RetryBackoff   time.Duration // Optional: Initial retry backoff (defaults to 1s)
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
	// Warnf logs a warning with format and arguments.
	Warnf(format string, args ...interface{})
}

// Client is the main entry point for Last.fm API operations.
type Client struct {
	apiKey         string
	httpClient     *http.Client
	baseURL        string
	logger         Logger
	limiter        *RateLimiter
	requestTimeout time.Duration
	maxRetries     int
	retryBackoff   time.Duration

	user *UserService
}

const (
	// DefaultBaseURL is the default Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultRateLimit is the documented Last.fm ceiling of 5 requests per second.
	DefaultRateLimit = 5.0
	// DefaultBurst is the token bucket capacity.
	DefaultBurst = 5

	defaultRequestTimeout = 15 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBackoff   = 1 * time.Second
)

// NewClient creates a new Last.fm API client.
//
// A missing APIKey is not an error: a warning is logged and requests fail
// at call time with an invalid API key error from Last.fm. Returns an error
// only for nonsensical rate limit settings.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RateLimit < 0 || cfg.Burst < 0 {
		return nil, fmt.Errorf("%w: rate limit and burst must not be negative", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rateLimit := cfg.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = DefaultBurst
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = defaultRequestTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}

	c := &Client{
		apiKey:         cfg.APIKey,
		httpClient:     httpClient,
		baseURL:        baseURL,
		logger:         cfg.Logger,
		limiter:        NewRateLimiter(rateLimit, burst),
		requestTimeout: requestTimeout,
		maxRetries:     maxRetries,
		retryBackoff:   retryBackoff,
	}

	c.user = &UserService{client: c}

	if c.apiKey == "" {
		c.logWarnf("lastfm: no API key configured; requests will be rejected by Last.fm")
	}

	return c, nil
}

// User returns the user.* method service.
func (c *Client) User() *UserService {
	return c.user
}

// Limiter returns the token bucket shared by every request this client makes.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func (c *Client) logWarnf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warnf(format, args...)
	}
}
