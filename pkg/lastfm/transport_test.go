package lastfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestCall_APIErrors tests normalization of Last.fm error bodies.
func TestCall_APIErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		response      string
		wantCode      int
		wantNotFound  bool
		wantTemporary bool
		wantAttempts  int
	}{
		{
			name:         "user not found with 200",
			status:       http.StatusOK,
			response:     `{"error": 6, "message": "User not found"}`,
			wantCode:     6,
			wantNotFound: true,
			wantAttempts: 1,
		},
		{
			name:         "invalid api key with 403",
			status:       http.StatusForbidden,
			response:     `{"error": 10, "message": "Invalid API key - You must be granted a valid key by last.fm"}`,
			wantCode:     10,
			wantAttempts: 1,
		},
		{
			name:          "rate limit exceeded is retried until exhausted",
			status:        http.StatusOK,
			response:      `{"error": 29, "message": "Rate Limit Exceeded"}`,
			wantCode:      29,
			wantTemporary: true,
			wantAttempts:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(tt.status)
				writeBody(t, w, tt.response)
			})

			_, err := client.User().GetInfo(context.Background(), "army")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var lastfmErr *Error
			if !errors.As(err, &lastfmErr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if lastfmErr.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, lastfmErr.Code)
			}
			if lastfmErr.NotFound() != tt.wantNotFound {
				t.Errorf("expected NotFound %v, got %v", tt.wantNotFound, lastfmErr.NotFound())
			}
			if lastfmErr.Temporary() != tt.wantTemporary {
				t.Errorf("expected Temporary %v, got %v", tt.wantTemporary, lastfmErr.Temporary())
			}
			if !errors.Is(err, &Error{Code: tt.wantCode}) {
				t.Error("expected errors.Is to match by code")
			}
			if attempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, attempts)
			}
		})
	}
}

// TestCall_FetchErrors tests that unusable responses surface as *FetchError.
func TestCall_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
	}{
		{
			name:     "html body",
			status:   http.StatusOK,
			response: `<html><body>Bad Gateway</body></html>`,
		},
		{
			name:     "not found without json",
			status:   http.StatusNotFound,
			response: `not found`,
		},
		{
			name:     "persistent server error",
			status:   http.StatusBadGateway,
			response: `upstream down`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if _, err := w.Write([]byte(tt.response)); err != nil {
					t.Fatalf("failed to write response body: %v", err)
				}
			})

			_, err := client.User().GetWeeklyChartList(context.Background(), "army")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %T: %v", err, err)
			}
			if fetchErr.Method != "user.getweeklychartlist" {
				t.Errorf("expected method user.getweeklychartlist, got %s", fetchErr.Method)
			}
			if !strings.Contains(err.Error(), "failed to fetch from Last.fm API") {
				t.Errorf("expected fetch failure message, got %v", err)
			}
		})
	}
}

// TestCall_Retry tests retry logic for temporary errors.
func TestCall_Retry(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// First two attempts return temporary error
			writeBody(t, w, `{"error": 11, "message": "Service Offline"}`)
			return
		}
		writeBody(t, w, `{"weeklychartlist": {"chart": [{"from": "1", "to": "2"}]}}`)
	})

	charts, err := client.User().GetWeeklyChartList(context.Background(), "army")
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if len(charts) != 1 {
		t.Errorf("expected 1 chart, got %d", len(charts))
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

// TestCall_ServerError tests handling of HTTP 5xx errors.
func TestCall_ServerError(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// First two attempts return 503
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Service Unavailable")); err != nil {
				t.Fatalf("failed to write response body: %v", err)
			}
			return
		}
		writeBody(t, w, `{"user": {"name": "army"}}`)
	})

	info, err := client.User().GetInfo(context.Background(), "army")
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if info.Name != "army" {
		t.Errorf("expected name army, got %q", info.Name)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

// TestCall_ContextCancellation tests context cancellation.
func TestCall_ContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Simulate slow response
		time.Sleep(100 * time.Millisecond)
		writeBody(t, w, `{"user": {"name": "army"}}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.User().GetInfo(ctx, "army")
	if err == nil {
		t.Fatal("expected context deadline error, got nil")
	}

	if !strings.Contains(err.Error(), "context deadline exceeded") {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

// TestCall_RequestTimeout tests that a hung request is bounded by the
// per-request timeout even without a caller deadline.
func TestCall_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(Config{
		APIKey:         "test-api-key",
		BaseURL:        server.URL,
		RequestTimeout: 20 * time.Millisecond,
		MaxRetries:     1,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	start := time.Now()
	_, err = client.User().GetInfo(context.Background(), "army")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request was not bounded by timeout, took %s", elapsed)
	}
}

// TestNewClient tests configuration defaults and validation.
func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client, err := NewClient(Config{APIKey: "key"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.baseURL != DefaultBaseURL {
			t.Errorf("expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
		}
		if client.Limiter().Capacity() != DefaultBurst {
			t.Errorf("expected capacity %d, got %d", DefaultBurst, client.Limiter().Capacity())
		}
		if client.maxRetries != defaultMaxRetries {
			t.Errorf("expected %d retries, got %d", defaultMaxRetries, client.maxRetries)
		}
	})

	t.Run("negative rate limit", func(t *testing.T) {
		_, err := NewClient(Config{APIKey: "key", RateLimit: -1})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("missing api key warns", func(t *testing.T) {
		logger := &recordingLogger{}
		client, err := NewClient(Config{Logger: logger})
		if err != nil {
			t.Fatalf("expected missing key to be tolerated, got %v", err)
		}
		if client == nil {
			t.Fatal("expected client")
		}
		if len(logger.warnings) != 1 {
			t.Fatalf("expected 1 warning, got %d", len(logger.warnings))
		}
		if !strings.Contains(logger.warnings[0], "no API key") {
			t.Errorf("unexpected warning %q", logger.warnings[0])
		}
	})
}

type recordingLogger struct {
	debugs   []string
	warnings []string
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) {
	l.debugs = append(l.debugs, format)
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, format)
}
