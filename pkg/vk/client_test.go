package vk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	errs "vkdump/pkg/errors"
	"vkdump/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-token", "5.131", logger.GetLogger(),
		WithBaseURL(server.URL),
		WithMaxRetries(1),
		WithRetryDelay(time.Millisecond),
	)
	return client, server
}

func TestCallReturnsResponsePayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.Form.Get("access_token"); got != "test-token" {
			t.Errorf("access_token = %q, want %q", got, "test-token")
		}
		if got := r.Form.Get("v"); got != "5.131" {
			t.Errorf("v = %q, want %q", got, "5.131")
		}
		w.Write([]byte(`{"response":{"count":2,"items":[{"id":1},{"id":2}]}}`))
	})

	payload, err := client.Call(context.Background(), "wall.get", url.Values{})
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}

	var decoded PagedResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.Count != 2 {
		t.Errorf("count = %d, want 2", decoded.Count)
	}
}

func TestCallMapsAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"error_code":5,"error_msg":"User authorization failed"}}`))
	})

	_, err := client.Call(context.Background(), "users.get", url.Values{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	apiErr, ok := err.(*errs.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if apiErr.Type != errs.ErrorTypeAuth {
		t.Errorf("error type = %s, want %s", apiErr.Type, errs.ErrorTypeAuth)
	}
	if apiErr.Code != 5 {
		t.Errorf("error code = %d, want 5", apiErr.Code)
	}
}

func TestCallMapsRateLimitError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"error_code":6,"error_msg":"Too many requests per second"}}`))
	})

	_, err := client.Call(context.Background(), "wall.get", url.Values{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *errs.Error
	if !errs.As(err, &apiErr) {
		t.Fatalf("expected *errors.Error in chain, got %T", err)
	}
	if apiErr.Type != errs.ErrorTypeRateLimit {
		t.Errorf("error type = %s, want %s", apiErr.Type, errs.ErrorTypeRateLimit)
	}
}

func TestCallMapsServerStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Call(context.Background(), "wall.get", url.Values{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *errs.Error
	if !errs.As(err, &apiErr) {
		t.Fatalf("expected *errors.Error in chain, got %T", err)
	}
	if apiErr.Type != errs.ErrorTypeServerError {
		t.Errorf("error type = %s, want %s", apiErr.Type, errs.ErrorTypeServerError)
	}
}

func TestCallRetriesRetryableErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"response":[]}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "5.131", logger.GetLogger(),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.Call(context.Background(), "wall.get", url.Values{})
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("got %d attempts, want 2", attempts)
	}
}

func TestWithRetryDelayShortensBackoff(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test-token", "5.131", logger.GetLogger(),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
	)

	start := time.Now()
	_, err := client.Call(context.Background(), "wall.get", url.Values{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
	// Default base delay is one second per attempt; the configured
	// millisecond delay must keep all retries well under that.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("retries took %v, configured delay was not applied", elapsed)
	}
}

func TestProbe(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":[{"id":101,"first_name":"Ivan","last_name":"Petrov"}]}`))
	})

	user, err := client.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if user.ID != 101 {
		t.Errorf("user ID = %d, want 101", user.ID)
	}
	if user.FirstName != "Ivan" {
		t.Errorf("first name = %q, want %q", user.FirstName, "Ivan")
	}
}

func TestProbeEmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":[]}`))
	})

	_, err := client.Probe(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *errs.Error
	if !errs.As(err, &apiErr) {
		t.Fatalf("expected *errors.Error in chain, got %T", err)
	}
	if apiErr.Type != errs.ErrorTypeAuth {
		t.Errorf("error type = %s, want %s", apiErr.Type, errs.ErrorTypeAuth)
	}
}
