package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProvider speaks a minimal JSON protocol against httptest servers.
type testProvider struct{}

func (testProvider) Name() string                  { return "test" }
func (testProvider) BuildURL(baseURL string) string { return baseURL }
func (testProvider) SetHeaders(_ *http.Request)    {}

func (testProvider) BuildRequestBody(model string, req Request) ([]byte, error) {
	return json.Marshal(map[string]any{"model": model, "messages": req.Messages})
}

func (testProvider) ParseResponse(body []byte, _ string) (*Response, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse test response: %w", err)
	}
	return &Response{Content: resp.Content, Model: "test"}, nil
}

func init() {
	RegisterProvider(testProvider{})
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestCompleteRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"content": "ok"}`)
	}))
	defer srv.Close()

	client := NewClient(
		[]Endpoint{{Provider: "test", Model: "m", URL: srv.URL}},
		WithRetryConfig(fastRetry()),
	)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteFallsBackToNextEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": "fallback"}`)
	}))
	defer healthy.Close()

	client := NewClient(
		[]Endpoint{
			{Provider: "test", Model: "m1", URL: broken.URL},
			{Provider: "test", Model: "m2", URL: healthy.URL},
		},
		WithRetryConfig(fastRetry()),
	)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content)
}

func TestCompleteFatalStopsFallback(t *testing.T) {
	var calls atomic.Int32
	unauthorized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer unauthorized.Close()

	client := NewClient(
		[]Endpoint{
			{Provider: "test", Model: "m1", URL: unauthorized.URL},
			{Provider: "test", Model: "m2", URL: unauthorized.URL},
		},
		WithRetryConfig(fastRetry()),
	)

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(1), calls.Load(), "fatal error must not retry or fall back")
}

func TestCompleteRequiresMessages(t *testing.T) {
	client := NewClient([]Endpoint{{Provider: "test", Model: "m", URL: "http://unused"}})
	_, err := client.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestClassifyHTTPError(t *testing.T) {
	assert.True(t, IsTransient(classifyHTTPError(429, nil)))
	assert.True(t, IsTransient(classifyHTTPError(503, nil)))
	assert.True(t, IsTransient(classifyHTTPError(500, nil)))
	assert.True(t, IsFatal(classifyHTTPError(401, nil)))
	assert.True(t, IsFatal(classifyHTTPError(400, nil)))
}
