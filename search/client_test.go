package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/llm"
)

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestSearchDisabledReturnsEmpty(t *testing.T) {
	c := NewClient("", "", WithAPIKey(""))
	results, err := c.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, c.Enabled())
}

func TestSearchReturnsContentAndCitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pplx-test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"choices": [{"message": {"content": "Acme raised a Series A in 2024."}}],
			"citations": ["https://example.com/a", "https://example.com/b"]
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sonar", WithAPIKey("pplx-test-key"))
	results, err := c.Search(context.Background(), "Acme funding history", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme raised a Series A in 2024.", results[0].Content)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, results[0].Citations)
	assert.Equal(t, "Acme funding history", results[0].Query)
}

func TestSearchUnauthorizedSurfacesEmptyWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithAPIKey("pplx-bad-key"), WithRetryConfig(fastRetry()))
	results, err := c.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Empty(t, results)
	// The client stays enabled: a 401 never disables the process.
	assert.True(t, c.Enabled())
}

func TestSearchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}], "citations": []}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithAPIKey("k"), WithRetryConfig(fastRetry()))
	results, err := c.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(2), calls.Load())
}
