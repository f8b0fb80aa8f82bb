// Package search provides the citation-search client: natural-language
// query in, content plus source URLs out. The provider may be disabled
// (no API key) or rate limited; callers treat empty results as a signal
// to fall back to the generator-only path.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/c360studio/dealflow/llm"
)

// APIKeyEnv is the environment variable holding the bearer token.
// Absence disables the citation path without aborting startup.
const APIKeyEnv = "PERPLEXITY_API_KEY"

// maxResponseSize caps the search response body.
const maxResponseSize = 5 * 1024 * 1024 // 5MB

// Result is one citation-search hit.
type Result struct {
	Content   string   `json:"content"`
	Citations []string `json:"citations"`
	Query     string   `json:"query"`
}

// Client calls a Perplexity-compatible search API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	retryConfig llm.RetryConfig
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) { client.logger = logger }
}

// WithAPIKey overrides the key from the environment.
func WithAPIKey(key string) Option {
	return func(client *Client) { client.apiKey = key }
}

// WithRetryConfig sets the retry configuration for transient failures.
func WithRetryConfig(cfg llm.RetryConfig) Option {
	return func(client *Client) { client.retryConfig = cfg }
}

// NewClient creates a citation-search client. baseURL and model fall back
// to the Perplexity defaults when empty.
func NewClient(baseURL, model string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}
	if model == "" {
		model = "sonar"
	}
	c := &Client{
		apiKey:      os.Getenv(APIKeyEnv),
		baseURL:     baseURL,
		model:       model,
		retryConfig: llm.DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the citation path is available. A disabled
// client returns empty results from Search without calling out.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// apiRequest is the Perplexity-compatible chat request.
type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiResponse is the Perplexity-compatible response; citations ride at the
// top level alongside the choices.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Search issues one query and returns at most maxResults results. A
// disabled client, an unauthorized key, or exhausted retries all surface
// as an empty list; only the transport error of the final attempt is
// returned so callers can log it.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = 1
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		results, err := c.doSearch(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if llm.IsFatal(err) {
			// 401s are logged but never disable the process; the next
			// invocation tries again with whatever key is configured.
			c.logger.Warn("Citation search unauthorized",
				"key_preview", keyPreview(c.apiKey),
				"error", err)
			return nil, nil
		}

		if attempt < c.retryConfig.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryConfig.BackoffBase * time.Duration(attempt)):
			}
		}
	}

	c.logger.Warn("Citation search failed after retries", "query_len", len(query), "error", lastErr)
	return nil, lastErr
}

// doSearch performs a single API call.
func (c *Client) doSearch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(apiRequest{
		Model: c.model,
		Messages: []apiMessage{
			{Role: "user", Content: query},
		},
	})
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("marshal search request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("create search request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("search request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("read search response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, llm.NewFatalError(fmt.Errorf("search API error (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, llm.NewTransientError(fmt.Errorf("search API error (status %d)", resp.StatusCode))
	default:
		return nil, llm.NewFatalError(fmt.Errorf("search API error (status %d)", resp.StatusCode))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("parse search response: %w", err))
	}

	results := make([]Result, 0, maxResults)
	for i, choice := range parsed.Choices {
		if i >= maxResults {
			break
		}
		results = append(results, Result{
			Content:   choice.Message.Content,
			Citations: parsed.Citations,
			Query:     query,
		})
	}
	return results, nil
}

// keyPreview returns a short non-sensitive prefix of the API key for logs.
func keyPreview(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
