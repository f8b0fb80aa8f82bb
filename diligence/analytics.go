package diligence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/c360studio/dealflow/memo"
)

// AnalyticsTokenEnv is the environment variable holding the reporting API
// bearer token. Absence disables the analytics join; the report then
// carries a FETCH_FAILED record.
const AnalyticsTokenEnv = "ANALYTICS_API_TOKEN"

const maxAnalyticsResponse = 1 << 20 // 1MB

// HTTPAnalytics queries a GA4-style reporting API for the 28-day active
// user count of a property.
type HTTPAnalytics struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// AnalyticsOption configures an HTTPAnalytics client.
type AnalyticsOption func(*HTTPAnalytics)

// WithAnalyticsHTTPClient sets a custom HTTP client.
func WithAnalyticsHTTPClient(c *http.Client) AnalyticsOption {
	return func(a *HTTPAnalytics) { a.httpClient = c }
}

// WithAnalyticsToken overrides the token from the environment.
func WithAnalyticsToken(token string) AnalyticsOption {
	return func(a *HTTPAnalytics) { a.token = token }
}

// WithAnalyticsLogger sets the logger.
func WithAnalyticsLogger(logger *slog.Logger) AnalyticsOption {
	return func(a *HTTPAnalytics) { a.logger = logger }
}

// NewHTTPAnalytics creates the reporting client. baseURL falls back to the
// Google Analytics Data API.
func NewHTTPAnalytics(baseURL string, opts ...AnalyticsOption) *HTTPAnalytics {
	if baseURL == "" {
		baseURL = "https://analyticsdata.googleapis.com/v1beta"
	}
	a := &HTTPAnalytics{
		baseURL:    baseURL,
		token:      os.Getenv(AnalyticsTokenEnv),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type runReportRequest struct {
	DateRanges []dateRange `json:"dateRanges"`
	Metrics    []metricRef `json:"metrics"`
}

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type metricRef struct {
	Name string `json:"name"`
}

type runReportResponse struct {
	Rows []struct {
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

// Counters fetches the 28-day active user count for propertyID. An empty
// property ID or missing token is an error; the engine turns it into the
// FETCH_FAILED record.
func (a *HTTPAnalytics) Counters(ctx context.Context, propertyID string, _ *memo.Memo1) (*memo.AnalyticsCounters, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("no analytics property configured")
	}
	if a.token == "" {
		return nil, fmt.Errorf("analytics token not set (%s)", AnalyticsTokenEnv)
	}

	body, err := json.Marshal(runReportRequest{
		DateRanges: []dateRange{{StartDate: "28daysAgo", EndDate: "today"}},
		Metrics:    []metricRef{{Name: "activeUsers"}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal report request: %w", err)
	}

	url := fmt.Sprintf("%s/properties/%s:runReport", a.baseURL, propertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalyticsResponse))
	if err != nil {
		return nil, fmt.Errorf("read analytics response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analytics API returned %d", resp.StatusCode)
	}

	var report runReportResponse
	if err := json.Unmarshal(respBody, &report); err != nil {
		return nil, fmt.Errorf("parse analytics response: %w", err)
	}

	counters := &memo.AnalyticsCounters{DataSource: "ga4", Status: "OK"}
	if len(report.Rows) > 0 && len(report.Rows[0].MetricValues) > 0 {
		if users, err := strconv.Atoi(report.Rows[0].MetricValues[0].Value); err == nil {
			counters.ActiveUsers28d = users
		}
	}

	a.logger.Debug("Analytics counters fetched",
		"property", propertyID, "active_users_28d", counters.ActiveUsers28d)
	return counters, nil
}
