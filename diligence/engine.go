// Package diligence synthesizes the multi-source due-diligence report:
// memo plus validation, product analytics, founder public profile, market
// benchmarks, and optional interview and customer-reference evidence, all
// folded into one generator synthesis call.
package diligence

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/profile"
	"github.com/c360studio/dealflow/search"
)

// Generator produces the synthesis and structuring completions.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Searcher is the citation-search dependency for market benchmarks.
type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// AnalyticsClient fetches product-analytics counters for a reporting
// property.
type AnalyticsClient interface {
	Counters(ctx context.Context, propertyID string, m *memo.Memo1) (*memo.AnalyticsCounters, error)
}

// ProfileService builds founder-profile records.
type ProfileService interface {
	Fetch(ctx context.Context, name, profileURL string) *memo.FounderProfile
}

// Inputs are the optional evidence sources joined into a report. Memo and
// Validation always come from the prior stage document.
type Inputs struct {
	Memo                *memo.Memo1
	Validation          *memo.ValidationReport
	AnalyticsPropertyID string
	Interview           string
	CustomerReferences  []memo.CustomerReference
}

// Engine runs diligence synthesis.
type Engine struct {
	generator Generator
	searcher  Searcher
	analytics AnalyticsClient
	profiles  ProfileService
	logger    *slog.Logger
}

// New creates a diligence engine. analytics and profiles may be nil; the
// corresponding report sections then carry stub records.
func New(generator Generator, searcher Searcher, analytics AnalyticsClient, profiles ProfileService, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		generator: generator,
		searcher:  searcher,
		analytics: analytics,
		profiles:  profiles,
		logger:    logger,
	}
}

// Run produces the diligence report. Evidence-gathering failures degrade to
// stub sections; only the synthesis call itself can fail the report, and a
// truncated response becomes a TRUNCATED_JSON record rather than an error.
func (e *Engine) Run(ctx context.Context, submissionID string, in Inputs) (*memo.DiligenceReport, error) {
	m := in.Memo

	analytics := e.fetchAnalytics(ctx, in.AnalyticsPropertyID, m)
	founderProfile := e.fetchProfile(ctx, m)
	benchmarks := e.fetchBenchmarks(ctx, m)
	if benchmarks != nil {
		EnsureTargetFirst(benchmarks, m)
	}

	prompt := synthesisPrompt(promptInputs{
		companyName:    m.Title,
		memoJSON:       mustJSON(m),
		validationJSON: mustJSON(in.Validation),
		analyticsJSON:  mustJSON(analytics),
		profileJSON:    mustJSON(founderProfile),
		benchmarksJSON: mustJSON(benchmarks),
		interview:      in.Interview,
		referencesJSON: referencesJSON(in.CustomerReferences),
	})

	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: llm.Float64(0.2),
		MaxTokens:   8192,
	})
	if err != nil {
		return nil, err
	}

	report := &memo.DiligenceReport{
		SubmissionID: submissionID,
		Timestamp:    time.Now().UTC(),
	}
	if err := llm.Unmarshal(resp.Content, report); err != nil {
		var extractErr *llm.ExtractError
		if errors.As(err, &extractErr) {
			e.logger.Warn("Diligence synthesis unrecoverable",
				"submission_id", submissionID, "status", extractErr.Status)
			return &memo.DiligenceReport{
				SubmissionID: submissionID,
				Timestamp:    time.Now().UTC(),
				Status:       memo.StatusFailed,
				Error:        extractErr.Status,
				RawResponse:  extractErr.Raw,
			}, nil
		}
		return nil, err
	}

	report.SubmissionID = submissionID
	report.Status = memo.StatusSuccess
	report.Analytics = analytics
	report.FounderProfile = founderProfile
	report.MarketValidation.Benchmarks = benchmarks
	if len(in.CustomerReferences) > 0 && len(report.CustomerReferences) == 0 {
		report.CustomerReferences = in.CustomerReferences
	}
	report.ExecutiveSummary.RedFlagCount = len(report.RedFlags)
	return report, nil
}

// fetchAnalytics returns counters or the FETCH_FAILED record; it never
// aborts the report.
func (e *Engine) fetchAnalytics(ctx context.Context, propertyID string, m *memo.Memo1) *memo.AnalyticsCounters {
	failed := &memo.AnalyticsCounters{Status: memo.AnalyticsFetchFailed}
	if e.analytics == nil {
		return failed
	}
	counters, err := e.analytics.Counters(ctx, propertyID, m)
	if err != nil || counters == nil {
		e.logger.Warn("Analytics fetch failed", "company", m.Title, "error", err)
		return failed
	}
	return counters
}

func (e *Engine) fetchProfile(ctx context.Context, m *memo.Memo1) *memo.FounderProfile {
	name := profile.PrimaryFounder(m)
	stub := &memo.FounderProfile{Name: name, Status: profile.StatusUnavailable}
	if e.profiles == nil {
		return stub
	}
	urls := profile.FounderURLs(m)
	if len(urls) == 0 {
		return stub
	}
	return e.profiles.Fetch(ctx, name, urls[0])
}

// fetchBenchmarks gathers market context through search plus structuring.
// Returns nil when the citation path is unavailable or fails.
func (e *Engine) fetchBenchmarks(ctx context.Context, m *memo.Memo1) *memo.MarketBenchmarks {
	if e.searcher == nil || !e.searcher.Enabled() {
		return nil
	}
	results, err := e.searcher.Search(ctx, benchmarksQuery(m), 1)
	if err != nil || len(results) == 0 || strings.TrimSpace(results[0].Content) == "" {
		if err != nil {
			e.logger.Warn("Benchmark search failed", "company", m.Title, "error", err)
		}
		return nil
	}
	hit := results[0]

	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: benchmarksStructurePrompt(m, hit.Content)},
		},
		Temperature: llm.Float64(0.1),
		MaxTokens:   2048,
	})
	if err != nil {
		e.logger.Warn("Benchmark structuring failed", "company", m.Title, "error", err)
		return nil
	}
	var benchmarks memo.MarketBenchmarks
	if err := llm.Unmarshal(resp.Content, &benchmarks); err != nil {
		e.logger.Warn("Benchmark response unparseable", "company", m.Title, "error", err)
		return nil
	}
	benchmarks.Sources = hit.Citations
	return &benchmarks
}

// EnsureTargetFirst enforces the competitive-landscape ordering: the target
// company is the first entry with IsTarget true. A missing target entry is
// synthesized from the memo.
func EnsureTargetFirst(b *memo.MarketBenchmarks, m *memo.Memo1) {
	landscape := b.CompetitiveLandscape
	targetIdx := -1
	for i, c := range landscape {
		if c.IsTarget || strings.EqualFold(strings.TrimSpace(c.CompanyName), strings.TrimSpace(m.Title)) {
			targetIdx = i
			break
		}
	}

	if targetIdx == -1 {
		target := memo.Competitor{
			CompanyName: m.Title,
			IsTarget:    true,
			Funding:     m.AmountRaising,
		}
		if len(m.CompetitiveAdvantages) > 0 {
			target.Positioning = m.CompetitiveAdvantages[0]
		}
		b.CompetitiveLandscape = append([]memo.Competitor{target}, landscape...)
		return
	}

	target := landscape[targetIdx]
	target.IsTarget = true
	reordered := make([]memo.Competitor, 0, len(landscape))
	reordered = append(reordered, target)
	reordered = append(reordered, landscape[:targetIdx]...)
	reordered = append(reordered, landscape[targetIdx+1:]...)
	b.CompetitiveLandscape = reordered
}

func referencesJSON(refs []memo.CustomerReference) string {
	if len(refs) == 0 {
		return ""
	}
	return mustJSON(refs)
}
