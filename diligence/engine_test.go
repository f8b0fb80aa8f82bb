package diligence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/profile"
	"github.com/c360studio/dealflow/search"
)

type fakeSearcher struct {
	enabled bool
	content string
	queries []string
}

func (f *fakeSearcher) Enabled() bool { return f.enabled }

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	if f.content == "" {
		return nil, nil
	}
	return []search.Result{{
		Content:   f.content,
		Citations: []string{"https://example.com/market-report"},
		Query:     query,
	}}, nil
}

// fakeGenerator returns responses in call order.
type fakeGenerator struct {
	responses []string
	prompts   []string
	err       error
}

func (f *fakeGenerator) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &llm.Response{Content: f.responses[idx], FinishReason: "stop"}, nil
}

type fakeAnalytics struct {
	counters       *memo.AnalyticsCounters
	err            error
	lastPropertyID string
}

func (f *fakeAnalytics) Counters(_ context.Context, propertyID string, _ *memo.Memo1) (*memo.AnalyticsCounters, error) {
	f.lastPropertyID = propertyID
	return f.counters, f.err
}

type fakeProfiles struct {
	record *memo.FounderProfile
	urls   []string
}

func (f *fakeProfiles) Fetch(_ context.Context, name, profileURL string) *memo.FounderProfile {
	f.urls = append(f.urls, profileURL)
	if f.record != nil {
		return f.record
	}
	return &memo.FounderProfile{Name: name, SourceURL: profileURL, Status: profile.StatusUnavailable}
}

func testMemo() *memo.Memo1 {
	return &memo.Memo1{
		Title:                 "Acme Robotics",
		IndustryCategory:      "Industrial Automation",
		FounderName:           memo.FlexStrings{"Priya Sharma"},
		FounderLinkedInURL:    "https://example.com/in/priya",
		AmountRaising:         "$2.5M",
		CompetitiveAdvantages: memo.FlexStrings{"Proprietary gripper design"},
	}
}

func testValidation() *memo.ValidationReport {
	return &memo.ValidationReport{
		Categories: map[string]memo.CategoryResult{
			"company_identity": {Status: memo.StatusConfirmed, Confidence: 0.8, Method: memo.MethodCitation},
		},
		OverallScore: 0.8,
	}
}

const benchmarksResponse = `{
	"industry_averages": {"metrics": [{"name": "gross_margin", "industry_value": "45%"}]},
	"competitive_landscape": [
		{"company_name": "CompetitorCo", "is_target": false, "funding": "$10M"},
		{"company_name": "Acme Robotics", "is_target": true}
	],
	"market_opportunity": {"description": "Growing warehouse automation demand"}
}`

const reportResponse = `{
	"executive_summary": {"dd_score": 7.5, "recommendation": "CONDITIONAL", "credibility_score": 8, "claim_consistency_pct": 75, "red_flag_count": 1, "summary": "Strong team, thin financial evidence."},
	"founder_credibility": {"education": {"score": 8, "evidence": "IIT Bombay"}},
	"pitch_consistency_matrix": [{"claim": "revenue", "source": "memo", "assessment": "unverifiable"}],
	"red_flags": [{"description": "No audited financials", "severity": "medium", "category": "financial"}],
	"market_validation": {"assessment": "Market timing favorable"},
	"financial_validation": {"unit_economics": "LTV/CAC plausible", "burn_analysis": "12 month runway"},
	"overall_recommendation": "Proceed to partner meeting with conditions"
}`

func TestRunSynthesizesReport(t *testing.T) {
	searcher := &fakeSearcher{enabled: true, content: "Market research notes."}
	gen := &fakeGenerator{responses: []string{benchmarksResponse, reportResponse}}
	analytics := &fakeAnalytics{counters: &memo.AnalyticsCounters{ActiveUsers28d: 1200, DataSource: "posthog", Status: "OK"}}
	profiles := &fakeProfiles{record: &memo.FounderProfile{Name: "Priya Sharma", Status: profile.StatusFetched}}
	engine := New(gen, searcher, analytics, profiles, nil)

	report, err := engine.Run(context.Background(), "sub-1", Inputs{
		Memo:                testMemo(),
		Validation:          testValidation(),
		AnalyticsPropertyID: "prop-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "prop-42", analytics.lastPropertyID)
	assert.Equal(t, "sub-1", report.SubmissionID)
	assert.Equal(t, memo.StatusSuccess, report.Status)
	assert.Equal(t, memo.RecommendConditional, report.ExecutiveSummary.Recommendation)
	assert.Equal(t, 1, report.ExecutiveSummary.RedFlagCount)
	assert.Equal(t, 1200, report.Analytics.ActiveUsers28d)
	assert.Equal(t, profile.StatusFetched, report.FounderProfile.Status)

	require.NotNil(t, report.MarketValidation.Benchmarks)
	landscape := report.MarketValidation.Benchmarks.CompetitiveLandscape
	require.NotEmpty(t, landscape)
	assert.True(t, landscape[0].IsTarget, "target company must be first")
	assert.Equal(t, "Acme Robotics", landscape[0].CompanyName)

	// Second generator call is the synthesis: it must carry every input.
	require.Len(t, gen.prompts, 2)
	synthesis := gen.prompts[1]
	assert.Contains(t, synthesis, "active_users_28d")
	assert.Contains(t, synthesis, "Priya Sharma")
	assert.Contains(t, synthesis, "200 characters")
}

func TestRunAnalyticsFailureProducesFetchFailedRecord(t *testing.T) {
	gen := &fakeGenerator{responses: []string{reportResponse}}
	analytics := &fakeAnalytics{err: assert.AnError}
	engine := New(gen, &fakeSearcher{}, analytics, nil, nil)

	report, err := engine.Run(context.Background(), "sub-2", Inputs{
		Memo:       testMemo(),
		Validation: testValidation(),
	})
	require.NoError(t, err)

	require.NotNil(t, report.Analytics)
	assert.Equal(t, memo.AnalyticsFetchFailed, report.Analytics.Status)
	assert.Zero(t, report.Analytics.ActiveUsers28d)
	assert.Equal(t, memo.StatusSuccess, report.Status)
}

func TestRunTruncatedResponseBecomesErrorRecord(t *testing.T) {
	truncated := `{"executive_summary": {"dd_score": 7.5, "recommendation": "PROCEED"`
	gen := &fakeGenerator{responses: []string{truncated}}
	engine := New(gen, &fakeSearcher{}, nil, nil, nil)

	report, err := engine.Run(context.Background(), "sub-3", Inputs{
		Memo:       testMemo(),
		Validation: testValidation(),
	})
	require.NoError(t, err)

	assert.Equal(t, memo.StatusFailed, report.Status)
	assert.Equal(t, llm.StatusTruncatedJSON, report.Error)
	assert.Contains(t, report.RawResponse, "dd_score")
	assert.Zero(t, report.ExecutiveSummary.DDScore)
}

func TestRunGeneratorFailurePropagates(t *testing.T) {
	gen := &fakeGenerator{err: llm.NewTransientError(assert.AnError)}
	engine := New(gen, &fakeSearcher{}, nil, nil, nil)

	_, err := engine.Run(context.Background(), "sub-4", Inputs{
		Memo:       testMemo(),
		Validation: testValidation(),
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}

func TestRunIncludesInterviewAndReferences(t *testing.T) {
	gen := &fakeGenerator{responses: []string{reportResponse}}
	engine := New(gen, &fakeSearcher{}, nil, nil, nil)

	refs := []memo.CustomerReference{{Customer: "WarehouseCorp", Quote: "Cut picking errors in half", Sentiment: "positive"}}
	report, err := engine.Run(context.Background(), "sub-5", Inputs{
		Memo:               testMemo(),
		Validation:         testValidation(),
		Interview:          "Founder described a clear wedge strategy.",
		CustomerReferences: refs,
	})
	require.NoError(t, err)

	synthesis := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, synthesis, "wedge strategy")
	assert.Contains(t, synthesis, "WarehouseCorp")
	assert.Equal(t, refs, report.CustomerReferences)
}

func TestEnsureTargetFirst(t *testing.T) {
	m := testMemo()

	t.Run("reorders existing target", func(t *testing.T) {
		b := &memo.MarketBenchmarks{CompetitiveLandscape: []memo.Competitor{
			{CompanyName: "CompetitorCo"},
			{CompanyName: "acme robotics"},
			{CompanyName: "OtherCo"},
		}}
		EnsureTargetFirst(b, m)
		require.Len(t, b.CompetitiveLandscape, 3)
		assert.Equal(t, "acme robotics", b.CompetitiveLandscape[0].CompanyName)
		assert.True(t, b.CompetitiveLandscape[0].IsTarget)
		assert.Equal(t, "CompetitorCo", b.CompetitiveLandscape[1].CompanyName)
	})

	t.Run("synthesizes missing target from memo", func(t *testing.T) {
		b := &memo.MarketBenchmarks{CompetitiveLandscape: []memo.Competitor{
			{CompanyName: "CompetitorCo"},
		}}
		EnsureTargetFirst(b, m)
		require.Len(t, b.CompetitiveLandscape, 2)
		first := b.CompetitiveLandscape[0]
		assert.Equal(t, "Acme Robotics", first.CompanyName)
		assert.True(t, first.IsTarget)
		assert.Equal(t, "$2.5M", first.Funding)
		assert.Equal(t, "Proprietary gripper design", first.Positioning)
	})

	t.Run("empty landscape gets target entry", func(t *testing.T) {
		b := &memo.MarketBenchmarks{}
		EnsureTargetFirst(b, m)
		require.Len(t, b.CompetitiveLandscape, 1)
		assert.True(t, b.CompetitiveLandscape[0].IsTarget)
	})
}

func TestBenchmarksQueryMentionsIndustry(t *testing.T) {
	query := benchmarksQuery(testMemo())
	assert.True(t, strings.Contains(query, "Acme Robotics"))
	assert.True(t, strings.Contains(query, "Industrial Automation"))
}
