package enrich

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/search"
)

type fakeSearcher struct {
	enabled bool
	content string
	queries []string
	err     error
}

func (f *fakeSearcher) Enabled() bool { return f.enabled }

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if f.content == "" {
		return nil, nil
	}
	return []search.Result{{
		Content:   f.content,
		Citations: []string{"https://example.com/coverage"},
		Query:     query,
	}}, nil
}

type fakeGenerator struct {
	response string
	prompts  []string
	err      error
}

func (f *fakeGenerator) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.response, FinishReason: "stop"}, nil
}

// fullMemo returns a memo with every enrichable field populated.
func fullMemo() *memo.Memo1 {
	m := &memo.Memo1{Title: "Acme Robotics"}
	for _, field := range append(append([]string{}, memo.CriticalFields...), memo.ImportantFields...) {
		m.SetField(field, "provided "+field)
	}
	return m
}

func fieldJSON(t *testing.T, fields map[string]fieldResult) string {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return string(data)
}

func rawString(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func TestEnrichNoneNeeded(t *testing.T) {
	searcher := &fakeSearcher{enabled: true}
	gen := &fakeGenerator{}
	engine := New(searcher, gen, nil)

	m := fullMemo()
	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, memo.EnrichNoneNeeded, meta.Method)
	assert.Empty(t, meta.FieldsEnriched)
	assert.Empty(t, searcher.queries)
	assert.Empty(t, gen.prompts)
}

func TestEnrichCitationPathFillsOnlyMissingFields(t *testing.T) {
	m := fullMemo()
	m.CompanyStage = "Not specified"
	m.Headquarters = "Bangalore, India"

	searcher := &fakeSearcher{enabled: true, content: "Acme raised a Series A in 2024 per TechCrunch."}
	gen := &fakeGenerator{response: fieldJSON(t, map[string]fieldResult{
		"company_stage": {Value: rawString("Series A"), Confidence: 0.9, Source: "https://techcrunch.com/acme"},
		"headquarters":  {Value: rawString("Mumbai, India"), Confidence: 0.95, Source: "https://techcrunch.com/acme"},
	})}
	engine := New(searcher, gen, nil)

	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, "Series A", m.CompanyStage)
	assert.Equal(t, "Bangalore, India", m.Headquarters, "provided value must survive enrichment")
	assert.Equal(t, memo.EnrichCitationPlusGenerator, meta.Method)
	assert.Equal(t, []string{"company_stage"}, meta.FieldsEnriched)
	assert.Equal(t, []string{"company_stage"}, meta.MissingFieldsIdentified)
	assert.InDelta(t, 0.9, meta.ConfidenceScores["company_stage"], 1e-9)
	assert.Equal(t, "https://techcrunch.com/acme", meta.Sources["company_stage"])
	require.Len(t, searcher.queries, 1)
	assert.Contains(t, searcher.queries[0], "company_stage")
	assert.Contains(t, searcher.queries[0], "Acme Robotics")
}

func TestEnrichConfidenceGate(t *testing.T) {
	m := fullMemo()
	m.CompanyStage = ""

	searcher := &fakeSearcher{enabled: true, content: "Thin coverage."}
	gen := &fakeGenerator{response: fieldJSON(t, map[string]fieldResult{
		"company_stage": {Value: rawString("Series A"), Confidence: 0.2, Source: "https://example.com"},
	})}
	engine := New(searcher, gen, nil)

	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Empty(t, m.CompanyStage)
	assert.NotContains(t, meta.FieldsEnriched, "company_stage")
}

func TestEnrichFieldRulesRejectImplausibleValues(t *testing.T) {
	m := fullMemo()
	m.CompanyStage = ""
	m.AmountRaising = "TBD"
	m.Headquarters = "Not specified"

	searcher := &fakeSearcher{enabled: true, content: "Coverage."}
	gen := &fakeGenerator{response: fieldJSON(t, map[string]fieldResult{
		"company_stage":  {Value: rawString("expanding rapidly"), Confidence: 0.9, Source: "s"},
		"amount_raising": {Value: rawString("two million"), Confidence: 0.9, Source: "s"},
		"headquarters":   {Value: rawString("HQ"), Confidence: 0.9, Source: "s"},
	})}
	engine := New(searcher, gen, nil)

	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Empty(t, meta.FieldsEnriched)
	assert.Empty(t, m.CompanyStage)
	assert.Equal(t, "TBD", m.AmountRaising)
}

func TestEnrichGeneratorFallbackWhenSearchDisabled(t *testing.T) {
	m := fullMemo()
	m.TeamSize = ""

	searcher := &fakeSearcher{enabled: false}
	gen := &fakeGenerator{response: fieldJSON(t, map[string]fieldResult{
		"team_size": {Value: rawString("12 people"), Confidence: 0.6},
	})}
	engine := New(searcher, gen, nil)

	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, "12 people", m.TeamSize)
	assert.Equal(t, memo.EnrichGeneratorFallback, meta.Method)
	assert.Equal(t, "generator inference", meta.Sources["team_size"])
	assert.Empty(t, searcher.queries)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "team_size")
}

func TestEnrichFallsBackWhenSearchReturnsNothing(t *testing.T) {
	m := fullMemo()
	m.FoundedDate = ""

	searcher := &fakeSearcher{enabled: true, content: ""}
	gen := &fakeGenerator{response: fieldJSON(t, map[string]fieldResult{
		"founded_date": {Value: rawString("2021"), Confidence: 0.5},
	})}
	engine := New(searcher, gen, nil)

	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, "2021", m.FoundedDate)
	assert.Equal(t, memo.EnrichGeneratorFallback, meta.Method)
}

func TestEnrichSurvivesGeneratorFailure(t *testing.T) {
	m := fullMemo()
	m.FoundedDate = ""

	searcher := &fakeSearcher{enabled: false}
	gen := &fakeGenerator{err: llm.NewTransientError(assert.AnError)}
	engine := New(searcher, gen, nil)

	meta, err := engine.Enrich(context.Background(), m)
	require.NoError(t, err)

	assert.Empty(t, m.FoundedDate)
	assert.Empty(t, meta.FieldsEnriched)
	assert.Equal(t, []string{"founded_date"}, meta.MissingFieldsIdentified)
}

func TestValueStringShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"Series A"`, "Series A"},
		{"number", `12`, "12"},
		{"float", `2.5`, "2.5"},
		{"null", `null`, ""},
		{"list", `["AWS","GCP"]`, "AWS; GCP"},
		{"empty list", `[]`, ""},
		{"object", `{"a":1}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valueString(json.RawMessage(tt.raw)))
		})
	}
}

func TestPlausibleRules(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  bool
	}{
		{"company_stage", "Series A", true},
		{"company_stage", "growing fast", false},
		{"headquarters", "Bangalore, India", true},
		{"headquarters", "Bangalore", false},
		{"founded_date", "2021", true},
		{"founded_date", "21", false},
		{"amount_raising", "$2.5M", true},
		{"amount_raising", "₹4Cr", true},
		{"amount_raising", "a few million", false},
		{"team_size", "12", true},
		{"team_size", "a dozen", false},
		{"go_to_market", "PLG motion with sales assist", true},
	}
	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, plausible(tt.field, tt.value))
		})
	}
}
