package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/embedding"
	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
)

type fakeCatalog struct {
	investors []*memo.Investor
	err       error
}

func (f *fakeCatalog) Investors(_ context.Context) ([]*memo.Investor, error) {
	return f.investors, f.err
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.response, FinishReason: "stop"}, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func founderMemo() *memo.Memo1 {
	return &memo.Memo1{
		Title:             "Acme Robotics",
		IndustryCategory:  "Industrial Automation",
		CompanyStage:      "Seed",
		Headquarters:      "Bangalore, India",
		AmountRaising:     "₹4Cr",
		CurrentRevenue:    "$300K ARR",
		RevenueGrowthRate: "15% MoM",
		Competition:       memo.FlexStrings{"GreyOrange", "Addverb"},
	}
}

func strongInvestor() *memo.Investor {
	return &memo.Investor{
		ID:   "inv-1",
		Name: "Asha Rao",
		Firm: "Peak Ventures",
		Profile: memo.InvestmentProfile{
			SectorFocus:     []string{"Industrial Automation"},
			StagePreference: []string{"Seed", "Series A"},
			Ticket:          memo.TicketSize{Min: 10_000_000, Max: 100_000_000},
			Geography:       []string{"India"},
		},
		PastInvestments: []string{"GreyOrange"},
		Thesis:          "We back exceptional founders with deep execution experience.",
	}
}

func TestParseTicket(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"₹50L", 5_000_000, true},
		{"₹1Cr", 10_000_000, true},
		{"$2.5M", 2_500_000, true},
		{"500K", 500_000, true},
		{"$1,200,000", 1_200_000, true},
		{"₹2 Crore", 20_000_000, true},
		{"3 Lakh", 300_000, true},
		{"$1B", 1_000_000_000, true},
		{"Rs 75", 75, true},
		{"TBD", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTicket(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestTicketFit(t *testing.T) {
	assert.InDelta(t, 1.0, ticketFit(5e6, 1e6, 1e7), 1e-9)
	assert.InDelta(t, 0.5, ticketFit(1.5e7, 1e6, 1e7), 1e-9, "50% over max")
	assert.InDelta(t, 0.5, ticketFit(5e5, 1e6, 1e7), 1e-9, "50% under min")
	assert.Zero(t, ticketFit(3e7, 1e6, 1e7), "far above max clamps to 0")
	assert.InDelta(t, 0.5, ticketFit(5e6, 0, 0), 1e-9, "no declared range")
}

func TestStageAlignment(t *testing.T) {
	tests := []struct {
		name    string
		founder string
		stages  []string
		want    float64
	}{
		{"exact", "Seed", []string{"Seed"}, 1.0},
		{"adjacent", "Seed", []string{"Series A"}, 0.8},
		{"two apart", "Seed", []string{"Series B", "Series C"}, 0.6},
		{"far", "Pre-seed", []string{"Growth"}, 0},
		{"case and alias", "series-a", []string{"Series A"}, 1.0},
		{"unknown founder stage", "bootstrapped", []string{"Seed"}, 0},
		{"embedded mention", "Seed (bridge to A)", []string{"Seed"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, stageAlignment(tt.founder, tt.stages), 1e-9)
		})
	}
}

func TestLexicalSectorScore(t *testing.T) {
	assert.InDelta(t, 1.0, lexicalSectorScore("Fintech", []string{"fintech"}), 1e-9)
	assert.InDelta(t, 0.7, lexicalSectorScore("Consumer Fintech", []string{"Fintech"}), 1e-9)
	assert.InDelta(t, 0.7, lexicalSectorScore("FinTech", []string{"Financial Technology"}), 1e-9)
	assert.Zero(t, lexicalSectorScore("Fintech", []string{"Healthcare"}))
}

func TestSectorAlignmentEmbeddingPath(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Industrial Automation": {1, 0, 0},
		"Robotics":              {0.9, 0.1, 0},
		"Consumer Social":       {0, 1, 0},
	}}
	score := sectorAlignment(context.Background(), embedder, embedding.CosineSimilarity,
		"Industrial Automation", []string{"Robotics", "Consumer Social"})
	assert.Greater(t, score, 0.9)

	// Embedding failure falls back to lexical.
	failing := &fakeEmbedder{err: assert.AnError}
	score = sectorAlignment(context.Background(), failing, embedding.CosineSimilarity,
		"Fintech", []string{"Fintech"})
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestGeographyScore(t *testing.T) {
	assert.InDelta(t, 1.0, geographyScore("Bangalore, India", []string{"India"}), 1e-9)
	assert.InDelta(t, 1.0, geographyScore("Bangalore, India", []string{"APAC"}), 1e-9)
	assert.InDelta(t, 1.0, geographyScore("London, UK", []string{"Europe"}), 1e-9)
	assert.Zero(t, geographyScore("Bangalore, India", []string{"North America"}))
	assert.Zero(t, geographyScore("", []string{"India"}))
}

func TestFounderBackgroundScore(t *testing.T) {
	assert.InDelta(t, 0.7, founderBackgroundScore("We back exceptional founders."), 1e-9)
	assert.InDelta(t, 0.5, founderBackgroundScore("Deep tech only."), 1e-9)
}

func TestTractionScore(t *testing.T) {
	m := founderMemo()

	nrr := &memo.Investor{Portfolio: memo.PortfolioMetrics{NRRRequirement: 10}}
	assert.InDelta(t, 1.0, tractionScore(m, nrr), 1e-9, "15% growth meets NRR 10")

	nrr.Portfolio.NRRRequirement = 120
	assert.InDelta(t, 0.6, tractionScore(m, nrr), 1e-9, "15% growth fails NRR 120")

	noNRR := &memo.Investor{}
	assert.InDelta(t, 0.7, tractionScore(m, noNRR), 1e-9, "revenue and growth, no requirement")

	empty := &memo.Memo1{}
	assert.InDelta(t, 0.5, tractionScore(empty, noNRR), 1e-9)
}

func TestNetworkScore(t *testing.T) {
	competition := memo.FlexStrings{"GreyOrange", "Addverb"}
	assert.InDelta(t, 0.8, networkScore(competition, []string{"greyorange inc"}), 1e-9)
	assert.InDelta(t, 0.3, networkScore(competition, []string{"OtherCo"}), 1e-9)
	assert.InDelta(t, 0.3, networkScore(nil, []string{"GreyOrange"}), 1e-9)
}

func TestFactorWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range factorWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestMatchOrdersAndFilters(t *testing.T) {
	weak := &memo.Investor{
		ID:   "inv-2",
		Name: "Ben Olsen",
		Firm: "Faraway Capital",
		Profile: memo.InvestmentProfile{
			SectorFocus:     []string{"Healthcare"},
			StagePreference: []string{"Growth"},
			Ticket:          memo.TicketSize{Min: 5e8, Max: 2e9},
			Geography:       []string{"North America"},
		},
	}
	middling := &memo.Investor{
		ID:   "inv-3",
		Name: "Carla Mendes",
		Firm: "Crossover Partners",
		Profile: memo.InvestmentProfile{
			SectorFocus:     []string{"Automation"},
			StagePreference: []string{"Series A"},
			Ticket:          memo.TicketSize{Min: 2e7, Max: 2e8},
			Geography:       []string{"APAC"},
		},
	}
	catalog := &fakeCatalog{investors: []*memo.Investor{weak, middling, strongInvestor()}}
	gen := &fakeGenerator{response: "Peak Ventures backs seed-stage industrial automation companies in India."}
	engine := New(catalog, gen)

	bundle, err := engine.Match(context.Background(), "sub-1", founderMemo())
	require.NoError(t, err)

	require.NotEmpty(t, bundle.Matches)
	assert.Equal(t, "inv-1", bundle.Matches[0].Investor.ID, "strongest match first")
	for i := 1; i < len(bundle.Matches); i++ {
		assert.GreaterOrEqual(t, bundle.Matches[i-1].MatchScore, bundle.Matches[i].MatchScore)
	}
	for _, match := range bundle.Matches {
		assert.NotEqual(t, "inv-2", match.Investor.ID, "below-threshold investor filtered out")
		assert.GreaterOrEqual(t, match.MatchScore, defaultMinScore*100)
		assert.Len(t, match.ScoreBreakdown, 7)
		assert.NotEmpty(t, match.WhyMatch)
		assert.NotEmpty(t, match.RecommendedAction)
	}
	assert.Equal(t, memo.StatusSuccess, bundle.Status)
}

func TestMatchActionBands(t *testing.T) {
	assert.Equal(t, memo.ActionRequestIntro, actionForScore(92.3))
	assert.Equal(t, memo.ActionRequestIntro, actionForScore(85))
	assert.Equal(t, memo.ActionReachOut, actionForScore(84.9))
	assert.Equal(t, memo.ActionReachOut, actionForScore(70))
	assert.Equal(t, memo.ActionConsider, actionForScore(69.9))
}

func TestMatchFallbackRationaleOnGeneratorFailure(t *testing.T) {
	catalog := &fakeCatalog{investors: []*memo.Investor{strongInvestor()}}
	gen := &fakeGenerator{err: llm.NewTransientError(assert.AnError)}
	engine := New(catalog, gen)

	bundle, err := engine.Match(context.Background(), "sub-2", founderMemo())
	require.NoError(t, err)
	require.Len(t, bundle.Matches, 1)

	why := bundle.Matches[0].WhyMatch
	assert.Contains(t, why, "Peak Ventures")
	assert.Contains(t, why, "Acme Robotics")
}

func TestMatchCatalogErrorPropagates(t *testing.T) {
	engine := New(&fakeCatalog{err: assert.AnError}, &fakeGenerator{response: "x"})
	_, err := engine.Match(context.Background(), "sub-3", founderMemo())
	require.Error(t, err)
}
