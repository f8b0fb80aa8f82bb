// Package match scores every investor in the catalog against a memo over
// seven weighted factors and returns an ordered recommendation list with a
// short rationale per match.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/dealflow/embedding"
	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
)

// defaultMinScore is the pre-scaling cutoff: weighted scores below it are
// dropped from the result list.
const defaultMinScore = 0.30

// Action thresholds on the 0-100 scale.
const (
	requestIntroThreshold = 85
	reachOutThreshold     = 70
)

// Generator produces match rationales.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// InvestorSource yields the catalog to score against.
type InvestorSource interface {
	Investors(ctx context.Context) ([]*memo.Investor, error)
}

// Engine scores memos against the investor catalog.
type Engine struct {
	catalog   InvestorSource
	generator Generator
	embedder  Embedder
	cosine    func(a, b []float32) float64
	minScore  float64
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmbedder enables the semantic sector-alignment path.
func WithEmbedder(e Embedder) Option {
	return func(engine *Engine) { engine.embedder = e }
}

// WithMinScore overrides the pre-scaling score cutoff.
func WithMinScore(min float64) Option {
	return func(engine *Engine) { engine.minScore = min }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) { engine.logger = logger }
}

// New creates a matching engine. Without WithEmbedder, sector alignment
// uses the lexical path only.
func New(catalog InvestorSource, generator Generator, opts ...Option) *Engine {
	engine := &Engine{
		catalog:   catalog,
		generator: generator,
		cosine:    embedding.CosineSimilarity,
		minScore:  defaultMinScore,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Match scores the memo against every investor and returns the bundle,
// sorted by descending score. Rationale generation is best effort.
func (e *Engine) Match(ctx context.Context, submissionID string, m *memo.Memo1) (*memo.MatchBundle, error) {
	investors, err := e.catalog.Investors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load investor catalog: %w", err)
	}

	bundle := &memo.MatchBundle{
		SubmissionID: submissionID,
		Status:       memo.StatusSuccess,
		Timestamp:    time.Now().UTC(),
		Matches:      []memo.MatchResult{},
	}

	for _, inv := range investors {
		breakdown := e.scoreFactors(ctx, m, inv)
		raw := weightedScore(breakdown)
		if raw < e.minScore {
			continue
		}

		result := memo.MatchResult{
			Investor:       inv,
			MatchScore:     math.Round(raw*1000) / 10,
			ScoreBreakdown: breakdown,
		}
		result.RecommendedAction = actionForScore(result.MatchScore)
		result.WhyMatch = e.rationale(ctx, m, inv, result)
		bundle.Matches = append(bundle.Matches, result)
	}

	sort.SliceStable(bundle.Matches, func(i, j int) bool {
		if bundle.Matches[i].MatchScore != bundle.Matches[j].MatchScore {
			return bundle.Matches[i].MatchScore > bundle.Matches[j].MatchScore
		}
		return bundle.Matches[i].Investor.Name < bundle.Matches[j].Investor.Name
	})

	e.logger.Info("Matching complete",
		"submission_id", submissionID,
		"investors", len(investors),
		"matches", len(bundle.Matches))
	return bundle, nil
}

// scoreFactors computes all seven factors for one investor.
func (e *Engine) scoreFactors(ctx context.Context, m *memo.Memo1, inv *memo.Investor) map[string]float64 {
	ask, askOK := ParseTicket(m.AmountRaising)
	ticket := 0.5
	if askOK {
		ticket = ticketFit(ask, inv.Profile.Ticket.Min, inv.Profile.Ticket.Max)
	}

	return map[string]float64{
		"sector_alignment":   sectorAlignment(ctx, e.embedder, e.cosine, m.IndustryCategory, inv.Profile.SectorFocus),
		"stage_alignment":    stageAlignment(m.CompanyStage, inv.Profile.StagePreference),
		"ticket_fit":         ticket,
		"geography":          geographyScore(m.Headquarters, inv.Profile.Geography),
		"founder_background": founderBackgroundScore(inv.Thesis),
		"traction":           tractionScore(m, inv),
		"network":            networkScore(m.Competition, inv.PastInvestments),
	}
}

func weightedScore(breakdown map[string]float64) float64 {
	var sum float64
	for factor, weight := range factorWeights {
		sum += weight * breakdown[factor]
	}
	return sum
}

func actionForScore(score float64) string {
	switch {
	case score >= requestIntroThreshold:
		return memo.ActionRequestIntro
	case score >= reachOutThreshold:
		return memo.ActionReachOut
	default:
		return memo.ActionConsider
	}
}

// rationale asks the generator for a short explanation; on any failure the
// deterministic fallback names the top factors instead.
func (e *Engine) rationale(ctx context.Context, m *memo.Memo1, inv *memo.Investor, result memo.MatchResult) string {
	fallback := fallbackRationale(m, inv, result)
	if e.generator == nil {
		return fallback
	}

	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: rationalePrompt(m, inv, result)},
		},
		Temperature: llm.Float64(0.3),
		MaxTokens:   256,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			e.logger.Debug("Rationale generation failed", "investor", inv.ID, "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(resp.Content)
}

func rationalePrompt(m *memo.Memo1, inv *memo.Investor, result memo.MatchResult) string {
	top := topFactors(result.ScoreBreakdown, 3)
	return fmt.Sprintf(`Explain in 2-3 plain sentences why %s (%s) is a match for the startup %q (%s, %s, raising %s).
Match score %.1f/100; strongest factors: %s.
Mention the firm and the sector fit specifically. Return plain text only.`,
		inv.Name, inv.Firm, m.Title, m.IndustryCategory, m.CompanyStage, m.AmountRaising,
		result.MatchScore, strings.Join(top, ", "))
}

func fallbackRationale(m *memo.Memo1, inv *memo.Investor, result memo.MatchResult) string {
	top := topFactors(result.ScoreBreakdown, 2)
	return fmt.Sprintf("%s at %s scores %.1f/100 for %s, driven by %s.",
		inv.Name, inv.Firm, result.MatchScore, m.Title, strings.Join(top, " and "))
}

// topFactors returns factor names ordered by weighted contribution.
func topFactors(breakdown map[string]float64, n int) []string {
	type contrib struct {
		name  string
		value float64
	}
	contribs := make([]contrib, 0, len(breakdown))
	for name, value := range breakdown {
		contribs = append(contribs, contrib{name, value * factorWeights[name]})
	}
	sort.Slice(contribs, func(i, j int) bool {
		if contribs[i].value != contribs[j].value {
			return contribs[i].value > contribs[j].value
		}
		return contribs[i].name < contribs[j].name
	})
	if n > len(contribs) {
		n = len(contribs)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = strings.ReplaceAll(contribs[i].name, "_", " ")
	}
	return names
}
