// Package validate verifies memo claims against independent sources across
// ten fixed categories. Each category runs its own citation search and
// generator assessment; when the citation path produces nothing at all, a
// single comprehensive generator assessment covers every category instead.
package validate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/search"
)

// maxConcurrentQueries bounds the per-category fan-out.
const maxConcurrentQueries = 4

// Generator produces completions for assessment prompts.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Searcher is the citation-search dependency.
type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Engine runs claim validation.
type Engine struct {
	searcher  Searcher
	generator Generator
	logger    *slog.Logger
}

// New creates a validation engine.
func New(searcher Searcher, generator Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{searcher: searcher, generator: generator, logger: logger}
}

// assessment is the per-category JSON contract.
type assessment struct {
	Confidence float64        `json:"confidence"`
	Findings   map[string]any `json:"findings"`
}

// Validate produces the ten-category report for a memo. Category failures
// degrade to MISSING with method "error"; only context cancellation aborts.
func (e *Engine) Validate(ctx context.Context, m *memo.Memo1) (*memo.ValidationReport, error) {
	started := time.Now()
	report := &memo.ValidationReport{
		Categories: make(map[string]memo.CategoryResult, len(memo.ValidationCategories)),
		Method:     memo.MethodCitation,
	}

	if e.searcher != nil && e.searcher.Enabled() {
		if err := e.citationPass(ctx, m, report); err != nil {
			return nil, err
		}
	}

	if !hasUsableResults(report) {
		if err := e.comprehensiveFallback(ctx, m, report); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("Comprehensive validation fallback failed", "error", err)
			fillErrored(report)
		} else {
			report.Method = memo.MethodGeneratorFallback
		}
	}

	report.Aggregate()
	e.logger.Info("Validation complete",
		"company", m.Title,
		"overall_score", report.OverallScore,
		"citation_rate", report.CitationSuccessRate,
		"duration", time.Since(started))
	return report, nil
}

// citationPass validates every category through search plus assessment,
// at most maxConcurrentQueries in flight.
func (e *Engine) citationPass(ctx context.Context, m *memo.Memo1, report *memo.ValidationReport) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)

	for _, category := range memo.ValidationCategories {
		category := category
		g.Go(func() error {
			result, err := e.validateCategory(gctx, m, category)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("Category validation failed", "category", category, "error", err)
				result = memo.CategoryResult{
					Status: memo.StatusMissing,
					Method: memo.MethodError,
				}
			}
			mu.Lock()
			report.Categories[category] = result
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// validateCategory runs one search and one assessment call.
func (e *Engine) validateCategory(ctx context.Context, m *memo.Memo1, category string) (memo.CategoryResult, error) {
	var zero memo.CategoryResult

	results, err := e.searcher.Search(ctx, buildQuery(m, category), 1)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 || strings.TrimSpace(results[0].Content) == "" {
		// Disabled or unauthorized search surfaces here; the category is
		// marked errored so the comprehensive fallback can take over.
		return memo.CategoryResult{Status: memo.StatusMissing, Method: memo.MethodError}, nil
	}
	hit := results[0]

	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: assessPrompt(m, category, hit.Content)},
		},
		Temperature: llm.Float64(0.1),
		MaxTokens:   1024,
	})
	if err != nil {
		return zero, err
	}

	var parsed assessment
	if err := llm.Unmarshal(resp.Content, &parsed); err != nil {
		return zero, err
	}
	return memo.CategoryResult{
		Status:     memo.StatusForConfidence(parsed.Confidence),
		Confidence: parsed.Confidence,
		Findings:   parsed.Findings,
		Sources:    hit.Citations,
		Method:     memo.MethodCitation,
	}, nil
}

// comprehensiveFallback grades all categories from one generator call.
func (e *Engine) comprehensiveFallback(ctx context.Context, m *memo.Memo1, report *memo.ValidationReport) error {
	memoJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: fallbackPrompt(string(memoJSON))},
		},
		Temperature: llm.Float64(0.1),
		MaxTokens:   2048,
	})
	if err != nil {
		return err
	}

	var parsed map[string]assessment
	if err := llm.Unmarshal(resp.Content, &parsed); err != nil {
		return err
	}

	for section, categories := range fallbackSections {
		sectionResult, ok := parsed[section]
		for _, category := range categories {
			if !ok {
				report.Categories[category] = memo.CategoryResult{
					Status: memo.StatusMissing,
					Method: memo.MethodError,
				}
				continue
			}
			report.Categories[category] = memo.CategoryResult{
				Status:     memo.StatusForConfidence(sectionResult.Confidence),
				Confidence: sectionResult.Confidence,
				Findings:   sectionResult.Findings,
				Method:     memo.MethodGeneratorFallback,
			}
		}
	}
	return nil
}

// hasUsableResults reports whether any category produced a non-errored
// result.
func hasUsableResults(report *memo.ValidationReport) bool {
	for _, result := range report.Categories {
		if result.Method != memo.MethodError {
			return true
		}
	}
	return false
}

// fillErrored marks every category without a result as errored so the
// report always carries all ten categories.
func fillErrored(report *memo.ValidationReport) {
	for _, category := range memo.ValidationCategories {
		if _, ok := report.Categories[category]; !ok {
			report.Categories[category] = memo.CategoryResult{
				Status: memo.StatusMissing,
				Method: memo.MethodError,
			}
		}
	}
}
