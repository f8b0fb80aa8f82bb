// Package enrich fills gaps in extracted memos. Missing fields are
// identified against the critical and important field lists, researched
// through citation search grouped into query categories, structured by the
// generator, and merged additively: a value the founder provided is never
// overwritten.
package enrich

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/search"
)

// confidenceGate is the minimum confidence for an enriched value to be
// considered at all. Per-field plausibility rules apply after the gate.
const confidenceGate = 0.3

// maxConcurrentQueries bounds the category fan-out.
const maxConcurrentQueries = 4

// Generator produces completions for the structuring and fallback prompts.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Searcher is the citation-search dependency.
type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Engine runs the enrichment pass.
type Engine struct {
	searcher  Searcher
	generator Generator
	logger    *slog.Logger
}

// New creates an enrichment engine. searcher may be a disabled client; the
// engine then goes straight to the generator-only path.
func New(searcher Searcher, generator Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{searcher: searcher, generator: generator, logger: logger}
}

// candidate is one proposed field value that passed the confidence gate
// and the per-field rule.
type candidate struct {
	field      string
	value      string
	confidence float64
	source     string
}

// fieldResult is the per-field JSON contract returned by the generator.
type fieldResult struct {
	Value      json.RawMessage `json:"value"`
	Confidence float64         `json:"confidence"`
	Source     string          `json:"source"`
}

// Enrich fills missing fields on m in place and returns the provenance
// metadata. Enrichment is best effort: category failures are logged and
// skipped, and only context cancellation aborts the pass.
func (e *Engine) Enrich(ctx context.Context, m *memo.Memo1) (memo.EnrichmentMetadata, error) {
	meta := memo.EnrichmentMetadata{
		Timestamp:        time.Now().UTC(),
		Method:           memo.EnrichNoneNeeded,
		FieldsEnriched:   []string{},
		ConfidenceScores: map[string]float64{},
		Sources:          map[string]string{},
	}

	missing := m.MissingFields(memo.CriticalFields)
	missing = append(missing, m.MissingFields(memo.ImportantFields)...)
	meta.MissingFieldsIdentified = missing
	if len(missing) == 0 {
		return meta, nil
	}

	var candidates []candidate
	method := memo.EnrichGeneratorFallback

	if e.searcher != nil && e.searcher.Enabled() {
		found, err := e.citationPass(ctx, m, missing)
		if err != nil {
			return meta, err
		}
		if len(found) > 0 {
			candidates = found
			method = memo.EnrichCitationPlusGenerator
		}
	}

	if len(candidates) == 0 {
		found, err := e.fallbackPass(ctx, m, missing)
		if err != nil {
			if ctx.Err() != nil {
				return meta, ctx.Err()
			}
			e.logger.Warn("Generator fallback enrichment failed", "error", err)
			return meta, nil
		}
		candidates = found
	}

	applied := e.merge(m, missing, candidates)
	if len(applied) > 0 {
		meta.Method = method
		for _, c := range applied {
			meta.FieldsEnriched = append(meta.FieldsEnriched, c.field)
			meta.ConfidenceScores[c.field] = c.confidence
			meta.Sources[c.field] = c.source
		}
	}
	return meta, nil
}

// citationPass runs one search plus structuring call per query category,
// at most maxConcurrentQueries in flight.
func (e *Engine) citationPass(ctx context.Context, m *memo.Memo1, missing []string) ([]candidate, error) {
	groups := groupByCategory(missing)

	var mu sync.Mutex
	var candidates []candidate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	for _, category := range categoryOrder {
		category := category
		fields := groups[category]
		if len(fields) == 0 {
			continue
		}
		g.Go(func() error {
			found, err := e.enrichCategory(gctx, m, category, fields)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("Enrichment category failed",
					"category", category, "fields", len(fields), "error", err)
				return nil
			}
			mu.Lock()
			candidates = append(candidates, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// enrichCategory searches one category and structures the hits.
func (e *Engine) enrichCategory(ctx context.Context, m *memo.Memo1, category string, fields []string) ([]candidate, error) {
	results, err := e.searcher.Search(ctx, buildSearchQuery(m, category, fields), 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || strings.TrimSpace(results[0].Content) == "" {
		return nil, nil
	}
	hit := results[0]

	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: structurePrompt(m, fields, hit.Content)},
		},
		Temperature: llm.Float64(0.1),
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, err
	}

	var parsed map[string]fieldResult
	if err := llm.Unmarshal(resp.Content, &parsed); err != nil {
		return nil, err
	}
	defaultSource := ""
	if len(hit.Citations) > 0 {
		defaultSource = hit.Citations[0]
	}
	return e.screen(fields, parsed, defaultSource), nil
}

// fallbackPass asks the generator to infer missing fields from the memo
// alone. Used when search is disabled or produced no usable content.
func (e *Engine) fallbackPass(ctx context.Context, m *memo.Memo1, missing []string) ([]candidate, error) {
	memoJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	resp, err := e.generator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: fallbackPrompt(m, missing, string(memoJSON))},
		},
		Temperature: llm.Float64(0.1),
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, err
	}
	var parsed map[string]fieldResult
	if err := llm.Unmarshal(resp.Content, &parsed); err != nil {
		return nil, err
	}
	return e.screen(missing, parsed, "generator inference"), nil
}

// screen applies the confidence gate and per-field rules to a parsed
// generator response, keeping only requested fields.
func (e *Engine) screen(requested []string, parsed map[string]fieldResult, defaultSource string) []candidate {
	var out []candidate
	for _, field := range requested {
		res, ok := parsed[field]
		if !ok {
			continue
		}
		if res.Confidence <= confidenceGate {
			continue
		}
		value := valueString(res.Value)
		if value == "" {
			continue
		}
		if !plausible(field, value) {
			e.logger.Debug("Enriched value rejected by field rule",
				"field", field, "value", value)
			continue
		}
		source := strings.TrimSpace(res.Source)
		if source == "" {
			source = defaultSource
		}
		out = append(out, candidate{
			field:      field,
			value:      value,
			confidence: res.Confidence,
			source:     source,
		})
	}
	return out
}

// merge writes candidates into the memo, additively only: a field is
// written when its current value is missing or a placeholder. Returns the
// candidates actually applied, in missing-field order.
func (e *Engine) merge(m *memo.Memo1, missing []string, candidates []candidate) []candidate {
	byField := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		if prev, ok := byField[c.field]; !ok || c.confidence > prev.confidence {
			byField[c.field] = c
		}
	}

	var applied []candidate
	for _, field := range missing {
		c, ok := byField[field]
		if !ok {
			continue
		}
		current, known := m.FieldValue(field)
		if !known || !memo.IsMissing(current) {
			continue
		}
		if m.SetField(field, c.value) {
			applied = append(applied, c)
		}
	}
	return applied
}

// valueString normalizes the JSON value the generator returned: strings
// pass through, numbers are formatted, lists join on "; ", null is empty.
func valueString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
