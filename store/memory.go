package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/dealflow/memo"
)

// Memory is an in-memory Documents implementation for tests and dry runs.
// Documents are deep-copied through JSON on both write and read, matching
// the serialization boundary of the KV store.
type Memory struct {
	mu              sync.RWMutex
	ingestion       map[string][]byte
	enriched        map[string][]byte
	diligence       map[string][]byte
	diligenceViews  map[string][]byte
	investors       map[string][]byte
	recommendations map[string][]byte
}

var _ Documents = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		ingestion:       make(map[string][]byte),
		enriched:        make(map[string][]byte),
		diligence:       make(map[string][]byte),
		diligenceViews:  make(map[string][]byte),
		investors:       make(map[string][]byte),
		recommendations: make(map[string][]byte),
	}
}

func (s *Memory) write(bucket map[string][]byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	bucket[key] = data
	s.mu.Unlock()
	return nil
}

func (s *Memory) read(bucket map[string][]byte, key string, v any) error {
	s.mu.RLock()
	data, ok := bucket[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (s *Memory) PutIngestionResult(_ context.Context, r *memo.IngestionResult) error {
	return s.write(s.ingestion, r.SubmissionID, r)
}

func (s *Memory) GetIngestionResult(_ context.Context, submissionID string) (*memo.IngestionResult, error) {
	var r memo.IngestionResult
	if err := s.read(s.ingestion, submissionID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Memory) ListIngestionResults(_ context.Context, limit int) ([]*memo.IngestionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*memo.IngestionResult
	for _, data := range s.ingestion {
		var r memo.IngestionResult
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		results = append(results, &r)
	}
	sortByTimestampDesc(results, func(r *memo.IngestionResult) time.Time { return r.Timestamp })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Memory) PutEnrichedMemo(_ context.Context, m *memo.EnrichedMemo) error {
	return s.write(s.enriched, m.SubmissionID, m)
}

func (s *Memory) GetEnrichedMemo(_ context.Context, submissionID string) (*memo.EnrichedMemo, error) {
	var m memo.EnrichedMemo
	if err := s.read(s.enriched, submissionID, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Memory) AddDiligenceReport(_ context.Context, r *memo.DiligenceReport) (string, error) {
	id := uuid.New().String()
	return id, s.write(s.diligence, id, r)
}

func (s *Memory) ListDiligenceReports(_ context.Context, submissionID string) ([]*memo.DiligenceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reports []*memo.DiligenceReport
	for _, data := range s.diligence {
		var r memo.DiligenceReport
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if r.SubmissionID == submissionID {
			reports = append(reports, &r)
		}
	}
	sortByTimestampDesc(reports, func(r *memo.DiligenceReport) time.Time { return r.Timestamp })
	return reports, nil
}

func (s *Memory) PutDiligenceView(_ context.Context, submissionID, investorEmail string, r *memo.DiligenceReport) error {
	return s.write(s.diligenceViews, submissionID+"_"+investorEmail, r)
}

func (s *Memory) PutInvestor(_ context.Context, inv *memo.Investor) error {
	return s.write(s.investors, inv.ID, inv)
}

func (s *Memory) GetInvestor(_ context.Context, investorID string) (*memo.Investor, error) {
	var inv memo.Investor
	if err := s.read(s.investors, investorID, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Memory) ListInvestors(_ context.Context) ([]*memo.Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var investors []*memo.Investor
	for _, data := range s.investors {
		var inv memo.Investor
		if err := json.Unmarshal(data, &inv); err != nil {
			continue
		}
		investors = append(investors, &inv)
	}
	return investors, nil
}

func (s *Memory) AddMatchBundle(_ context.Context, b *memo.MatchBundle) (string, error) {
	id := uuid.New().String()
	return id, s.write(s.recommendations, id, b)
}

func (s *Memory) ListMatchBundles(_ context.Context, submissionID string) ([]*memo.MatchBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bundles []*memo.MatchBundle
	for _, data := range s.recommendations {
		var b memo.MatchBundle
		if err := json.Unmarshal(data, &b); err != nil {
			continue
		}
		if b.SubmissionID == submissionID {
			bundles = append(bundles, &b)
		}
	}
	sortByTimestampDesc(bundles, func(b *memo.MatchBundle) time.Time { return b.Timestamp })
	return bundles, nil
}
