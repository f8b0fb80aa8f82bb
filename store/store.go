// Package store provides the document store shared by every pipeline
// stage. Each collection maps to one NATS JetStream KV bucket; writes are
// per-document and atomic, and document ids are deterministic so stage
// handlers stay idempotent under redelivery.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/dealflow/memo"
)

// Bucket names, one per collection.
const (
	BucketIngestionResults = "INGESTION_RESULTS"
	BucketEnrichedMemos    = "MEMO1_VALIDATED"
	BucketDiligenceResults = "DILIGENCE_RESULTS"
	BucketDiligenceReports = "DILIGENCE_REPORTS"
	BucketInvestors        = "INVESTORS"
	BucketRecommendations  = "INVESTOR_RECOMMENDATIONS"
)

// Documents is the document-store contract the pipeline and engines
// depend on. KV implements it for production; Memory for tests and
// dry runs.
type Documents interface {
	PutIngestionResult(ctx context.Context, r *memo.IngestionResult) error
	GetIngestionResult(ctx context.Context, submissionID string) (*memo.IngestionResult, error)
	ListIngestionResults(ctx context.Context, limit int) ([]*memo.IngestionResult, error)

	PutEnrichedMemo(ctx context.Context, m *memo.EnrichedMemo) error
	GetEnrichedMemo(ctx context.Context, submissionID string) (*memo.EnrichedMemo, error)

	AddDiligenceReport(ctx context.Context, r *memo.DiligenceReport) (string, error)
	ListDiligenceReports(ctx context.Context, submissionID string) ([]*memo.DiligenceReport, error)
	PutDiligenceView(ctx context.Context, submissionID, investorEmail string, r *memo.DiligenceReport) error

	PutInvestor(ctx context.Context, inv *memo.Investor) error
	GetInvestor(ctx context.Context, investorID string) (*memo.Investor, error)
	ListInvestors(ctx context.Context) ([]*memo.Investor, error)

	AddMatchBundle(ctx context.Context, b *memo.MatchBundle) (string, error)
	ListMatchBundles(ctx context.Context, submissionID string) ([]*memo.MatchBundle, error)
}

// KV is the JetStream-backed document store.
type KV struct {
	ingestion       jetstream.KeyValue
	enriched        jetstream.KeyValue
	diligence       jetstream.KeyValue
	diligenceViews  jetstream.KeyValue
	investors       jetstream.KeyValue
	recommendations jetstream.KeyValue
}

var _ Documents = (*KV)(nil)

// NewKV creates the store, creating any missing buckets.
func NewKV(ctx context.Context, js jetstream.JetStream) (*KV, error) {
	kv := &KV{}
	for name, target := range map[string]*jetstream.KeyValue{
		BucketIngestionResults: &kv.ingestion,
		BucketEnrichedMemos:    &kv.enriched,
		BucketDiligenceResults: &kv.diligence,
		BucketDiligenceReports: &kv.diligenceViews,
		BucketInvestors:        &kv.investors,
		BucketRecommendations:  &kv.recommendations,
	} {
		bucket, err := getOrCreateBucket(ctx, js, name)
		if err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", name, err)
		}
		*target = bucket
	}
	return kv, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Dealflow %s collection", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// safeKey maps an arbitrary document id onto the KV key alphabet.
func safeKey(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '=':
			return r
		default:
			return '_'
		}
	}, id)
}

func putJSON(ctx context.Context, bucket jetstream.KeyValue, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if _, err := bucket.Put(ctx, safeKey(key), data); err != nil {
		return fmt.Errorf("put document %s: %w", key, err)
	}
	return nil
}

func getJSON(ctx context.Context, bucket jetstream.KeyValue, key string, v any) error {
	entry, err := bucket.Get(ctx, safeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get document %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value(), v); err != nil {
		return fmt.Errorf("unmarshal document %s: %w", key, err)
	}
	return nil
}

// PutIngestionResult writes the INGEST stage output for a submission.
func (s *KV) PutIngestionResult(ctx context.Context, r *memo.IngestionResult) error {
	if r.SubmissionID == "" {
		return fmt.Errorf("submission id is required")
	}
	return putJSON(ctx, s.ingestion, r.SubmissionID, r)
}

// GetIngestionResult reads the INGEST stage output for a submission.
func (s *KV) GetIngestionResult(ctx context.Context, submissionID string) (*memo.IngestionResult, error) {
	var r memo.IngestionResult
	if err := getJSON(ctx, s.ingestion, submissionID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListIngestionResults returns up to limit results, most recent first.
func (s *KV) ListIngestionResults(ctx context.Context, limit int) ([]*memo.IngestionResult, error) {
	keys, err := s.ingestion.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list ingestion keys: %w", err)
	}

	results := make([]*memo.IngestionResult, 0, len(keys))
	for _, key := range keys {
		var r memo.IngestionResult
		if err := getJSON(ctx, s.ingestion, key, &r); err != nil {
			continue // Skip entries that fail to load
		}
		results = append(results, &r)
	}
	sortByTimestampDesc(results, func(r *memo.IngestionResult) time.Time { return r.Timestamp })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PutEnrichedMemo writes the memo1_validated document for a submission.
func (s *KV) PutEnrichedMemo(ctx context.Context, m *memo.EnrichedMemo) error {
	if m.SubmissionID == "" {
		return fmt.Errorf("submission id is required")
	}
	return putJSON(ctx, s.enriched, m.SubmissionID, m)
}

// GetEnrichedMemo reads the memo1_validated document for a submission.
func (s *KV) GetEnrichedMemo(ctx context.Context, submissionID string) (*memo.EnrichedMemo, error) {
	var m memo.EnrichedMemo
	if err := getJSON(ctx, s.enriched, submissionID, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// AddDiligenceReport stores one diligence run under a fresh auto id and
// returns the id.
func (s *KV) AddDiligenceReport(ctx context.Context, r *memo.DiligenceReport) (string, error) {
	id := uuid.New().String()
	if err := putJSON(ctx, s.diligence, id, r); err != nil {
		return "", err
	}
	return id, nil
}

// ListDiligenceReports returns all diligence runs for a submission, most
// recent first.
func (s *KV) ListDiligenceReports(ctx context.Context, submissionID string) ([]*memo.DiligenceReport, error) {
	keys, err := s.diligence.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list diligence keys: %w", err)
	}

	var reports []*memo.DiligenceReport
	for _, key := range keys {
		var r memo.DiligenceReport
		if err := getJSON(ctx, s.diligence, key, &r); err != nil {
			continue
		}
		if r.SubmissionID == submissionID {
			reports = append(reports, &r)
		}
	}
	sortByTimestampDesc(reports, func(r *memo.DiligenceReport) time.Time { return r.Timestamp })
	return reports, nil
}

// PutDiligenceView writes the per-investor view of a diligence report
// under the deterministic key {submission_id}_{investor_email}.
func (s *KV) PutDiligenceView(ctx context.Context, submissionID, investorEmail string, r *memo.DiligenceReport) error {
	key := submissionID + "_" + investorEmail
	return putJSON(ctx, s.diligenceViews, key, r)
}

// PutInvestor upserts one catalog entry.
func (s *KV) PutInvestor(ctx context.Context, inv *memo.Investor) error {
	if inv.ID == "" {
		return fmt.Errorf("investor id is required")
	}
	return putJSON(ctx, s.investors, inv.ID, inv)
}

// GetInvestor reads one catalog entry.
func (s *KV) GetInvestor(ctx context.Context, investorID string) (*memo.Investor, error) {
	var inv memo.Investor
	if err := getJSON(ctx, s.investors, investorID, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvestors returns the full catalog.
func (s *KV) ListInvestors(ctx context.Context) ([]*memo.Investor, error) {
	keys, err := s.investors.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list investor keys: %w", err)
	}

	investors := make([]*memo.Investor, 0, len(keys))
	for _, key := range keys {
		var inv memo.Investor
		if err := getJSON(ctx, s.investors, key, &inv); err != nil {
			continue
		}
		investors = append(investors, &inv)
	}
	return investors, nil
}

// AddMatchBundle stores one match run under a fresh auto id.
func (s *KV) AddMatchBundle(ctx context.Context, b *memo.MatchBundle) (string, error) {
	id := uuid.New().String()
	if err := putJSON(ctx, s.recommendations, id, b); err != nil {
		return "", err
	}
	return id, nil
}

// ListMatchBundles returns all match runs for a submission, most recent
// first.
func (s *KV) ListMatchBundles(ctx context.Context, submissionID string) ([]*memo.MatchBundle, error) {
	keys, err := s.recommendations.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list recommendation keys: %w", err)
	}

	var bundles []*memo.MatchBundle
	for _, key := range keys {
		var b memo.MatchBundle
		if err := getJSON(ctx, s.recommendations, key, &b); err != nil {
			continue
		}
		if b.SubmissionID == submissionID {
			bundles = append(bundles, &b)
		}
	}
	sortByTimestampDesc(bundles, func(b *memo.MatchBundle) time.Time { return b.Timestamp })
	return bundles, nil
}

func sortByTimestampDesc[T any](items []T, ts func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return ts(items[i]).After(ts(items[j]))
	})
}
