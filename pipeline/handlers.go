package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/dealflow/diligence"
	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/store"
)

// CodePriorStageMissing marks a stage invoked before its predecessor wrote
// its document.
const CodePriorStageMissing = "PRIOR_STAGE_MISSING"

// defaultStageTimeout is the end-to-end deadline for one stage handler.
const defaultStageTimeout = 9 * time.Minute

// emailLookupLimit bounds how far back a founder-email MATCH lookup scans.
const emailLookupLimit = 200

// PriorStageError reports a stage ordering violation. It is terminal for
// the message: redelivery cannot fix a missing predecessor document that
// the predecessor itself failed to write.
type PriorStageError struct {
	Stage        string
	Reason       string
	SubmissionID string
}

func (e *PriorStageError) Error() string {
	return fmt.Sprintf("%s: %s (stage %s, submission %s)",
		CodePriorStageMissing, e.Reason, e.Stage, e.SubmissionID)
}

// Extractor turns artifact bytes into a Memo1.
type Extractor interface {
	Extract(ctx context.Context, data []byte, kind memo.MediaKind, filename string) (*memo.Memo1, error)
}

// Enricher fills memo gaps in place.
type Enricher interface {
	Enrich(ctx context.Context, m *memo.Memo1) (memo.EnrichmentMetadata, error)
}

// Validator produces the ten-category report.
type Validator interface {
	Validate(ctx context.Context, m *memo.Memo1) (*memo.ValidationReport, error)
}

// DiligenceRunner synthesizes the diligence report.
type DiligenceRunner interface {
	Run(ctx context.Context, submissionID string, in diligence.Inputs) (*memo.DiligenceReport, error)
}

// Matcher scores the investor catalog.
type Matcher interface {
	Match(ctx context.Context, submissionID string, m *memo.Memo1) (*memo.MatchBundle, error)
}

// Publisher sends stage and completion messages. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Handlers hold the per-stage business logic, independent of the bus.
type Handlers struct {
	docs      store.Documents
	artifacts store.Artifacts
	extractor Extractor
	enricher  Enricher
	validator Validator
	diligence DiligenceRunner
	matcher   Matcher
	publisher Publisher
	metrics   *Metrics
	logger    *slog.Logger

	// Force reruns stages whose output document already exists.
	Force bool

	stageTimeout time.Duration
}

// NewHandlers wires the stage handlers.
func NewHandlers(
	docs store.Documents,
	artifacts store.Artifacts,
	extractor Extractor,
	enricher Enricher,
	validator Validator,
	diligenceRunner DiligenceRunner,
	matcher Matcher,
	publisher Publisher,
	metrics *Metrics,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Handlers{
		docs:         docs,
		artifacts:    artifacts,
		extractor:    extractor,
		enricher:     enricher,
		validator:    validator,
		diligence:    diligenceRunner,
		matcher:      matcher,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		stageTimeout: defaultStageTimeout,
	}
}

// HandleIngest extracts a Memo1 from an uploaded artifact and writes the
// ingestion result. Extraction failures are terminal: the FAILED document
// is the user-visible outcome, and the pipeline stops here.
func (h *Handlers) HandleIngest(ctx context.Context, msg IngestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.stageTimeout)
	defer cancel()
	started := time.Now()
	defer h.observe(StageIngest, started)

	submissionID := submissionIDFromPath(msg.FilePath)
	if submissionID == "" {
		return fmt.Errorf("ingest message has no usable file path %q", msg.FilePath)
	}
	log := h.logger.With("stage", StageIngest, "submission_id", submissionID)

	if !h.Force {
		if existing, err := h.docs.GetIngestionResult(ctx, submissionID); err == nil && existing.Status == memo.StatusSuccess {
			log.Info("Ingestion result exists, skipping")
			h.metrics.Skipped.WithLabelValues(StageIngest).Inc()
			return h.publish(ctx, SubjectEnrich, EnrichMessage{SubmissionID: submissionID})
		}
	}

	data, err := h.artifacts.GetArtifact(ctx, msg.FilePath)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", msg.FilePath, err)
	}

	result := &memo.IngestionResult{
		SubmissionID: submissionID,
		Timestamp:    time.Now().UTC(),
		Filename:     filenameFromPath(msg.FilePath),
		Submitter:    msg.Submitter,
	}

	kind, ok := mediaKind(msg.ContentType)
	var m *memo.Memo1
	if !ok {
		err = fmt.Errorf("unsupported content type %q", msg.ContentType)
	} else {
		m, err = h.extractor.Extract(ctx, data, kind, result.Filename)
	}
	result.ProcessingTime = time.Since(started).Seconds()

	if err != nil {
		result.Status = memo.StatusFailed
		result.Error = err.Error()
		log.Error("Extraction failed", "error", err)
		h.metrics.Failed.WithLabelValues(StageIngest).Inc()
		if putErr := h.docs.PutIngestionResult(ctx, result); putErr != nil {
			return fmt.Errorf("record failed ingestion: %w", putErr)
		}
		h.complete(ctx, StageIngest, submissionID, memo.StatusFailed, err.Error())
		return nil
	}

	result.Status = memo.StatusSuccess
	result.Memo1 = m
	if err := h.docs.PutIngestionResult(ctx, result); err != nil {
		return fmt.Errorf("store ingestion result: %w", err)
	}

	log.Info("Ingestion complete", "company", m.Title, "seconds", result.ProcessingTime)
	h.metrics.Processed.WithLabelValues(StageIngest, memo.StatusSuccess).Inc()
	h.complete(ctx, StageIngest, submissionID, memo.StatusSuccess, "")
	return h.publish(ctx, SubjectEnrich, EnrichMessage{SubmissionID: submissionID})
}

// HandleEnrichAndValidate runs enrichment and validation and writes the
// memo1_validated document.
func (h *Handlers) HandleEnrichAndValidate(ctx context.Context, msg EnrichMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.stageTimeout)
	defer cancel()
	started := time.Now()
	defer h.observe(StageEnrich, started)

	log := h.logger.With("stage", StageEnrich, "submission_id", msg.SubmissionID)

	if !h.Force {
		if existing, err := h.docs.GetEnrichedMemo(ctx, msg.SubmissionID); err == nil && existing.Memo1.Title != "" {
			log.Info("Enriched memo exists, skipping")
			h.metrics.Skipped.WithLabelValues(StageEnrich).Inc()
			return h.publish(ctx, SubjectDiligence, DiligenceMessage{SubmissionID: msg.SubmissionID})
		}
	}

	prior, err := h.docs.GetIngestionResult(ctx, msg.SubmissionID)
	if err != nil || prior.Status != memo.StatusSuccess || prior.Memo1 == nil {
		return h.priorMissing(ctx, StageEnrich, msg.SubmissionID, "no successful ingestion result")
	}

	m := *prior.Memo1
	enrichment, err := h.enricher.Enrich(ctx, &m)
	if err != nil {
		h.metrics.Failed.WithLabelValues(StageEnrich).Inc()
		return fmt.Errorf("enrich %s: %w", msg.SubmissionID, err)
	}

	validation, err := h.validator.Validate(ctx, &m)
	if err != nil {
		h.metrics.Failed.WithLabelValues(StageEnrich).Inc()
		return fmt.Errorf("validate %s: %w", msg.SubmissionID, err)
	}

	enriched := &memo.EnrichedMemo{
		SubmissionID: msg.SubmissionID,
		Memo1:        m,
		Enrichment:   enrichment,
		Validation:   validation,
		Timestamp:    time.Now().UTC(),
	}
	if err := h.docs.PutEnrichedMemo(ctx, enriched); err != nil {
		return fmt.Errorf("store enriched memo: %w", err)
	}

	log.Info("Enrichment and validation complete",
		"fields_enriched", len(enrichment.FieldsEnriched),
		"validation_score", validation.OverallScore)
	h.metrics.Processed.WithLabelValues(StageEnrich, memo.StatusSuccess).Inc()
	h.complete(ctx, StageEnrich, msg.SubmissionID, memo.StatusSuccess, "")
	return h.publish(ctx, SubjectDiligence, DiligenceMessage{SubmissionID: msg.SubmissionID})
}

// HandleDiligence synthesizes and stores the diligence report. A report
// that failed synthesis (TRUNCATED_JSON) is still stored, but the pipeline
// does not continue to MATCH for it.
func (h *Handlers) HandleDiligence(ctx context.Context, msg DiligenceMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.stageTimeout)
	defer cancel()
	started := time.Now()
	defer h.observe(StageDiligence, started)

	log := h.logger.With("stage", StageDiligence, "submission_id", msg.SubmissionID)

	if !h.Force {
		if reports, err := h.docs.ListDiligenceReports(ctx, msg.SubmissionID); err == nil && len(reports) > 0 && reports[0].Status == memo.StatusSuccess {
			log.Info("Diligence report exists, skipping")
			h.metrics.Skipped.WithLabelValues(StageDiligence).Inc()
			return h.publish(ctx, SubjectMatch, MatchMessage{SubmissionID: msg.SubmissionID})
		}
	}

	enriched, err := h.docs.GetEnrichedMemo(ctx, msg.SubmissionID)
	if err != nil {
		return h.priorMissing(ctx, StageDiligence, msg.SubmissionID, "no enriched memo")
	}

	m := enriched.Memo1
	if msg.LinkedInURL != "" {
		m.FounderLinkedInURL = msg.LinkedInURL
	}

	report, err := h.diligence.Run(ctx, msg.SubmissionID, diligence.Inputs{
		Memo:                &m,
		Validation:          enriched.Validation,
		AnalyticsPropertyID: msg.AnalyticsPropertyID,
	})
	if err != nil {
		h.metrics.Failed.WithLabelValues(StageDiligence).Inc()
		return fmt.Errorf("diligence %s: %w", msg.SubmissionID, err)
	}

	if _, err := h.docs.AddDiligenceReport(ctx, report); err != nil {
		return fmt.Errorf("store diligence report: %w", err)
	}

	if report.Status != memo.StatusSuccess {
		log.Warn("Diligence synthesis failed", "error", report.Error)
		h.metrics.Failed.WithLabelValues(StageDiligence).Inc()
		h.complete(ctx, StageDiligence, msg.SubmissionID, memo.StatusFailed, report.Error)
		return nil
	}

	log.Info("Diligence complete",
		"dd_score", report.ExecutiveSummary.DDScore,
		"recommendation", report.ExecutiveSummary.Recommendation)
	h.metrics.Processed.WithLabelValues(StageDiligence, memo.StatusSuccess).Inc()
	h.complete(ctx, StageDiligence, msg.SubmissionID, memo.StatusSuccess, "")
	return h.publish(ctx, SubjectMatch, MatchMessage{SubmissionID: msg.SubmissionID})
}

// HandleMatch scores the catalog and stores the recommendation bundle.
// Matching failures produce an ERROR bundle with empty matches, not a
// redelivery.
func (h *Handlers) HandleMatch(ctx context.Context, msg MatchMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.stageTimeout)
	defer cancel()
	started := time.Now()
	defer h.observe(StageMatch, started)

	submissionID := msg.SubmissionID
	if submissionID == "" && msg.FounderEmail != "" {
		var err error
		submissionID, err = h.resolveSubmitter(ctx, msg.FounderEmail)
		if err != nil {
			return err
		}
	}
	log := h.logger.With("stage", StageMatch, "submission_id", submissionID)

	if !h.Force {
		if bundles, err := h.docs.ListMatchBundles(ctx, submissionID); err == nil && len(bundles) > 0 && bundles[0].Status == memo.StatusSuccess {
			log.Info("Match bundle exists, skipping")
			h.metrics.Skipped.WithLabelValues(StageMatch).Inc()
			return nil
		}
	}

	enriched, err := h.docs.GetEnrichedMemo(ctx, submissionID)
	if err != nil {
		return h.priorMissing(ctx, StageMatch, submissionID, "no enriched memo")
	}

	bundle, err := h.matcher.Match(ctx, submissionID, &enriched.Memo1)
	if err != nil {
		log.Error("Matching failed", "error", err)
		h.metrics.Failed.WithLabelValues(StageMatch).Inc()
		bundle = &memo.MatchBundle{
			SubmissionID: submissionID,
			Status:       "ERROR",
			Error:        err.Error(),
			Matches:      []memo.MatchResult{},
			Timestamp:    time.Now().UTC(),
		}
	}

	if _, err := h.docs.AddMatchBundle(ctx, bundle); err != nil {
		return fmt.Errorf("store match bundle: %w", err)
	}
	if bundle.Status != memo.StatusSuccess {
		h.complete(ctx, StageMatch, submissionID, memo.StatusFailed, bundle.Error)
		return nil
	}

	h.shareDiligenceViews(ctx, submissionID, bundle)

	log.Info("Matching complete", "matches", len(bundle.Matches))
	h.metrics.Processed.WithLabelValues(StageMatch, memo.StatusSuccess).Inc()
	h.complete(ctx, StageMatch, submissionID, memo.StatusSuccess, "")
	return nil
}

// shareDiligenceViews writes the per-investor view of the latest diligence
// report for every matched investor with a contact email. Best effort.
func (h *Handlers) shareDiligenceViews(ctx context.Context, submissionID string, bundle *memo.MatchBundle) {
	reports, err := h.docs.ListDiligenceReports(ctx, submissionID)
	if err != nil || len(reports) == 0 {
		return
	}
	latest := reports[0]
	for _, match := range bundle.Matches {
		email := match.Investor.Contact.Email
		if email == "" {
			continue
		}
		if err := h.docs.PutDiligenceView(ctx, submissionID, email, latest); err != nil {
			h.logger.Warn("Failed to share diligence view",
				"submission_id", submissionID, "investor", match.Investor.ID, "error", err)
		}
	}
}

// resolveSubmitter maps a founder email to their most recent successful
// submission.
func (h *Handlers) resolveSubmitter(ctx context.Context, email string) (string, error) {
	results, err := h.docs.ListIngestionResults(ctx, emailLookupLimit)
	if err != nil {
		return "", fmt.Errorf("lookup submissions for %s: %w", email, err)
	}
	for _, r := range results {
		if r.Status == memo.StatusSuccess && strings.EqualFold(r.Submitter, email) {
			return r.SubmissionID, nil
		}
	}
	return "", fmt.Errorf("no successful submission for founder %s", email)
}

func (h *Handlers) priorMissing(ctx context.Context, stage, submissionID, reason string) error {
	err := &PriorStageError{Stage: stage, Reason: reason, SubmissionID: submissionID}
	h.logger.Error("Prior stage output missing",
		"stage", stage, "submission_id", submissionID, "reason", reason)
	h.metrics.Failed.WithLabelValues(stage).Inc()
	h.complete(ctx, stage, submissionID, memo.StatusFailed, err.Error())
	return err
}

// complete publishes the fire-and-forget completion event.
func (h *Handlers) complete(ctx context.Context, stage, submissionID, status, errMsg string) {
	if h.publisher == nil {
		return
	}
	data, err := json.Marshal(CompletionEvent{
		Stage:        stage,
		SubmissionID: submissionID,
		Status:       status,
		Error:        errMsg,
	})
	if err != nil {
		return
	}
	if err := h.publisher.Publish(ctx, SubjectCompleted, data); err != nil {
		h.logger.Debug("Completion publish failed", "stage", stage, "error", err)
	}
}

func (h *Handlers) publish(ctx context.Context, subject string, payload any) error {
	if h.publisher == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", subject, err)
	}
	if err := h.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (h *Handlers) observe(stage string, started time.Time) {
	h.metrics.Duration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// IsTerminal reports whether a handler error should be acknowledged rather
// than redelivered: ordering violations and missing documents cannot be
// fixed by retrying the same message.
func IsTerminal(err error) bool {
	var prior *PriorStageError
	return errors.As(err, &prior) || errors.Is(err, store.ErrNotFound)
}

// submissionIDFromPath takes the first segment of an artifact path; the
// upload surface writes artifacts under "{submission_id}/{filename}".
func submissionIDFromPath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return path
}

func filenameFromPath(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// mediaKind maps a logical content type or MIME type onto a MediaKind.
func mediaKind(contentType string) (memo.MediaKind, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "pdf" || ct == "application/pdf":
		return memo.MediaPDF, true
	case ct == "audio" || strings.HasPrefix(ct, "audio/"):
		return memo.MediaAudio, true
	case ct == "video" || strings.HasPrefix(ct, "video/"):
		return memo.MediaVideo, true
	}
	return "", false
}
