// Package extract converts a pitch artifact (PDF deck or transcribed
// audio/video pitch) into the canonical Memo1 with a single generator
// call against a schema-constrained prompt.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
)

// Error codes for extraction failures. Extraction errors are fatal to the
// INGEST stage: no partial Memo1 is ever saved.
const (
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
	CodeEmptyTranscript  = "EMPTY_TRANSCRIPT"
	CodeSchemaIncomplete = "SCHEMA_INCOMPLETE"
)

// Error is a typed extraction failure.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}

// Generator is the text-generator contract the extractor depends on.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Transcriber converts audio/video bytes into a transcript. External
// speech-to-text services implement this; tests substitute doubles.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, kind memo.MediaKind) (string, error)
}

// Extractor produces Memo1 documents from pitch artifacts.
type Extractor struct {
	generator   Generator
	transcriber Transcriber
	logger      *slog.Logger
}

// New creates an extractor. transcriber may be nil when only PDFs are
// expected; audio/video submissions then fail UNSUPPORTED_MEDIA.
func New(generator Generator, transcriber Transcriber, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		generator:   generator,
		transcriber: transcriber,
		logger:      logger,
	}
}

// Extract runs one generator call for the artifact and returns a Memo1
// satisfying the schema invariants, or a typed error.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind memo.MediaKind, filename string) (*memo.Memo1, error) {
	var req llm.Request

	switch kind {
	case memo.MediaPDF:
		req = llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: memoSystemPrompt},
				{Role: "user", Content: fmt.Sprintf(pdfUserPrompt, filename)},
			},
			Documents: []llm.DocumentPart{
				{MediaType: "application/pdf", Data: data},
			},
			MaxTokens: 8192,
		}

	case memo.MediaAudio, memo.MediaVideo:
		if e.transcriber == nil {
			return nil, &Error{Code: CodeUnsupportedMedia, Msg: fmt.Sprintf("no transcriber configured for %s", kind)}
		}
		transcript, err := e.transcriber.Transcribe(ctx, data, kind)
		if err != nil {
			return nil, fmt.Errorf("transcribe %s: %w", filename, err)
		}
		if strings.TrimSpace(transcript) == "" {
			return nil, &Error{Code: CodeEmptyTranscript, Msg: fmt.Sprintf("empty transcript for %s", filename)}
		}
		req = llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: memoSystemPrompt},
				{Role: "user", Content: fmt.Sprintf(transcriptUserPrompt, filename, transcript)},
			},
			MaxTokens: 8192,
		}

	default:
		return nil, &Error{Code: CodeUnsupportedMedia, Msg: fmt.Sprintf("unknown media kind %q", kind)}
	}

	temp := 0.2 // Low temperature for consistent extraction
	req.Temperature = &temp

	resp, err := e.generator.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generator extraction failed: %w", err)
	}

	var m memo.Memo1
	if err := llm.Unmarshal(resp.Content, &m); err != nil {
		return nil, fmt.Errorf("parse memo response: %w", err)
	}

	if err := checkMandatoryFields(&m); err != nil {
		return nil, err
	}

	e.logger.Info("Extracted memo",
		"filename", filename,
		"media_kind", kind,
		"title", m.Title,
		"flags", len(m.InitialFlags))

	return &m, nil
}

// checkMandatoryFields enforces the three narrative fields the extractor
// must always produce: initial_flags, validation_points, summary_analysis.
// Empty values and placeholder strings fail SCHEMA_INCOMPLETE.
func checkMandatoryFields(m *memo.Memo1) error {
	if len(nonPlaceholder(m.InitialFlags)) == 0 {
		return &Error{Code: CodeSchemaIncomplete, Msg: "initial_flags is empty"}
	}
	if len(nonPlaceholder(m.ValidationPoints)) == 0 {
		return &Error{Code: CodeSchemaIncomplete, Msg: "validation_points is empty"}
	}
	if memo.IsMissing(m.SummaryAnalysis) {
		return &Error{Code: CodeSchemaIncomplete, Msg: "summary_analysis is empty"}
	}
	return nil
}

func nonPlaceholder(items memo.FlexStrings) []string {
	var out []string
	for _, s := range items {
		if !memo.IsPlaceholder(s) {
			out = append(out, s)
		}
	}
	return out
}
