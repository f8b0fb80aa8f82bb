package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
)

// fakeGenerator returns a canned response and records the last request.
type fakeGenerator struct {
	response string
	err      error
	lastReq  llm.Request
}

func (f *fakeGenerator) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.response}, nil
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, memo.MediaKind) (string, error) {
	return f.transcript, f.err
}

const validMemoJSON = `{
	"title": "Acme",
	"company_stage": "Seed",
	"initial_flags": ["No revenue yet", "Single founder", "Crowded market"],
	"validation_points": ["Verify claimed pilot with BigCo"],
	"summary_analysis": "Acme is an early-stage startup.\n\nThe team is small but focused."
}`

func TestExtractPDFSendsDocumentPart(t *testing.T) {
	gen := &fakeGenerator{response: validMemoJSON}
	ex := New(gen, nil, nil)

	m, err := ex.Extract(context.Background(), []byte("%PDF-1.4 fake"), memo.MediaPDF, "deck.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Acme", m.Title)

	require.Len(t, gen.lastReq.Documents, 1)
	assert.Equal(t, "application/pdf", gen.lastReq.Documents[0].MediaType)
}

func TestExtractAudioUsesTranscript(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n" + validMemoJSON + "\n```"}
	ex := New(gen, &fakeTranscriber{transcript: "Hi, we are Acme and we solve X."}, nil)

	m, err := ex.Extract(context.Background(), []byte("audio-bytes"), memo.MediaAudio, "pitch.mp3")
	require.NoError(t, err)
	assert.Equal(t, "Acme", m.Title)
	assert.Empty(t, gen.lastReq.Documents)
	assert.Contains(t, gen.lastReq.Messages[1].Content, "we are Acme")
}

func TestExtractUnknownMediaFails(t *testing.T) {
	ex := New(&fakeGenerator{response: validMemoJSON}, nil, nil)
	_, err := ex.Extract(context.Background(), nil, memo.MediaKind("docx"), "x.docx")

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, CodeUnsupportedMedia, exErr.Code)
}

func TestExtractEmptyTranscriptFails(t *testing.T) {
	ex := New(&fakeGenerator{response: validMemoJSON}, &fakeTranscriber{transcript: "   "}, nil)
	_, err := ex.Extract(context.Background(), nil, memo.MediaVideo, "pitch.mp4")

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, CodeEmptyTranscript, exErr.Code)
}

func TestExtractSchemaIncomplete(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "missing initial flags",
			response: `{"title": "Acme", "validation_points": ["v"], "summary_analysis": "s"}`,
		},
		{
			name:     "placeholder flags",
			response: `{"title": "Acme", "initial_flags": ["Not specified"], "validation_points": ["v"], "summary_analysis": "s"}`,
		},
		{
			name:     "placeholder summary",
			response: `{"title": "Acme", "initial_flags": ["f"], "validation_points": ["v"], "summary_analysis": "Not specified"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := New(&fakeGenerator{response: tt.response}, nil, nil)
			_, err := ex.Extract(context.Background(), nil, memo.MediaPDF, "deck.pdf")

			var exErr *Error
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, CodeSchemaIncomplete, exErr.Code)
		})
	}
}

func TestExtractUnparseableResponseFails(t *testing.T) {
	ex := New(&fakeGenerator{response: "I could not read the deck, sorry."}, nil, nil)
	_, err := ex.Extract(context.Background(), nil, memo.MediaPDF, "deck.pdf")
	require.Error(t, err)

	var extractErr *llm.ExtractError
	assert.True(t, errors.As(err, &extractErr))
}
