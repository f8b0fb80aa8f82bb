package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/c360studio/dealflow/memo"
)

// TranscriberKeyEnv is the environment variable holding the speech-to-text
// API key.
const TranscriberKeyEnv = "TRANSCRIPTION_API_KEY"

const maxTranscriptResponse = 10 << 20 // 10MB

// HTTPTranscriber calls a Whisper-compatible transcription endpoint.
type HTTPTranscriber struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// TranscriberOption configures an HTTPTranscriber.
type TranscriberOption func(*HTTPTranscriber)

// WithTranscriberHTTPClient sets a custom HTTP client.
func WithTranscriberHTTPClient(c *http.Client) TranscriberOption {
	return func(t *HTTPTranscriber) { t.httpClient = c }
}

// WithTranscriberAPIKey overrides the key from the environment.
func WithTranscriberAPIKey(key string) TranscriberOption {
	return func(t *HTTPTranscriber) { t.apiKey = key }
}

// WithTranscriberLogger sets the logger.
func WithTranscriberLogger(logger *slog.Logger) TranscriberOption {
	return func(t *HTTPTranscriber) { t.logger = logger }
}

// NewHTTPTranscriber creates the transcription client. baseURL and model
// fall back to the OpenAI defaults when empty.
func NewHTTPTranscriber(baseURL, model string, opts ...TranscriberOption) *HTTPTranscriber {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "whisper-1"
	}
	t := &HTTPTranscriber{
		baseURL: baseURL,
		model:   model,
		apiKey:  os.Getenv(TranscriberKeyEnv),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the recording and returns the transcript text.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, data []byte, kind memo.MediaKind) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("transcription key not set (%s)", TranscriberKeyEnv)
	}

	filename := "pitch.mp3"
	if kind == memo.MediaVideo {
		filename = "pitch.mp4"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptResponse))
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API returned %d", resp.StatusCode)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription response: %w", err)
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("empty transcript")
	}

	t.logger.Debug("Transcription complete", "kind", kind, "chars", len(parsed.Text))
	return parsed.Text, nil
}
