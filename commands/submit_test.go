package commands

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/pipeline"
)

func TestContentTypeForFile(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"deck.pdf", "application/pdf", false},
		{"pitch.MP3", "audio/mpeg", false},
		{"demo.mp4", "video/mp4", false},
		{"notes.docx", "", true},
	}
	for _, tt := range tests {
		got, err := contentTypeForFile(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestRunSubmit(t *testing.T) {
	var got pipeline.UploadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dealflow/upload", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(pipeline.UploadResponse{
			Success: true,
			MemoID:  "sub-99",
			Message: "accepted",
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "pitch.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0644))

	err := runSubmit(srv.URL, "/dealflow/", "founder@acme.example", path)
	require.NoError(t, err)

	assert.Equal(t, "pitch.pdf", got.FileName)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, "founder@acme.example", got.Submitter)
	decoded, err := base64.StdEncoding.DecodeString(got.FileData)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), decoded)
}

func TestRunSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(pipeline.UploadResponse{
			Success: false,
			Message: "Unsupported content type",
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "pitch.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := runSubmit(srv.URL, "/dealflow/", "", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported content type")
}
