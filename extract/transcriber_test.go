package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/memo"
)

func TestHTTPTranscriber(t *testing.T) {
	var gotModel, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			gotFilename = files[0].Filename
		}
		_, _ = w.Write([]byte(`{"text": "We are building warehouse robots."}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL, "whisper-1", WithTranscriberAPIKey("key-1"))
	text, err := tr.Transcribe(context.Background(), []byte("audio-bytes"), memo.MediaAudio)
	require.NoError(t, err)

	assert.Equal(t, "We are building warehouse robots.", text)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "pitch.mp3", gotFilename)
}

func TestHTTPTranscriberVideoFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["file"]
		require.NotEmpty(t, files)
		assert.Equal(t, "pitch.mp4", files[0].Filename)
		_, _ = w.Write([]byte(`{"text": "transcript"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL, "", WithTranscriberAPIKey("key-1"))
	_, err := tr.Transcribe(context.Background(), []byte("video-bytes"), memo.MediaVideo)
	require.NoError(t, err)
}

func TestHTTPTranscriberErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		tr := NewHTTPTranscriber("http://unused.invalid", "", WithTranscriberAPIKey(""))
		_, err := tr.Transcribe(context.Background(), []byte("x"), memo.MediaAudio)
		require.Error(t, err)
	})

	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		tr := NewHTTPTranscriber(srv.URL, "", WithTranscriberAPIKey("key"))
		_, err := tr.Transcribe(context.Background(), []byte("x"), memo.MediaAudio)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("empty transcript", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"text": ""}`))
		}))
		defer srv.Close()

		tr := NewHTTPTranscriber(srv.URL, "", WithTranscriberAPIKey("key"))
		_, err := tr.Transcribe(context.Background(), []byte("x"), memo.MediaAudio)
		require.Error(t, err)
	})
}
