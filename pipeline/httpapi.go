package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/dealflow/store"
)

// maxUploadBytes caps a decoded pitch artifact at 100 MB, enough for a
// recorded pitch video.
const maxUploadBytes = 100 << 20

// UploadRequest is the JSON body of POST /upload. FileData is base64.
type UploadRequest struct {
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
	FileData    string `json:"file_data"`
	Submitter   string `json:"submitter,omitempty"`
}

// UploadResponse acknowledges an accepted upload. MemoID is the submission
// ID the pipeline will use for every downstream document.
type UploadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"download_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Message     string `json:"message"`
	MemoID      string `json:"memo_id,omitempty"`
}

// UploadAPI accepts pitch artifacts over HTTP, stores them, and triggers
// the INGEST stage.
type UploadAPI struct {
	artifacts store.Artifacts
	publisher Publisher
	logger    *slog.Logger

	// BaseURL prefixes download links in responses.
	BaseURL string
}

// NewUploadAPI creates the upload surface.
func NewUploadAPI(artifacts store.Artifacts, publisher Publisher, logger *slog.Logger) *UploadAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadAPI{artifacts: artifacts, publisher: publisher, logger: logger}
}

// RegisterHTTPHandlers registers the upload endpoint on mux. The prefix
// includes the trailing slash (e.g., "/dealflow/").
func (a *UploadAPI) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"upload", a.handleUpload)
}

func (a *UploadAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		a.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req UploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes*2)).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FileName == "" || req.FileData == "" {
		a.writeError(w, http.StatusBadRequest, "file_name and file_data are required")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = req.FileType
	}
	if _, ok := mediaKind(contentType); !ok {
		a.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported content type %q", contentType))
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "file_data is not valid base64")
		return
	}
	if len(data) == 0 || len(data) > maxUploadBytes {
		a.writeError(w, http.StatusBadRequest, "Decoded file is empty or too large")
		return
	}

	submissionID := uuid.NewString()
	filePath := submissionID + "/" + sanitizeFilename(req.FileName)

	if err := a.artifacts.PutArtifact(r.Context(), filePath, data); err != nil {
		a.logger.Error("Failed to store artifact", "path", filePath, "error", err)
		a.writeError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	msg, err := json.Marshal(IngestMessage{
		BucketName:  store.BucketArtifacts,
		FilePath:    filePath,
		ContentType: contentType,
		Submitter:   req.Submitter,
	})
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "Failed to encode trigger")
		return
	}
	if err := a.publisher.Publish(r.Context(), SubjectIngest, msg); err != nil {
		a.logger.Error("Failed to publish ingest trigger", "path", filePath, "error", err)
		a.writeError(w, http.StatusInternalServerError, "Failed to trigger processing")
		return
	}

	a.logger.Info("Upload accepted",
		"submission_id", submissionID, "file", req.FileName, "bytes", len(data))

	a.writeJSON(w, http.StatusOK, UploadResponse{
		Success:     true,
		DownloadURL: a.BaseURL + "/" + filePath,
		FileName:    req.FileName,
		Message:     "File uploaded, analysis started",
		MemoID:      submissionID,
	})
}

func (a *UploadAPI) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, UploadResponse{Success: false, Message: msg})
}

func (a *UploadAPI) writeJSON(w http.ResponseWriter, status int, body UploadResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("Failed to write response", "error", err)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// sanitizeFilename strips path components so an upload cannot escape its
// submission prefix.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
