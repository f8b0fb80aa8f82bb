package commands

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/dealflow/pipeline"
)

func newSubmitCmd(configPath, logLevel *string) *cobra.Command {
	var (
		server    string
		submitter string
	)

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a pitch artifact to a running dealflow server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(*logLevel)
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			prefix := cfg.HTTP.Prefix
			return runSubmit(server, prefix, submitter, args[0])
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Dealflow server URL")
	cmd.Flags().StringVar(&submitter, "submitter", "", "Founder email to associate with the submission")
	return cmd
}

// contentTypeForFile maps a pitch file extension to the upload content type.
func contentTypeForFile(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf", nil
	case ".mp3", ".wav", ".m4a", ".ogg":
		return "audio/mpeg", nil
	case ".mp4", ".mov", ".webm", ".mkv":
		return "video/mp4", nil
	}
	return "", fmt.Errorf("unsupported file type %q (want pdf, audio, or video)", filepath.Ext(name))
}

func runSubmit(server, prefix, submitter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	contentType, err := contentTypeForFile(path)
	if err != nil {
		return err
	}

	body, err := json.Marshal(pipeline.UploadRequest{
		FileName:    filepath.Base(path),
		FileType:    contentType,
		FileSize:    int64(len(data)),
		ContentType: contentType,
		FileData:    base64.StdEncoding.EncodeToString(data),
		Submitter:   submitter,
	})
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(server+prefix+"upload", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upload to %s: %w", server, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result pipeline.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("upload rejected: %s", result.Message)
	}

	fmt.Printf("Submitted %s\n", filepath.Base(path))
	fmt.Printf("Submission ID: %s\n", result.MemoID)
	return nil
}
