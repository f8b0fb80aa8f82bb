package pipeline

// Stage names, also used as metric labels and consumer name roots.
const (
	StageIngest    = "INGEST"
	StageEnrich    = "ENRICH_AND_VALIDATE"
	StageDiligence = "DILIGENCE"
	StageMatch     = "MATCH"
)

// Stream and subject layout. One stream carries all stage topics.
const (
	StreamName = "DEALFLOW"

	SubjectIngest    = "dealflow.stage.ingest"
	SubjectEnrich    = "dealflow.stage.enrich"
	SubjectDiligence = "dealflow.stage.diligence"
	SubjectMatch     = "dealflow.stage.match"

	// SubjectCompleted carries fire-and-forget stage completion events.
	SubjectCompleted = "dealflow.completed"
)

// IngestMessage triggers the INGEST stage for an uploaded artifact.
// Submitter is optional and lets MATCH later resolve by founder email.
type IngestMessage struct {
	BucketName  string `json:"bucket_name"`
	FilePath    string `json:"file_path"`
	ContentType string `json:"content_type"`
	Submitter   string `json:"submitter,omitempty"`
}

// EnrichMessage triggers the ENRICH_AND_VALIDATE stage.
type EnrichMessage struct {
	SubmissionID string `json:"submission_id"`
	MemoType     string `json:"memo_type,omitempty"`
}

// DiligenceMessage triggers the DILIGENCE stage.
type DiligenceMessage struct {
	SubmissionID        string `json:"submission_id"`
	AnalyticsPropertyID string `json:"analytics_property_id,omitempty"`
	LinkedInURL         string `json:"linkedin_url,omitempty"`
}

// MatchMessage triggers the MATCH stage. Either the submission id or the
// founder email identifies the submission; email lookup resolves to the
// most recent submission for that founder.
type MatchMessage struct {
	SubmissionID string `json:"submission_id,omitempty"`
	FounderEmail string `json:"founder_email,omitempty"`
}

// CompletionEvent is published after every stage, success or failure.
// Publishing is fire and forget; nothing in the pipeline depends on it.
type CompletionEvent struct {
	Stage        string `json:"stage"`
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}
