package memo

import "time"

// Recommended actions for a match, by score band.
const (
	ActionRequestIntro = "Request Intro"
	ActionReachOut     = "Reach Out"
	ActionConsider     = "Consider"
)

// MatchResult scores one investor against one memo. MatchScore is on the
// 0-100 scale with one decimal; the breakdown factors are each in [0,1].
type MatchResult struct {
	Investor          *Investor          `json:"investor"`
	MatchScore        float64            `json:"match_score"`
	ScoreBreakdown    map[string]float64 `json:"score_breakdown"`
	WhyMatch          string             `json:"why_match"`
	RecommendedAction string             `json:"recommended_action"`
}

// MatchBundle is the ordered recommendation list for one submission.
// Scores are non-increasing.
type MatchBundle struct {
	SubmissionID string        `json:"submission_id"`
	Matches      []MatchResult `json:"matches"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
