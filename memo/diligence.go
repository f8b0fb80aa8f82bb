package memo

import "time"

// Recommendation is the top-level diligence verdict.
type Recommendation string

const (
	RecommendProceed     Recommendation = "PROCEED"
	RecommendConditional Recommendation = "CONDITIONAL"
	RecommendHold        Recommendation = "HOLD"
)

// AnalyticsCounters is the product-analytics snapshot joined into the
// diligence report. A failed analytics fetch produces a record with
// Status set to FETCH_FAILED and zero counters, never an error.
type AnalyticsCounters struct {
	ActiveUsers28d int    `json:"active_users_28d"`
	DataSource     string `json:"data_source,omitempty"`
	Status         string `json:"status"`
}

// AnalyticsFetchFailed marks an analytics record whose upstream call failed.
const AnalyticsFetchFailed = "FETCH_FAILED"

// FounderProfile is the public-profile record for a founder, fetched and
// structured from public pages. A stub record (Status "unavailable") stands
// in when the profile cannot be fetched.
type FounderProfile struct {
	Name       string   `json:"name,omitempty"`
	Headline   string   `json:"headline,omitempty"`
	Education  []string `json:"education,omitempty"`
	Employment []string `json:"employment,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	SourceURL  string   `json:"source_url,omitempty"`
	Status     string   `json:"status"`
}

// BenchmarkMetric is one row of the industry-averages table.
type BenchmarkMetric struct {
	Name          string `json:"name"`
	IndustryValue string `json:"industry_value"`
	CompanyValue  string `json:"company_value,omitempty"`
	Assessment    string `json:"assessment,omitempty"`
}

// Competitor is one entry of the competitive landscape. The target company
// is always first with IsTarget true.
type Competitor struct {
	CompanyName string `json:"company_name"`
	IsTarget    bool   `json:"is_target"`
	Positioning string `json:"positioning,omitempty"`
	Funding     string `json:"funding,omitempty"`
}

// MarketBenchmarks holds market context gathered through citation search.
type MarketBenchmarks struct {
	IndustryAverages struct {
		Metrics []BenchmarkMetric `json:"metrics"`
	} `json:"industry_averages"`
	CompetitiveLandscape []Competitor `json:"competitive_landscape"`
	MarketOpportunity    struct {
		Description string `json:"description"`
	} `json:"market_opportunity"`
	Sources []string `json:"sources,omitempty"`
}

// DimensionScore is one founder-credibility dimension with a 1-10 score
// and the evidence it cites.
type DimensionScore struct {
	Score    int    `json:"score"`
	Evidence string `json:"evidence"`
}

// ConsistencyCell compares one pitch claim against external evidence.
type ConsistencyCell struct {
	Claim      string `json:"claim"`
	Source     string `json:"source"`
	Assessment string `json:"assessment"` // consistent, inconsistent, unverifiable
	Note       string `json:"note,omitempty"`
}

// RedFlag is a diligence concern with severity.
type RedFlag struct {
	Description string `json:"description"`
	Severity    string `json:"severity"` // high, medium, low
	Category    string `json:"category,omitempty"`
}

// CustomerReference is an optional customer-evidence record.
type CustomerReference struct {
	Customer  string `json:"customer"`
	Quote     string `json:"quote,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

// DiligenceReport is the synthesized multi-source due-diligence document.
type DiligenceReport struct {
	SubmissionID string    `json:"submission_id"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`

	ExecutiveSummary struct {
		DDScore          float64        `json:"dd_score"`
		Recommendation   Recommendation `json:"recommendation"`
		CredibilityScore float64        `json:"credibility_score"`
		ClaimConsistency float64        `json:"claim_consistency_pct"`
		RedFlagCount     int            `json:"red_flag_count"`
		Summary          string         `json:"summary,omitempty"`
	} `json:"executive_summary"`

	// FounderCredibility scores the seven named dimensions.
	FounderCredibility map[string]DimensionScore `json:"founder_credibility,omitempty"`

	ConsistencyMatrix []ConsistencyCell `json:"pitch_consistency_matrix,omitempty"`
	RedFlags          []RedFlag         `json:"red_flags,omitempty"`

	MarketValidation struct {
		Assessment string            `json:"assessment,omitempty"`
		Benchmarks *MarketBenchmarks `json:"benchmarks,omitempty"`
	} `json:"market_validation"`

	CustomerReferences []CustomerReference `json:"customer_references,omitempty"`

	FinancialValidation struct {
		UnitEconomics string `json:"unit_economics,omitempty"`
		BurnAnalysis  string `json:"burn_analysis,omitempty"`
	} `json:"financial_validation"`

	OverallRecommendation string `json:"overall_recommendation,omitempty"`
	InterviewAnalysis     string `json:"interview_analysis,omitempty"`

	Analytics      *AnalyticsCounters `json:"analytics,omitempty"`
	FounderProfile *FounderProfile    `json:"founder_profile,omitempty"`

	// Error and RawResponse are set instead of report content when the
	// generator output could not be recovered (status TRUNCATED_JSON).
	Error       string `json:"error,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// FounderCredibilityDimensions are the seven scored dimensions.
var FounderCredibilityDimensions = []string{
	"education",
	"domain_expertise",
	"execution_track_record",
	"fundraising_history",
	"network_strength",
	"public_presence",
	"integrity_signals",
}
