// Package memo defines the document schema shared by every pipeline stage:
// the canonical startup profile (Memo1), its enriched and validated wrappers,
// diligence reports, the investor catalog, and match outputs.
//
// All boundary parsing happens here. Generator output is unmarshalled into
// these types once, at the edge; everything downstream works with typed
// values.
package memo

import "time"

// MediaKind identifies the artifact type of a submission.
type MediaKind string

const (
	MediaPDF   MediaKind = "pdf"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Submission identifies one uploaded pitch artifact. Created on upload,
// never mutated; every derived document references its ID.
type Submission struct {
	ID        string    `json:"submission_id"`
	Filename  string    `json:"original_filename"`
	Media     MediaKind `json:"media_kind"`
	Submitter string    `json:"submitter,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Memo1 is the canonical startup profile extracted from a pitch artifact.
// Every field is nullable: absence means the artifact did not cover it.
// List-typed fields are always lists; FlexStrings normalizes generator
// responses that alternate between a string and a list of strings.
type Memo1 struct {
	// Identity
	Title        string `json:"title,omitempty"`
	FoundedDate  string `json:"founded_date,omitempty"`
	Headquarters string `json:"headquarters,omitempty"`
	CompanyStage string `json:"company_stage,omitempty"`

	// Team
	FounderName        FlexStrings `json:"founder_name,omitempty"`
	FounderLinkedInURL string      `json:"founder_linkedin_url,omitempty"`
	CompanyLinkedInURL string      `json:"company_linkedin_url,omitempty"`
	TeamSize           string      `json:"team_size,omitempty"`
	KeyTeamMembers     FlexStrings `json:"key_team_members,omitempty"`
	AdvisoryBoard      FlexStrings `json:"advisory_board,omitempty"`

	// Product
	Problem              string      `json:"problem,omitempty"`
	Solution             string      `json:"solution,omitempty"`
	TechnologyStack      FlexStrings `json:"technology_stack,omitempty"`
	ProductFeatures      FlexStrings `json:"product_features,omitempty"`
	ScalabilityPlan      string      `json:"scalability_plan,omitempty"`
	IntellectualProperty string      `json:"intellectual_property,omitempty"`

	// Market
	IndustryCategory      string      `json:"industry_category,omitempty"`
	TargetMarket          string      `json:"target_market,omitempty"`
	MarketSize            string      `json:"market_size,omitempty"`
	SAM                   string      `json:"sam,omitempty"`
	SOM                   string      `json:"som,omitempty"`
	MarketPenetration     string      `json:"market_penetration,omitempty"`
	MarketTiming          string      `json:"market_timing,omitempty"`
	MarketTrends          string      `json:"market_trends,omitempty"`
	Competition           FlexStrings `json:"competition,omitempty"`
	CompetitiveAdvantages FlexStrings `json:"competitive_advantages,omitempty"`

	// Business
	BusinessModel   string      `json:"business_model,omitempty"`
	RevenueModel    string      `json:"revenue_model,omitempty"`
	PricingStrategy string      `json:"pricing_strategy,omitempty"`
	GoToMarket      string      `json:"go_to_market,omitempty"`
	SalesStrategy   string      `json:"sales_strategy,omitempty"`
	Partnerships    FlexStrings `json:"partnerships,omitempty"`

	// Financials
	CurrentRevenue          string      `json:"current_revenue,omitempty"`
	RevenueGrowthRate       string      `json:"revenue_growth_rate,omitempty"`
	CustomerAcquisitionCost string      `json:"customer_acquisition_cost,omitempty"`
	LifetimeValue           string      `json:"lifetime_value,omitempty"`
	GrossMargin             string      `json:"gross_margin,omitempty"`
	BurnRate                string      `json:"burn_rate,omitempty"`
	Runway                  string      `json:"runway,omitempty"`
	FundingAsk              string      `json:"funding_ask,omitempty"`
	AmountRaising           string      `json:"amount_raising,omitempty"`
	PreMoneyValuation       string      `json:"pre_money_valuation,omitempty"`
	PostMoneyValuation      string      `json:"post_money_valuation,omitempty"`
	LeadInvestor            string      `json:"lead_investor,omitempty"`
	CommittedFunding        string      `json:"committed_funding,omitempty"`
	UseOfFunds              FlexStrings `json:"use_of_funds,omitempty"`
	FinancialProjections    string      `json:"financial_projections,omitempty"`

	// Assessment. The extractor must always populate the first three;
	// an extraction that leaves them empty fails SCHEMA_INCOMPLETE.
	InitialFlags       FlexStrings `json:"initial_flags,omitempty"`
	ValidationPoints   FlexStrings `json:"validation_points,omitempty"`
	SummaryAnalysis    string      `json:"summary_analysis,omitempty"`
	KeyRisks           FlexStrings `json:"key_risks,omitempty"`
	RiskMitigation     FlexStrings `json:"risk_mitigation,omitempty"`
	ExitStrategy       string      `json:"exit_strategy,omitempty"`
	ExitValuation      string      `json:"exit_valuation,omitempty"`
	PotentialAcquirers FlexStrings `json:"potential_acquirers,omitempty"`
}

// EnrichmentMethod records how missing fields were filled.
type EnrichmentMethod string

const (
	EnrichCitationPlusGenerator EnrichmentMethod = "citation_plus_generator"
	EnrichGeneratorFallback     EnrichmentMethod = "generator_fallback"
	EnrichNoneNeeded            EnrichmentMethod = "none_needed"
)

// EnrichmentMetadata captures provenance for every field the enrichment
// engine filled. Fields the founder provided are never listed here.
type EnrichmentMetadata struct {
	Timestamp               time.Time          `json:"enrichment_timestamp"`
	FieldsEnriched          []string           `json:"fields_enriched"`
	Method                  EnrichmentMethod   `json:"enrichment_method"`
	ConfidenceScores        map[string]float64 `json:"confidence_scores"`
	Sources                 map[string]string  `json:"sources"`
	MissingFieldsIdentified []string           `json:"missing_fields_identified"`
}

// EnrichedMemo is the memo1_validated document: the (possibly gap-filled)
// memo together with enrichment provenance and the validation report.
type EnrichedMemo struct {
	SubmissionID string             `json:"submission_id"`
	Memo1        Memo1              `json:"memo_1"`
	Enrichment   EnrichmentMetadata `json:"enrichment_metadata"`
	Validation   *ValidationReport  `json:"validation_results,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// IngestionResult is the ingestionResults document written by the INGEST
// stage.
type IngestionResult struct {
	SubmissionID   string    `json:"submission_id"`
	Timestamp      time.Time `json:"timestamp"`
	ProcessingTime float64   `json:"processing_time_seconds"`
	Memo1          *Memo1    `json:"memo_1,omitempty"`
	Filename       string    `json:"original_filename"`
	Submitter      string    `json:"submitter,omitempty"`
	Status         string    `json:"status"` // SUCCESS or FAILED
	Error          string    `json:"error,omitempty"`
}

// Document statuses shared across collections.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)
