package memo

import "fmt"

// ValidationStatus classifies a claim category after verification.
type ValidationStatus string

const (
	StatusConfirmed    ValidationStatus = "CONFIRMED"
	StatusQuestionable ValidationStatus = "QUESTIONABLE"
	StatusMissing      ValidationStatus = "MISSING"
)

// ValidationMethod records which path produced a category result.
type ValidationMethod string

const (
	MethodCitation          ValidationMethod = "citation"
	MethodGeneratorFallback ValidationMethod = "generator_fallback"
	MethodError             ValidationMethod = "error"
)

// ValidationCategories are the ten fixed claim categories, in report order.
var ValidationCategories = []string{
	"company_identity",
	"founder_team",
	"product_ip",
	"market_opportunity",
	"competitors",
	"financial_traction",
	"fundraising_cap_table",
	"compliance_sanctions",
	"public_sentiment",
	"exit_acquisition",
}

// CategoryResult is the outcome of validating one claim category.
type CategoryResult struct {
	Status     ValidationStatus `json:"status"`
	Confidence float64          `json:"confidence"`
	Findings   map[string]any   `json:"findings,omitempty"`
	Sources    []string         `json:"sources,omitempty"`
	Method     ValidationMethod `json:"validation_method"`
}

// StatusForConfidence maps a confidence score to a validation status using
// the fixed cutoffs: >= 0.7 CONFIRMED, >= 0.4 QUESTIONABLE, else MISSING.
func StatusForConfidence(confidence float64) ValidationStatus {
	switch {
	case confidence >= 0.7:
		return StatusConfirmed
	case confidence >= 0.4:
		return StatusQuestionable
	default:
		return StatusMissing
	}
}

// ValidationReport is the ten-category claim-verification record attached
// to an EnrichedMemo.
type ValidationReport struct {
	Categories         map[string]CategoryResult `json:"categories"`
	OverallScore       float64                   `json:"overall_validation_score"`
	Method             ValidationMethod          `json:"validation_method"`
	CategoriesChecked  int                       `json:"categories_validated"`
	CitationSuccessRate string                   `json:"perplexity_success_rate"`
}

// Aggregate recomputes the overall score (mean of category confidences for
// categories that produced a result), the validated count, and the k/n
// citation success rate.
func (r *ValidationReport) Aggregate() {
	var sum float64
	var count, citation int
	for _, result := range r.Categories {
		if result.Method == MethodError {
			continue
		}
		sum += result.Confidence
		count++
		if result.Method == MethodCitation {
			citation++
		}
	}
	r.CategoriesChecked = count
	if count > 0 {
		r.OverallScore = sum / float64(count)
	} else {
		r.OverallScore = 0
	}
	r.CitationSuccessRate = fmt.Sprintf("%d/%d", citation, len(ValidationCategories))
}
