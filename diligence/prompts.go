package diligence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/dealflow/memo"
)

// benchmarksQuery asks citation search for industry context. The prompt
// mandates the target-first competitor ordering; the engine enforces it
// again after parsing.
func benchmarksQuery(m *memo.Memo1) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Industry benchmarks and competitive landscape for %q", m.Title)
	if m.IndustryCategory != "" {
		fmt.Fprintf(&b, " in %s", m.IndustryCategory)
	}
	b.WriteString(`. Report:
- typical metrics for this industry and stage (CAC, LTV, gross margin, growth rate)
- the main competitors with positioning and known funding
- a short market opportunity assessment
Cite public sources with URLs.`)
	return b.String()
}

func benchmarksStructurePrompt(m *memo.Memo1, content string) string {
	return fmt.Sprintf(`Structure the research notes below into market benchmarks for %q.

Return ONLY a JSON object:
{
  "industry_averages": {"metrics": [{"name": "...", "industry_value": "...", "company_value": "...", "assessment": "..."}]},
  "competitive_landscape": [{"company_name": "...", "is_target": true|false, "positioning": "...", "funding": "..."}],
  "market_opportunity": {"description": "..."}
}

Rules:
- %q MUST be the first entry of competitive_landscape with is_target true
- every other entry has is_target false
- omit metrics the notes do not support

Research notes:
---
%s
---`, m.Title, m.Title, content)
}

// synthesisPrompt assembles every diligence input into the single report
// prompt. Field caps keep the response inside the token budget.
func synthesisPrompt(in promptInputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a due-diligence analyst. Synthesize the evidence below into a report on %q.

Return ONLY a JSON object with this shape (every free-text field capped at 200 characters):
{
  "executive_summary": {"dd_score": 0-10, "recommendation": "PROCEED"|"CONDITIONAL"|"HOLD", "credibility_score": 0-10, "claim_consistency_pct": 0-100, "red_flag_count": N, "summary": "..."},
  "founder_credibility": {%s},
  "pitch_consistency_matrix": [{"claim": "...", "source": "...", "assessment": "consistent"|"inconsistent"|"unverifiable", "note": "..."}],
  "red_flags": [{"description": "...", "severity": "high"|"medium"|"low", "category": "..."}],
  "market_validation": {"assessment": "..."},
  "financial_validation": {"unit_economics": "...", "burn_analysis": "..."},
  "overall_recommendation": "..."%s%s
}

Scoring rules:
- each founder_credibility dimension is {"score": 1-10, "evidence": "..."}
- dd_score weighs credibility, claim consistency, and red-flag severity
- red_flag_count must equal the length of red_flags

`, in.companyName, credibilityShape(), interviewKey(in), referencesKey(in))

	b.WriteString("## Memo\n")
	b.WriteString(in.memoJSON)
	b.WriteString("\n\n## Validation report\n")
	b.WriteString(in.validationJSON)

	if in.analyticsJSON != "" {
		b.WriteString("\n\n## Product analytics\n")
		b.WriteString(in.analyticsJSON)
	}
	if in.profileJSON != "" {
		b.WriteString("\n\n## Founder public profile\n")
		b.WriteString(in.profileJSON)
	}
	if in.benchmarksJSON != "" {
		b.WriteString("\n\n## Market benchmarks\n")
		b.WriteString(in.benchmarksJSON)
	}
	if in.interview != "" {
		b.WriteString("\n\n## Founder interview notes\n")
		b.WriteString(in.interview)
	}
	if in.referencesJSON != "" {
		b.WriteString("\n\n## Customer references\n")
		b.WriteString(in.referencesJSON)
	}
	return b.String()
}

type promptInputs struct {
	companyName    string
	memoJSON       string
	validationJSON string
	analyticsJSON  string
	profileJSON    string
	benchmarksJSON string
	interview      string
	referencesJSON string
}

func credibilityShape() string {
	parts := make([]string, len(memo.FounderCredibilityDimensions))
	for i, dim := range memo.FounderCredibilityDimensions {
		parts[i] = fmt.Sprintf("%q: {\"score\": 1-10, \"evidence\": \"...\"}", dim)
	}
	return strings.Join(parts, ", ")
}

func interviewKey(in promptInputs) string {
	if in.interview == "" {
		return ""
	}
	return `,
  "interview_analysis": "..."`
}

func referencesKey(in promptInputs) string {
	if in.referencesJSON == "" {
		return ""
	}
	return `,
  "customer_references": [{"customer": "...", "quote": "...", "sentiment": "..."}]`
}

func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
