package validate

import (
	"fmt"
	"strings"

	"github.com/c360studio/dealflow/memo"
)

// categoryFocus states, per claim category, what the search query asks the
// citation provider to look for.
var categoryFocus = map[string]string{
	"company_identity":      "legal existence, registration, website, and official presence",
	"founder_team":          "founder identities, prior roles, and stated credentials",
	"product_ip":            "product existence, launches, patents, and technical claims",
	"market_opportunity":    "market size claims and independent market research",
	"competitors":           "named competitors and the accuracy of competitive claims",
	"financial_traction":    "revenue, growth, and customer traction claims",
	"fundraising_cap_table": "prior funding rounds, investors, and valuations",
	"compliance_sanctions":  "regulatory actions, sanctions lists, and legal disputes",
	"public_sentiment":      "press coverage, reviews, and public reputation",
	"exit_acquisition":      "acquisition interest and comparable exits in the space",
}

// claimsForCategory pulls the memo statements the category is checked
// against. Empty claims still produce a query; absence of claims is itself
// worth verifying.
func claimsForCategory(m *memo.Memo1, category string) []string {
	var claims []string
	add := func(label, value string) {
		if value != "" && !memo.IsPlaceholder(value) {
			claims = append(claims, label+": "+value)
		}
	}
	addList := func(label string, values memo.FlexStrings) {
		if len(values) > 0 {
			claims = append(claims, label+": "+strings.Join(values, "; "))
		}
	}

	switch category {
	case "company_identity":
		add("founded", m.FoundedDate)
		add("headquarters", m.Headquarters)
		add("stage", m.CompanyStage)
	case "founder_team":
		addList("founders", m.FounderName)
		addList("key team", m.KeyTeamMembers)
		addList("advisors", m.AdvisoryBoard)
		add("team size", m.TeamSize)
	case "product_ip":
		add("solution", m.Solution)
		add("intellectual property", m.IntellectualProperty)
		addList("competitive advantages", m.CompetitiveAdvantages)
	case "market_opportunity":
		add("market size", m.MarketSize)
		add("SAM", m.SAM)
		add("SOM", m.SOM)
		add("timing", m.MarketTiming)
	case "competitors":
		addList("claimed competitors", m.Competition)
	case "financial_traction":
		add("revenue", m.CurrentRevenue)
		add("growth", m.RevenueGrowthRate)
		add("burn", m.BurnRate)
	case "fundraising_cap_table":
		add("raising", m.AmountRaising)
		add("post-money", m.PostMoneyValuation)
		add("lead investor", m.LeadInvestor)
	case "exit_acquisition":
		add("exit strategy", m.ExitStrategy)
		addList("potential acquirers", m.PotentialAcquirers)
	}
	return claims
}

// buildQuery renders the citation-search query for one claim category.
func buildQuery(m *memo.Memo1, category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verify %s for the startup %q", categoryFocus[category], m.Title)
	if m.IndustryCategory != "" {
		fmt.Fprintf(&b, " (%s)", m.IndustryCategory)
	}
	b.WriteString(". Cite public sources with URLs.\n")
	if claims := claimsForCategory(m, category); len(claims) > 0 {
		b.WriteString("\nClaims to check:\n")
		for _, claim := range claims {
			b.WriteString("- " + claim + "\n")
		}
	}
	return b.String()
}

// assessPrompt asks the generator to score one category against the search
// content.
func assessPrompt(m *memo.Memo1, category, content string) string {
	return fmt.Sprintf(`You are validating the %q claims of the startup %q against independent research.

Return ONLY a JSON object: {"confidence": 0.0-1.0, "findings": {...}}.
Rules:
- confidence is how well independent sources support the claims (1.0 = fully corroborated, 0.0 = no trace or contradicted)
- findings is a flat object of what you found, keyed by claim

Research notes:
---
%s
---`, category, m.Title, content)
}

// fallbackSections maps the comprehensive generator assessment onto claim
// categories when every citation query failed.
var fallbackSections = map[string][]string{
	"data_validation":       {"company_identity", "product_ip", "compliance_sanctions", "public_sentiment"},
	"market_validation":     {"market_opportunity", "exit_acquisition"},
	"team_validation":       {"founder_team"},
	"financial_validation":  {"financial_traction", "fundraising_cap_table"},
	"competitor_validation": {"competitors"},
}

// fallbackPrompt is the single comprehensive assessment used when the
// citation path produced nothing at all. It grades internal consistency
// rather than external corroboration, so confidences run lower.
func fallbackPrompt(memoJSON string) string {
	return fmt.Sprintf(`Assess the internal consistency and plausibility of this investment memo. No external sources are available; grade how believable and coherent the claims are on their own.

Return ONLY a JSON object with exactly these keys, each {"confidence": 0.0-1.0, "findings": {...}}:
data_validation, market_validation, team_validation, financial_validation, competitor_validation

Be conservative: without external corroboration, confidence rarely exceeds 0.6.

Memo:
---
%s
---`, memoJSON)
}
