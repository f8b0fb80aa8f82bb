package enrich

import (
	"fmt"
	"strings"

	"github.com/c360studio/dealflow/memo"
)

// Query categories. Missing fields are grouped into these fixed buckets,
// one citation-search query per bucket.
const (
	CategoryCompanyBasics      = "company_basics"
	CategoryFinancialMetrics   = "financial_metrics"
	CategoryFundingDeals       = "funding_deals"
	CategoryMarketIntelligence = "market_intelligence"
	CategoryTeamExecution      = "team_execution"
	CategoryGrowthExit         = "growth_exit"
)

// categoryOrder fixes the iteration order for deterministic behavior.
var categoryOrder = []string{
	CategoryCompanyBasics,
	CategoryFinancialMetrics,
	CategoryFundingDeals,
	CategoryMarketIntelligence,
	CategoryTeamExecution,
	CategoryGrowthExit,
}

// fieldCategories assigns every enrichable field to its query category.
var fieldCategories = map[string]string{
	"company_stage": CategoryCompanyBasics,
	"headquarters":  CategoryCompanyBasics,
	"founded_date":  CategoryCompanyBasics,

	"current_revenue":           CategoryFinancialMetrics,
	"revenue_growth_rate":       CategoryFinancialMetrics,
	"burn_rate":                 CategoryFinancialMetrics,
	"runway":                    CategoryFinancialMetrics,
	"customer_acquisition_cost": CategoryFinancialMetrics,
	"lifetime_value":            CategoryFinancialMetrics,
	"gross_margin":              CategoryFinancialMetrics,
	"financial_projections":     CategoryFinancialMetrics,

	"amount_raising":       CategoryFundingDeals,
	"post_money_valuation": CategoryFundingDeals,
	"pre_money_valuation":  CategoryFundingDeals,
	"lead_investor":        CategoryFundingDeals,
	"use_of_funds":         CategoryFundingDeals,

	"sam":                    CategoryMarketIntelligence,
	"som":                    CategoryMarketIntelligence,
	"market_penetration":     CategoryMarketIntelligence,
	"market_timing":          CategoryMarketIntelligence,
	"market_trends":          CategoryMarketIntelligence,
	"competitive_advantages": CategoryMarketIntelligence,

	"team_size":        CategoryTeamExecution,
	"key_team_members": CategoryTeamExecution,
	"advisory_board":   CategoryTeamExecution,
	"go_to_market":     CategoryTeamExecution,
	"sales_strategy":   CategoryTeamExecution,
	"partnerships":     CategoryTeamExecution,

	"scalability_plan":    CategoryGrowthExit,
	"exit_strategy":       CategoryGrowthExit,
	"exit_valuation":      CategoryGrowthExit,
	"potential_acquirers": CategoryGrowthExit,
}

// categoryDescriptions introduce each bucket in the search query.
var categoryDescriptions = map[string]string{
	CategoryCompanyBasics:      "basic company facts (stage, location, founding)",
	CategoryFinancialMetrics:   "financial and unit-economics metrics",
	CategoryFundingDeals:       "fundraising rounds, valuations, and investors",
	CategoryMarketIntelligence: "market sizing, timing, and competitive position",
	CategoryTeamExecution:      "team composition and go-to-market execution",
	CategoryGrowthExit:         "growth plans and exit scenarios",
}

// fieldFormats states the concrete formatting rule quoted in the query for
// each field.
var fieldFormats = map[string]string{
	"company_stage":             "one of: Pre-seed, Seed, Series A, Series B, Series C, Series D, Growth",
	"headquarters":              `"City, Region" format, e.g. "Bangalore, India"`,
	"founded_date":              "a year or month and year, e.g. \"2021\" or \"March 2021\"",
	"current_revenue":           "amount with currency symbol and magnitude, e.g. \"$1.2M ARR\"",
	"revenue_growth_rate":       "percentage, e.g. \"15% MoM\"",
	"burn_rate":                 "monthly amount with currency symbol, e.g. \"$80K/month\"",
	"runway":                    "months, e.g. \"18 months\"",
	"customer_acquisition_cost": "amount with currency symbol",
	"lifetime_value":            "amount with currency symbol",
	"gross_margin":              "percentage",
	"amount_raising":            "amount with currency symbol and magnitude, e.g. \"$2.5M\" or \"₹4Cr\"",
	"post_money_valuation":      "amount with currency symbol and magnitude",
	"pre_money_valuation":       "amount with currency symbol and magnitude",
	"lead_investor":             "firm name",
	"team_size":                 "headcount number",
	"sam":                       "amount with currency symbol and magnitude",
	"som":                       "amount with currency symbol and magnitude",
}

// groupByCategory groups missing field names into query categories,
// preserving the fixed category order.
func groupByCategory(missing []string) map[string][]string {
	groups := make(map[string][]string)
	for _, field := range missing {
		category, ok := fieldCategories[field]
		if !ok {
			continue
		}
		groups[category] = append(groups[category], field)
	}
	return groups
}

// buildSearchQuery renders the citation-search query for one category.
func buildSearchQuery(m *memo.Memo1, category string, fields []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find %s for the startup %q", categoryDescriptions[category], m.Title)
	if m.IndustryCategory != "" {
		fmt.Fprintf(&b, " (%s)", m.IndustryCategory)
	}
	if m.Headquarters != "" && !memo.IsPlaceholder(m.Headquarters) {
		fmt.Fprintf(&b, " based in %s", m.Headquarters)
	}
	b.WriteString(". Report only facts from public sources with URLs.\n\nRequested fields:\n")
	for _, field := range fields {
		if format, ok := fieldFormats[field]; ok {
			fmt.Fprintf(&b, "- %s (%s)\n", field, format)
		} else {
			fmt.Fprintf(&b, "- %s\n", field)
		}
	}
	return b.String()
}

// structurePrompt asks the generator to turn search content into the
// strict per-field JSON contract.
func structurePrompt(m *memo.Memo1, fields []string, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Extract values for the startup %q from the research notes below.

Return ONLY a JSON object mapping each requested field to {"value": ..., "confidence": 0.0-1.0, "source": "url or publication"}.
Rules:
- Include exactly these fields: %s
- A field the notes do not support must be {"value": null, "confidence": 0}
- confidence reflects how directly the notes state the value

Research notes:
---
%s
---`, m.Title, strings.Join(fields, ", "), content)
	return b.String()
}

// fallbackPrompt is the generator-only enrichment path used when citation
// search is disabled or produced nothing. It works from the memo alone.
func fallbackPrompt(m *memo.Memo1, fields []string, memoJSON string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are enriching an investment memo for %q using only the memo itself and general knowledge of comparable startups.

Return ONLY a JSON object mapping each requested field to {"value": ..., "confidence": 0.0-1.0, "source": "reasoning basis"}.
Rules:
- Include exactly these fields: %s
- Only infer values the memo strongly implies; otherwise {"value": null, "confidence": 0}
- Be conservative with confidence; inferred values rarely exceed 0.5

Memo:
---
%s
---`, m.Title, strings.Join(fields, ", "), memoJSON)
	return b.String()
}
