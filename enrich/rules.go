package enrich

import (
	"strings"
	"unicode"
)

var stageKeywords = []string{
	"pre-seed", "preseed", "seed", "series a", "series b", "series c",
	"series d", "growth", "angel", "bridge",
}

var monetaryFields = map[string]bool{
	"current_revenue":           true,
	"burn_rate":                 true,
	"customer_acquisition_cost": true,
	"lifetime_value":            true,
	"amount_raising":            true,
	"post_money_valuation":      true,
	"pre_money_valuation":       true,
	"sam":                       true,
	"som":                       true,
	"exit_valuation":            true,
}

var countFields = map[string]bool{
	"team_size":           true,
	"runway":              true,
	"revenue_growth_rate": true,
	"gross_margin":        true,
	"market_penetration":  true,
}

// plausible applies the per-field acceptance rule. Values that fail are
// discarded rather than corrected; enrichment never writes a value it
// cannot defend.
func plausible(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch {
	case field == "company_stage":
		lower := strings.ToLower(value)
		for _, kw := range stageKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	case field == "headquarters":
		return len(value) > 2 && strings.Contains(value, ",")
	case field == "founded_date":
		return len(value) >= 4
	case monetaryFields[field]:
		return hasCurrencyMarker(value)
	case countFields[field]:
		return hasDigit(value)
	}
	return true
}

func hasCurrencyMarker(value string) bool {
	if strings.ContainsAny(value, "$₹€£") {
		return true
	}
	upper := strings.ToUpper(value)
	for _, suffix := range []string{"K", "M", "B", "CR", "L", "LAKH", "CRORE"} {
		if strings.Contains(upper, suffix) && hasDigit(value) {
			return true
		}
	}
	return false
}

func hasDigit(value string) bool {
	for _, r := range value {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
