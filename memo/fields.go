package memo

import "strings"

// Placeholder values that count as "missing" for enrichment purposes.
// Matching is case-insensitive on the trimmed value.
var placeholderValues = map[string]struct{}{
	"not specified":  {},
	"not disclosed":  {},
	"not available":  {},
	"not provided":   {},
	"not mentioned":  {},
	"n/a":            {},
	"na":             {},
	"none":           {},
	"pending":        {},
	"tbd":            {},
	"to be decided":  {},
	"unknown":        {},
	"unclear":        {},
	"not applicable": {},
	"-":              {},
	"0":              {},
}

// IsPlaceholder reports whether a string value is a known placeholder.
func IsPlaceholder(v string) bool {
	_, ok := placeholderValues[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// IsMissing reports whether a field value should be treated as absent:
// empty string, placeholder, or empty list.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == "" || IsPlaceholder(val)
	case FlexStrings:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case float64:
		return val == 0
	case int:
		return val == 0
	default:
		return false
	}
}

// fieldAliases maps alternate field names seen in generator output onto the
// canonical snake_case names used throughout the pipeline.
var fieldAliases = map[string]string{
	"cac":                   "customer_acquisition_cost",
	"ltv":                   "lifetime_value",
	"company_name":          "title",
	"startup_name":          "title",
	"hq":                    "headquarters",
	"hq_location":           "headquarters",
	"location":              "headquarters",
	"stage":                 "company_stage",
	"funding_stage":         "company_stage",
	"raise_amount":          "amount_raising",
	"raising":               "amount_raising",
	"ask":                   "funding_ask",
	"valuation":             "post_money_valuation",
	"post_money":            "post_money_valuation",
	"pre_money":             "pre_money_valuation",
	"tam":                   "market_size",
	"serviceable_market":    "sam",
	"obtainable_market":     "som",
	"growth_rate":           "revenue_growth_rate",
	"monthly_burn":          "burn_rate",
	"gtm":                   "go_to_market",
	"gtm_strategy":          "go_to_market",
	"competitors":           "competition",
	"moat":                  "competitive_advantages",
	"founders":              "founder_name",
	"team":                  "key_team_members",
	"advisors":              "advisory_board",
	"acquirers":             "potential_acquirers",
	"exit_plan":             "exit_strategy",
	"industry":              "industry_category",
	"sector":                "industry_category",
	"revenue":               "current_revenue",
	"arr":                   "current_revenue",
	"committed":             "committed_funding",
	"lead":                  "lead_investor",
	"projections":           "financial_projections",
	"financial_projection":  "financial_projections",
	"customer_acquisition":  "customer_acquisition_cost",
	"customer_lifetime_value": "lifetime_value",
}

// CanonicalField maps a field name (possibly an alias, possibly mixed case)
// to its canonical name. Unknown names pass through lowercased.
func CanonicalField(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if canonical, ok := fieldAliases[key]; ok {
		return canonical
	}
	return key
}

// CriticalFields are tried first by the enrichment engine.
var CriticalFields = []string{
	"company_stage",
	"headquarters",
	"founded_date",
	"current_revenue",
	"revenue_growth_rate",
	"burn_rate",
	"runway",
	"amount_raising",
	"post_money_valuation",
	"lead_investor",
}

// ImportantFields are tried after the critical set.
var ImportantFields = []string{
	"customer_acquisition_cost",
	"lifetime_value",
	"gross_margin",
	"team_size",
	"key_team_members",
	"advisory_board",
	"go_to_market",
	"sales_strategy",
	"partnerships",
	"use_of_funds",
	"financial_projections",
	"potential_acquirers",
	"sam",
	"som",
	"market_penetration",
	"market_timing",
	"market_trends",
	"competitive_advantages",
	"scalability_plan",
	"exit_strategy",
	"exit_valuation",
}

// fieldAccessor reads and writes one enrichable Memo1 field by name.
type fieldAccessor struct {
	get func(*Memo1) any
	set func(*Memo1, string)
}

func stringField(get func(*Memo1) *string) fieldAccessor {
	return fieldAccessor{
		get: func(m *Memo1) any { return *get(m) },
		set: func(m *Memo1, v string) { *get(m) = v },
	}
}

func listField(get func(*Memo1) *FlexStrings) fieldAccessor {
	return fieldAccessor{
		get: func(m *Memo1) any { return *get(m) },
		set: func(m *Memo1, v string) { *get(m) = splitInlineList(v) },
	}
}

var fieldAccessors = map[string]fieldAccessor{
	"title":                     stringField(func(m *Memo1) *string { return &m.Title }),
	"founded_date":              stringField(func(m *Memo1) *string { return &m.FoundedDate }),
	"headquarters":              stringField(func(m *Memo1) *string { return &m.Headquarters }),
	"company_stage":             stringField(func(m *Memo1) *string { return &m.CompanyStage }),
	"team_size":                 stringField(func(m *Memo1) *string { return &m.TeamSize }),
	"key_team_members":          listField(func(m *Memo1) *FlexStrings { return &m.KeyTeamMembers }),
	"advisory_board":            listField(func(m *Memo1) *FlexStrings { return &m.AdvisoryBoard }),
	"scalability_plan":          stringField(func(m *Memo1) *string { return &m.ScalabilityPlan }),
	"market_size":               stringField(func(m *Memo1) *string { return &m.MarketSize }),
	"sam":                       stringField(func(m *Memo1) *string { return &m.SAM }),
	"som":                       stringField(func(m *Memo1) *string { return &m.SOM }),
	"market_penetration":        stringField(func(m *Memo1) *string { return &m.MarketPenetration }),
	"market_timing":             stringField(func(m *Memo1) *string { return &m.MarketTiming }),
	"market_trends":             stringField(func(m *Memo1) *string { return &m.MarketTrends }),
	"competitive_advantages":    listField(func(m *Memo1) *FlexStrings { return &m.CompetitiveAdvantages }),
	"go_to_market":              stringField(func(m *Memo1) *string { return &m.GoToMarket }),
	"sales_strategy":            stringField(func(m *Memo1) *string { return &m.SalesStrategy }),
	"partnerships":              listField(func(m *Memo1) *FlexStrings { return &m.Partnerships }),
	"current_revenue":           stringField(func(m *Memo1) *string { return &m.CurrentRevenue }),
	"revenue_growth_rate":       stringField(func(m *Memo1) *string { return &m.RevenueGrowthRate }),
	"customer_acquisition_cost": stringField(func(m *Memo1) *string { return &m.CustomerAcquisitionCost }),
	"lifetime_value":            stringField(func(m *Memo1) *string { return &m.LifetimeValue }),
	"gross_margin":              stringField(func(m *Memo1) *string { return &m.GrossMargin }),
	"burn_rate":                 stringField(func(m *Memo1) *string { return &m.BurnRate }),
	"runway":                    stringField(func(m *Memo1) *string { return &m.Runway }),
	"amount_raising":            stringField(func(m *Memo1) *string { return &m.AmountRaising }),
	"pre_money_valuation":       stringField(func(m *Memo1) *string { return &m.PreMoneyValuation }),
	"post_money_valuation":      stringField(func(m *Memo1) *string { return &m.PostMoneyValuation }),
	"lead_investor":             stringField(func(m *Memo1) *string { return &m.LeadInvestor }),
	"use_of_funds":              listField(func(m *Memo1) *FlexStrings { return &m.UseOfFunds }),
	"financial_projections":     stringField(func(m *Memo1) *string { return &m.FinancialProjections }),
	"potential_acquirers":       listField(func(m *Memo1) *FlexStrings { return &m.PotentialAcquirers }),
	"exit_strategy":             stringField(func(m *Memo1) *string { return &m.ExitStrategy }),
	"exit_valuation":            stringField(func(m *Memo1) *string { return &m.ExitValuation }),
}

// FieldValue returns the current value of a named enrichable field.
// The second return is false for unknown field names.
func (m *Memo1) FieldValue(name string) (any, bool) {
	acc, ok := fieldAccessors[CanonicalField(name)]
	if !ok {
		return nil, false
	}
	return acc.get(m), true
}

// SetField assigns a named enrichable field from a string value. List
// fields are split on inline separators. Unknown names are ignored and
// reported false.
func (m *Memo1) SetField(name, value string) bool {
	acc, ok := fieldAccessors[CanonicalField(name)]
	if !ok {
		return false
	}
	acc.set(m, value)
	return true
}

// MissingFields returns the subset of the given field names whose current
// value is absent or a placeholder, in the given order.
func (m *Memo1) MissingFields(names []string) []string {
	var missing []string
	for _, name := range names {
		v, ok := m.FieldValue(name)
		if !ok {
			continue
		}
		if IsMissing(v) {
			missing = append(missing, name)
		}
	}
	return missing
}
