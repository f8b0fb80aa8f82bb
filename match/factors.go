package match

import (
	"context"
	"strconv"
	"strings"

	"github.com/c360studio/dealflow/memo"
)

// Factor weights. They sum to 1.0.
var factorWeights = map[string]float64{
	"sector_alignment":   0.30,
	"stage_alignment":    0.20,
	"ticket_fit":         0.15,
	"geography":          0.10,
	"founder_background": 0.10,
	"traction":           0.10,
	"network":            0.05,
}

// founderKeywords in an investor thesis signal a founder-quality focus.
var founderKeywords = []string{
	"founder", "pedigree", "experience", "background", "team", "execution",
}

// geoAliases maps countries and cities onto the region tokens investors
// list. Both sides of a comparison are expanded before matching.
var geoAliases = map[string][]string{
	"india":         {"india", "south asia", "apac", "asia"},
	"bangalore":     {"india", "south asia", "apac", "asia"},
	"mumbai":        {"india", "south asia", "apac", "asia"},
	"delhi":         {"india", "south asia", "apac", "asia"},
	"singapore":     {"singapore", "southeast asia", "apac", "asia"},
	"indonesia":     {"indonesia", "southeast asia", "apac", "asia"},
	"usa":           {"usa", "united states", "north america"},
	"us":            {"usa", "united states", "north america"},
	"san francisco": {"usa", "united states", "north america"},
	"new york":      {"usa", "united states", "north america"},
	"uk":            {"uk", "united kingdom", "europe", "emea"},
	"london":        {"uk", "united kingdom", "europe", "emea"},
	"germany":       {"germany", "europe", "emea"},
	"berlin":        {"germany", "europe", "emea"},
	"uae":           {"uae", "middle east", "mena", "emea"},
	"dubai":         {"uae", "middle east", "mena", "emea"},
}

// Embedder is the optional semantic path for sector alignment.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// sectorAlignment scores founder sector against the investor's focus list.
// Preferred path: max cosine similarity over embeddings. The lexical path
// is both the fallback on embedding failure and the tie-breaker when
// embeddings come back zero.
func sectorAlignment(ctx context.Context, embedder Embedder, cosine func(a, b []float32) float64, founderSector string, investorSectors []string) float64 {
	if founderSector == "" || len(investorSectors) == 0 {
		return 0
	}

	if embedder != nil {
		if score, ok := embeddedSectorScore(ctx, embedder, cosine, founderSector, investorSectors); ok && score > 0 {
			return score
		}
	}
	return lexicalSectorScore(founderSector, investorSectors)
}

func embeddedSectorScore(ctx context.Context, embedder Embedder, cosine func(a, b []float32) float64, founderSector string, investorSectors []string) (float64, bool) {
	founderVec, err := embedder.Embed(ctx, founderSector)
	if err != nil {
		return 0, false
	}
	best := 0.0
	for _, sector := range investorSectors {
		vec, err := embedder.Embed(ctx, sector)
		if err != nil {
			return 0, false
		}
		if sim := cosine(founderVec, vec); sim > best {
			best = sim
		}
	}
	return best, true
}

// sectorExpansions unfold the common portmanteau sector names so
// "FinTech" and "Financial Technology" meet in the substring check.
var sectorExpansions = map[string]string{
	"fintech":     "financial technology",
	"healthtech":  "healthcare technology",
	"edtech":      "education technology",
	"agritech":    "agriculture technology",
	"proptech":    "property technology",
	"insurtech":   "insurance technology",
	"deeptech":    "deep technology",
	"climatetech": "climate technology",
}

func lexicalSectorScore(founderSector string, investorSectors []string) float64 {
	founder := strings.ToLower(strings.TrimSpace(founderSector))
	best := 0.0
	for _, sector := range investorSectors {
		s := strings.ToLower(strings.TrimSpace(sector))
		if s == "" {
			continue
		}
		if s == founder {
			return 1.0
		}
		if sectorSubstring(founder, s) && best < 0.7 {
			best = 0.7
		}
	}
	return best
}

// sectorSubstring checks containment either direction across the raw
// strings and their portmanteau expansions.
func sectorSubstring(a, b string) bool {
	for _, av := range sectorVariants(a) {
		for _, bv := range sectorVariants(b) {
			if strings.Contains(av, bv) || strings.Contains(bv, av) {
				return true
			}
		}
	}
	return false
}

func sectorVariants(s string) []string {
	variants := []string{s}
	if expanded, ok := sectorExpansions[s]; ok {
		variants = append(variants, expanded)
	}
	return variants
}

// geographyScore matches the founder location against investor regions:
// direct substring first, then through the alias table.
func geographyScore(founderLocation string, investorRegions []string) float64 {
	location := strings.ToLower(strings.TrimSpace(founderLocation))
	if location == "" || len(investorRegions) == 0 {
		return 0
	}

	for _, region := range investorRegions {
		r := strings.ToLower(strings.TrimSpace(region))
		if r != "" && (strings.Contains(location, r) || strings.Contains(r, location)) {
			return 1.0
		}
	}

	founderTokens := expandGeo(location)
	for _, region := range investorRegions {
		for token := range expandGeo(strings.ToLower(strings.TrimSpace(region))) {
			if founderTokens[token] {
				return 1.0
			}
		}
	}
	return 0
}

// expandGeo returns the alias set for a location string, keyed for O(1)
// intersection.
func expandGeo(location string) map[string]bool {
	tokens := map[string]bool{}
	for key, aliases := range geoAliases {
		if strings.Contains(location, key) {
			for _, alias := range aliases {
				tokens[alias] = true
			}
		}
	}
	// A region name used directly ("Europe") expands to itself.
	if location != "" {
		tokens[location] = true
	}
	return tokens
}

func founderBackgroundScore(thesis string) float64 {
	lower := strings.ToLower(thesis)
	for _, kw := range founderKeywords {
		if strings.Contains(lower, kw) {
			return 0.7
		}
	}
	return 0.5
}

// tractionScore compares founder revenue traction to the investor's NRR
// requirement when one is declared.
func tractionScore(m *memo.Memo1, inv *memo.Investor) float64 {
	hasRevenue := !memo.IsMissing(m.CurrentRevenue)
	hasGrowth := !memo.IsMissing(m.RevenueGrowthRate)

	if inv.Portfolio.NRRRequirement > 0 {
		if growth, ok := parsePercent(m.RevenueGrowthRate); ok && growth >= inv.Portfolio.NRRRequirement {
			return 1.0
		}
		return 0.6
	}
	if hasRevenue && hasGrowth {
		return 0.7
	}
	return 0.5
}

// parsePercent pulls the first numeric value out of a string like
// "15% MoM" or "120% NRR".
func parsePercent(s string) (float64, bool) {
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			v, err := strconv.ParseFloat(s[start:i], 64)
			return v, err == nil
		}
	}
	return 0, false
}

// networkScore checks whether any company in the founder's competitive set
// appears in the investor's past investments.
func networkScore(competition memo.FlexStrings, pastInvestments []string) float64 {
	if len(competition) == 0 || len(pastInvestments) == 0 {
		return 0.3
	}
	past := make(map[string]bool, len(pastInvestments))
	for _, p := range pastInvestments {
		past[normalizeCompany(p)] = true
	}
	for _, c := range competition {
		if past[normalizeCompany(c)] {
			return 0.8
		}
	}
	return 0.3
}

func normalizeCompany(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{" inc.", " inc", " ltd.", " ltd", " pvt", " llc", " labs"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}
