package match

import "strings"

// stageLadder is the ordered funding-stage ladder used for distance
// scoring.
var stageLadder = []string{
	"pre-seed", "seed", "series a", "series b", "series c", "series d", "growth",
}

// stageAliases normalize common spellings onto ladder rungs.
var stageAliases = map[string]string{
	"preseed":   "pre-seed",
	"pre seed":  "pre-seed",
	"angel":     "pre-seed",
	"series-a":  "series a",
	"series-b":  "series b",
	"series-c":  "series c",
	"series-d":  "series d",
	"late":      "growth",
	"expansion": "growth",
}

// stageIndex locates a stage on the ladder; -1 when unrecognized. Inputs
// like "Series A (bridge)" resolve through substring matching.
func stageIndex(stage string) int {
	s := strings.ToLower(strings.TrimSpace(stage))
	if alias, ok := stageAliases[s]; ok {
		s = alias
	}
	for i, rung := range stageLadder {
		if s == rung {
			return i
		}
	}
	// "pre-seed" sits before "seed" on the ladder, so scanning in ladder
	// order keeps it from matching the shorter rung.
	for i, rung := range stageLadder {
		if strings.Contains(s, rung) {
			return i
		}
	}
	return -1
}

// stageAlignment scores the founder stage against the investor's stage
// preferences: exact membership is 1.0, otherwise the minimum ladder
// distance d gives max(0, 1 - 0.2*d).
func stageAlignment(founderStage string, investorStages []string) float64 {
	fi := stageIndex(founderStage)
	if fi == -1 || len(investorStages) == 0 {
		return 0
	}

	minDist := -1
	for _, stage := range investorStages {
		ii := stageIndex(stage)
		if ii == -1 {
			continue
		}
		if ii == fi {
			return 1.0
		}
		dist := ii - fi
		if dist < 0 {
			dist = -dist
		}
		if minDist == -1 || dist < minDist {
			minDist = dist
		}
	}
	if minDist == -1 {
		return 0
	}
	score := 1 - 0.2*float64(minDist)
	if score < 0 {
		return 0
	}
	return score
}
