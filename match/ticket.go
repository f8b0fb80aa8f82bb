package match

import (
	"strconv"
	"strings"
)

// magnitude suffixes in base currency units. Longer suffixes are checked
// first so "Cr" wins over a bare trailing consonant and "Lakh" over "L".
var magnitudes = []struct {
	suffix string
	factor float64
}{
	{"crore", 1e7},
	{"lakh", 1e5},
	{"cr", 1e7},
	{"b", 1e9},
	{"m", 1e6},
	{"l", 1e5},
	{"k", 1e3},
}

// ParseTicket converts an amount string into base currency units. It
// understands currency symbols (₹ $ € £), thousands separators, and the
// magnitude suffixes Cr, Lakh/L, M, K, B. Returns false when no numeric
// value can be recovered.
func ParseTicket(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	for _, sym := range []string{"₹", "$", "€", "£", "rs.", "rs", "usd", "inr"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// Take the leading numeric token; trailing words like "round" or
	// "ask" are noise.
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}

	rest := strings.TrimSpace(s[end:])
	for _, m := range magnitudes {
		if strings.HasPrefix(rest, m.suffix) {
			return value * m.factor, true
		}
	}
	return value, true
}

// ticketFit scores how an ask fits a [min, max] range: inside is 1.0,
// outside decays with the relative distance to the breached boundary.
func ticketFit(ask, min, max float64) float64 {
	if min > 0 && max > 0 && min > max {
		min, max = max, min
	}
	switch {
	case max > 0 && ask > max:
		return clamp01(1 - (ask-max)/max)
	case min > 0 && ask < min:
		return clamp01(1 - (min-ask)/min)
	case min == 0 && max == 0:
		return 0.5
	}
	return 1.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
