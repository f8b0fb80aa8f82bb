package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Extraction failure statuses.
const (
	StatusParseError    = "PARSE_ERROR"
	StatusTruncatedJSON = "TRUNCATED_JSON"
)

// maxRawSnippet caps how much of the raw response an ExtractError carries.
const maxRawSnippet = 1024

// ExtractError reports a failed JSON extraction with the raw response
// truncated to 1 KB.
type ExtractError struct {
	Status string `json:"status"` // PARSE_ERROR or TRUNCATED_JSON
	Raw    string `json:"raw_response"`
}

func (e *ExtractError) Error() string {
	return "json extraction failed: " + e.Status
}

// NewExtractError builds an ExtractError, truncating the raw response.
func NewExtractError(status, raw string) *ExtractError {
	if len(raw) > maxRawSnippet {
		raw = raw[:maxRawSnippet]
	}
	return &ExtractError{Status: status, Raw: raw}
}

// Pre-compiled patterns for JSON recovery from generator responses.
var (
	// fencedBlockPattern matches JSON inside markdown code fences, with or
	// without a json language tag.
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON recovers a JSON object from a generator response that may be
// wrapped in markdown, prefixed by prose, or followed by trailing text.
// Order of attempts: direct parse, fenced block, outermost balanced braces.
// On failure it returns an *ExtractError with status PARSE_ERROR, or
// TRUNCATED_JSON when the response looks cut off mid-object.
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", NewExtractError(StatusParseError, content)
	}

	// Direct parse
	if candidate := cleanJSON(trimmed); json.Valid([]byte(candidate)) && strings.HasPrefix(candidate, "{") {
		return candidate, nil
	}

	// Fenced block
	if matches := fencedBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		candidate := cleanJSON(matches[1])
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	// Outermost balanced braces via depth scan
	if candidate := balancedBraces(content); candidate != "" {
		candidate = cleanJSON(candidate)
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if IsTruncated(content) {
		return "", NewExtractError(StatusTruncatedJSON, content)
	}
	return "", NewExtractError(StatusParseError, content)
}

// Unmarshal extracts JSON from a generator response and decodes it into v.
func Unmarshal(content string, v any) error {
	jsonStr, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return NewExtractError(StatusParseError, content)
	}
	return nil
}

// IsTruncated reports whether a response looks cut off: more opening than
// closing braces outside string values.
func IsTruncated(content string) bool {
	opens, closes := braceCounts(content)
	return opens > closes
}

// balancedBraces locates the outermost balanced JSON object by scanning
// with a depth counter, skipping braces inside string values.
func balancedBraces(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			depth++
		case !inString && ch == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

// braceCounts counts opening and closing braces outside string values.
func braceCounts(content string) (opens, closes int) {
	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			opens++
		case !inString && ch == '}':
			closes++
		}
	}
	return opens, closes
}

// cleanJSON removes JavaScript-style comments and trailing commas, which
// generators commonly emit inside otherwise valid JSON.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values so URLs are never mangled.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
