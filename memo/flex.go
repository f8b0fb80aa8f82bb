package memo

import (
	"encoding/json"
	"strings"
)

// FlexStrings is a list of strings that tolerates generator output which
// alternates between a bare string, a list, or null. It always marshals as
// a JSON array so downstream consumers never see the other shapes.
type FlexStrings []string

// UnmarshalJSON accepts a JSON array of strings, a single string (split on
// newlines and semicolons when it looks like an inlined list), or null.
func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		*f = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = compactStrings(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = splitInlineList(single)
		return nil
	}

	// Mixed-type arrays: keep the string members, stringify nothing else.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	*f = compactStrings(out)
	return nil
}

// MarshalJSON always emits an array, never null, so list-typed memo fields
// keep their shape.
func (f FlexStrings) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// splitInlineList turns a single string into a list. Strings containing
// newline- or semicolon-separated items become multiple entries; anything
// else becomes a one-element list.
func splitInlineList(s string) FlexStrings {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var parts []string
	switch {
	case strings.Contains(s, "\n"):
		parts = strings.Split(s, "\n")
	case strings.Contains(s, ";"):
		parts = strings.Split(s, ";")
	default:
		return FlexStrings{s}
	}
	return compactStrings(parts)
}

func compactStrings(in []string) FlexStrings {
	out := make(FlexStrings, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "- "))
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
