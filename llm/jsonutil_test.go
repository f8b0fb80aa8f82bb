package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantKey    string // if non-empty, check this key exists in parsed JSON
		wantStatus string // expected ExtractError status, empty for success
	}{
		{
			name:    "plain JSON",
			input:   `{"title": "Acme"}`,
			wantKey: "title",
		},
		{
			name:    "fenced block with json tag",
			input:   "```json\n{\"title\": \"Acme\"}\n```",
			wantKey: "title",
		},
		{
			name:    "fenced block without tag",
			input:   "```\n{\"title\": \"Acme\"}\n```",
			wantKey: "title",
		},
		{
			name:    "prose before and after",
			input:   "Here is the memo you asked for:\n{\"title\": \"Acme\"}\nLet me know if you need more.",
			wantKey: "title",
		},
		{
			name:    "nested braces with prose",
			input:   "Result: {\"memo\": {\"title\": \"Acme\"}} done",
			wantKey: "memo",
		},
		{
			name:    "trailing comma cleanup",
			input:   "{\"items\": [\"one\", \"two\",]}",
			wantKey: "items",
		},
		{
			name:    "comment in values preserved URL",
			input:   `{"url": "http://example.com/path"}`,
			wantKey: "url",
		},
		{
			name:       "truncated object",
			input:      `{"title": "Acme", "summary": "a long summary that never`,
			wantStatus: StatusTruncatedJSON,
		},
		{
			name:       "no JSON at all",
			input:      "This is just prose with no structure.",
			wantStatus: StatusParseError,
		},
		{
			name:       "empty input",
			input:      "",
			wantStatus: StatusParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExtractJSON(tt.input)

			if tt.wantStatus != "" {
				var extractErr *ExtractError
				if !errors.As(err, &extractErr) {
					t.Fatalf("expected ExtractError, got %v", err)
				}
				if extractErr.Status != tt.wantStatus {
					t.Errorf("status = %s, want %s", extractErr.Status, tt.wantStatus)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed map[string]any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("extracted JSON is invalid: %v\n%s", err, result)
			}
			if _, ok := parsed[tt.wantKey]; !ok {
				t.Errorf("key %q missing in parsed result", tt.wantKey)
			}
		})
	}
}

func TestExtractErrorTruncatesRaw(t *testing.T) {
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'x'
	}
	err := NewExtractError(StatusParseError, string(long))
	if len(err.Raw) != 1024 {
		t.Errorf("raw snippet length = %d, want 1024", len(err.Raw))
	}
}

func TestIsTruncated(t *testing.T) {
	if !IsTruncated(`{"a": {"b": 1}`) {
		t.Error("expected truncated")
	}
	if IsTruncated(`{"a": {"b": 1}}`) {
		t.Error("balanced object reported as truncated")
	}
	if IsTruncated(`{"text": "brace in string {"}`) {
		t.Error("brace inside string counted")
	}
}

func TestUnmarshal(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}
	input := "```json\n{\"title\": \"Acme\"}\n```"
	if err := Unmarshal(input, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Title != "Acme" {
		t.Errorf("title = %q", out.Title)
	}
}
