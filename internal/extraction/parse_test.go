package extraction

import (
	"errors"
	"testing"
)

func TestStripMarkdownCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"cope\": \"81373\"}\n```",
			expected: "{\"cope\": \"81373\"}",
		},
		{
			name:     "bare fence",
			input:    "```\n{\"cope\": \"81373\"}\n```",
			expected: "{\"cope\": \"81373\"}",
		},
		{
			name:     "no fence passes through",
			input:    "{\"cope\": \"81373\"}",
			expected: "{\"cope\": \"81373\"}",
		},
		{
			name:     "unclosed fence passes through",
			input:    "```json\n{\"cope\": \"81373\"}",
			expected: "```json\n{\"cope\": \"81373\"}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripMarkdownCodeFences(tt.input)
			if got != tt.expected {
				t.Errorf("stripMarkdownCodeFences() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose around object", `Here you go: {"a":{"b":2}} done`, `{"a":{"b":2}}`},
		{"no object", `nothing here`, ``},
		{"unbalanced braces", `{"a":1`, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON(tt.input)
			if got != tt.expected {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseExtraction(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		raw, err := parseExtraction(`{"cope":"81373","drag_main":"88234","drag_sub":"644"}`)
		if err != nil {
			t.Fatalf("parseExtraction: %v", err)
		}
		if raw.Cope == nil || *raw.Cope != "81373" {
			t.Errorf("cope = %v, want 81373", raw.Cope)
		}
		if raw.DragSub == nil || *raw.DragSub != "644" {
			t.Errorf("drag_sub = %v, want 644", raw.DragSub)
		}
	})

	t.Run("fenced JSON with nulls", func(t *testing.T) {
		raw, err := parseExtraction("```json\n{\"cope\":null,\"drag_main\":null,\"drag_sub\":null}\n```")
		if err != nil {
			t.Fatalf("parseExtraction: %v", err)
		}
		if raw.Cope != nil || raw.DragMain != nil || raw.DragSub != nil {
			t.Errorf("expected all-nil extraction, got %+v", raw)
		}
	})

	t.Run("garbage is a parse error", func(t *testing.T) {
		_, err := parseExtraction("I could not find any numbers in this image.")
		if !errors.Is(err, ErrParse) {
			t.Errorf("err = %v, want ErrParse", err)
		}
	})

	t.Run("malformed JSON is a parse error", func(t *testing.T) {
		_, err := parseExtraction(`{"cope": 81373e}`)
		if !errors.Is(err, ErrParse) {
			t.Errorf("err = %v, want ErrParse", err)
		}
	})
}

func TestDeriveReading(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		raw      rawExtraction
		wantCope *string
		wantDrag *struct{ main, sub string }
	}{
		{
			name:     "all fields present",
			raw:      rawExtraction{Cope: str("81373"), DragMain: str("88234"), DragSub: str("644")},
			wantCope: str("81373"),
			wantDrag: &struct{ main, sub string }{"88234", "644"},
		},
		{
			name:     "drag without sub",
			raw:      rawExtraction{Cope: str("81373"), DragMain: str("88234")},
			wantCope: str("81373"),
			wantDrag: &struct{ main, sub string }{"88234", ""},
		},
		{
			name: "lone sub without main is discarded",
			raw:  rawExtraction{DragSub: str("644")},
		},
		{
			name: "empty strings are absent",
			raw:  rawExtraction{Cope: str(""), DragMain: str("")},
		},
		{
			name: "all null",
			raw:  rawExtraction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveReading(tt.raw)
			if (got.Cope == nil) != (tt.wantCope == nil) {
				t.Fatalf("cope presence = %v, want %v", got.Cope != nil, tt.wantCope != nil)
			}
			if got.Cope != nil && *got.Cope != *tt.wantCope {
				t.Errorf("cope = %q, want %q", *got.Cope, *tt.wantCope)
			}
			if (got.Drag == nil) != (tt.wantDrag == nil) {
				t.Fatalf("drag presence = %v, want %v", got.Drag != nil, tt.wantDrag != nil)
			}
			if got.Drag != nil {
				if got.Drag.Main != tt.wantDrag.main {
					t.Errorf("drag.main = %q, want %q", got.Drag.Main, tt.wantDrag.main)
				}
				sub := ""
				if got.Drag.Sub != nil {
					sub = *got.Drag.Sub
				}
				if sub != tt.wantDrag.sub {
					t.Errorf("drag.sub = %q, want %q", sub, tt.wantDrag.sub)
				}
			}
		})
	}
}
