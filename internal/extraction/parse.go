package extraction

import (
	"encoding/json"
	"strings"
)

// rawExtraction is the intermediate shape the model is asked to produce.
// Every field is optional; JSON null maps to a nil pointer.
type rawExtraction struct {
	Cope     *string `json:"cope"`
	DragMain *string `json:"drag_main"`
	DragSub  *string `json:"drag_sub"`
}

// stripMarkdownCodeFences removes markdown code fence wrapping from a string.
// Handles ```json, ```, and variations with language specifiers. Models are
// instructed not to fence their output, but smaller ones do anyway.
func stripMarkdownCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return s
	}
	lastFence := strings.LastIndex(trimmed, "```")
	if lastFence <= firstNewline {
		return s
	}
	return strings.TrimSpace(trimmed[firstNewline+1 : lastFence])
}

// extractJSON finds the first balanced JSON object in a response, tolerating
// prose before or after it.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// parseExtraction interprets the model's free-text output as a rawExtraction.
func parseExtraction(text string) (rawExtraction, error) {
	cleaned := extractJSON(stripMarkdownCodeFences(text))
	if cleaned == "" {
		return rawExtraction{}, ErrParse
	}
	var raw rawExtraction
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return rawExtraction{}, ErrParse
	}
	return raw, nil
}
