package telemetry

import "strings"

// FormatDrag renders a drag value in the handwritten "88234 (644)" form,
// or just the main number when no sub-number is present.
func FormatDrag(v DragValue) string {
	if v.Sub == nil || *v.Sub == "" {
		return v.Main
	}
	return v.Main + " (" + *v.Sub + ")"
}

// SplitDrag parses a drag string back into main and sub parts. A string with
// no bracket yields an absent Sub. The inverse of FormatDrag.
func SplitDrag(s string) DragValue {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "(")
	if open == -1 {
		return DragValue{Main: s}
	}
	close := strings.Index(s[open:], ")")
	if close == -1 {
		return DragValue{Main: s}
	}
	main := strings.TrimSpace(s[:open])
	sub := strings.TrimSpace(s[open+1 : open+close])
	if sub == "" {
		return DragValue{Main: main}
	}
	return DragValue{Main: main, Sub: &sub}
}
