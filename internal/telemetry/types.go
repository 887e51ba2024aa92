// Package telemetry defines the record types shared by the extraction
// pipeline, the store, and the HTTP surface: the cope/drag payload, the
// persisted reading record, and the operator correction patch.
package telemetry

import "time"

// Status classifies the terminal outcome of one upload attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// DragValue is the lower mould section's identifier. Sub carries the optional
// bracketed sub-number and is only meaningful alongside Main; an absent main
// number means the whole drag value is absent, never a DragValue with an
// empty Main.
type DragValue struct {
	Main string  `json:"main"`
	Sub  *string `json:"sub,omitempty"`
}

// MouldReading is the extracted-or-corrected payload.
type MouldReading struct {
	Cope *string    `json:"cope"`
	Drag *DragValue `json:"drag"`
}

// IsEmpty reports whether neither identifier was read.
func (r MouldReading) IsEmpty() bool {
	return r.Cope == nil && r.Drag == nil
}

// ReadingRecord is the persisted telemetry document. It is constructed once
// per upload, persisted once (best-effort), and mutated only by operator
// correction, which sets IsHumanCorrected without touching Status.
type ReadingRecord struct {
	ID               string     `json:"id,omitempty"`
	Status           Status     `json:"status"`
	Message          string     `json:"message"`
	Cope             *string    `json:"cope"`
	Drag             *DragValue `json:"drag"`
	Timestamp        time.Time  `json:"timestamp"`
	ProcessingTimeMS float64    `json:"processing_time_ms"`
	CameraID         string     `json:"camera_id"`
	IsHumanCorrected bool       `json:"is_human_corrected"`
}

// CorrectionPatch is a partial operator-supplied update. Absent fields are
// left untouched by the merge; unknown fields are rejected at the decode
// boundary before the patch is constructed.
type CorrectionPatch struct {
	Cope *string    `json:"cope"`
	Drag *DragValue `json:"drag"`
}

// IsEmpty reports whether the patch requests no changes.
func (p CorrectionPatch) IsEmpty() bool {
	return p.Cope == nil && p.Drag == nil
}
