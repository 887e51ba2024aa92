// Package pipeline runs an upload through the shape gate, the extraction
// client, and outcome normalization, then persists the result best-effort.
package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/mouldworks/mouldlens/internal/telemetry"
)

// Outcome messages stored with every record. The dashboard keys off these;
// finer diagnosis (gate-empty vs model-empty) lives in log context only.
const (
	MsgNothingDetected = "Nothing detected, mould missing"
	MsgDetected        = "Mould detected successfully"
)

// Normalize converts the gate decision and extraction result (or error) into
// the canonical ReadingRecord. Pure function: no I/O, identifier left unset.
func Normalize(gateOK bool, reading telemetry.MouldReading, extractErr error, elapsedMS float64, cameraID string) telemetry.ReadingRecord {
	rec := telemetry.ReadingRecord{
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMS: round2(elapsedMS),
		CameraID:         cameraID,
	}

	switch {
	case extractErr != nil:
		rec.Status = telemetry.StatusError
		rec.Message = fmt.Sprintf("Extraction failed: %v", extractErr)
	case !gateOK, reading.IsEmpty():
		rec.Status = telemetry.StatusEmpty
		rec.Message = MsgNothingDetected
	default:
		rec.Status = telemetry.StatusSuccess
		rec.Message = MsgDetected
		rec.Cope = reading.Cope
		rec.Drag = reading.Drag
	}
	return rec
}

func round2(ms float64) float64 {
	return math.Round(ms*100) / 100
}
