package store

import (
	"encoding/json"
	"time"

	"github.com/mouldworks/mouldlens/internal/telemetry"
)

// legacyDocument is the union of every record shape this service has ever
// written: early generations stored a mould_detected boolean instead of the
// status enum and scan_time_ms instead of processing_time_ms, and predate
// camera_id and is_human_corrected entirely.
type legacyDocument struct {
	Status           *string              `json:"status"`
	Message          *string              `json:"message"`
	MouldDetected    *bool                `json:"mould_detected"`
	Cope             *string              `json:"cope"`
	Drag             *telemetry.DragValue `json:"drag"`
	Timestamp        time.Time            `json:"timestamp"`
	ProcessingTimeMS *float64             `json:"processing_time_ms"`
	ScanTimeMS       *float64             `json:"scan_time_ms"`
	CameraID         *string              `json:"camera_id"`
	IsHumanCorrected *bool                `json:"is_human_corrected"`
}

// normalizeDocument maps any historical document shape into the current
// ReadingRecord shape. Read-path only: the write path never emits legacy
// fields.
func normalizeDocument(raw []byte, defaultCamera string) (telemetry.ReadingRecord, error) {
	var doc legacyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return telemetry.ReadingRecord{}, err
	}

	rec := telemetry.ReadingRecord{
		Cope:      doc.Cope,
		Drag:      doc.Drag,
		Timestamp: doc.Timestamp,
	}

	switch {
	case doc.Status != nil:
		rec.Status = telemetry.Status(*doc.Status)
	case doc.MouldDetected != nil && !*doc.MouldDetected:
		rec.Status = telemetry.StatusEmpty
	default:
		// Pre-status generations only persisted successful scans.
		rec.Status = telemetry.StatusSuccess
	}

	if doc.Message != nil {
		rec.Message = *doc.Message
	}

	switch {
	case doc.ProcessingTimeMS != nil:
		rec.ProcessingTimeMS = *doc.ProcessingTimeMS
	case doc.ScanTimeMS != nil:
		rec.ProcessingTimeMS = *doc.ScanTimeMS
	}

	if doc.CameraID != nil && *doc.CameraID != "" {
		rec.CameraID = *doc.CameraID
	} else {
		rec.CameraID = defaultCamera
	}

	if doc.IsHumanCorrected != nil {
		rec.IsHumanCorrected = *doc.IsHumanCorrected
	}

	return rec, nil
}
