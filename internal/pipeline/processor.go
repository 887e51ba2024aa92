package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mouldworks/mouldlens/internal/telemetry"
)

// Extractor reads cope/drag identifiers from image bytes.
type Extractor interface {
	Extract(ctx context.Context, imageBytes []byte, mimeType string) (telemetry.MouldReading, error)
}

// RecordStore persists outcome records and returns their store-assigned
// identifier. The store exclusively mints identifiers.
type RecordStore interface {
	Insert(ctx context.Context, rec telemetry.ReadingRecord) (string, error)
}

// Processor is the per-upload decision sequence. It holds no cross-request
// state; every upload is an independent pass through gate, extraction, and
// normalization.
type Processor struct {
	gate          func([]byte) bool
	extractor     Extractor
	store         RecordStore // nil when the store is unavailable
	defaultCamera string
	timeout       time.Duration
	logger        *zap.Logger
}

// NewProcessor wires the pipeline. A nil store degrades persistence to a
// logged no-op; responses are still returned without an identifier.
func NewProcessor(gate func([]byte) bool, extractor Extractor, store RecordStore, defaultCamera string, timeout time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		gate:          gate,
		extractor:     extractor,
		store:         store,
		defaultCamera: defaultCamera,
		timeout:       timeout,
		logger:        logger,
	}
}

// Process classifies one upload into a success/empty/error outcome. The
// record is always returned; persistence failures never fail the request.
func (p *Processor) Process(ctx context.Context, imageBytes []byte, mimeType, cameraID string) telemetry.ReadingRecord {
	start := time.Now()
	if cameraID == "" {
		cameraID = p.defaultCamera
	}

	if !p.gate(imageBytes) {
		rec := Normalize(false, telemetry.MouldReading{}, nil, elapsedMS(start), cameraID)
		p.persist(ctx, &rec)
		p.logger.Info("mould check failed",
			zap.String("camera_id", cameraID),
			zap.String("status", string(rec.Status)),
			zap.String("detail", "nothing detected by shape gate"),
			zap.Float64("processing_time_ms", rec.ProcessingTimeMS))
		return rec
	}

	extractCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	reading, err := p.extractor.Extract(extractCtx, imageBytes, mimeType)

	rec := Normalize(true, reading, err, elapsedMS(start), cameraID)
	p.persist(ctx, &rec)

	switch rec.Status {
	case telemetry.StatusError:
		p.logger.Error("extraction failed",
			zap.String("camera_id", cameraID),
			zap.String("status", string(rec.Status)),
			zap.String("mould_message", rec.Message),
			zap.Float64("processing_time_ms", rec.ProcessingTimeMS))
	case telemetry.StatusEmpty:
		p.logger.Info("mould check failed via model",
			zap.String("camera_id", cameraID),
			zap.String("status", string(rec.Status)),
			zap.String("detail", "model returned null, no digits found"),
			zap.Float64("processing_time_ms", rec.ProcessingTimeMS))
	default:
		p.logger.Info("extraction successful",
			zap.String("camera_id", cameraID),
			zap.String("status", string(rec.Status)),
			zap.Stringp("cope", rec.Cope),
			zap.Any("drag", rec.Drag),
			zap.Float64("processing_time_ms", rec.ProcessingTimeMS))
	}
	return rec
}

// persist writes the record best-effort. The failure branch is logged and
// explicitly ignored: an unrecorded reading is an accepted degraded mode, not
// a request failure. context.WithoutCancel keeps the write alive when the
// request deadline has already expired (an error outcome still gets stored).
func (p *Processor) persist(ctx context.Context, rec *telemetry.ReadingRecord) {
	if p.store == nil {
		return
	}
	id, err := p.store.Insert(context.WithoutCancel(ctx), *rec)
	if err != nil {
		p.logger.Error("failed to persist reading", zap.Error(err))
		return
	}
	rec.ID = id
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
