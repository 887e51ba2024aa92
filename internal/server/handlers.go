// Package server exposes the upload, dashboard query, and correction
// endpoints over net/http. Handlers translate between HTTP and the pipeline;
// they hold no pipeline logic of their own.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mouldworks/mouldlens/internal/store"
	"github.com/mouldworks/mouldlens/internal/telemetry"
)

// maxUploadBytes bounds one camera frame upload.
const maxUploadBytes = 32 << 20

// Processor classifies one upload into an outcome record.
type Processor interface {
	Process(ctx context.Context, imageBytes []byte, mimeType, cameraID string) telemetry.ReadingRecord
}

// TelemetryStore is the slice of the store the HTTP surface needs.
type TelemetryStore interface {
	Query(ctx context.Context, filter store.QueryFilter) ([]telemetry.ReadingRecord, error)
	ApplyCorrection(ctx context.Context, id string, patch telemetry.CorrectionPatch) (bool, error)
}

// Handler carries the dependencies for all routes. A nil store means the
// database was unreachable at startup: uploads still work (persistence
// degrades to no-op) while query and correction report unavailability.
type Handler struct {
	processor Processor
	store     TelemetryStore
	logger    *zap.Logger
}

// NewHandler builds the route handler set.
func NewHandler(processor Processor, telemetryStore TelemetryStore, logger *zap.Logger) *Handler {
	return &Handler{processor: processor, store: telemetryStore, logger: logger}
}

// Routes assembles the service mux with CORS applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", h.handleUpload)
	mux.HandleFunc("GET /api/metrics/recent", h.handleRecent)
	mux.HandleFunc("PUT /api/metrics/update/{id}", h.handleUpdate)
	mux.HandleFunc("GET /health", h.handleHealth)
	return corsMiddleware(mux)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload an image.")
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	rec := h.processor.Process(r.Context(), imageBytes, contentType, r.FormValue("camera_id"))
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Database connection unavailable")
		return
	}

	q := r.URL.Query()
	var filter store.QueryFilter

	startStr, endStr := q.Get("start_date"), q.Get("end_date")
	if startStr != "" && endStr != "" {
		start, err1 := time.Parse("2006-01-02", startStr)
		end, err2 := time.Parse("2006-01-02", endStr)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format. Use ISO format (YYYY-MM-DD)")
			return
		}
		filter.Start, filter.End = start, end
	} else if hoursStr := q.Get("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid hours parameter")
			return
		}
		filter.Hours = hours
	}

	records, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("metrics query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to query telemetry")
		return
	}
	if records == nil {
		records = []telemetry.ReadingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Database connection unavailable")
		return
	}

	id := r.PathValue("id")

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var patch telemetry.CorrectionPatch
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid correction body: "+err.Error())
		return
	}

	changed, err := h.store.ApplyCorrection(r.Context(), id, patch)
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid record id")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Record not found or no changes made")
		return
	case err != nil:
		h.logger.Error("correction failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update record")
		return
	}

	if !changed {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "No changes requested"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Record updated successfully"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "mouldlens"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits {"detail": ...}, the envelope the dashboard and the
// camera uploaders already consume.
func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
