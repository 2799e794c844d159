package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mindmesh/mindmesh/pkg/analysis"
	"github.com/mindmesh/mindmesh/pkg/concept"
)

// GraphReader is the slice of the knowledge facade the handlers use.
type GraphReader interface {
	FindConcept(term string) (uint64, bool)
	Query(term string) (uint64, bool)
	Stats(id uint64) (concept.Stats, bool)
	ConceptCount() int
}

// Ingester runs a document through the analysis front-end.
type Ingester interface {
	IngestDocument(ctx context.Context, text string) (analysis.Report, error)
}

// Handlers holds the introspection endpoints' dependencies.
type Handlers struct {
	Graph    GraphReader
	Analyzer Ingester
	Events   *EventStream
	Metrics  HTTPMetricsRecorder
}

// maxIngestBody bounds POST /v1/ingest payloads.
const maxIngestBody = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"concepts": h.Graph.ConceptCount(),
	})
}

// FindConcept handles GET /v1/concepts?term=... without side effects.
func (h *Handlers) FindConcept(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		writeError(w, http.StatusBadRequest, "term query parameter is required")
		return
	}

	id, ok := h.Graph.FindConcept(term)
	if !ok {
		writeError(w, http.StatusNotFound, "concept not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "term": term})
}

// ConceptStats handles GET /v1/concepts/{id}/stats.
func (h *Handlers) ConceptStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid concept id")
		return
	}

	stats, ok := h.Graph.Stats(id)
	if !ok {
		writeError(w, http.StatusNotFound, "concept not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type queryRequest struct {
	Term string `json:"term"`
}

// Query handles POST /v1/query: a lookup that also activates the concept.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Term == "" {
		writeError(w, http.StatusBadRequest, "request body must be {\"term\": ...}")
		return
	}

	id, ok := h.Graph.Query(req.Term)
	if !ok {
		writeError(w, http.StatusNotFound, "concept not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "term": req.Term})
}

// Ingest handles POST /v1/ingest: the raw body is analyzed as one document.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body is empty")
		return
	}

	report, err := h.Analyzer.IngestDocument(r.Context(), string(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	writeJSON(w, http.StatusAccepted, report)
}
