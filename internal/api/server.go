// Package api exposes the HTTP surface: recording upload and status,
// transcript retrieval, health and metrics.
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/isaevxxi/DocTalk/internal/errs"
	"github.com/isaevxxi/DocTalk/internal/metrics"
	"github.com/isaevxxi/DocTalk/internal/pipeline"
	"github.com/isaevxxi/DocTalk/internal/worker"
)

// maxUploadBytes caps a single upload at 500MB; a multi-hour consultation
// WAV stays well under this.
const maxUploadBytes = 500 << 20

type Server struct {
	worker      *worker.Worker
	recordings  worker.RecordingStore
	transcripts pipeline.TranscriptStore
	metrics     *metrics.Metrics
}

func NewServer(w *worker.Worker, recordings worker.RecordingStore, transcripts pipeline.TranscriptStore, m *metrics.Metrics) *Server {
	return &Server{
		worker:      w,
		recordings:  recordings,
		transcripts: transcripts,
		metrics:     m,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1/recordings", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/{id}", s.handleStatus)
		r.Get("/{id}/transcript", s.handleTranscript)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	rec, err := s.worker.Submit(r.Context(), header.Filename, data)
	if err != nil {
		if errs.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("Upload failed")
		writeError(w, http.StatusInternalServerError, "failed to accept recording")
		return
	}

	writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recordings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.recordings.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	if rec.Status == worker.StatusUploaded || rec.Status == worker.StatusProcessing {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": rec.Status})
		return
	}

	t, err := s.transcripts.Load(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
