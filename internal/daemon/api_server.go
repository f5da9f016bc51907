package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"voiceforge/internal/config"
	"voiceforge/internal/jobs"
	"voiceforge/internal/logging"
	"voiceforge/internal/services"
)

const maxUploadBytes = 64 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", srv.handleGenerate)
	mux.HandleFunc("/api/status/", srv.handleStatus)
	mux.HandleFunc("/api/download/", srv.handleDownload)
	mux.HandleFunc("/api/transcribe", srv.handleTranscribe)
	mux.HandleFunc("/api/transcripts", srv.handleTranscriptList)
	mux.HandleFunc("/api/transcripts/", srv.handleTranscript)
	mux.HandleFunc("/api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type jobResponse struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	Message         string  `json:"message,omitempty"`
	Error           string  `json:"error,omitempty"`
	DownloadURL     string  `json:"download_url,omitempty"`
	TranscriptID    string  `json:"transcript_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func jobView(job *jobs.Job) jobResponse {
	return jobResponse{
		ID:              job.ID,
		Kind:            string(job.Kind),
		Status:          string(job.Status),
		Progress:        job.Progress,
		Message:         job.Message,
		Error:           job.Error,
		DownloadURL:     job.DownloadURL,
		TranscriptID:    job.TranscriptID,
		DurationSeconds: job.DurationSeconds,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	srtData, configJSON, _, err := readUpload(r, "config")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := s.daemon.coordinator.SubmitGeneration(r.Context(), srtData, configJSON)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r.URL.Path, "/api/status/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.daemon.store.Get(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobView(job))
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r.URL.Path, "/api/download/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.daemon.store.Get(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if job.Status != jobs.StatusCompleted || job.OutputPath == "" {
		s.writeError(w, http.StatusNotFound, "job output not available")
		return
	}
	if strings.EqualFold(filepath.Ext(job.OutputPath), ".mp3") {
		w.Header().Set("Content-Type", "audio/mpeg")
	} else {
		w.Header().Set("Content-Type", "audio/wav")
	}
	http.ServeFile(w, r, job.OutputPath)
}

func (s *apiServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	audioData, providerJSON, filename, err := readUpload(r, "provider")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, srtText, err := s.daemon.coordinator.Transcribe(r.Context(), audioData, filename, providerJSON)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"transcript_id": meta.ID,
		"srt":           srtText,
		"metadata":      meta,
	})
}

func (s *apiServer) handleTranscriptList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metas, err := s.daemon.transcripts.List()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transcripts": metas})
}

func (s *apiServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	rest := pathSuffix(r.URL.Path, "/api/transcripts/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "transcript not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		meta, err := s.daemon.transcripts.LoadMetadata(id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, meta)
	case action == "download" && r.Method == http.MethodGet:
		srtText, err := s.daemon.transcripts.LoadSRT(id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-subrip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".srt"))
		_, _ = io.WriteString(w, srtText)
	case action == "generate" && r.Method == http.MethodPost:
		configJSON, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
			return
		}
		jobID, err := s.daemon.coordinator.SubmitGenerationFromTranscript(r.Context(), id, configJSON)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

// readUpload extracts the uploaded file plus an optional JSON sidecar, which
// may arrive as a form value or as a second file part.
func readUpload(r *http.Request, jsonField string) (data []byte, sidecar []byte, filename string, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, "", fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, "", errors.New("multipart field 'file' is required")
	}
	defer file.Close()
	data, err = io.ReadAll(file)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read upload: %w", err)
	}

	if value := r.FormValue(jsonField); value != "" {
		sidecar = []byte(value)
	} else if sidecarFile, _, ferr := r.FormFile(jsonField); ferr == nil {
		defer sidecarFile.Close()
		sidecar, err = io.ReadAll(sidecarFile)
		if err != nil {
			return nil, nil, "", fmt.Errorf("read %s part: %w", jsonField, err)
		}
	}
	return data, sidecar, header.Filename, nil
}

func pathSuffix(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

// writeFailure maps the error taxonomy onto HTTP statuses: validation
// problems are the caller's fault, missing resources are 404, everything else
// is a server error.
func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(slog.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
