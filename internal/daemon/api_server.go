package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"photomaton/internal/api"
	"photomaton/internal/config"
	"photomaton/internal/export"
	"photomaton/internal/logging"
	"photomaton/internal/photo"
	"photomaton/internal/services"
	"photomaton/internal/transform"
)

type apiServer struct {
	bind      string
	token     string
	maxUpload int64
	logger    *slog.Logger
	daemon    *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}

	srv := &apiServer{
		bind:      bind,
		token:     cfg.Paths.APIToken,
		maxUpload: cfg.MaxUploadBytes(),
		logger:    logger,
		daemon:    d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.auth(srv.handleStatus))
	mux.HandleFunc("/api/photos", srv.auth(srv.handlePhotos))
	mux.HandleFunc("/api/photos/", srv.auth(srv.handlePhoto))
	mux.HandleFunc("/api/jobs", srv.auth(srv.handleJobs))
	mux.HandleFunc("/api/jobs/", srv.auth(srv.handleJob))
	mux.HandleFunc("/api/presets", srv.auth(srv.handlePresets))
	mux.HandleFunc("/api/presets/import", srv.auth(srv.handlePresetImport))
	mux.HandleFunc("/api/export", srv.auth(srv.handleExport))
	mux.HandleFunc("/api/export/estimate", srv.auth(srv.handleExportEstimate))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Long enough to stream a sizable export archive.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
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

// auth validates bearer tokens. An empty configured token disables
// authentication entirely.
func (s *apiServer) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	counts := make(map[string]int, len(status.PhotoCounts))
	for st, n := range status.PhotoCounts {
		counts[string(st)] = n
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		DatabasePath:    status.DatabasePath,
		LockFilePath:    status.LockFilePath,
		QueueDepth:      status.QueueDepth,
		PhotoCounts:     counts,
		Providers:       status.Providers,
		CurrentProvider: status.CurrentProvider,
		Storage: api.StorageStats{
			Photos:       status.Storage.Photos,
			Files:        status.Storage.Files,
			Bytes:        status.Storage.Bytes,
			TrashEntries: status.Storage.TrashEntries,
			FreeBytes:    status.Storage.FreeBytes,
		},
	})
}

func (s *apiServer) handlePhotos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPhotos(w, r)
	case http.MethodPost:
		s.uploadPhoto(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listPhotos(w http.ResponseWriter, r *http.Request) {
	filter, err := photoFilterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	photos, err := s.daemon.ListPhotos(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PhotoListResponse{Photos: api.FromPhotos(photos)})
}

func (s *apiServer) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "upload requires a file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	p, err := s.daemon.UploadPhoto(r.Context(), data, r.FormValue("owner_id"), r.FormValue("preset"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.UploadResponse{Photo: api.FromPhoto(p)})
}

// handlePhoto routes /api/photos/{id}, /api/photos/{id}/file, and
// /api/photos/{id}/transform.
func (s *apiServer) handlePhoto(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/photos/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			p, err := s.daemon.GetPhoto(r.Context(), id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, api.PhotoResponse{Photo: api.FromPhoto(p)})
		case http.MethodDelete:
			if err := s.daemon.DeletePhoto(r.Context(), id); err != nil {
				s.writeServiceError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "file":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		variant := r.URL.Query().Get("variant")
		if variant == "" {
			variant = "original"
		}
		path, err := s.daemon.PhotoFile(r.Context(), id, variant)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		http.ServeFile(w, r, path)
	case "transform":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req api.TransformRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
				return
			}
		}
		result, err := s.daemon.Transform(r.Context(), id, req.Preset, req.Provider)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		status := http.StatusAccepted
		if result.AlreadyCompleted {
			status = http.StatusOK
		}
		s.writeJSON(w, status, api.TransformResponse{
			JobID:            result.JobID,
			AlreadyCompleted: result.AlreadyCompleted,
			TransformedPath:  result.TransformedPath,
		})
	default:
		s.writeError(w, http.StatusNotFound, "unknown photo action")
	}
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(s.daemon.Jobs())})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, ok := s.daemon.Job(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	enabledOnly := r.URL.Query().Get("enabled") == "1" || strings.EqualFold(r.URL.Query().Get("enabled"), "true")
	presets, err := s.daemon.Presets(r.Context(), enabledOnly)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PresetListResponse{Presets: api.FromPresets(presets)})
}

func (s *apiServer) handlePresetImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := s.daemon.ImportPresets(r.Context(), r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.PresetImportResponse{
		Inserted: summary.Inserted,
		Updated:  summary.Updated,
	})
}

func (s *apiServer) handleExportEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter, err := exportFilterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	estimate, err := s.daemon.EstimateExport(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ExportEstimateResponse{
		Count:      estimate.Count,
		TotalBytes: estimate.TotalBytes,
	})
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter, err := exportFilterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The estimate doubles as the empty-filter check before any archive
	// bytes hit the wire.
	estimate, err := s.daemon.EstimateExport(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.zip", s.daemon.cfg.Export.FilenamePrefix, time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Export-Count", strconv.Itoa(estimate.Count))
	w.Header().Set("X-Export-Bytes", strconv.FormatInt(estimate.TotalBytes, 10))
	if _, err := s.daemon.WriteExport(r.Context(), filter, w); err != nil {
		// Headers are already sent; all we can do is log and drop the
		// connection mid-stream.
		s.log().Error("export stream failed", logging.Error(err))
	}
}

func photoFilterFromQuery(r *http.Request) (photo.Filter, error) {
	query := r.URL.Query()
	filter := photo.Filter{
		OwnerID: strings.TrimSpace(query.Get("owner")),
		Preset:  strings.TrimSpace(query.Get("preset")),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := photo.ParseStatus(raw)
		if !ok {
			return photo.Filter{}, fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = status
	}
	var err error
	if filter.From, err = parseTimeParam(query.Get("from")); err != nil {
		return photo.Filter{}, err
	}
	if filter.To, err = parseTimeParam(query.Get("to")); err != nil {
		return photo.Filter{}, err
	}
	return filter, nil
}

func exportFilterFromQuery(r *http.Request) (export.Filter, error) {
	query := r.URL.Query()
	filter := export.Filter{
		OwnerID:          strings.TrimSpace(query.Get("owner")),
		Preset:           strings.TrimSpace(query.Get("preset")),
		IncludeOriginals: query.Get("originals") == "1" || strings.EqualFold(query.Get("originals"), "true"),
	}
	var err error
	if filter.From, err = parseTimeParam(query.Get("from")); err != nil {
		return export.Filter{}, err
	}
	if filter.To, err = parseTimeParam(query.Get("to")); err != nil {
		return export.Filter{}, err
	}
	return filter, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, want RFC3339", raw)
	}
	return t, nil
}

// writeServiceError maps classified service errors onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPhotoNotFound), errors.Is(err, services.ErrFileNotFound),
		errors.Is(err, services.ErrNoPhotos), errors.Is(err, services.ErrProviderNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, transform.ErrPhotoBusy):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrProviderConfigInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrStorage):
		// Upload validation failures (bad format, size cap) also carry the
		// storage marker; they are the caller's fault.
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
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
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
