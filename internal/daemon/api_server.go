package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"camreview/internal/api"
	"camreview/internal/config"
	"camreview/internal/enrich"
	"camreview/internal/logging"
	"camreview/internal/mediaroot"
	"camreview/internal/services"
)

const (
	maxRequestBody      = 1 << 20
	defaultHistoryLimit = 50
	requestIDHeader     = "X-Request-ID"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		logger: logger,
		daemon: d,
	}

	token := cfg.Server.Token
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items", srv.requireToken(token, srv.handleItems))
	mux.HandleFunc("/api/library", srv.requireToken(token, srv.handleLibrary))
	mux.HandleFunc("/api/action", srv.requireToken(token, srv.handleAction))
	mux.HandleFunc("/api/undo", srv.requireToken(token, srv.handleUndo))
	mux.HandleFunc("/api/caption", srv.requireToken(token, srv.handleCaption))
	mux.HandleFunc("/api/caption/generate", srv.requireToken(token, srv.handleCaptionGenerate))
	mux.HandleFunc("/api/detect-critters", srv.requireToken(token, srv.handleDetect))
	mux.HandleFunc("/api/detect-critters/batch-delete", srv.requireToken(token, srv.handleBatchStart))
	mux.HandleFunc("/api/detect-critters/batch-delete/status", srv.requireToken(token, srv.handleBatchStatus))
	mux.HandleFunc("/api/transcode", srv.requireToken(token, srv.handleTranscode))
	mux.HandleFunc("/api/preview-frames", srv.requireToken(token, srv.handlePreviewFrames))
	mux.HandleFunc("/api/status", srv.requireToken(token, srv.handleStatus))
	mux.HandleFunc("/api/history", srv.requireToken(token, srv.handleHistory))
	mux.HandleFunc("/media", srv.handleMedia)
	mux.HandleFunc("/preview", srv.handlePreview)

	srv.handler = srv.withRequestID(mux)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// no write timeout: transcodes and video streams outlast any fixed bound
		IdleTimeout: 60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
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
	if s == nil {
		return
	}
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

// Addr returns the bound listener address, or "" before start.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	entries, counts, err := s.daemon.Items(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemsResponse{
		OK:     true,
		Items:  api.FromEntries(entries),
		Counts: api.FromCounts(counts),
	})
}

func (s *apiServer) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	entries, counts, err := s.daemon.Library(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LibraryResponse{
		OK:     true,
		Items:  api.FromEntries(entries),
		Counts: api.FromCounts(counts),
	})
}

func (s *apiServer) handleAction(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	key, ok := s.cleanKey(w, r, req.Path)
	if !ok {
		return
	}
	res, err := s.daemon.Apply(r.Context(), key, strings.TrimSpace(req.Action))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromActionResult(res))
}

func (s *apiServer) handleUndo(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	res, err := s.daemon.Undo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UndoResponse{OK: res.OK, Path: res.Path})
}

func (s *apiServer) handleCaption(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.CaptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	key, ok := s.cleanKey(w, r, req.Path)
	if !ok {
		return
	}
	rec, err := s.daemon.SetCaption(r.Context(), key, req.Caption)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CaptionResponse{OK: true, Path: rec.Path, Caption: rec.Caption})
}

func (s *apiServer) handleCaptionGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.PathRequest
	if !s.decode(w, r, &req) {
		return
	}
	key, ok := s.cleanKey(w, r, req.Path)
	if !ok {
		return
	}
	caption, model, err := s.daemon.GenerateCaption(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CaptionResponse{OK: true, Path: key, Caption: caption, Model: model})
}

func (s *apiServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.DetectRequest
	if !s.decode(w, r, &req) {
		return
	}
	key, ok := s.cleanKey(w, r, req.Path)
	if !ok {
		return
	}
	res, err := s.daemon.Detect(r.Context(), key, req.Force)
	if err != nil {
		if res.Path == "" {
			s.fail(w, r, err)
			return
		}
		// a recorded failure still reports what was stored
		dto := api.FromDetectResult(res)
		dto.OK = false
		dto.Error = services.Code(err)
		s.logFailure(r, err)
		s.writeJSON(w, statusForError(err), dto)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromDetectResult(res))
}

func (s *apiServer) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.daemon.StartBatch(enrich.ParseScope(strings.TrimSpace(req.Scope)))
	if err != nil {
		if errors.Is(err, services.ErrAlreadyRunning) {
			s.writeJSON(w, http.StatusConflict, api.BatchResponse{OK: false, Error: services.Code(err), Job: api.FromJob(job)})
			return
		}
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BatchResponse{OK: true, Job: api.FromJob(job)})
}

func (s *apiServer) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	job, ok := s.daemon.BatchStatus()
	if !ok {
		s.writeJSON(w, http.StatusOK, api.BatchResponse{OK: true, Status: "idle"})
		return
	}
	s.writeJSON(w, http.StatusOK, api.BatchResponse{OK: true, Job: api.FromJob(job)})
}

func (s *apiServer) handleTranscode(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.PathRequest
	if !s.decode(w, r, &req) {
		return
	}
	key, ok := s.cleanKey(w, r, req.Path)
	if !ok {
		return
	}
	out, err := s.daemon.Artifacts().Transcode(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TranscodeResponse{OK: true, Status: "ready", Path: out})
}

func (s *apiServer) handlePreviewFrames(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	query := r.URL.Query()
	key, ok := s.cleanKey(w, r, query.Get("path"))
	if !ok {
		return
	}
	generate := query.Get("generate") == "1" || strings.EqualFold(query.Get("generate"), "true")
	frames, err := s.daemon.Artifacts().PreviewFrames(r.Context(), key, generate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PreviewFramesResponse{OK: true, Frames: frames})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	status := s.daemon.Status()
	payload := api.StatusResponse{
		OK:             true,
		MediaRoot:      status.MediaRoot,
		LedgerPath:     status.LedgerPath,
		SessionDate:    status.SessionDate,
		UndoDepth:      status.UndoDepth,
		PendingJobs:    status.PendingJobs,
		LLM:            api.LLMStatus{Configured: status.LLMReady, Model: status.LLMModel},
		Dependencies:   api.FromDependencies(status.Dependencies),
		JournalEnabled: status.Journal,
	}
	if status.Batch != nil {
		payload.Batch = api.FromJob(*status.Batch)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := s.daemon.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{OK: true, Entries: api.FromJournal(entries)})
}

func (s *apiServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	key, ok := s.cleanKey(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	s.serveFile(w, r, key)
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	key, ok := s.cleanKey(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	preview, err := s.daemon.Artifacts().Preview(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.serveFile(w, r, preview)
}

// serveFile streams key with range support.
func (s *apiServer) serveFile(w http.ResponseWriter, r *http.Request, key string) {
	full, err := s.daemon.Root().Resolve(key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	file, err := os.Open(full)
	if err != nil {
		s.fail(w, r, services.Wrap(services.ErrNotFound, "api", "serve", fmt.Sprintf("%s not found", key), err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		s.fail(w, r, services.Wrap(services.ErrNotFound, "api", "serve", fmt.Sprintf("%s is not a file", key), err))
		return
	}
	w.Header().Set("Content-Type", mediaroot.ContentType(path.Ext(key)))
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (s *apiServer) allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, method := range methods {
		if r.Method == method {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	return false
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

func (s *apiServer) cleanKey(w http.ResponseWriter, r *http.Request, raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		s.writeError(w, http.StatusBadRequest, "missing_path", "")
		return "", false
	}
	key, err := s.daemon.Root().Clean(raw)
	if err != nil {
		s.fail(w, r, err)
		return "", false
	}
	return key, true
}

// fail writes err as {ok:false, error:<code>} with a matching status.
func (s *apiServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logFailure(r, err)
	status := statusForError(err)
	message := ""
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	s.writeError(w, status, services.Code(err), message)
}

func (s *apiServer) logFailure(r *http.Request, err error) {
	logger := logging.WithContext(r.Context(), s.log())
	if statusForError(err) >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.String("route", r.URL.Path),
			logging.String("code", services.Code(err)),
			logging.Error(err))
		return
	}
	logger.Debug("request rejected",
		logging.String("route", r.URL.Path),
		logging.String("code", services.Code(err)),
		logging.Error(err))
}

// statusForError maps error markers to HTTP status codes.
func statusForError(err error) int {
	code := services.Code(err)
	switch {
	case strings.HasPrefix(code, "openrouter_"), code == "parse_error":
		return http.StatusBadGateway
	case errors.Is(err, services.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidPath),
		errors.Is(err, services.ErrMissingCredentials):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, api.ErrorResponse{OK: false, Error: code, Message: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
