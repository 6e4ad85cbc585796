package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	revbrief "github.com/alnah/go-revbrief"
	"github.com/alnah/go-revbrief/internal/config"
)

// HTTP server timeouts. Writes get the export timeout on top.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// exportRequest is the body of POST /v1/briefs/export.
type exportRequest struct {
	Text        string   `json:"text"`
	Title       string   `json:"title,omitempty"`
	PageSize    string   `json:"pageSize,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	Margin      *float64 `json:"margin,omitempty"`
}

// briefServer serves exports over HTTP. Each request borrows one exporter
// from the pool for its whole duration.
type briefServer struct {
	pool    Pool
	page    config.PageConfig
	maxBody int64
	logger  *slog.Logger
}

// runServe starts the HTTP server and blocks until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.workers > 0 {
		cfg.Export.Workers = flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(env.Stderr, flags.common, slog.LevelInfo)
	pool := env.NewPool(revbrief.ResolvePoolSize(cfg.Export.Workers), exporterOptions(cfg, logger)...)
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Warn("closing exporter pool", "error", cerr)
		}
	}()

	s := &briefServer{
		pool:    pool,
		page:    cfg.Page,
		maxBody: cfg.Server.MaxBodyBytes,
		logger:  logger,
	}

	exportTimeout := cfg.ExportTimeout()
	if exportTimeout <= 0 {
		exportTimeout = 30 * time.Second
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      exportTimeout + readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "workers", pool.Size())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// routes builds the chi router.
func (s *briefServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/briefs", func(r chi.Router) {
		r.Post("/export", s.handleExport)
		r.Post("/normalize", s.handleNormalize)
	})
	return r
}

// logRequests logs one line per request through slog.
func (s *briefServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleExport renders the posted brief and returns the PDF as an attachment.
// POST /v1/briefs/export
func (s *briefServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(s.limitBody(w, r)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	page := &revbrief.PageSettings{
		Size:        s.page.Size,
		Orientation: s.page.Orientation,
		Margin:      s.page.Margin,
	}
	if req.PageSize != "" {
		page.Size = req.PageSize
	}
	if req.Orientation != "" {
		page.Orientation = req.Orientation
	}
	if req.Margin != nil {
		page.Margin = *req.Margin
	}

	exp, err := s.pool.Acquire()
	if err != nil {
		s.logger.Error("acquiring exporter", "error", err)
		writeError(w, http.StatusServiceUnavailable, errors.New(statusFailure))
		return
	}
	defer s.pool.Release(exp)

	res, err := exp.Export(r.Context(), revbrief.Input{
		Text:  req.Text,
		Title: req.Title,
		Page:  page,
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("export failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		}
		writeError(w, status, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": res.Document.Name})
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Document.PDF)))
	w.Header().Set("X-Page-Count", strconv.Itoa(len(res.Document.Pages)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Document.PDF)
}

// handleNormalize returns the normalized markup for a plain-text body.
// POST /v1/briefs/normalize
func (s *briefServer) handleNormalize(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(s.limitBody(w, r))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, revbrief.Normalize(string(raw)))
}

func (s *briefServer) limitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	if s.maxBody <= 0 {
		return r.Body
	}
	return http.MaxBytesReader(w, r.Body, s.maxBody)
}

// statusForError maps export errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, revbrief.ErrEmptyText),
		errors.Is(err, revbrief.ErrInvalidPageSize),
		errors.Is(err, revbrief.ErrInvalidOrientation),
		errors.Is(err, revbrief.ErrInvalidMargin):
		return http.StatusBadRequest
	case errors.Is(err, revbrief.ErrPreconditionViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, revbrief.ErrRenderContextUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError replies with {"error": "..."}, the shape the brief API uses.
func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
