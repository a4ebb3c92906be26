package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"contact-splitter/internal/config"
	"contact-splitter/internal/metrics"
	"contact-splitter/internal/models"
	"contact-splitter/internal/processor"
	"contact-splitter/internal/splitter"
	"contact-splitter/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	fieldFile          = "file"
	fieldNumbers       = "numeros_remover"
	fieldContactColumn = "coluna_contato"
	fieldMaxRows       = "max_linhas_por_planilha"
	shutdownTimeout    = 10 * time.Second
)

type Server struct {
	cfg       *config.Config
	splitter  *splitter.Splitter
	workspace *storage.Workspace
	metrics   *metrics.Metrics
	tmpl      *template.Template
}

type formView struct {
	Message       string
	Allowed       string
	ContactColumn string
	Numbers       string
	MaxRows       string
}

type downloadView struct {
	RunID string
	Files []string
}

func NewServer(cfg *config.Config, sp *splitter.Splitter, ws *storage.Workspace, m *metrics.Metrics) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{cfg: cfg, splitter: sp, workspace: ws, metrics: m, tmpl: tmpl}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleUpload)
	r.Get("/download/{runID}", s.handleList)
	r.Get("/download/{runID}/{filename}", s.handleDownload)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderForm(w, http.StatusOK, formView{
		ContactColumn: s.cfg.Defaults.ContactColumn,
		MaxRows:       strconv.Itoa(s.cfg.Defaults.MaxRows),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadMB << 20); err != nil {
		log.Warn().Err(err).Msg("Failed to parse upload form")
		s.renderForm(w, http.StatusBadRequest, formView{Message: models.MsgNoFile})
		return
	}
	view := formView{
		ContactColumn: r.FormValue(fieldContactColumn),
		Numbers:       r.FormValue(fieldNumbers),
		MaxRows:       r.FormValue(fieldMaxRows),
	}

	file, header, err := r.FormFile(fieldFile)
	if err != nil || header.Filename == "" {
		view.Message = models.MsgNoFile
		s.renderForm(w, http.StatusBadRequest, view)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(models.AllowedExtensions, ext) {
		view.Message = fmt.Sprintf("please upload a file in one of the allowed formats: %s", strings.Join(models.AllowedExtensions, ", "))
		s.renderForm(w, http.StatusBadRequest, view)
		return
	}

	maxRows, err := processor.ParseMaxRows(view.MaxRows)
	if err != nil {
		view.Message = models.UserMessage(err)
		s.renderForm(w, http.StatusBadRequest, view)
		return
	}

	path, err := s.workspace.SaveUpload(file, ext)
	if err != nil {
		s.fail(w, view, err)
		return
	}
	defer s.workspace.RemoveUpload(path)

	runID, err := s.workspace.NewRun()
	if err != nil {
		s.fail(w, view, err)
		return
	}

	_, err = s.splitter.Split(r.Context(), splitter.Request{
		RunID:         runID,
		FilePath:      path,
		SourceName:    header.Filename,
		ContactColumn: view.ContactColumn,
		Numbers:       processor.ParseNumbers(view.Numbers),
		MaxRows:       maxRows,
	})
	if err != nil {
		s.fail(w, view, err)
		return
	}

	http.Redirect(w, r, "/download/"+runID, http.StatusSeeOther)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	files, err := s.workspace.List(runID)
	if err != nil {
		s.notFoundOrError(w, err)
		return
	}
	s.render(w, http.StatusOK, "download.html", downloadView{RunID: runID, Files: files})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.workspace.Path(chi.URLParam(r, "runID"), name)
	if err != nil {
		s.notFoundOrError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// fail shows validation problems on the form and hides everything else.
func (s *Server) fail(w http.ResponseWriter, view formView, err error) {
	view.Message = models.UserMessage(err)
	if models.IsValidationError(err) {
		s.renderForm(w, http.StatusBadRequest, view)
		return
	}
	log.Error().Err(err).Msg("Split failed")
	s.renderForm(w, http.StatusInternalServerError, view)
}

func (s *Server) notFoundOrError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	log.Error().Err(err).Msg("Failed to read outputs")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) renderForm(w http.ResponseWriter, status int, view formView) {
	view.Allowed = strings.Join(models.AllowedExtensions, ", ")
	s.render(w, status, "index.html", view)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	})
}
