package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"weekcal/internal/calsync"
	"weekcal/internal/config"
	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/session"
	"weekcal/internal/shared"
)

//go:embed templates/*.html
var templates embed.FS

// Remote is what the server needs from the service beyond the sync
// controller: share links and token-scoped views.
type Remote interface {
	shared.Remote
	ShareLink(ctx context.Context, token string) (string, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Sync    *calsync.Controller
	Remote  Remote
	Session *session.Session
}

// Server serves the week page, the shared view and a small JSON API over
// the owned calendar.
type Server struct {
	cfg    *config.Config
	debug  bool
	router *chi.Mux
	deps   Deps
	loc    *time.Location
	grid   layout.Grid
	pages  *template.Template
	now    func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps, debug bool) (*Server, error) {
	if deps.Sync == nil || deps.Remote == nil || deps.Session == nil {
		return nil, errors.New("web: sync controller, remote and session are required")
	}
	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using local", "timezone", cfg.Timezone)
	}
	pages, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		debug:  debug,
		router: chi.NewRouter(),
		deps:   deps,
		loc:    loc,
		grid:   layout.Grid{PxPerHour: cfg.PxPerHour, Gap: cfg.GapPx, Location: loc},
		pages:  pages,
		now:    time.Now,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the router, behind basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every route except /health and the shared
// view, whose token is its own credential.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := shared.ParseSharePath(r.URL.Path); ok {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Get("/calendar", s.handleCalendarPage)
	r.Get("/calendar.ics", s.handleICS)
	r.Get("/preview.png", s.handlePreview)

	r.Get("/calendar/view/{token}", s.handleSharedPage)
	r.Post("/calendar/view/{token}/twin", s.handleTwin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/week", s.handleWeek)
		r.Post("/events", s.handleCreateEvent)
		r.Delete("/events/{id}", s.handleDeleteEvent)
		r.Post("/resync", s.handleResync)
		r.Post("/share/link", s.handleShareLink)
		r.Get("/share/{token}/week", s.handleSharedWeek)
	})
}

// requestLogger logs each request through the app logger. Share tokens in
// paths are not logged.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		appLog.Debug("http request",
			"method", r.Method,
			"path", redactPath(r.URL.Path),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// redactPath hides share tokens.
func redactPath(p string) string {
	for _, prefix := range []string{"/calendar/view/", "/api/share/"} {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "link" {
			continue
		}
		if _, tail, found := strings.Cut(rest, "/"); found {
			return prefix + "(redacted)/" + tail
		}
		return prefix + "(redacted)"
	}
	return p
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, s.cfg.Capture.Output)
}
