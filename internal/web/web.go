// Package web exposes the derived widget view over HTTP: a JSON API for
// the rendering layer plus a small embedded page that draws the widget.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"calwidget/internal/config"
	appLog "calwidget/internal/log"
	"calwidget/internal/view"
)

//go:embed static
var embeddedStatic embed.FS

// Server serves the widget page and the view/events APIs.
type Server struct {
	cfg  *config.Config
	ctrl *view.Controller
	mux  *http.ServeMux
}

// NewServer constructs a Server around the given controller.
func NewServer(cfg *config.Config, ctrl *view.Controller) *Server {
	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server, wrapped with basic
// auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/view", s.handleView)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// viewResponse is the per-frame payload the rendering layer consumes: the
// derived snapshot plus the card geometry from config.
type viewResponse struct {
	view.Snapshot
	CardHeight    int `json:"card_height"`
	CardMargin    int `json:"card_margin"`
	ColumnPadding int `json:"column_padding"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Snapshot:      s.ctrl.Snapshot(),
		CardHeight:    s.cfg.CardHeight,
		CardMargin:    s.cfg.CardMargin,
		ColumnPadding: s.cfg.ColumnPadding,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Events())
}

// handleRefresh forces an immediate re-fetch, outside the regular slow
// tick. Failures keep the previous snapshot, same as a scheduled refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if err := s.ctrl.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed; previous data retained")
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		// Embed is build-time; a missing subdir cannot happen in a built
		// binary, but fail closed anyway.
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusInternalServerError, "static assets unavailable")
		})
	}
	return http.FileServer(http.FS(sub))
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="CalWidget", charset="UTF-8"`)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("json encode failed", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, ctrl *view.Controller) error {
	s := NewServer(cfg, ctrl)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
