package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"time"

	"chronoview/internal/config"
	appLog "chronoview/internal/log"
	"chronoview/internal/model"
	"chronoview/internal/timeline"
)

// EventSource supplies the raw events for a render pass.
type EventSource interface {
	Events() []model.RawEvent
}

// Server serves the timeline page and the render API.
type Server struct {
	cfg      *config.Config
	renderer *timeline.Renderer
	events   EventSource
	log      *appLog.Logger
	mux      *http.ServeMux

	// OnRendered, if set, is called after a pass has been written to the
	// client. It must not block.
	OnRendered func(pass timeline.Pass)
}

// embeddedStatic holds the timeline page.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, renderer *timeline.Renderer, events EventSource, logger *appLog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		renderer: renderer,
		events:   events,
		log:      logger,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		s.log.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="chronoview", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/timeline", s.handleTimeline)
	s.mux.HandleFunc("/timeline", s.handleTimelinePage)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/timeline", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleTimelinePage serves the embedded vis-timeline page. Query
// parameters are passed through to /api/timeline by the page itself.
func (s *Server) handleTimelinePage(w http.ResponseWriter, r *http.Request) {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		s.log.Error("failed to initialize embedded static filesystem", err)
		http.Error(w, "timeline page not available", http.StatusServiceUnavailable)
		return
	}
	http.ServeFileFS(w, r, sub, "index.html")
}

// handleTimeline runs one render pass.
//
// GET /api/timeline?start=&end=&min=&max=
//   - all values are Unix milliseconds
//   - if neither start nor end is given, the window is computed from the
//     events; otherwise missing or unparsable values are left non-finite
//     and repaired by the sanitizer
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	req := timeline.Request{Window: windowFromQuery(r)}

	var events []model.RawEvent
	if s.events != nil {
		events = s.events.Events()
	}

	pass := s.renderer.SafeRender(events, req)

	body, err := json.Marshal(pass)
	if err != nil {
		// The page must always get a drawable response.
		s.log.Error("render pass could not be encoded; serving empty timeline", err, "pass", pass.ID)
		pass = s.renderer.EmptyPass("The timeline could not be drawn; showing an empty range instead.")
		body, _ = json.Marshal(pass)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)

	if s.OnRendered != nil {
		s.OnRendered(pass)
	}
}

func windowFromQuery(r *http.Request) *model.Viewport {
	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" {
		return nil
	}
	num := func(key string) float64 {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}
	return &model.Viewport{
		Start:   num("start"),
		End:     num("end"),
		Min:     num("min"),
		Max:     num("max"),
		ZoomMin: num("zoom_min"),
		ZoomMax: num("zoom_max"),
	}
}
