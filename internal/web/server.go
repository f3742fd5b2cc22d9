package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jaminalder/hyperxo/internal/app"
)

// Option configures the HTTP handlers.
type Option func(h *handlers)

// WithLogger sets the request and stream logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *handlers) { h.log = l }
}

// WithDefaultDepth sets the depth used when a create request omits one.
func WithDefaultDepth(depth int) Option {
	return func(h *handlers) { h.defaultDepth = depth }
}

// NewServer wires routes and returns an http.Handler. It installs the JSON
// state renderer on s so subscribers receive API-shaped snapshots.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{svc: s, tpl: loadTemplates(), log: zerolog.Nop(), defaultDepth: 3}
	for _, opt := range opts {
		opt(h)
	}
	s.SetRenderer(renderState)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Get("/board", h.board)
		r.Post("/play", h.play)
	})
	r.Route("/api/game", func(r chi.Router) {
		r.Post("/", h.apiCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.apiGet)
			r.Post("/move", h.apiMove)
			r.Get("/events", h.events)
			r.Get("/ws", h.ws)
		})
	})
	return r
}

// requestLogger logs one line per request once the handler returns.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
