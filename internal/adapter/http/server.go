package http

import (
	"net/http"
	"time"

	"github.com/bnema/docstruct/internal/adapter/http/middleware"
	"github.com/bnema/docstruct/internal/adapter/http/ratelimit"
	"github.com/bnema/docstruct/internal/port"
	"github.com/bnema/docstruct/internal/service"
)

type Options struct {
	// MaxInputMB bounds PUT /inputs bodies.
	MaxInputMB int
	// PollInterval is how often the event stream rereads output.json, for
	// results written by another process.
	PollInterval time.Duration
}

// Server is the producer API: it stores inputs, enqueues jobs and serves
// their results.
type Server struct {
	mux      *http.ServeMux
	handlers *Handlers
	sse      *SSEHandler
	auth     TokenValidator
	limiter  *ratelimit.FailureLimiter
	log      port.Logger
}

func NewServer(producer *service.Producer, events *service.EventBus, auth TokenValidator, log port.Logger, opts Options) *Server {
	if opts.MaxInputMB <= 0 {
		opts.MaxInputMB = 512
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}

	s := &Server{
		mux:      http.NewServeMux(),
		handlers: NewHandlers(producer, log, opts.MaxInputMB),
		sse:      NewSSEHandler(producer, events, opts.PollInterval),
		auth:     auth,
		limiter:  ratelimit.NewFailureLimiter(5, 15*time.Minute, 30*time.Minute),
		log:      log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return AuthMiddleware(s.auth, s.limiter, s.log, h)
	}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.mux.HandleFunc("POST /jobs", protect(s.handlers.SubmitJob()))
	s.mux.HandleFunc("PUT /inputs/{key...}", protect(s.handlers.PutInput()))
	s.mux.HandleFunc("GET /results/{prefix...}", protect(s.handlers.Result()))
	s.mux.HandleFunc("GET /outputs/{key...}", protect(s.handlers.Output()))
	s.mux.HandleFunc("GET /status/{prefix...}", protect(s.handlers.StatusPage()))
	s.mux.HandleFunc("GET /events/{prefix...}", protect(s.sse.Events()))
}

// Close releases the background resources of the server.
func (s *Server) Close() {
	s.limiter.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	middleware.RequestLog(s.log, middleware.SecurityHeaders(s.mux)).ServeHTTP(w, r)
}
