package internal

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/notevault/internal/agent"
	"github.com/kazz187/notevault/internal/config"
	"github.com/kazz187/notevault/internal/event"
	"github.com/kazz187/notevault/internal/note"
	"github.com/kazz187/notevault/internal/task"
	"github.com/kazz187/notevault/pkg/cerr"
	"github.com/kazz187/notevault/pkg/clog"
)

type Server struct {
	mu          sync.Mutex
	server      *http.Server
	env         *config.BaseEnv
	taskServer  *task.Server
	noteServer  *note.Server
	agentServer *agent.Server
	eventServer *event.Server
}

func NewServer(
	env *config.BaseEnv,
	taskServer *task.Server,
	noteServer *note.Server,
	agentServer *agent.Server,
	eventServer *event.Server,
) *Server {
	return &Server{
		env:         env,
		taskServer:  taskServer,
		noteServer:  noteServer,
		agentServer: agentServer,
		eventServer: eventServer,
	}
}

// Handler builds the full HTTP handler: JSON routes, Connect services and
// health checks, behind CORS, h2c and the optional API key check.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		clog.SlogChiMiddleware(clog.WithChiFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		})),
		cerr.NewConvertConnectErrorChiMiddleware(),
	)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		cerr.SetJSONResponse(r.Context(), map[string]string{"message": "notevault API is running", "status": "ok"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		cerr.SetJSONResponse(r.Context(), map[string]string{"status": "healthy", "api": "tasks-notes-crud"})
	})
	r.Route("/tasks", s.taskServer.Routes)
	r.Route("/notes", s.noteServer.Routes)
	r.Route("/agents", s.agentServer.Routes)
	r.Get("/events", s.eventServer.SubscribeEvents)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
	})

	mux := http.NewServeMux()
	mux.Handle("/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(agent.ServiceName)))

	handlerOpts := connect.WithInterceptors(s.interceptors()...)
	for path, h := range s.agentServer.Handlers(handlerOpts) {
		mux.Handle(path, h)
	}

	return h2c.NewHandler(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{})
}

// ListenAndServe starts the HTTP server. ctx is the base context of every
// request, so cancelling it also ends open event streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	hs := s.server
	s.mu.Unlock()
	return hs.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.server
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectInterceptor(),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	if s.env.APIKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for health endpoints.
		if r.URL.Path == "/health" || r.URL.Path == "/grpc.health.v1.Health/Check" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.env.APIKey)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
