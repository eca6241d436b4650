// Package api exposes the race service over HTTP.
package api

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/auth"
	"github.com/mpapenbr/async-race-service/pkg/permission"
	"github.com/mpapenbr/async-race-service/pkg/race"
)

type (
	Option func(*Server)
	Server struct {
		m         *race.Manager
		auth      *auth.Authenticator
		perm      permission.PermissionEvaluator
		heartbeat time.Duration
		l         *log.Logger
	}
)

func WithAuthenticator(a *auth.Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

func WithPermissionEvaluator(pe permission.PermissionEvaluator) Option {
	return func(s *Server) {
		s.perm = pe
	}
}

// WithHeartbeat sets the interval of keep alive comments on the event stream.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

func NewServer(m *race.Manager, opts ...Option) *Server {
	ret := &Server{
		m:         m,
		auth:      auth.NewAuthenticator(),
		heartbeat: 15 * time.Second,
		l:         log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Handler returns the routes wrapped with tracing and authentication.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	read := permission.PermissionRead
	garage := permission.PermissionGarageWrite
	control := permission.PermissionRaceControl

	mux.HandleFunc("GET /garage", s.require(read, s.listCars))
	mux.HandleFunc("POST /garage", s.require(garage, s.createCar))
	mux.HandleFunc("POST /garage/generate", s.require(garage, s.generateCars))
	mux.HandleFunc("GET /garage/{id}", s.require(read, s.getCar))
	mux.HandleFunc("PUT /garage/{id}", s.require(garage, s.updateCar))
	mux.HandleFunc("DELETE /garage/{id}", s.require(garage, s.deleteCar))
	mux.HandleFunc("POST /garage/{id}/launch", s.require(control, s.launch))
	mux.HandleFunc("GET /garage/{id}/state", s.require(read, s.carState))
	mux.HandleFunc("GET /states", s.require(read, s.carStates))

	mux.HandleFunc("PATCH /engine", s.require(control, s.engine))

	mux.HandleFunc("GET /race", s.require(read, s.getRace))
	mux.HandleFunc("POST /race", s.require(control, s.startRace))
	mux.HandleFunc("POST /race/reset", s.require(control, s.resetRace))
	mux.HandleFunc("GET /race/sessions", s.require(read, s.sessions))

	mux.HandleFunc("GET /winners", s.require(read, s.listWinners))
	mux.HandleFunc("GET /winners/{id}", s.require(read, s.getWinner))

	mux.HandleFunc("GET /events", s.require(read, s.events))

	return otelhttp.NewHandler(s.authenticate(mux), "ars.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := s.auth.Authenticate(r)
		next.ServeHTTP(w, r.WithContext(auth.AddToContext(r.Context(), a)))
	})
}

func (s *Server) require(perm permission.Permission, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.perm != nil && !s.perm.HasPermission(r.Context(), auth.FromContext(r.Context()), perm) {
			s.writeError(w, r, auth.ErrPermissionDenied)
			return
		}
		h(w, r)
	}
}
