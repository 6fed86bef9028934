package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/config"
	"github.com/roach88/tilecanvas/internal/edits"
	"github.com/roach88/tilecanvas/internal/journal"
)

// Journal records applied writes. *journal.Journal satisfies it.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) (journal.Entry, error)
	Ping(ctx context.Context) error
}

// IDGenerator produces ids for applied writes.
type IDGenerator interface {
	Generate() string
}

// Server routes HTTP requests to the canvas and the edit gate.
type Server struct {
	canvas *canvas.Store
	gate   *edits.Gate

	canvasMu sync.RWMutex
	gateMu   sync.Mutex
	recordMu sync.Mutex

	journal     Journal
	clock       edits.Clock
	ids         IDGenerator
	actorHeader string
	logger      *slog.Logger

	metrics *metrics
	hub     *hub
	router  *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithJournal enables the edit journal.
func WithJournal(j Journal) Option {
	return func(s *Server) {
		s.journal = j
	}
}

// WithClock sets the clock used to timestamp edits.
func WithClock(c edits.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDGenerator overrides the default UUIDv7 edit ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Server) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithActorHeader sets the header carrying the actor id.
func WithActorHeader(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.actorHeader = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires a server around an already constructed store and gate. The
// server takes ownership: callers must not touch either afterwards.
func New(store *canvas.Store, gate *edits.Gate, opts ...Option) *Server {
	s := &Server{
		canvas:      store,
		gate:        gate,
		clock:       edits.NewSystemClock(),
		ids:         journal.UUIDv7Generator{},
		actorHeader: config.DefaultActorHeader,
		logger:      slog.Default(),
		metrics:     newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.logger, s.metrics)
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/tiles/{idx:[0-9]+}", s.handleFetchTile).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/tiles/{idx:[0-9]+}/pixels", s.handleUpdateTilePixel).Methods(http.MethodPost)
	r.HandleFunc("/pixels", s.handleUpdateCanvasPixel).Methods(http.MethodPost)
	r.HandleFunc("/overview", s.handleFetchOverview).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/session/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/geometry", s.handleGeometry).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/updates", s.hub.serveWS).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, CodeBadRequest, "no route for %s %s", r.Method, r.URL.Path)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start opens the editing session. Equivalent to POST /session/start.
func (s *Server) Start() error {
	s.gateMu.Lock()
	defer s.gateMu.Unlock()
	return s.gate.Start()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
