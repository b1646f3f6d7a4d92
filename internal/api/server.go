package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bankclean/bankclean/internal/engine"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/report"
	"github.com/bankclean/bankclean/internal/ws"
)

// Server exposes the pipeline over HTTP.
type Server struct {
	engine  *engine.Engine
	hub     *ws.Hub
	logger  *slog.Logger
	port    int
	server  *http.Server
	devMode bool

	// runCtx scopes background runs; Shutdown cancels it.
	runCtx     context.Context
	cancelRuns context.CancelFunc
}

// Option configures the API server.
type Option func(*Server)

// WithDevMode enables permissive CORS and cross-origin websockets.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.devMode = dev
	}
}

// WithHub sets the WebSocket hub that receives run progress.
func WithHub(hub *ws.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New creates a new API server.
func New(eng *engine.Engine, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
		port:   port,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())
	if s.hub != nil {
		s.hub.AllowAnyOrigin(s.devMode)
		s.hub.SetStateProvider(s.lastRunJSON)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if s.devMode {
		handler = s.corsMiddleware(handler)
	}
	return requestLogger(s.logger, handler)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", "port", s.port, "dev_mode", s.devMode)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server, cancels any run it started and
// waits for that run to release the output directory.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelRuns()
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if werr := s.engine.Wait(ctx); werr != nil && err == nil {
		err = fmt.Errorf("waiting for run: %w", werr)
	}
	return err
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("GET /api/runs/last", s.handleLastRun)
	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/schema", s.handleGetSchema)

	if s.hub != nil {
		mux.HandleFunc("/api/ws", s.hub.HandleWebSocket)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callbacks forwards engine progress to websocket clients.
func (s *Server) callbacks() engine.Callbacks {
	if s.hub == nil {
		return engine.Callbacks{}
	}
	return engine.Callbacks{
		OnStageStart: s.hub.BroadcastStageStarted,
		OnStageDone: func(runID, stage, detail string) {
			s.hub.BroadcastStageCompleted(ws.StageEvent{RunID: runID, Stage: stage, Detail: detail})
		},
		OnFilterStage: func(runID string, sum integrity.StageSummary) {
			clean, orphaned := sum.Clean, sum.Orphaned
			s.hub.BroadcastStageCompleted(ws.StageEvent{
				RunID:    runID,
				Stage:    engine.StageIntegrity,
				Entity:   sum.Stage,
				Clean:    &clean,
				Orphaned: &orphaned,
			})
		},
		OnComplete: func(r *report.RunReport) {
			s.hub.BroadcastRunCompleted(r)
		},
		OnError: func(runID, stage string, err error) {
			s.hub.BroadcastError(runID, stage, err.Error())
		},
	}
}

func (s *Server) lastRunJSON() ([]byte, error) {
	r, err := s.engine.LastReport()
	if err != nil || r == nil {
		return nil, err
	}
	return json.Marshal(r)
}
