package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/rs/zerolog"
)

// Options configures the HTTP server
type Options struct {
	Host               string
	Port               int
	RequestTimeout     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	EnableStream       bool

	// TrustProxy keys clients by X-Real-IP / X-Forwarded-For instead of
	// the peer address. Enable only behind a proxy that sets them.
	TrustProxy bool
}

// writeGrace keeps the write deadline past the request timeout so the
// timeout response still reaches the client
const writeGrace = 5 * time.Second

// OptionsFromConfig maps the server section of the configuration
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		Host:               cfg.Host,
		Port:               cfg.Port,
		RequestTimeout:     cfg.RequestTimeout,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		EnableStream:       cfg.EnableStream,
		TrustProxy:         cfg.TrustProxy,
	}
}

// Server is the travel planner HTTP server
type Server struct {
	options        Options
	server         *http.Server
	planner        Planner
	metrics        *metrics.Metrics
	rateLimiter    *RateLimiter
	upgrader       websocket.Upgrader
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new server. m may be nil, in which case /metrics is
// not served.
func NewServer(options Options, planner Planner, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	// Set defaults
	if options.Port == 0 {
		options.Port = 8000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 60 * time.Second
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 15 * time.Second
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = 90 * time.Second
	}
	if options.WriteTimeout <= options.RequestTimeout {
		options.WriteTimeout = options.RequestTimeout + writeGrace
	}

	if planner == nil {
		return nil, fmt.Errorf("planner is required")
	}

	s := &Server{
		options:   options,
		planner:   planner,
		metrics:   m,
		logger:    logger,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if options.RateLimitPerSecond > 0 {
		s.rateLimiter = NewRateLimiter(options.RateLimitPerSecond, options.RateLimitBurst)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", options.Host, options.Port),
		Handler:      s.Handler(),
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
	}

	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.Handle("POST /plan", s.limit(http.HandlerFunc(s.handlePlan)))
	if s.options.EnableStream {
		mux.Handle("GET /plan/stream", s.limit(http.HandlerFunc(s.handleStream)))
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		Tracing(),
		AccessLog(s.logger, s.options.TrustProxy),
	)
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Bool("stream", s.options.EnableStream).
		Msg("Starting travel planner server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop refuses new plan requests, waits for in-flight ones until ctx is
// done and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// acquire registers an in-flight plan request. It fails once Stop has begun.
func (s *Server) acquire() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()

	if s.isShuttingDown {
		return false
	}
	s.inFlightReqs.Add(1)
	return true
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
	})
}

// writeJSON sends body as a JSON response
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
