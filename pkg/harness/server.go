// Package harness hosts the local HTTP side of the test client binary: a
// graceful server exposing health, metrics and a sample authorization
// endpoint that signs private and presence channel subscriptions.
package harness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/gzip"

	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/middleware"
)

// ShutdownCallback runs during shutdown before the HTTP server stops, used to
// disconnect the pub/sub client and flush trackers while the process is still
// serving health checks.
type ShutdownCallback func(context.Context) error

// GracefulServer is an http.Server that drains in-flight requests and runs
// registered callbacks before stopping. New requests are rejected with 503 as
// soon as shutdown begins.
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	drainTimeout    time.Duration

	inFlight atomic.Int64
	draining atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}

	callbacksMu sync.Mutex
	callbacks   []ShutdownCallback
}

// ServerConfig configures a GracefulServer. Zero durations fall back to the
// defaults noted per field.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8089"
	Addr string

	// Handler serves every request; required
	Handler http.Handler

	// GZIP compresses responses when set
	GZIP bool

	// ShutdownTimeout bounds the whole shutdown sequence (default 30s)
	ShutdownTimeout time.Duration

	// DrainTimeout bounds the wait for in-flight requests (default 25s)
	DrainTimeout time.Duration

	// ReadTimeout, WriteTimeout and IdleTimeout apply to the underlying
	// http.Server (defaults 10s, 10s, 120s)
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *ServerConfig) applyDefaults() {
	setIfZero(&c.ShutdownTimeout, 30*time.Second)
	setIfZero(&c.DrainTimeout, 25*time.Second)
	setIfZero(&c.ReadTimeout, 10*time.Second)
	setIfZero(&c.WriteTimeout, 10*time.Second)
	setIfZero(&c.IdleTimeout, 120*time.Second)
}

func setIfZero(d *time.Duration, fallback time.Duration) {
	if *d == 0 {
		*d = fallback
	}
}

// NewGracefulServer builds the server with panic recovery and optional gzip
// compression wrapped around the handler
func NewGracefulServer(config ServerConfig) (*GracefulServer, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	config.applyDefaults()

	handler := config.Handler
	if config.GZIP {
		gz, err := gzhttp.NewWrapper(gzhttp.CompressionLevel(gzip.BestSpeed))
		if err != nil {
			return nil, fmt.Errorf("failed to create GZIP wrapper: %w", err)
		}
		handler = gz(handler)
	}
	handler = middleware.PanicRecovery(handler)

	return &GracefulServer{
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		shutdownTimeout: config.ShutdownTimeout,
		drainTimeout:    config.DrainTimeout,
		stopped:         make(chan struct{}),
	}, nil
}

// OnShutdown registers a callback. Callbacks run in registration order while
// the listener still accepts health checks.
func (gs *GracefulServer) OnShutdown(cb ShutdownCallback) {
	gs.callbacksMu.Lock()
	defer gs.callbacksMu.Unlock()
	gs.callbacks = append(gs.callbacks, cb)
}

// TrackRequestsMiddleware counts in-flight requests and rejects new ones with
// 503 once shutdown has begun
func (gs *GracefulServer) TrackRequestsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gs.draining.Load() {
			http.Error(w, `{"error":"service_unavailable","message":"Server is shutting down"}`, http.StatusServiceUnavailable)
			return
		}
		gs.inFlight.Add(1)
		defer gs.inFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until SIGINT/SIGTERM arrives or the listener fails,
// then shuts down gracefully
func (gs *GracefulServer) ListenAndServe() error {
	gs.server.Handler = gs.TrackRequestsMiddleware(gs.server.Handler)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Harness server listening on %s", gs.server.Addr)
		if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signals)

	select {
	case err := <-serveErr:
		return err
	case sig := <-signals:
		logger.Info("Received %v, shutting down", sig)
		return gs.Shutdown(context.Background())
	}
}

// Shutdown runs callbacks, drains in-flight requests and stops the server.
// Later calls wait on nothing and return nil; the first error encountered is
// returned while the remaining steps still run.
func (gs *GracefulServer) Shutdown(ctx context.Context) error {
	var result error
	gs.stopOnce.Do(func() {
		gs.draining.Store(true)
		logger.Info("Harness server shutting down")

		ctx, cancel := context.WithTimeout(ctx, gs.shutdownTimeout)
		defer cancel()

		keep := func(err error) {
			if err == nil {
				return
			}
			logger.Error("Shutdown step failed: %v", err)
			if result == nil {
				result = err
			}
		}
		keep(gs.runShutdownCallbacks(ctx))
		keep(gs.awaitDrain(ctx))
		keep(gs.server.Shutdown(ctx))

		close(gs.stopped)
		logger.Info("Harness server stopped")
	})
	return result
}

func (gs *GracefulServer) runShutdownCallbacks(ctx context.Context) error {
	gs.callbacksMu.Lock()
	callbacks := make([]ShutdownCallback, len(gs.callbacks))
	copy(callbacks, gs.callbacks)
	gs.callbacksMu.Unlock()

	var errs []error
	for i, cb := range callbacks {
		logger.Debug("Running shutdown callback %d/%d", i+1, len(callbacks))
		if err := cb(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown callbacks failed: %v", errs)
	}
	return nil
}

// awaitDrain polls until no requests are in flight or the drain timeout
// passes, whichever comes first
func (gs *GracefulServer) awaitDrain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, gs.drainTimeout)
	defer cancel()

	started := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		pending := gs.inFlight.Load()
		if pending == 0 {
			logger.Info("In-flight requests drained after %v", time.Since(started))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("drain timeout exceeded: %d requests still in flight", pending)
		case <-ticker.C:
			logger.Debug("Draining, %d request(s) still in flight", pending)
		}
	}
}

// InFlightRequests returns the number of requests currently being served
func (gs *GracefulServer) InFlightRequests() int64 {
	return gs.inFlight.Load()
}

// IsShuttingDown reports whether shutdown has begun
func (gs *GracefulServer) IsShuttingDown() bool {
	return gs.draining.Load()
}

// Wait blocks until shutdown completes
func (gs *GracefulServer) Wait() {
	<-gs.stopped
}

// HealthCheckHandler answers liveness probes, flipping to 503 during shutdown
func (gs *GracefulServer) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gs.draining.Load() {
			writeJSON(w, http.StatusServiceUnavailable, `{"status":"shutting_down"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"healthy"}`)
	}
}

// ReadinessHandler answers readiness probes with the in-flight request count
func (gs *GracefulServer) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gs.draining.Load() {
			writeJSON(w, http.StatusServiceUnavailable, `{"ready":false,"reason":"shutting_down"}`)
			return
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"ready":true,"in_flight_requests":%d}`, gs.inFlight.Load()))
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		logger.Warn("Failed to write response: %v", err)
	}
}
