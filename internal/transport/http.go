// Copyright 2025 Joseph Cumines
//
// HTTP transport for agent requests

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
)

// HTTPTransportConfig holds configuration for HTTP transport.
// Address is the loopback address to bind (e.g., "127.0.0.1:18792").
// ReadTimeout bounds reading the request (default: 30s).
// WriteTimeout bounds the whole handler, so it must exceed the longest
// action: send-chat runs several scripts back to back (default: 90s).
type HTTPTransportConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultHTTPConfig returns default HTTP transport configuration
func DefaultHTTPConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		Address:      "127.0.0.1:18792",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
}

// HTTPTransport serves a fixed route table over HTTP/1.1.
type HTTPTransport struct {
	config   *HTTPTransportConfig
	router   *mux.Router
	server   *http.Server
	metrics  *Metrics
	logger   *slog.Logger
	known    map[string]bool
	listener net.Listener
	mu       sync.Mutex
	closed   atomic.Bool
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) HTTPOption {
	return func(t *HTTPTransport) { t.metrics = m }
}

// WithLogger sets the lifecycle logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.logger = l }
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(config *HTTPTransportConfig, opts ...HTTPOption) *HTTPTransport {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	t := &HTTPTransport{
		config: config,
		router: mux.NewRouter(),
		logger: slog.Default(),
		known:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.server = &http.Server{
		Handler:      t.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		// Access logging is deliberately absent; only server faults are logged.
		ErrorLog: slog.NewLogLogger(t.logger.Handler(), slog.LevelWarn),
	}

	return t
}

// Handle registers routes. Paths match exactly; a path registered for one
// method does not answer other methods.
func (t *HTTPTransport) Handle(routes ...Route) {
	for _, r := range routes {
		t.router.HandleFunc(r.Path, r.Handler).Methods(r.Method)
		t.known[r.Path] = true
	}
}

// SetFallback sets the handler for requests that match no route, including
// method mismatches on known paths.
func (t *HTTPTransport) SetFallback(h http.Handler) {
	t.router.NotFoundHandler = h
	t.router.MethodNotAllowedHandler = h
}

// Handler returns the router wrapped in the middleware chain. Middleware
// wraps the router rather than being registered on it so that unmatched
// requests are also recovered, traced and counted.
func (t *HTTPTransport) Handler() http.Handler {
	var h http.Handler = t.router
	if t.metrics != nil {
		h = t.metrics.Middleware(t.routeLabel, h)
	}
	h = TracingMiddleware(h)
	h = RequestIDMiddleware(h)
	h = RecoveryMiddleware(t.logger, h)
	return h
}

func (t *HTTPTransport) routeLabel(r *http.Request) string {
	if t.known[r.URL.Path] {
		return r.URL.Path
	}
	return unmatchedRoute
}

// Listen binds the configured address. Serve calls it when needed; calling it
// first lets the caller learn the bound address.
func (t *HTTPTransport) Listen() (net.Addr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return t.listener.Addr(), nil
	}
	listener, err := net.Listen("tcp", t.config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", t.config.Address, err)
	}
	t.listener = listener
	return listener.Addr(), nil
}

// Serve starts the HTTP server and blocks until it is closed.
func (t *HTTPTransport) Serve() error {
	addr, err := t.Listen()
	if err != nil {
		return err
	}
	t.logger.Info("HTTP transport listening", "address", addr.String())

	t.mu.Lock()
	listener := t.listener
	t.mu.Unlock()

	if err := t.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the server down, waiting up to five seconds for in-flight
// requests.
func (t *HTTPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// IsClosed returns whether the transport is closed
func (t *HTTPTransport) IsClosed() bool {
	return t.closed.Load()
}
