// Copyright 2025 Joseph Cumines

// Package transport provides the HTTP listener that carries agent requests,
// together with its middleware, Prometheus metrics, tracing and the optional
// gRPC health endpoint.
package transport

import (
	"net/http"
)

// Route binds a method and exact path to a handler.
type Route struct {
	Handler http.HandlerFunc
	Method  string
	Path    string
}

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// unmatchedRoute labels metrics for requests that hit no registered route,
// keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

// WriteText writes a plain text response with the given status.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
