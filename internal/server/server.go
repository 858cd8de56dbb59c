// Copyright 2025 Joseph Cumines
//
// Agent request handling: route table and action dispatch

// Package server maps the agent's HTTP endpoints onto automation actions.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joeycumines/thea-agent/internal/automation"
	"github.com/joeycumines/thea-agent/internal/transport"
)

// Actions is the set of UI operations the agent exposes. It is satisfied by
// *automation.Library.
type Actions interface {
	TypeText(ctx context.Context, text string) automation.Result
	ClickButton(ctx context.Context, label string) automation.Result
	SendKeystroke(ctx context.Context, key string) (automation.Result, error)
	ClickMessageInput(ctx context.Context) automation.Result
	SendChatMessage(ctx context.Context, text string) automation.Result
	Activate(ctx context.Context) bool
	Navigate(ctx context.Context, url string) (automation.Result, error)
}

var _ Actions = (*automation.Library)(nil)

// Server owns the route table and per-request bookkeeping.
type Server struct {
	actions Actions
	audit   *AuditLogger
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuditLogger records every action to a.
func WithAuditLogger(a *AuditLogger) Option {
	return func(s *Server) { s.audit = a }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server dispatching to actions.
func New(actions Actions, opts ...Option) *Server {
	s := &Server{
		actions: actions,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the fixed endpoint table.
func (s *Server) Routes() []transport.Route {
	return []transport.Route{
		{Method: http.MethodGet, Path: "/ping", Handler: s.handlePing},
		{Method: http.MethodPost, Path: "/type", Handler: s.handleType},
		{Method: http.MethodPost, Path: "/click", Handler: s.handleClick},
		{Method: http.MethodPost, Path: "/keystroke", Handler: s.handleKeystroke},
		{Method: http.MethodPost, Path: "/send-chat", Handler: s.handleSendChat},
		{Method: http.MethodPost, Path: "/activate", Handler: s.handleActivate},
		{Method: http.MethodPost, Path: "/navigate", Handler: s.handleNavigate},
	}
}

// Register installs the routes and fallback on t.
func (s *Server) Register(t *transport.HTTPTransport) {
	t.Handle(s.Routes()...)
	t.SetFallback(http.HandlerFunc(s.handleFallback))
}

// Endpoints lists "METHOD /path" for each route, for the startup banner.
func (s *Server) Endpoints() []string {
	routes := s.Routes()
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}
