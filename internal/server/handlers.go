// Copyright 2025 Joseph Cumines
//
// Endpoint handlers

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/joeycumines/thea-agent/internal/automation"
	"github.com/joeycumines/thea-agent/internal/transport"
)

// handlePing answers GET /ping without reading the body.
func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	transport.WriteText(w, http.StatusOK, "OK")
}

// decode reads the body, writing the 400 (or 413) response itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (actionRequest, []byte, bool) {
	req, raw, err := readBody(r, w)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			transport.WriteText(w, http.StatusRequestEntityTooLarge, "Request body too large")
		} else {
			transport.WriteText(w, http.StatusBadRequest, "Invalid JSON")
		}
		return req, raw, false
	}
	return req, raw, true
}

// respond audits the action and writes the standard {ok, result} body.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, action string, raw []byte, start time.Time, res automation.Result) {
	s.audit.LogAction(action, transport.RequestIDFromContext(r.Context()), raw, res.OK, time.Since(start))
	if !res.OK {
		s.logger.Debug("action failed", "action", action, "result", res.Message)
	}
	writeJSON(w, statusFor(res.OK), actionResponse{OK: res.OK, Result: res.Message})
}

// reject writes a validation error as plain text.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, action string, raw []byte, start time.Time, err error) {
	s.audit.LogAction(action, transport.RequestIDFromContext(r.Context()), raw, false, time.Since(start))
	transport.WriteText(w, http.StatusBadRequest, err.Error())
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	req, raw, ok := s.decode(w, r)
	if !ok {
		return
	}
	start := time.Now()
	s.respond(w, r, "type", raw, start, s.actions.TypeText(r.Context(), req.Text))
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	req, raw, ok := s.decode(w, r)
	if !ok {
		return
	}
	start := time.Now()
	s.respond(w, r, "click", raw, start, s.actions.ClickButton(r.Context(), req.Label))
}

func (s *Server) handleKeystroke(w http.ResponseWriter, r *http.Request) {
	req, raw, ok := s.decode(w, r)
	if !ok {
		return
	}
	key := req.Key
	if key == "" {
		key = "return"
	}

	start := time.Now()
	res, err := s.actions.SendKeystroke(r.Context(), key)
	var verr *automation.ValidationError
	if errors.As(err, &verr) {
		s.reject(w, r, "keystroke", raw, start, verr)
		return
	}
	s.respond(w, r, "keystroke", raw, start, res)
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	req, raw, ok := s.decode(w, r)
	if !ok {
		return
	}
	start := time.Now()
	s.respond(w, r, "send-chat", raw, start, s.actions.SendChatMessage(r.Context(), req.Text))
}

// handleActivate returns only the ok flag.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	_, raw, ok := s.decode(w, r)
	if !ok {
		return
	}
	start := time.Now()
	activated := s.actions.Activate(r.Context())
	s.audit.LogAction("activate", transport.RequestIDFromContext(r.Context()), raw, activated, time.Since(start))
	writeJSON(w, statusFor(activated), activateResponse{OK: activated})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	req, raw, ok := s.decode(w, r)
	if !ok {
		return
	}

	start := time.Now()
	res, err := s.actions.Navigate(r.Context(), req.URL)
	var verr *automation.ValidationError
	if errors.As(err, &verr) {
		s.reject(w, r, "navigate", raw, start, verr)
		return
	}
	s.respond(w, r, "navigate", raw, start, res)
}

// handleFallback answers every request no route matched. POST bodies are
// still parsed first, so malformed JSON is reported as 400 on any path.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		transport.WriteText(w, http.StatusNotFound, "Not found")
		return
	}
	if _, _, ok := s.decode(w, r); !ok {
		return
	}
	transport.WriteText(w, http.StatusNotFound, "Unknown endpoint")
}
