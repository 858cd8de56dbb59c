// Copyright 2025 Joseph Cumines
//
// Helper functions for request handlers

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a chat
// message.
const maxBodyBytes = 1 << 20

// maxAuditValueLen bounds how much of any string argument reaches the audit
// log. Chat text is truncated, not omitted.
const maxAuditValueLen = 80

var (
	errInvalidJSON  = errors.New("invalid JSON body")
	errBodyTooLarge = errors.New("request body too large")
)

// actionRequest is the union of all body fields the endpoints read.
type actionRequest struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Key   string `json:"key"`
	URL   string `json:"url"`
}

// actionResponse is the JSON body of every action endpoint except /activate.
type actionResponse struct {
	OK     bool   `json:"ok"`
	Result string `json:"result"`
}

type activateResponse struct {
	OK bool `json:"ok"`
}

// readBody decodes the request body into an actionRequest. An empty body is
// an empty object. The raw bytes are returned for audit logging.
func readBody(r *http.Request, w http.ResponseWriter) (actionRequest, []byte, error) {
	var req actionRequest

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, nil, errBodyTooLarge
		}
		return req, nil, errInvalidJSON
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return req, nil, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, raw, errInvalidJSON
	}
	return req, raw, nil
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps an action outcome onto 200 or 500.
func statusFor(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// truncateText shortens s to maxAuditValueLen runes with a "..." suffix.
func truncateText(s string) string {
	r := []rune(s)
	if len(r) > maxAuditValueLen {
		return string(r[:maxAuditValueLen]) + "..."
	}
	return s
}
