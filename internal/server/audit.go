// Copyright 2025 Joseph Cumines
//
// Audit logging for automation actions

package server

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// AuditLogger provides structured audit logging for automation actions.
// It logs action name, redacted arguments, request id, result status, and
// duration. Uses log/slog for structured JSON output.
type AuditLogger struct {
	logger  *slog.Logger
	file    *os.File
	enabled bool
	mu      sync.RWMutex
}

// redactedKeys is the list of argument keys that should be redacted in audit
// logs. None of the accepted fields (text, label, key, url) match; the audit
// log records the raw body, so this covers extra fields a client sends
// alongside them.
var redactedKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"credential":    true,
	"authorization": true,
	"cookie":        true,
	"passphrase":    true,
}

// NewAuditLogger creates a new audit logger that writes to the specified file.
// If filePath is empty, audit logging is disabled. Returns an error if the
// file cannot be opened.
func NewAuditLogger(filePath string) (*AuditLogger, error) {
	if filePath == "" {
		return &AuditLogger{enabled: false}, nil
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return &AuditLogger{
		logger:  slog.New(handler),
		file:    file,
		enabled: true,
	}, nil
}

// Close closes the audit log file if it is open.
// Safe to call multiple times.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		a.enabled = false
		return err
	}
	return nil
}

// IsEnabled returns true if audit logging is enabled (file path was provided).
func (a *AuditLogger) IsEnabled() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LogAction logs one action with redacted arguments. A nil or disabled
// logger is a no-op.
func (a *AuditLogger) LogAction(action, requestID string, args json.RawMessage, ok bool, duration time.Duration) {
	if !a.IsEnabled() {
		return
	}

	a.mu.RLock()
	logger := a.logger
	a.mu.RUnlock()

	status := "ok"
	if !ok {
		status = "error"
	}

	logger.Info("action",
		slog.String("action", action),
		slog.String("request_id", requestID),
		slog.String("arguments", redactArguments(args)),
		slog.String("status", status),
		slog.Float64("duration_seconds", duration.Seconds()),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// redactArguments redacts sensitive values from JSON arguments and truncates
// long strings.
func redactArguments(args json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}

	var parsed map[string]any
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "[unparseable]"
	}

	for key, value := range parsed {
		lowerKey := strings.ToLower(key)
		if isRedactedKey(lowerKey) {
			parsed[key] = "[REDACTED]"
			continue
		}
		if s, ok := value.(string); ok {
			parsed[key] = truncateText(s)
		}
	}

	redacted, err := json.Marshal(parsed)
	if err != nil {
		return "[error]"
	}
	return string(redacted)
}

func isRedactedKey(lowerKey string) bool {
	if redactedKeys[lowerKey] {
		return true
	}
	for k := range redactedKeys {
		if strings.Contains(lowerKey, k) {
			return true
		}
	}
	return false
}
