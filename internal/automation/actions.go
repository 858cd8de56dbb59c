// Copyright 2025 Joseph Cumines
//
// Action library: UI automation steps against the target application

// Package automation builds AppleScript for a fixed set of UI actions on one
// named application and runs it through a ScriptRunner.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/thea-agent/internal/osascript"
)

var (
	// ErrInvalidURL is returned by Navigate for URLs outside the app's scheme.
	ErrInvalidURL = errors.New("invalid url")
	// ErrUnknownKey is returned by SendKeystroke in strict mode.
	ErrUnknownKey = errors.New("unknown key")
)

// ValidationError rejects a request before any script runs. Its message is
// suitable for returning to the caller verbatim.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap returns ErrInvalidURL or ErrUnknownKey.
func (e *ValidationError) Unwrap() error { return e.Kind }

// ScriptRunner executes one AppleScript and reports its outcome.
type ScriptRunner interface {
	Run(ctx context.Context, script string) osascript.Result
}

// Result is the outcome of an action.
type Result struct {
	Message string
	OK      bool
}

// Options configures a Library.
type Options struct {
	Logger    *slog.Logger
	AppName   string
	URLScheme string
	// ActivateDelay follows every activation.
	ActivateDelay time.Duration
	// FocusDelay precedes typing and clicking, and separates send-chat steps.
	FocusDelay time.Duration
	// KeyDelay precedes key code events.
	KeyDelay time.Duration
	// Serialize runs at most one action at a time.
	Serialize bool
	// StrictKeys rejects unknown key names instead of pressing return.
	StrictKeys bool
}

// Library performs UI actions against the configured application.
type Library struct {
	scripts ScriptRunner
	logger  *slog.Logger
	sleep   func(time.Duration)
	opts    Options
	mu      sync.Mutex
}

// New creates a Library that runs scripts through scripts.
func New(scripts ScriptRunner, opts Options) *Library {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AppName == "" {
		opts.AppName = "Thea"
	}
	if opts.URLScheme == "" {
		opts.URLScheme = "thea://"
	}
	return &Library{
		scripts: scripts,
		logger:  logger,
		sleep:   time.Sleep,
		opts:    opts,
	}
}

// AppName returns the target application name.
func (l *Library) AppName() string {
	return l.opts.AppName
}

// URLScheme returns the prefix Navigate requires.
func (l *Library) URLScheme() string {
	return l.opts.URLScheme
}

func (l *Library) acquire() func() {
	if !l.opts.Serialize {
		return func() {}
	}
	l.mu.Lock()
	return l.mu.Unlock
}

func (l *Library) pause(d time.Duration) {
	if d > 0 {
		l.sleep(d)
	}
}

func (l *Library) run(ctx context.Context, script string) Result {
	res := l.scripts.Run(ctx, script)
	return Result{OK: res.OK, Message: res.Output}
}

// activate brings the app to the foreground and waits for focus to settle.
func (l *Library) activate(ctx context.Context) bool {
	res := l.run(ctx, activateScript(l.opts.AppName))
	if !res.OK {
		l.logger.Debug("activation failed", "app", l.opts.AppName, "output", res.Message)
	}
	l.pause(l.opts.ActivateDelay)
	return res.OK
}

// Activate brings the target application to the foreground.
func (l *Library) Activate(ctx context.Context) bool {
	defer l.acquire()()
	return l.activate(ctx)
}

// TypeText sends text as literal keystrokes to the target application.
func (l *Library) TypeText(ctx context.Context, text string) Result {
	defer l.acquire()()
	return l.typeText(ctx, text)
}

func (l *Library) typeText(ctx context.Context, text string) Result {
	l.activate(ctx)
	l.pause(l.opts.FocusDelay)
	return l.run(ctx, keystrokeScript(l.opts.AppName, text))
}

// ClickButton clicks the button labelled label in the frontmost window,
// falling back to the window's first group.
func (l *Library) ClickButton(ctx context.Context, label string) Result {
	defer l.acquire()()

	l.activate(ctx)
	l.pause(l.opts.FocusDelay)
	res := l.run(ctx, clickButtonScript(l.opts.AppName, label))
	if res.OK && strings.HasPrefix(res.Message, buttonNotFoundPrefix) {
		res.OK = false
	}
	return res
}

// SendKeystroke presses the named key in the target application. In strict
// mode an unknown name yields ErrUnknownKey and no script runs.
func (l *Library) SendKeystroke(ctx context.Context, key string) (Result, error) {
	code, known := LookupKeyCode(key)
	if !known {
		if l.opts.StrictKeys {
			return Result{}, &ValidationError{Kind: ErrUnknownKey, Message: fmt.Sprintf("Unknown key: %q (supported: %s)", key, strings.Join(KeyNames(), ", "))}
		}
		code = DefaultKeyCode
	}

	defer l.acquire()()
	return l.sendKeyCode(ctx, code), nil
}

func (l *Library) sendKeyCode(ctx context.Context, code int) Result {
	l.activate(ctx)
	l.pause(l.opts.KeyDelay)
	return l.run(ctx, keyCodeScript(l.opts.AppName, code))
}

// ClickMessageInput clicks the chat input field of the frontmost window.
func (l *Library) ClickMessageInput(ctx context.Context) Result {
	defer l.acquire()()
	return l.clickMessageInput(ctx)
}

func (l *Library) clickMessageInput(ctx context.Context) Result {
	l.activate(ctx)
	l.pause(l.opts.FocusDelay)
	res := l.run(ctx, clickMessageInputScript(l.opts.AppName))
	if res.OK && (res.Message == inputNotFound || strings.HasPrefix(res.Message, inputErrorPrefix)) {
		res.OK = false
	}
	return res
}

// SendChatMessage focuses the message input, types text and presses return.
// The first failing step ends the sequence.
func (l *Library) SendChatMessage(ctx context.Context, text string) Result {
	defer l.acquire()()

	res := l.clickMessageInput(ctx)
	if !res.OK {
		return Result{Message: "Click failed: " + res.Message}
	}
	l.pause(l.opts.FocusDelay)

	res = l.typeText(ctx, text)
	if !res.OK {
		return Result{Message: "Type failed: " + res.Message}
	}
	l.pause(l.opts.KeyDelay)

	res = l.sendKeyCode(ctx, DefaultKeyCode)
	return Result{OK: res.OK, Message: "Sent: " + res.Message}
}

// Navigate opens url, which must use the application's URL scheme.
func (l *Library) Navigate(ctx context.Context, url string) (Result, error) {
	if !strings.HasPrefix(url, l.opts.URLScheme) {
		return Result{}, &ValidationError{Kind: ErrInvalidURL, Message: "URL must start with " + l.opts.URLScheme}
	}

	defer l.acquire()()
	return l.run(ctx, openLocationScript(url)), nil
}
