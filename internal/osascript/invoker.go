// Copyright 2025 Joseph Cumines
//
// AppleScript execution via the osascript command line bridge

// Package osascript runs AppleScript source through the osascript binary and
// reports the outcome as a value. Failures (non-zero exit, timeouts, missing
// binary) are never returned as errors; they are folded into a Result.
package osascript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout is the execution limit applied when none is configured.
const DefaultTimeout = 10 * time.Second

// Outcome labels passed to an Observer.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Result is the outcome of one script execution.
type Result struct {
	Output string
	OK     bool
}

// Runner starts a process and waits for it. It exists so tests can avoid
// spawning osascript.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// waitDelay bounds how long Run waits for output pipes after the process is
// killed. Grandchildren that inherited the pipes would otherwise hold Wait
// open past the timeout.
const waitDelay = time.Second

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Observer receives one call per finished execution.
type Observer interface {
	ObserveScript(outcome string, duration time.Duration)
}

// Invoker executes AppleScript with a fixed timeout.
type Invoker struct {
	runner   Runner
	observer Observer
	binary   string
	timeout  time.Duration
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(i *Invoker) { i.runner = r }
}

// WithObserver attaches an execution observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(i *Invoker) { i.observer = o }
}

// WithBinary overrides the osascript executable path.
func WithBinary(path string) Option {
	return func(i *Invoker) { i.binary = path }
}

// NewInvoker creates an Invoker. A non-positive timeout selects DefaultTimeout.
func NewInvoker(timeout time.Duration, opts ...Option) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	i := &Invoker{
		runner:  ExecRunner{},
		binary:  "osascript",
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Timeout returns the per-script execution limit.
func (i *Invoker) Timeout() time.Duration {
	return i.timeout
}

// Run executes script and blocks until it exits or the timeout elapses.
//
// Cancellation of ctx is ignored: a started script always runs to completion
// or timeout. ctx is still used for trace propagation.
func (i *Invoker) Run(ctx context.Context, script string) Result {
	ctx, span := otel.Tracer("github.com/joeycumines/thea-agent/internal/osascript").Start(ctx, "osascript.run",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := i.runner.Run(runCtx, i.binary, "-e", script)
	elapsed := time.Since(start)

	res, outcome := i.classify(runCtx, stdout, stderr, err)

	span.SetAttributes(
		attribute.String("osascript.outcome", outcome),
		attribute.Int("osascript.script_bytes", len(script)),
	)
	if !res.OK {
		span.SetStatus(codes.Error, res.Output)
	}
	if i.observer != nil {
		i.observer.ObserveScript(outcome, elapsed)
	}
	return res
}

func (i *Invoker) classify(runCtx context.Context, stdout, stderr []byte, err error) (Result, string) {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{Output: fmt.Sprintf("script timed out after %v", i.timeout)}, OutcomeTimeout
	}

	output := strings.TrimSpace(string(stdout))
	if output == "" {
		output = strings.TrimSpace(string(stderr))
	}

	if err != nil {
		// Start failures (missing binary, permissions) produce no output.
		if output == "" {
			output = err.Error()
		}
		return Result{Output: output}, OutcomeError
	}

	return Result{OK: true, Output: output}, OutcomeOK
}
