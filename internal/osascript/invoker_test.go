// Copyright 2025 Joseph Cumines
//
// Invoker unit tests

package osascript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeRunner returns canned output and records what it was asked to run.
type fakeRunner struct {
	stdout string
	stderr string
	err    error
	block  bool

	mu    sync.Mutex
	name  string
	args  []string
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.name = name
	f.args = args
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveScript(outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestInvoker_Success(t *testing.T) {
	runner := &fakeRunner{stdout: "  clicked\n"}
	inv := NewInvoker(time.Second, WithRunner(runner))

	res := inv.Run(context.Background(), `tell application "Thea" to activate`)

	if !res.OK {
		t.Errorf("OK = false, want true")
	}
	if res.Output != "clicked" {
		t.Errorf("Output = %q, want %q", res.Output, "clicked")
	}
	if runner.name != "osascript" {
		t.Errorf("binary = %q, want osascript", runner.name)
	}
	if len(runner.args) != 2 || runner.args[0] != "-e" || runner.args[1] != `tell application "Thea" to activate` {
		t.Errorf("args = %q, want [-e <script>]", runner.args)
	}
}

func TestInvoker_StderrFallback(t *testing.T) {
	runner := &fakeRunner{
		stderr: "execution error: System Events got an error (-1719)\n",
		err:    errors.New("exit status 1"),
	}
	inv := NewInvoker(time.Second, WithRunner(runner))

	res := inv.Run(context.Background(), "x")

	if res.OK {
		t.Error("OK = true, want false")
	}
	if res.Output != "execution error: System Events got an error (-1719)" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestInvoker_StdoutPreferredOverStderr(t *testing.T) {
	runner := &fakeRunner{stdout: "out", stderr: "err"}
	res := NewInvoker(time.Second, WithRunner(runner)).Run(context.Background(), "x")
	if res.Output != "out" {
		t.Errorf("Output = %q, want out", res.Output)
	}
}

func TestInvoker_StartFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New(`exec: "osascript": executable file not found in $PATH`)}
	res := NewInvoker(time.Second, WithRunner(runner)).Run(context.Background(), "x")

	if res.OK {
		t.Error("OK = true, want false")
	}
	if res.Output != `exec: "osascript": executable file not found in $PATH` {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestInvoker_Timeout(t *testing.T) {
	runner := &fakeRunner{block: true}
	obs := &recordingObserver{}
	inv := NewInvoker(20*time.Millisecond, WithRunner(runner), WithObserver(obs))

	res := inv.Run(context.Background(), "delay 60")

	if res.OK {
		t.Error("OK = true, want false")
	}
	if res.Output != "script timed out after 20ms" {
		t.Errorf("Output = %q", res.Output)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != OutcomeTimeout {
		t.Errorf("observer outcomes = %v, want [timeout]", obs.outcomes)
	}
}

func TestInvoker_IgnoresCallerCancellation(t *testing.T) {
	runner := &fakeRunner{stdout: "done"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewInvoker(time.Second, WithRunner(runner)).Run(ctx, "x")

	if !res.OK || res.Output != "done" {
		t.Errorf("Run with cancelled ctx = %+v, want ok done", res)
	}
}

func TestInvoker_ObserverOutcomes(t *testing.T) {
	obs := &recordingObserver{}
	ok := NewInvoker(time.Second, WithRunner(&fakeRunner{}), WithObserver(obs))
	bad := NewInvoker(time.Second, WithRunner(&fakeRunner{err: errors.New("exit status 1")}), WithObserver(obs))

	ok.Run(context.Background(), "a")
	bad.Run(context.Background(), "b")

	if len(obs.outcomes) != 2 || obs.outcomes[0] != OutcomeOK || obs.outcomes[1] != OutcomeError {
		t.Errorf("outcomes = %v, want [ok error]", obs.outcomes)
	}
}

func TestNewInvoker_Defaults(t *testing.T) {
	inv := NewInvoker(0)
	if inv.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", inv.Timeout(), DefaultTimeout)
	}
	if inv.binary != "osascript" {
		t.Errorf("binary = %q, want osascript", inv.binary)
	}

	inv = NewInvoker(time.Second, WithBinary("/usr/bin/osascript"))
	if inv.binary != "/usr/bin/osascript" {
		t.Errorf("binary = %q, want /usr/bin/osascript", inv.binary)
	}
}
