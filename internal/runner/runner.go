package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// State classifies how a subprocess run ended.
type State int

const (
	// Succeeded means the process exited zero within the timeout.
	Succeeded State = iota
	// Failed means the process exited non-zero within the timeout.
	Failed
	// TimedOut means the process was killed when the wall clock expired.
	TimedOut
	// OutputTooLarge means the process was killed after exceeding the
	// combined stdout/stderr capture budget.
	OutputTooLarge
)

// DefaultTimeout bounds a build invocation when the caller passes zero.
const DefaultTimeout = 5 * time.Minute

// DefaultOutputLimit is the combined stdout/stderr capture budget.
const DefaultOutputLimit int64 = 10 * 1024 * 1024

// Result carries the terminal outcome of one subprocess run. Stdout and
// Stderr are always populated with whatever was captured, on every path,
// so callers can persist logs even for failed or killed builds.
type Result struct {
	State    State
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes a shell command in dir and waits for it to finish or for
// the timeout to fire, whichever happens first. The two resolution paths
// meet in a single cmd.Wait, so exactly one of them wins and no timer
// survives past the return. A command that cannot be spawned at all is
// reported as an error, distinct from non-zero exits.
func Run(ctx context.Context, command, dir string, timeout time.Duration, outputLimit int64) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if outputLimit <= 0 {
		outputLimit = DefaultOutputLimit
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("working directory %s does not exist", dir)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	budget := &captureBudget{remaining: outputLimit, exceeded: cancel}
	stdout := budget.stream()
	stderr := budget.stream()

	shell, flag := systemShell()
	cmd := exec.CommandContext(ctx, shell, flag, command)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Do not wait forever on pipes inherited by grandchildren after kill.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("spawn %q: %w", command, err)
	}

	waitErr := cmd.Wait()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	switch {
	case budget.overflowed():
		res.State = OutputTooLarge
		res.ExitCode = -1
	case waitErr == nil:
		// A zero exit observed by Wait wins even if the deadline fired
		// concurrently; the kill path always surfaces a wait error.
		res.State = Succeeded
	case ctx.Err() == context.DeadlineExceeded:
		res.State = TimedOut
		res.ExitCode = -1
	case ctx.Err() != nil:
		// Caller cancellation (shutdown), not a build failure and not
		// this run's deadline.
		return res, fmt.Errorf("build interrupted: %w", ctx.Err())
	default:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("wait for %q: %w", command, waitErr)
		}
		res.State = Failed
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

func systemShell() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "/bin/sh", "-c"
}

// captureBudget enforces one shared byte budget across both output
// streams. The first write that would exceed it flips the overflow flag
// and kills the process via the exceeded callback.
type captureBudget struct {
	mu        sync.Mutex
	remaining int64
	overflow  bool
	exceeded  func()
}

func (b *captureBudget) stream() *boundedBuffer {
	return &boundedBuffer{budget: b}
}

func (b *captureBudget) overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}

type boundedBuffer struct {
	budget *captureBudget
	buf    bytes.Buffer
}

func (w *boundedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b := w.budget
	b.mu.Lock()
	if b.overflow {
		b.mu.Unlock()
		return n, nil
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
		b.overflow = true
	}
	b.remaining -= int64(len(p))
	overflow := b.overflow
	w.buf.Write(p)
	b.mu.Unlock()
	if overflow && b.exceeded != nil {
		b.exceeded()
	}
	return n, nil
}

func (w *boundedBuffer) String() string {
	w.budget.mu.Lock()
	defer w.budget.mu.Unlock()
	return w.buf.String()
}
