package runner

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}
}

func TestRunSuccessCapturesBothStreams(t *testing.T) {
	skipOnWindows(t)
	res, err := Run(context.Background(), `echo out; echo err >&2`, t.TempDir(), time.Minute, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != Succeeded || res.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Stdout, "out") {
		t.Fatalf("stdout not captured: %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err") {
		t.Fatalf("stderr not captured on success: %q", res.Stderr)
	}
}

func TestRunFailureKeepsLogsAndExitCode(t *testing.T) {
	skipOnWindows(t)
	res, err := Run(context.Background(), `echo progress; echo boom >&2; exit 3`, t.TempDir(), time.Minute, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != Failed {
		t.Fatalf("expected Failed, got %+v", res)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "progress") || !strings.Contains(res.Stderr, "boom") {
		t.Fatalf("output dropped on failure: stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestRunTimeoutKillsProcessAndKeepsPartialOutput(t *testing.T) {
	skipOnWindows(t)
	start := time.Now()
	res, err := Run(context.Background(), `echo started; sleep 30`, t.TempDir(), 300*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != TimedOut {
		t.Fatalf("expected TimedOut, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("process not killed promptly, took %s", elapsed)
	}
	if !strings.Contains(res.Stdout, "started") {
		t.Fatalf("partial output dropped on timeout: %q", res.Stdout)
	}
}

func TestRunParentCancellationIsNotABuildFailure(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, `sleep 30`, t.TempDir(), time.Minute, 0)
	if err == nil {
		t.Fatalf("expected an error for a cancelled run")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation reported as something else: %v", err)
	}
}

func TestRunSpawnErrorIsDistinctFromExitFailure(t *testing.T) {
	_, err := Run(context.Background(), "true", "/definitely/not/a/dir", time.Minute, 0)
	if err == nil {
		t.Fatalf("expected spawn error for missing working directory")
	}
}

func TestRunOutputBudgetKillsChattyProcess(t *testing.T) {
	skipOnWindows(t)
	res, err := Run(context.Background(), `yes filler`, t.TempDir(), 10*time.Second, 4096)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != OutputTooLarge {
		t.Fatalf("expected OutputTooLarge, got %+v", res)
	}
	if int64(len(res.Stdout)) > 4096 {
		t.Fatalf("capture exceeded budget: %d bytes", len(res.Stdout))
	}
}
