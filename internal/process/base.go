package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/giantswarm/kafkaenv/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called on a process that is
// already running. Callers must Stop the process before starting it again.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyDir is returned when SetupAndStart is called with an empty working directory.
const ErrEmptyDir = sentinel.Error("working directory must not be empty")

// BaseProcess provides common child-process lifecycle management for the
// broker supervisor.
//
// BaseProcess is not safe for concurrent use. The broker.Process that embeds
// it is exclusively owned by one provisioning pipeline, which serializes all
// calls; no other component may terminate the child directly.
type BaseProcess struct {
	cmd         *exec.Cmd
	waitDone    <-chan error    // receives the cmd.Wait result; started once in SetupAndStart
	exited      <-chan struct{} // closed when the process exits; readable by multiple goroutines
	logFiles    LogFiles
	name        string        // process name for logging and log file names
	log         *slog.Logger  // logger for operational messages
	stopTimeout time.Duration // timeout for auto-stop in Close; zero uses DefaultStopTimeout
}

// NewBaseProcess creates a BaseProcess with the given name, logger, and stop
// timeout. The stopTimeout is used by Close as a safety-net timeout when
// auto-stopping a process that was not explicitly stopped; zero falls back to
// DefaultStopTimeout. If logger is nil, slog.Default() is used. Panics if
// name is empty, since an empty name produces confusing error messages
// throughout the process lifecycle.
func NewBaseProcess(name string, logger *slog.Logger, stopTimeout time.Duration) BaseProcess {
	if name == "" {
		panic("kafkaenv: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, stopTimeout: stopTimeout}
}

// SetupAndStart starts the command with the given working directory, with
// stdout/stderr drained into freshly created log files in that directory.
// The cmd must already have its Path, Args and Env set.
//
// A single goroutine calling cmd.Wait is started here so that exactly one
// Wait call is made per process. Two channels are created:
//
//   - done (buffered 1): receives the Wait error, consumed once by Stop.
//   - exited (closed on exit): broadcast signal readable by any number of
//     goroutines (startup waits, readiness polls) to detect early death.
//
// Returns ErrAlreadyStarted if the process is already running.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, dir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if dir == "" {
		return ErrEmptyDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd.Dir = dir
	configureSysProcAttr(cmd)

	logFiles, err := StartCmd(cmd, dir, b.name)
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	b.cmd = cmd
	b.logFiles = logFiles

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	return nil
}

// Stop sends the unconditional kill signal and waits for process exit, with
// timeout as a hard upper bound on the wait. After Stop returns, IsStarted
// reports false regardless of outcome. Safe to call when the process was
// never started or already stopped; returns nil immediately in those cases.
//
// Stop is not idempotent with respect to an externally reaped process:
// calling it twice on the same started process is prevented by the nil-out,
// but callers must still route all termination through the shutdown
// controller exactly once.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.cmd = nil
		b.waitDone = nil
		b.exited = nil
		return nil
	}
	pid := b.cmd.Process.Pid
	err := killWithDone(b.cmd, b.waitDone, timeout, b.name)
	if err != nil {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
	}
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	return err
}

// Close closes log file handles. If the process is still running (Stop was
// not called first), Close logs a warning and stops it automatically to
// prevent leaks. Callers should always call Stop before Close; the auto-stop
// is a safety net, not an intended code path.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		timeout := b.stopTimeout
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		if err := b.Stop(timeout); err != nil {
			b.log.Warn("auto-stop during Close failed",
				"process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

// Logger returns the logger used by this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// Exited returns a channel that is closed when the process exits. It is safe
// to select on from any number of goroutines. Returns nil if the process has
// not been started or has already been stopped.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// Pid returns the child's OS process id, or 0 if not started.
func (b *BaseProcess) Pid() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// IsStarted reports whether the process has been started and not yet stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// StdoutPath returns the path of the stdout log file, or "" before start.
func (b *BaseProcess) StdoutPath() string {
	if b.logFiles.dir == "" {
		return ""
	}
	return b.logFiles.StdoutPath()
}

// StderrPath returns the path of the stderr log file, or "" before start.
func (b *BaseProcess) StderrPath() string {
	if b.logFiles.dir == "" {
		return ""
	}
	return b.logFiles.StderrPath()
}
