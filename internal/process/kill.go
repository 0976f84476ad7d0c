package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// DefaultStopTimeout bounds the wait for process exit after the kill signal.
// SIGKILL cannot be caught, so under normal conditions the process exits
// almost immediately; the timeout is a safety net against a cmd.Wait that
// never returns (stuck I/O, kernel issues).
const DefaultStopTimeout = 10 * time.Second

// drainDone reads from the done channel with the given timeout as a hard
// upper bound. Returns true and the cmd.Wait error if the channel delivered
// in time, or false and a nil error if the timeout elapsed.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// killWithDone sends an unconditional kill signal to the process and then
// waits for the exit event, using a pre-existing done channel that already
// has a goroutine calling cmd.Wait. This avoids spawning a second cmd.Wait,
// which is undefined behavior. The done channel must receive the result of
// exactly one cmd.Wait call.
//
// The ordering is deliberate: kill first, observe exit second. Callers that
// run supplementary teardown (the broker distribution's stop script) must
// only do so after killWithDone returns, otherwise the teardown races with
// the kill and can leave orphaned state behind.
//
// killWithDone does not nil cmd or the done channel; the caller clears those
// references so subsequent IsStarted checks see the process as stopped.
func killWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	// Kill on an already-exited process returns "os: process already
	// finished"; the exit result is still pending on the done channel, so
	// fall through to the drain either way.
	if err := cmd.Process.Kill(); err != nil {
		ok, waitErr := drainDone(done, timeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after kill failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	ok, waitErr := drainDone(done, timeout)
	if !ok {
		return fmt.Errorf("%s: timed out waiting for process to exit after kill", name)
	}
	return expectSignalExit(waitErr, name)
}

// expectSignalExit interprets an error from cmd.Wait after a termination
// signal. Exit statuses caused by SIGKILL or SIGTERM (the parent-death
// signal) are expected and treated as successful stops.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGKILL || sig == syscall.SIGTERM {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
