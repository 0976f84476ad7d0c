package process

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

func TestExpectSignalExit(t *testing.T) {
	t.Parallel()

	type testCase struct {
		err     error
		signal  syscall.Signal
		wantErr bool
	}

	tests := map[string]testCase{
		"nil error returns nil": {
			wantErr: false,
		},
		"SIGKILL exit is expected": {
			signal:  syscall.SIGKILL,
			wantErr: false,
		},
		"SIGTERM exit is expected": {
			signal:  syscall.SIGTERM,
			wantErr: false,
		},
		"other signal is unexpected": {
			signal:  syscall.SIGINT,
			wantErr: true,
		},
		"non-ExitError is unexpected": {
			err:     errors.New("some other error"),
			wantErr: true,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			inputErr := tc.err
			if inputErr == nil && tc.signal != 0 {
				inputErr = makeSignalExitError(t, tc.signal)
			}

			got := expectSignalExit(inputErr, "test-proc")

			if tc.wantErr && got == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}
}

func TestDrainDone(t *testing.T) {
	t.Parallel()

	t.Run("receives value", func(t *testing.T) {
		t.Parallel()
		done := make(chan error, 1)
		done <- nil

		ok, err := drainDone(done, time.Second)
		if !ok {
			t.Fatal("expected ok=true when channel has a value")
		}
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})

	t.Run("receives error", func(t *testing.T) {
		t.Parallel()
		done := make(chan error, 1)
		want := errors.New("process crashed")
		done <- want

		ok, err := drainDone(done, time.Second)
		if !ok {
			t.Fatal("expected ok=true when channel has a value")
		}
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	})

	t.Run("times out on empty channel", func(t *testing.T) {
		t.Parallel()
		done := make(chan error) // unbuffered, never written to

		ok, err := drainDone(done, 10*time.Millisecond)
		if ok {
			t.Fatal("expected ok=false when timeout elapses")
		}
		if err != nil {
			t.Fatalf("expected nil error on timeout, got %v", err)
		}
	})
}

func TestKillWithDone(t *testing.T) {
	t.Parallel()

	t.Run("nil cmd returns nil", func(t *testing.T) {
		t.Parallel()
		if err := killWithDone(nil, make(chan error, 1), time.Second, "x"); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("nil done channel is an error", func(t *testing.T) {
		t.Parallel()
		cmd := exec.Command("sleep", "60")
		if err := cmd.Start(); err != nil {
			t.Fatalf("start sleep: %v", err)
		}
		defer func() {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}()

		if err := killWithDone(cmd, nil, time.Second, "x"); err == nil {
			t.Fatal("expected error for nil done channel")
		}
	})

	t.Run("kills a running process", func(t *testing.T) {
		t.Parallel()
		cmd := exec.Command("sleep", "60")
		if err := cmd.Start(); err != nil {
			t.Fatalf("start sleep: %v", err)
		}
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		if err := killWithDone(cmd, done, 5*time.Second, "sleep"); err != nil {
			t.Fatalf("killWithDone: %v", err)
		}
	})

	t.Run("process already exited", func(t *testing.T) {
		t.Parallel()
		cmd := exec.Command("true")
		if err := cmd.Start(); err != nil {
			t.Fatalf("start true: %v", err)
		}
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		// Give the process time to exit so Kill hits a finished process.
		time.Sleep(100 * time.Millisecond)

		if err := killWithDone(cmd, done, 5*time.Second, "true"); err != nil {
			t.Fatalf("killWithDone on exited process: %v", err)
		}
	})
}

func TestNewBaseProcess(t *testing.T) {
	t.Parallel()

	t.Run("creates process with name", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("kafka", nil, 0)
		if bp.name != "kafka" {
			t.Errorf("name = %q, want %q", bp.name, "kafka")
		}
		if bp.log == nil {
			t.Fatal("expected non-nil logger")
		}
		if bp.IsStarted() {
			t.Error("new process should not be started")
		}
	})

	t.Run("panics on empty name", func(t *testing.T) {
		t.Parallel()
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for empty name")
			}
		}()
		NewBaseProcess("", nil, 0)
	})
}

func TestBaseProcess_SetupAndStart(t *testing.T) {
	t.Parallel()

	t.Run("nil cmd", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("test", nil, 0)
		if err := bp.SetupAndStart(nil, t.TempDir()); !errors.Is(err, ErrNilCmd) {
			t.Errorf("error = %v, want ErrNilCmd", err)
		}
	})

	t.Run("empty dir", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("test", nil, 0)
		if err := bp.SetupAndStart(exec.Command("true"), ""); !errors.Is(err, ErrEmptyDir) {
			t.Errorf("error = %v, want ErrEmptyDir", err)
		}
	})

	t.Run("starts and stops a process", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("test", nil, 0)
		dir := t.TempDir()

		if err := bp.SetupAndStart(exec.Command("sleep", "60"), dir); err != nil {
			t.Fatalf("SetupAndStart: %v", err)
		}
		if !bp.IsStarted() {
			t.Error("process should report started")
		}
		if bp.Pid() == 0 {
			t.Error("expected non-zero pid")
		}
		if bp.Exited() == nil {
			t.Error("expected non-nil exited channel")
		}

		if err := bp.Stop(5 * time.Second); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if bp.IsStarted() {
			t.Error("process should report stopped after Stop")
		}
		bp.Close()
	})

	t.Run("double start is rejected", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("test", nil, 0)
		dir := t.TempDir()

		if err := bp.SetupAndStart(exec.Command("sleep", "60"), dir); err != nil {
			t.Fatalf("SetupAndStart: %v", err)
		}
		t.Cleanup(func() {
			_ = bp.Stop(5 * time.Second)
			bp.Close()
		})

		if err := bp.SetupAndStart(exec.Command("sleep", "60"), dir); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("second SetupAndStart = %v, want ErrAlreadyStarted", err)
		}
	})

	t.Run("exited channel closes when process dies", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("test", nil, 0)

		if err := bp.SetupAndStart(exec.Command("true"), t.TempDir()); err != nil {
			t.Fatalf("SetupAndStart: %v", err)
		}
		t.Cleanup(func() {
			_ = bp.Stop(5 * time.Second)
			bp.Close()
		})

		select {
		case <-bp.Exited():
		case <-time.After(5 * time.Second):
			t.Fatal("exited channel not closed after process exit")
		}
	})
}

func TestBaseProcess_StopWhenNotStarted(t *testing.T) {
	t.Parallel()

	bp := NewBaseProcess("test", nil, 0)
	if err := bp.Stop(time.Second); err != nil {
		t.Fatalf("Stop on unstarted process should return nil, got %v", err)
	}
}

func TestBaseProcess_CloseWhenNotStarted(t *testing.T) {
	t.Parallel()

	bp := NewBaseProcess("test", nil, 0)
	// Close on unstarted process should not panic.
	bp.Close()
}

func TestLogFiles_Paths(t *testing.T) {
	t.Parallel()

	lf := LogFiles{dir: "/tmp/kafkaenv/ws-1", stdoutName: "kafka-stdout.log", stderrName: "kafka-stderr.log"}
	if got, want := lf.StdoutPath(), "/tmp/kafkaenv/ws-1/kafka-stdout.log"; got != want {
		t.Errorf("StdoutPath() = %q, want %q", got, want)
	}
	if got, want := lf.StderrPath(), "/tmp/kafkaenv/ws-1/kafka-stderr.log"; got != want {
		t.Errorf("StderrPath() = %q, want %q", got, want)
	}
}

func TestLogFiles_CloseNilHandles(t *testing.T) {
	t.Parallel()

	// Close with nil file handles should not panic.
	lf := LogFiles{}
	lf.Close()
}

func TestStopCloseAndNil(t *testing.T) {
	t.Parallel()

	t.Run("nil pointer returns nil", func(t *testing.T) {
		t.Parallel()
		if err := StopCloseAndNil[*fakeStoppable](nil, time.Second); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("nil value returns nil", func(t *testing.T) {
		t.Parallel()
		var p *fakeStoppable
		if err := StopCloseAndNil(&p, time.Second); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("calls stop and close then nils", func(t *testing.T) {
		t.Parallel()
		f := &fakeStoppable{}
		p := f
		if err := StopCloseAndNil(&p, 5*time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Error("pointer should be nil after StopCloseAndNil")
		}
		if !f.stopped || !f.closed {
			t.Errorf("stopped=%v closed=%v, want both true", f.stopped, f.closed)
		}
		if f.stopTimeout != 5*time.Second {
			t.Errorf("Stop timeout = %v, want %v", f.stopTimeout, 5*time.Second)
		}
	})

	t.Run("close and nil on stop error", func(t *testing.T) {
		t.Parallel()
		f := &fakeStoppable{stopErr: errors.New("stop failed")}
		p := f
		err := StopCloseAndNil(&p, time.Second)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if p != nil {
			t.Error("pointer should be nil even when Stop fails")
		}
		if !f.closed {
			t.Error("Close should be called even when Stop fails")
		}
	})
}

// fakeStoppable is a test double for the Stoppable interface.
type fakeStoppable struct {
	stopped     bool
	closed      bool
	stopErr     error
	stopTimeout time.Duration
}

func (f *fakeStoppable) Stop(timeout time.Duration) error {
	f.stopped = true
	f.stopTimeout = timeout
	return f.stopErr
}

func (f *fakeStoppable) Close() {
	f.closed = true
}

// makeSignalExitError creates an *exec.ExitError with the given signal.
// It uses a real process to generate an authentic WaitStatus.
func makeSignalExitError(tb testing.TB, sig syscall.Signal) *exec.ExitError {
	tb.Helper()

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		tb.Fatalf("test setup: start sleep: %v", err)
	}

	if err := cmd.Process.Signal(sig); err != nil {
		_ = cmd.Process.Kill() // best-effort cleanup
		tb.Fatalf("test setup: signal process with %v: %v", sig, err)
	}

	err := cmd.Wait()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		tb.Fatalf("test setup: expected *exec.ExitError from signaled process, got %v", err)
	}

	return exitErr
}
