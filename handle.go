package kafkaenv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/kafkaenv/internal/broker"
	"github.com/giantswarm/kafkaenv/internal/netutil"
	"github.com/giantswarm/kafkaenv/internal/process"
	"github.com/giantswarm/kafkaenv/internal/registry"
	"github.com/giantswarm/kafkaenv/internal/workspace"
)

// Broker is a handle to one running broker instance. It is created by
// Harness.Start and owned exclusively by its caller. Accessors are safe to
// call concurrently; Close is not, and must be called exactly once.
type Broker struct {
	id          string
	ports       netutil.PortPair
	workspace   string
	configPath  string
	baseDataDir string
	proc        *broker.Process
	stopTimeout time.Duration
	log         *slog.Logger
}

// ClientPort returns the port protocol clients connect to.
func (b *Broker) ClientPort() int {
	return b.ports.Client
}

// ControllerPort returns the internal metadata-quorum port. Exposed for
// diagnostics; clients never connect to it.
func (b *Broker) ControllerPort() int {
	return b.ports.Controller
}

// Addr returns the broker's client address in host:port form, matching the
// advertised listener, e.g. "localhost:9092".
func (b *Broker) Addr() string {
	return fmt.Sprintf("localhost:%d", b.ports.Client)
}

// ConfigPath returns the path of the generated server config. The file is
// immutable after generation.
func (b *Broker) ConfigPath() string {
	return b.configPath
}

// Workspace returns the instance's private directory, which also holds the
// broker's stdout/stderr logs (useful when diagnosing a failed test).
func (b *Broker) Workspace() string {
	return b.workspace
}

// Close tears the instance down: kill signal to the broker process, wait for
// its exit (bounded by the stop timeout and the context deadline, whichever
// is shorter), then the distribution's stop script, and finally removal of
// the workspace and the instance's registry record. All encountered errors
// are joined and returned.
//
// Close must be called exactly once; a second call's behavior is undefined
// and unsupported. It does not degrade gracefully for externally killed
// processes either: the instance must still be closed through here so the
// workspace and bookkeeping are released.
func (b *Broker) Close(ctx context.Context) error {
	var errs []error

	if err := process.StopCloseAndNil(&b.proc, b.effectiveStopTimeout(ctx)); err != nil {
		errs = append(errs, err)
	}

	if reg, err := registry.Open(b.baseDataDir, b.log); err != nil {
		b.log.Warn("open instance registry during close", "error", err)
	} else {
		if err := reg.Remove(ctx, b.id); err != nil {
			b.log.Warn("remove instance record", "id", b.id, "error", err)
		}
		if err := reg.Close(); err != nil {
			b.log.Warn("close instance registry", "error", err)
		}
	}

	if err := workspace.Remove(b.workspace); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrFilesystem, err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close broker: %w", err)
	}
	b.log.Debug("broker closed", "workspace", b.workspace)
	return nil
}

// minStopTimeout is the floor for the exit wait during Close. SIGKILL cannot
// be caught, so even with an exhausted context deadline the process needs a
// moment to be reaped before the wait is declared timed out.
const minStopTimeout = time.Second

// effectiveStopTimeout returns the configured stop timeout, shortened to the
// context's remaining time when a deadline is set and closer, and clamped to
// minStopTimeout so an expired context cannot produce a zero or negative
// wait that would misreport the kill as timed out and skip the stop script.
func (b *Broker) effectiveStopTimeout(ctx context.Context) time.Duration {
	timeout := b.stopTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout < minStopTimeout {
		timeout = minStopTimeout
	}
	return timeout
}
