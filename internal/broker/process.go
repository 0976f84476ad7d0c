package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/giantswarm/kafkaenv/internal/process"
)

// jmxPortEnv is the environment variable the distribution scripts read to
// open a JMX monitoring port. It is scrubbed from the child environment so
// the monitoring listener can never collide with the allocated port pair.
const jmxPortEnv = "JMX_PORT"

// readinessDialTimeout is the per-attempt timeout for the TCP dial used by
// the optional readiness probe. Generous for a localhost connection; early
// attempts fail immediately with connection-refused while the broker is
// still starting.
const readinessDialTimeout = time.Second

// readinessPollInterval is the interval between consecutive TCP connection
// attempts when the readiness probe is enabled.
const readinessPollInterval = 100 * time.Millisecond

// Compile-time interface satisfaction check.
var _ process.Stoppable = (*Process)(nil)

// Config holds the configuration for one broker process.
type Config struct {
	DistributionDir string // root of the unpacked broker distribution
	Workspace       string // per-instance directory; working dir and log sink
	ConfigPath      string // generated server.properties inside the workspace
	ClientPort      int    // client listener port, used by the readiness probe

	// StopTimeout bounds the wait for process exit during Stop.
	StopTimeout time.Duration

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Process manages one broker child process. It exclusively owns the child
// and its output streams for the instance's lifetime; all termination goes
// through Stop.
type Process struct {
	config Config
	base   process.BaseProcess
}

// validate checks that all required Config fields are set and returns an
// error describing the first missing or invalid field.
func (c Config) validate() error {
	if c.DistributionDir == "" {
		return errors.New("distribution dir must not be empty")
	}
	if c.Workspace == "" {
		return errors.New("workspace must not be empty")
	}
	if c.ConfigPath == "" {
		return errors.New("config path must not be empty")
	}
	if c.ClientPort <= 0 {
		return errors.New("client port must be positive")
	}
	if c.StopTimeout <= 0 {
		return errors.New("stop timeout must be positive")
	}
	return nil
}

// New creates a broker Process with the given configuration. It returns an
// error if any required field is missing or invalid. New performs no I/O;
// storage formatting and process launch are separate steps.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid broker config: %w", err)
	}
	return &Process{
		config: cfg,
		base:   process.NewBaseProcess("kafka", cfg.Logger, cfg.StopTimeout),
	}, nil
}

// Format runs the distribution's storage-format utility exactly once against
// the generated config, with a freshly generated random cluster identifier.
// The broker refuses to run against an unformatted data directory, so this
// step is mandatory before the first Start. A non-zero exit returns an error
// wrapping the command's combined output.
func (p *Process) Format(ctx context.Context) error {
	script := scriptPath(p.config.DistributionDir, storageScriptName)
	clusterID := NewClusterID()

	cmd := exec.CommandContext(ctx, script, "format", "-t", clusterID, "-c", p.config.ConfigPath)
	cmd.Dir = p.config.Workspace

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("format storage (cluster %s): %w: %s",
			clusterID, err, strings.TrimSpace(string(out)))
	}

	p.base.Logger().Debug("storage formatted", "cluster_id", clusterID, "config", p.config.ConfigPath)
	return nil
}

// Start launches the broker server with the generated config as its argument
// and the workspace as its working directory. The child environment is the
// harness environment minus the JMX monitoring variable; stdout and stderr
// are continuously drained into log files inside the workspace and never
// surfaced to the caller on the success path.
//
// The context only gates the spawn itself: the child is deliberately not
// bound to it, so it survives cancellation of the provisioning call and its
// termination is owned exclusively by Stop.
//
// Start returns as soon as the process is spawned. Readiness is the caller's
// concern: use WaitStartup (fixed interval) or WaitReady (TCP poll).
func (p *Process) Start(ctx context.Context) error {
	if p.base.IsStarted() {
		return process.ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start kafka process: %w", err)
	}

	script := scriptPath(p.config.DistributionDir, startScriptName)

	cmd := exec.Command(script, p.config.ConfigPath)
	cmd.Env = scrubEnv(os.Environ(), jmxPortEnv)

	if err := p.base.SetupAndStart(cmd, p.config.Workspace); err != nil {
		return fmt.Errorf("setup and start kafka process: %w", err)
	}
	return nil
}

// WaitStartup suspends for the fixed startup interval, the readiness
// heuristic the harness uses in place of a protocol-level health check.
// It returns early with an error if the process exits during the wait
// (e.g. on a port bind failure or unformatted storage), pointing at the
// stderr log for diagnosis.
//
// Because this is a heuristic, callers may still observe transient
// coordinator-unavailable conditions for a short window after it returns;
// protocol clients must treat those as retryable.
func (p *Process) WaitStartup(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-p.base.Exited():
		return fmt.Errorf("kafka exited during startup wait; see %s", p.base.StderrPath())
	case <-ctx.Done():
		return fmt.Errorf("startup wait: %w", ctx.Err())
	}
}

// WaitReady polls the client listener port until it accepts TCP connections,
// bounded by timeout. This is the opt-in alternative to WaitStartup for
// callers that prefer an active probe over the fixed interval.
func (p *Process) WaitReady(ctx context.Context, timeout time.Duration) error {
	addr := fmt.Sprintf("127.0.0.1:%d", p.config.ClientPort)

	log := p.base.Logger()
	dialer := &net.Dialer{Timeout: readinessDialTimeout}
	if err := process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      readinessPollInterval,
		Timeout:       timeout,
		Name:          "kafka",
		Port:          p.config.ClientPort,
		Logger:        log,
		ProcessExited: p.base.Exited(),
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		conn, err := dialer.DialContext(checkCtx, "tcp", addr)
		if err != nil {
			log.Debug("waitForKafka attempt", "port", p.config.ClientPort, "attempt", attempt, "error", err)
			return false, nil // not ready yet
		}
		_ = conn.Close() // best-effort close of readiness check connection
		return true, nil
	}); err != nil {
		return fmt.Errorf("kafka not ready: %w", err)
	}
	return nil
}

// Pid returns the child's OS process id, or 0 when not running.
func (p *Process) Pid() int {
	return p.base.Pid()
}

// StderrPath returns the path of the broker's stderr log, or "" before start.
func (p *Process) StderrPath() string {
	return p.base.StderrPath()
}

// Stop tears the broker down in strict order: (1) unconditional kill signal,
// (2) wait until the process-exit event is observed, (3) only then invoke
// the distribution's stop script to release supplementary OS-level resources
// it manages outside the process. Running the stop script before exit would
// race with the kill and can leave orphaned state, so on a failed or timed
// out kill the script is skipped and the error returned.
//
// The stop script's own exit status is tolerated: after the kill it usually
// finds no server to stop and exits non-zero, which is logged and ignored.
//
// Stop is not idempotent. Calling it twice on an already-exited process is
// undefined; callers must route termination through here exactly once.
func (p *Process) Stop(timeout time.Duration) error {
	if err := p.base.Stop(timeout); err != nil {
		return fmt.Errorf("stop kafka process: %w", err)
	}
	p.runStopScript(timeout)
	return nil
}

// runStopScript invokes the distribution's server-stop helper, bounded by
// timeout. Best effort: failures are logged, never propagated.
func (p *Process) runStopScript(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	script := scriptPath(p.config.DistributionDir, stopScriptName)
	cmd := exec.CommandContext(ctx, script)
	cmd.Dir = p.config.Workspace

	if out, err := cmd.CombinedOutput(); err != nil {
		p.base.Logger().Debug("server-stop script exited non-zero (expected after kill)",
			"script", script, "error", err, "output", strings.TrimSpace(string(out)))
	}
}

// Close releases log file handles held by the process.
func (p *Process) Close() {
	p.base.Close()
}

// scrubEnv returns env with every assignment of name removed.
func scrubEnv(env []string, name string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, name+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
