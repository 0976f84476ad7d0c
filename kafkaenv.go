package kafkaenv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/kafkaenv/internal/broker"
	"github.com/giantswarm/kafkaenv/internal/brokerconfig"
	"github.com/giantswarm/kafkaenv/internal/netutil"
	"github.com/giantswarm/kafkaenv/internal/registry"
	"github.com/giantswarm/kafkaenv/internal/workspace"
)

// Harness creates ephemeral broker instances. It carries the resolved
// configuration and a port allocator shared by all Start calls, so
// concurrent provisioning from one Harness never hands out overlapping
// ports. Safe for concurrent use.
type Harness struct {
	cfg   harnessConfig
	ports *netutil.Allocator
	log   *slog.Logger
}

// New creates a Harness from the defaults and the given options. It performs
// no I/O; environmental problems (missing distribution dir and the like)
// surface from Start. Invalid option values panic inside the options.
func New(opts ...Option) *Harness {
	cfg := defaultHarnessConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logger()
	return &Harness{
		cfg:   cfg,
		ports: netutil.NewAllocator(cfg.basePort, log),
		log:   log,
	}
}

// Start provisions and boots one broker instance: port allocation, workspace
// creation, config generation, storage format, process spawn, startup wait.
// Each step's failure is terminal, wrapped with the matching sentinel error
// (ErrPortAllocation, ErrFilesystem, ErrConfig, ErrStorageInit,
// ErrProcessSpawn), and aborts the pipeline; nothing is retried. On failure
// after the workspace exists, the partial workspace is removed.
//
// The returned Broker is exclusively owned by the caller, who must Close it
// exactly once when done.
func (h *Harness) Start(ctx context.Context) (*Broker, error) {
	if err := h.cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	ports, err := h.ports.AllocatePair()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPortAllocation, err)
	}

	ws, err := workspace.Provision(h.cfg.baseDataDir, workspacePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	h.log.Debug("provisioned instance",
		"workspace", ws, "client_port", ports.Client, "controller_port", ports.Controller)

	id := uuid.NewString()
	cleanup := func() {
		h.forgetInstance(ctx, id)
		if rmErr := workspace.Remove(ws); rmErr != nil {
			h.log.Warn("remove workspace of failed instance", "workspace", ws, "error", rmErr)
		}
	}

	// Config generation and registry bookkeeping only share the workspace
	// path; run them concurrently.
	var configPath string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, genErr := brokerconfig.Generate(h.cfg.resolvedTemplatePath(), ws, ports)
		if genErr != nil {
			return fmt.Errorf("%w: %w", ErrConfig, genErr)
		}
		configPath = p
		return nil
	})
	g.Go(func() error {
		// Recorded before the spawn with pid 0, so a crash mid-pipeline
		// still leaves a row Purge can reap. The owner pid keeps other
		// processes' purges off the row while this one is alive.
		return h.recordInstance(gctx, registry.Record{
			ID:             id,
			Pid:            0,
			OwnerPid:       os.Getpid(),
			Workspace:      ws,
			ClientPort:     ports.Client,
			ControllerPort: ports.Controller,
			CreatedAt:      time.Now(),
		})
	})
	if err := g.Wait(); err != nil {
		cleanup()
		return nil, err
	}

	proc, err := broker.New(broker.Config{
		DistributionDir: h.cfg.distributionDir,
		Workspace:       ws,
		ConfigPath:      configPath,
		ClientPort:      ports.Client,
		StopTimeout:     h.cfg.stopTimeout,
		Logger:          h.log,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := proc.Format(ctx); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %w", ErrStorageInit, err)
	}

	if err := proc.Start(ctx); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %w", ErrProcessSpawn, err)
	}
	h.updateInstancePid(ctx, id, proc.Pid())

	if err := h.awaitUsable(ctx, proc); err != nil {
		if stopErr := proc.Stop(h.cfg.stopTimeout); stopErr != nil {
			h.log.Warn("stop broker after failed startup", "error", stopErr)
		}
		proc.Close()
		cleanup()
		return nil, fmt.Errorf("%w: %w", ErrProcessSpawn, err)
	}

	h.log.Info("broker started",
		"pid", proc.Pid(), "addr", fmt.Sprintf("localhost:%d", ports.Client), "workspace", ws)

	return &Broker{
		id:          id,
		ports:       ports,
		workspace:   ws,
		configPath:  configPath,
		baseDataDir: h.cfg.baseDataDir,
		proc:        proc,
		stopTimeout: h.cfg.stopTimeout,
		log:         h.log,
	}, nil
}

// awaitUsable applies the configured readiness strategy: an active TCP probe
// of the client port when enabled, the fixed startup wait otherwise.
func (h *Harness) awaitUsable(ctx context.Context, proc *broker.Process) error {
	if h.cfg.readinessProbe {
		return proc.WaitReady(ctx, h.cfg.startupProbeTimeout)
	}
	return proc.WaitStartup(ctx, h.cfg.startupWait)
}

// Purge removes every instance under the harness's base data dir whose
// owning process no longer exists: leftovers of crashed or killed test runs.
// Live instances, including ones owned by other processes, are untouched.
// Returns the number of instances reaped.
//
// There is no exit hook in the runtime that could clean up when the test
// binary dies hard, so leaked instances are reclaimed lazily: call Purge at
// the start of a run (e.g. from TestMain) to sweep previous runs' debris.
func (h *Harness) Purge(ctx context.Context) (int, error) {
	reg, err := registry.Open(h.cfg.baseDataDir, h.log)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	defer func() {
		if closeErr := reg.Close(); closeErr != nil {
			h.log.Warn("close instance registry", "error", closeErr)
		}
	}()
	return reg.Purge(ctx)
}

// recordInstance inserts the instance into the on-disk registry.
func (h *Harness) recordInstance(ctx context.Context, rec registry.Record) error {
	reg, err := registry.Open(h.cfg.baseDataDir, h.log)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	defer func() {
		if closeErr := reg.Close(); closeErr != nil {
			h.log.Warn("close instance registry", "error", closeErr)
		}
	}()
	if err := reg.Add(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	return nil
}

// updateInstancePid records the spawned pid. Best effort: the registry is a
// crash-recovery safety net, not a source of truth for the live instance, so
// a failure here is logged and the pipeline continues.
func (h *Harness) updateInstancePid(ctx context.Context, id string, pid int) {
	reg, err := registry.Open(h.cfg.baseDataDir, h.log)
	if err != nil {
		h.log.Warn("open instance registry for pid update", "error", err)
		return
	}
	defer reg.Close() //nolint:errcheck // best-effort bookkeeping
	if err := reg.SetPid(ctx, id, pid); err != nil {
		h.log.Warn("record broker pid", "id", id, "pid", pid, "error", err)
	}
}

// forgetInstance drops the instance's registry row. Best effort.
func (h *Harness) forgetInstance(ctx context.Context, id string) {
	reg, err := registry.Open(h.cfg.baseDataDir, h.log)
	if err != nil {
		h.log.Warn("open instance registry for removal", "error", err)
		return
	}
	defer reg.Close() //nolint:errcheck // best-effort bookkeeping
	if err := reg.Remove(ctx, id); err != nil {
		h.log.Warn("remove instance record", "id", id, "error", err)
	}
}
