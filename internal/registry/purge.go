package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/kafkaenv/internal/workspace"
)

// lockFileName is the cross-process purge lock under the base directory.
// The lock file is intentionally left on disk after release: removing it
// could invalidate a lock concurrently acquired by another process.
const lockFileName = "purge.lock"

// lockRetryInterval is the interval between consecutive attempts to acquire
// the purge lock. 50ms balances responsiveness against busy-polling.
const lockRetryInterval = 50 * time.Millisecond

// Purge removes every recorded instance whose processes no longer exist:
// its workspace is deleted recursively and its registry row dropped. An
// instance is stale only when both its broker pid is gone (or was never
// recorded) AND the harness process that provisioned it is gone; a live
// owner may still be mid-provisioning, since rows are inserted with pid 0
// before the spawn. Live instances are left untouched.
//
// A file lock under the base directory serializes purges across harness
// processes sharing the same base dir, so two concurrent purges cannot race
// each other deleting the same workspaces. Returns the number of instances
// reaped.
func (r *Registry) Purge(ctx context.Context) (int, error) {
	fl := flock.New(filepath.Join(r.baseDir, lockFileName))
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return 0, fmt.Errorf("acquire purge lock: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("acquire purge lock: %w", ctx.Err())
	}
	defer func() {
		// Close releases the lock and the descriptor.
		if closeErr := fl.Close(); closeErr != nil {
			r.log.Debug("release purge lock", "path", fl.Path(), "error", closeErr)
		}
	}()

	records, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, rec := range records {
		if rec.Pid > 0 && pidAlive(rec.Pid) {
			continue
		}
		if rec.OwnerPid > 0 && pidAlive(rec.OwnerPid) {
			// The owning harness is alive; its pid-0 rows are in-flight
			// provisioning, not leaks.
			continue
		}
		r.log.Debug("purging stale instance",
			"id", rec.ID, "pid", rec.Pid, "owner_pid", rec.OwnerPid, "workspace", rec.Workspace)

		if err := workspace.Remove(rec.Workspace); err != nil {
			// Leave the row in place so a later purge retries the removal.
			r.log.Warn("purge: remove stale workspace", "workspace", rec.Workspace, "error", err)
			continue
		}
		if err := r.Remove(ctx, rec.ID); err != nil {
			return reaped, err
		}
		reaped++
	}

	return reaped, nil
}

// pidAlive reports whether a process with the given pid exists. Signal 0
// performs the existence check without delivering anything; EPERM still
// means the process exists.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
