package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/giantswarm/kafkaenv/internal/workspace"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// FileName is the registry database file name under the base directory.
const FileName = "instances.db"

// schema creates the instances table. One row per live broker instance;
// rows are inserted after workspace provisioning and removed on Close or
// by Purge.
const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id              TEXT PRIMARY KEY,
	pid             INTEGER NOT NULL,
	owner_pid       INTEGER NOT NULL,
	workspace       TEXT NOT NULL,
	client_port     INTEGER NOT NULL,
	controller_port INTEGER NOT NULL,
	created_at      TEXT NOT NULL
)`

// Record describes one live instance as stored in the registry.
//
// Pid is the broker child's pid, 0 until the spawn lands. OwnerPid is the
// harness process that provisioned the instance; it distinguishes an
// in-flight pid-0 row (owner still alive) from one left behind by a crash.
type Record struct {
	ID             string
	Pid            int
	OwnerPid       int
	Workspace      string
	ClientPort     int
	ControllerPort int
	CreatedAt      time.Time
}

// Registry is an open handle to the instance database. Not safe for
// concurrent use by multiple goroutines; each harness operation opens a
// short-lived session rather than holding a pool.
type Registry struct {
	db      *sql.DB
	baseDir string
	log     *slog.Logger
}

// Open opens (creating if needed) the registry database under baseDir and
// ensures the schema exists. Callers must Close the returned Registry.
// If logger is nil, slog.Default() is used.
func Open(baseDir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := workspace.EnsureDir(baseDir); err != nil {
		return nil, err
	}

	path := filepath.Join(baseDir, FileName)
	// busy_timeout covers concurrent harness processes sharing one base dir;
	// WAL matches concurrent readers with a single writer.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}
	// Single connection: short-lived sessions, not a pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}

	return &Registry{db: db, baseDir: baseDir, log: logger}, nil
}

// Close releases the database handle.
func (r *Registry) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	return nil
}

// Add inserts a record for a freshly provisioned instance.
func (r *Registry) Add(ctx context.Context, rec Record) error {
	const q = `INSERT INTO instances (id, pid, owner_pid, workspace, client_port, controller_port, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Pid, rec.OwnerPid, rec.Workspace, rec.ClientPort, rec.ControllerPort,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert instance %s: %w", rec.ID, err)
	}
	return nil
}

// SetPid updates the recorded pid once the child process has been spawned.
// The row is inserted before the spawn (so a crash between the two steps
// still leaves a purgeable record with pid 0).
func (r *Registry) SetPid(ctx context.Context, id string, pid int) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE instances SET pid = ? WHERE id = ?`, pid, id); err != nil {
		return fmt.Errorf("update instance %s pid: %w", id, err)
	}
	return nil
}

// Remove deletes the record of a closed instance. Removing an absent id is
// not an error.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM instances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete instance %s: %w", id, err)
	}
	return nil
}

// List returns all recorded instances, oldest first.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, pid, owner_pid, workspace, client_port, controller_port, created_at
		 FROM instances ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.Pid, &rec.OwnerPid, &rec.Workspace,
			&rec.ClientPort, &rec.ControllerPort, &created); err != nil {
			return nil, fmt.Errorf("scan instance row: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instance rows: %w", err)
	}
	return records, nil
}
