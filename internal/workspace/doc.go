// Package workspace provisions the private per-instance directories that
// hold one broker's generated config, data directory and process logs.
// Each workspace is exclusively owned by a single instance and removed when
// the instance is closed; workspaces leaked by crashed runs are reaped by
// the registry purge.
package workspace
