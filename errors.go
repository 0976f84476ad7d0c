package kafkaenv

import "github.com/giantswarm/kafkaenv/internal/sentinel"

// Sentinel errors classifying provisioning failures, matchable with
// errors.Is through wrapped error chains. All of them are terminal for the
// provisioning pipeline: nothing is retried internally, the failing step
// aborts the rest of the pipeline, and the caller decides whether to retry
// the whole sequence.
const (
	// ErrPortAllocation is returned by Start when no usable port pair could
	// be found (the OS probe failed or the scan range is exhausted).
	ErrPortAllocation = sentinel.Error("port allocation failed")

	// ErrFilesystem is returned by Start when the per-instance workspace or
	// the instance registry cannot be created.
	ErrFilesystem = sentinel.Error("filesystem operation failed")

	// ErrConfig is returned by Start when the harness configuration is
	// invalid, or when the template config cannot be read or the generated
	// config cannot be written.
	ErrConfig = sentinel.Error("config generation failed")

	// ErrStorageInit is returned by Start when the distribution's
	// storage-format command exits non-zero. The wrapped chain carries the
	// command's output.
	ErrStorageInit = sentinel.Error("storage initialization failed")

	// ErrProcessSpawn is returned by Start when the server binary cannot be
	// launched, exits during the startup wait, or fails the optional
	// readiness probe.
	ErrProcessSpawn = sentinel.Error("process spawn failed")
)
