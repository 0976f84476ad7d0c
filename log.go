package kafkaenv

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// customLogger is the caller-provided logger, stored as an atomic pointer to
// allow safe concurrent reads and writes. A nil value means no custom logger
// has been set; logger() falls back to a cached default.
var customLogger atomic.Pointer[slog.Logger]

// cachedDefault caches the default-derived logger so it is not re-created on
// every logger() call. If slog.SetDefault() is called after the first
// logger() call, the cache will not reflect the change; call SetLogger(nil)
// to clear it and pick up the new default.
var cachedDefault atomic.Pointer[slog.Logger]

// logger returns the current package-level logger. If no custom logger has
// been set via SetLogger, it returns a cached logger derived from the
// default, with debug level enabled when the DebugEnv environment variable
// is set. Safe to call from multiple goroutines.
func logger() *slog.Logger {
	if l := customLogger.Load(); l != nil {
		return l
	}
	if l := cachedDefault.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	// CompareAndSwap avoids overwriting a concurrently cached value; if
	// another goroutine already stored one, use theirs.
	if cachedDefault.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := cachedDefault.Load(); l2 != nil {
		return l2
	}
	return l
}

// newDefaultLogger creates the default logger. When DebugEnv is set in the
// environment, it is a text handler on stderr with debug level enabled so
// the child processes' lifecycle and port allocation become visible;
// otherwise it derives from slog.Default().
func newDefaultLogger() *slog.Logger {
	if os.Getenv(DebugEnv) != "" {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(h).With("component", "kafkaenv")
	}
	return slog.Default().With("component", "kafkaenv")
}

// SetLogger replaces the package-level logger used by kafkaenv, integrating
// harness logging with the application's own logging infrastructure. The
// provided logger should already carry any desired attributes; kafkaenv
// adds none.
//
// If l is nil, the logger resets to the default (slog.Default() with a
// component attribute, or the verbose handler when DebugEnv is set),
// re-derived on the next use and then cached.
//
// SetLogger is safe to call concurrently with other kafkaenv operations,
// but loggers captured by already-created Harness values keep their
// original sink; call SetLogger before New for a strict guarantee.
func SetLogger(l *slog.Logger) {
	customLogger.Store(l)
	// Clear the cached default so the next logger() call re-derives it.
	cachedDefault.Store(nil)
}
