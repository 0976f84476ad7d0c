package kafkaenv

import (
	"fmt"
	"time"
)

// Option configures a Harness. Options validate their arguments eagerly and
// panic on values that can only come from a programming error (non-positive
// durations, out-of-range ports, empty required paths), so misconfiguration
// fails at the New call site instead of surfacing later as a confusing
// provisioning error.
type Option func(*harnessConfig)

// WithDistributionDir sets the root directory of the unpacked broker
// distribution (the directory containing bin/ and config/). It takes
// precedence over the DistributionDirEnv environment variable.
// Panics if dir is empty.
func WithDistributionDir(dir string) Option {
	requireNonEmpty("distribution dir", dir)
	return func(c *harnessConfig) {
		c.distributionDir = dir
	}
}

// WithTemplatePath sets the template server config the per-instance config
// is generated from. Defaults to the distribution's stock single-node
// config. Panics if path is empty.
func WithTemplatePath(path string) Option {
	requireNonEmpty("template path", path)
	return func(c *harnessConfig) {
		c.templatePath = path
	}
}

// WithBaseDataDir sets the directory under which per-instance workspaces and
// the instance registry are created. Defaults to a kafkaenv directory under
// the OS temp dir. Panics if dir is empty.
func WithBaseDataDir(dir string) Option {
	requireNonEmpty("base data dir", dir)
	return func(c *harnessConfig) {
		c.baseDataDir = dir
	}
}

// WithBasePort sets the port the allocator starts scanning upward from.
// Panics if port is outside 1..65535.
func WithBasePort(port int) Option {
	if port <= 0 || port > 65535 {
		panic(fmt.Sprintf("kafkaenv: base port must be in 1..65535, got %d", port))
	}
	return func(c *harnessConfig) {
		c.basePort = port
	}
}

// WithStartupWait sets the fixed post-spawn interval Start sleeps before
// declaring the broker usable. Ignored when WithReadinessProbe is enabled.
// Panics if d is not positive.
func WithStartupWait(d time.Duration) Option {
	requirePositive("startup wait", d)
	return func(c *harnessConfig) {
		c.startupWait = d
	}
}

// WithStopTimeout bounds the wait for the broker process to exit after the
// kill signal during Close. Panics if d is not positive.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *harnessConfig) {
		c.stopTimeout = d
	}
}

// WithReadinessProbe replaces the fixed startup wait with an active TCP
// probe of the client port, bounded by the startup probe timeout. The probe
// only proves the listener accepts connections; protocol-level warm-up
// (e.g. coordinator election) may still lag behind it briefly.
func WithReadinessProbe() Option {
	return func(c *harnessConfig) {
		c.readinessProbe = true
	}
}

// WithStartupProbeTimeout bounds the TCP readiness probe enabled by
// WithReadinessProbe. Has no effect without it. Panics if d is not positive.
func WithStartupProbeTimeout(d time.Duration) Option {
	requirePositive("startup probe timeout", d)
	return func(c *harnessConfig) {
		c.startupProbeTimeout = d
	}
}

func requireNonEmpty(name, v string) {
	if v == "" {
		panic(fmt.Sprintf("kafkaenv: %s must not be empty", name))
	}
}

func requirePositive(name string, d time.Duration) {
	if d <= 0 {
		panic(fmt.Sprintf("kafkaenv: %s must be positive, got %s", name, d))
	}
}
