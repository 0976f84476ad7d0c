package kafkaenv

import "time"

const (
	// DefaultBasePort is the port the allocator starts scanning upward from
	// when WithBasePort is not given. It is the broker's conventional client
	// port, so an otherwise idle host gets the address most tooling expects.
	DefaultBasePort = 9092

	// DefaultStartupWait is the fixed interval Start sleeps after spawning
	// the broker before declaring it usable, when the readiness probe is not
	// enabled. Empirically enough for a single-node broker on a developer
	// machine or CI runner; tune with WithStartupWait for slower hosts.
	DefaultStartupWait = 10 * time.Second

	// DefaultStopTimeout bounds the wait for the broker process to exit
	// after the kill signal during Close.
	DefaultStopTimeout = 10 * time.Second

	// DefaultStartupProbeTimeout bounds the TCP readiness probe enabled by
	// WithReadinessProbe.
	DefaultStartupProbeTimeout = 60 * time.Second
)

const (
	// DistributionDirEnv names the environment variable consulted for the
	// broker distribution directory when WithDistributionDir is not given.
	DistributionDirEnv = "KAFKAENV_DIST_DIR"

	// DebugEnv, when set to any non-empty value, makes the default logger
	// verbose (debug level on stderr). It has no effect after SetLogger.
	DebugEnv = "KAFKAENV_DEBUG"
)

// baseDataDirName is the directory under os.TempDir() that holds instance
// workspaces and the instance registry by default.
const baseDataDirName = "kafkaenv"

// workspacePrefix prefixes every per-instance workspace directory name.
const workspacePrefix = "kafka"
