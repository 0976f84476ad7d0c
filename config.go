package kafkaenv

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/giantswarm/kafkaenv/internal/broker"
)

// harnessConfig is the fully resolved harness configuration, produced by
// applying options over the defaults.
type harnessConfig struct {
	distributionDir     string
	templatePath        string // empty means: derive from distributionDir
	baseDataDir         string
	basePort            int
	startupWait         time.Duration
	stopTimeout         time.Duration
	readinessProbe      bool
	startupProbeTimeout time.Duration
}

// defaultHarnessConfig returns the defaults New starts from. The
// distribution dir comes from the environment (it is host-specific and
// usually injected by CI rather than hardcoded); everything else is a
// package constant.
func defaultHarnessConfig() harnessConfig {
	return harnessConfig{
		distributionDir:     os.Getenv(DistributionDirEnv),
		baseDataDir:         filepath.Join(os.TempDir(), baseDataDirName),
		basePort:            DefaultBasePort,
		startupWait:         DefaultStartupWait,
		stopTimeout:         DefaultStopTimeout,
		startupProbeTimeout: DefaultStartupProbeTimeout,
	}
}

// validate checks the resolved configuration and returns all problems at
// once. Range errors on option values panic inside the options themselves;
// what remains here is environment-dependent state that only Start can
// reasonably report.
func (c harnessConfig) validate() error {
	var errs []error
	if c.distributionDir == "" {
		errs = append(errs, errors.New(
			"distribution dir is empty: pass WithDistributionDir or set "+DistributionDirEnv))
	}
	if c.baseDataDir == "" {
		errs = append(errs, errors.New("base data dir must not be empty"))
	}
	return errors.Join(errs...)
}

// resolvedTemplatePath returns the template config path: the explicit
// override when set, the distribution's stock single-node config otherwise.
func (c harnessConfig) resolvedTemplatePath() string {
	if c.templatePath != "" {
		return c.templatePath
	}
	return broker.DefaultTemplatePath(c.distributionDir)
}
