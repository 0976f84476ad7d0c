package kafkaenv

import (
	"testing"
	"time"
)

func TestOptions_applied(t *testing.T) {
	cfg := defaultHarnessConfig()
	for _, opt := range []Option{
		WithDistributionDir("/opt/kafka"),
		WithTemplatePath("/etc/kafka/template.properties"),
		WithBaseDataDir("/var/tmp/kafkaenv"),
		WithBasePort(19092),
		WithStartupWait(3 * time.Second),
		WithStopTimeout(7 * time.Second),
		WithReadinessProbe(),
		WithStartupProbeTimeout(90 * time.Second),
	} {
		opt(&cfg)
	}

	if cfg.distributionDir != "/opt/kafka" {
		t.Errorf("distributionDir = %q", cfg.distributionDir)
	}
	if cfg.templatePath != "/etc/kafka/template.properties" {
		t.Errorf("templatePath = %q", cfg.templatePath)
	}
	if cfg.baseDataDir != "/var/tmp/kafkaenv" {
		t.Errorf("baseDataDir = %q", cfg.baseDataDir)
	}
	if cfg.basePort != 19092 {
		t.Errorf("basePort = %d", cfg.basePort)
	}
	if cfg.startupWait != 3*time.Second {
		t.Errorf("startupWait = %s", cfg.startupWait)
	}
	if cfg.stopTimeout != 7*time.Second {
		t.Errorf("stopTimeout = %s", cfg.stopTimeout)
	}
	if !cfg.readinessProbe {
		t.Error("readinessProbe not enabled")
	}
	if cfg.startupProbeTimeout != 90*time.Second {
		t.Errorf("startupProbeTimeout = %s", cfg.startupProbeTimeout)
	}
}

func TestOptions_panicOnInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]func(){
		"empty distribution dir":     func() { WithDistributionDir("") },
		"empty template path":        func() { WithTemplatePath("") },
		"empty base data dir":        func() { WithBaseDataDir("") },
		"zero base port":             func() { WithBasePort(0) },
		"negative base port":         func() { WithBasePort(-1) },
		"base port above range":      func() { WithBasePort(65536) },
		"zero startup wait":          func() { WithStartupWait(0) },
		"negative stop timeout":      func() { WithStopTimeout(-time.Second) },
		"zero startup probe timeout": func() { WithStartupProbeTimeout(0) },
	}

	for name, call := range tests {
		call := call
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Error("expected panic, got none")
				}
			}()
			call()
		})
	}
}
