package broker

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	ws := t.TempDir()
	return Config{
		DistributionDir: filepath.Join(t.TempDir(), "kafka"),
		Workspace:       ws,
		ConfigPath:      filepath.Join(ws, "server.properties"),
		ClientPort:      28092,
		StopTimeout:     10 * time.Second,
	}
}

func TestConfig_validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(c *Config)
		wantErr bool
	}{
		"valid":                {func(_ *Config) {}, false},
		"missing distribution": {func(c *Config) { c.DistributionDir = "" }, true},
		"missing workspace":    {func(c *Config) { c.Workspace = "" }, true},
		"missing config path":  {func(c *Config) { c.ConfigPath = "" }, true},
		"zero client port":     {func(c *Config) { c.ClientPort = 0 }, true},
		"zero stop timeout":    {func(c *Config) { c.StopTimeout = 0 }, true},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig(t)
			tc.mutate(&cfg)

			_, err := New(cfg)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewClusterID(t *testing.T) {
	t.Parallel()

	t.Run("format", func(t *testing.T) {
		t.Parallel()
		id := NewClusterID()
		if len(id) != 22 {
			t.Errorf("cluster id %q length = %d, want 22", id, len(id))
		}
		raw, err := base64.RawURLEncoding.DecodeString(id)
		if err != nil {
			t.Fatalf("cluster id %q is not base64url: %v", id, err)
		}
		if len(raw) != 16 {
			t.Errorf("decoded cluster id length = %d, want 16", len(raw))
		}
	})

	t.Run("unique", func(t *testing.T) {
		t.Parallel()
		if NewClusterID() == NewClusterID() {
			t.Error("two cluster ids are identical")
		}
	})
}

func TestScriptPath(t *testing.T) {
	t.Parallel()

	got := scriptPath(filepath.Join("opt", "kafka"), storageScriptName)
	if runtime.GOOS == "windows" {
		want := filepath.Join("opt", "kafka", "bin", "windows", "kafka-storage.bat")
		if got != want {
			t.Errorf("scriptPath() = %q, want %q", got, want)
		}
		return
	}
	want := filepath.Join("opt", "kafka", "bin", "kafka-storage.sh")
	if got != want {
		t.Errorf("scriptPath() = %q, want %q", got, want)
	}
}

func TestDefaultTemplatePath(t *testing.T) {
	t.Parallel()

	got := DefaultTemplatePath("/opt/kafka")
	want := filepath.Join("/opt/kafka", "config", "kraft", "server.properties")
	if got != want {
		t.Errorf("DefaultTemplatePath() = %q, want %q", got, want)
	}
}

func TestScrubEnv(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		env  []string
		want []string
	}{
		"removes target variable": {
			env:  []string{"PATH=/bin", "JMX_PORT=9999", "HOME=/root"},
			want: []string{"PATH=/bin", "HOME=/root"},
		},
		"removes empty assignment": {
			env:  []string{"JMX_PORT=", "PATH=/bin"},
			want: []string{"PATH=/bin"},
		},
		"keeps prefix lookalikes": {
			env:  []string{"JMX_PORT_EXTRA=1", "PATH=/bin"},
			want: []string{"JMX_PORT_EXTRA=1", "PATH=/bin"},
		},
		"absent variable is a no-op": {
			env:  []string{"PATH=/bin"},
			want: []string{"PATH=/bin"},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := scrubEnv(tc.env, jmxPortEnv)
			if strings.Join(got, "\x00") != strings.Join(tc.want, "\x00") {
				t.Errorf("scrubEnv() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProcess_Format_missingScript(t *testing.T) {
	t.Parallel()

	p, err := New(validConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	// The distribution dir does not exist, so the format command cannot run.
	if err := p.Format(context.Background()); err == nil {
		t.Error("expected error for missing storage script")
	}
}

func TestProcess_Start_missingScript(t *testing.T) {
	t.Parallel()

	p, err := New(validConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Start(context.Background()); err == nil {
		t.Error("expected error for missing start script")
	}
}

func TestProcess_Start_canceledContext(t *testing.T) {
	t.Parallel()

	p, err := New(validConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	// Cancellation gates the spawn; nothing must be launched.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Start(ctx); err == nil {
		t.Error("expected error for canceled context")
	}
	if p.Pid() != 0 {
		t.Errorf("process was spawned despite canceled context, pid %d", p.Pid())
	}
}

func TestProcess_Stop_neverStarted(t *testing.T) {
	t.Parallel()

	p, err := New(validConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	// Stop before Start: the kill path is a no-op; the stop script still
	// runs best-effort and its failure (missing script) is swallowed.
	if err := p.Stop(time.Second); err != nil {
		t.Errorf("Stop on unstarted process: %v", err)
	}
}
