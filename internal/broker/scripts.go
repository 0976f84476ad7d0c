package broker

import (
	"path/filepath"
	"runtime"
)

// Script base names inside the distribution's bin directory. The platform
// variant (bin/*.sh vs bin/windows/*.bat) is selected by the host OS.
const (
	storageScriptName = "kafka-storage"
	startScriptName   = "kafka-server-start"
	stopScriptName    = "kafka-server-stop"
)

// scriptPath returns the path of a distribution helper script for the host
// OS: <dist>/bin/<name>.sh on Unix, <dist>/bin/windows/<name>.bat on Windows.
func scriptPath(distDir, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(distDir, "bin", "windows", name+".bat")
	}
	return filepath.Join(distDir, "bin", name+".sh")
}

// DefaultTemplatePath returns the distribution's stock single-node KRaft
// configuration, used as the template unless the harness overrides it.
func DefaultTemplatePath(distDir string) string {
	return filepath.Join(distDir, "config", "kraft", "server.properties")
}
