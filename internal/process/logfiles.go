package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// LogFiles manages the stdout/stderr file handles of a supervised process.
// The files act as the diagnostic sink: the child's output streams are
// continuously drained into them by the OS, never buffered in memory and
// never surfaced to the caller on the success path.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	stdoutName string // e.g. "kafka-stdout.log"
	stderrName string // e.g. "kafka-stderr.log"
}

// create creates stdout and stderr log files. Both files are assigned to the
// struct only after both creates succeed.
func (l *LogFiles) create() error {
	stdoutFile, err := os.Create(l.StdoutPath())
	if err != nil {
		return fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return nil
}

// Close closes both log file handles and nils them to prevent double-close.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the absolute path to the stdout log file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.stdoutName)
}

// StderrPath returns the absolute path to the stderr log file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.stderrName)
}

// NewLogFiles creates and initializes log files for a process in dir.
// The processName generates the file names (e.g. "kafka" -> "kafka-stdout.log").
func NewLogFiles(dir, processName string) (LogFiles, error) {
	l := LogFiles{
		dir:        dir,
		stdoutName: processName + "-stdout.log",
		stderrName: processName + "-stderr.log",
	}
	if err := l.create(); err != nil {
		return LogFiles{}, err
	}
	return l, nil
}

// StartCmd creates log files, wires them as the command's stdout/stderr, and
// starts the command. On success the caller owns the LogFiles; on failure
// they are closed automatically.
func StartCmd(cmd *exec.Cmd, dir, processName string) (LogFiles, error) {
	logFiles, err := NewLogFiles(dir, processName)
	if err != nil {
		return LogFiles{}, fmt.Errorf("create %s logs: %w", processName, err)
	}

	cmd.Stdout = logFiles.stdoutFile
	cmd.Stderr = logFiles.stderrFile

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return LogFiles{}, fmt.Errorf("start %s process: %w", processName, err)
	}

	return logFiles, nil
}
