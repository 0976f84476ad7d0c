// Package process supervises the external broker child process: it starts
// commands with their output drained to per-instance log files, tracks exit
// via a single cmd.Wait goroutine, and implements the kill-then-wait
// shutdown sequence the harness relies on.
package process
