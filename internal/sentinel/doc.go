// Package sentinel provides a const-compatible error type for declaring
// immutable sentinel errors. The kafkaenv failure taxonomy (port allocation,
// filesystem, config, storage init, process spawn) is built on it.
package sentinel
