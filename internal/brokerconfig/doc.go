// Package brokerconfig generates the per-instance broker configuration.
// It rewrites a template server.properties file, overriding only the keys
// that must be instance-specific (data directory, listener addresses,
// controller quorum) and leaving every other template line byte-identical.
package brokerconfig
