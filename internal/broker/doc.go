// Package broker drives the external Kafka distribution: formatting the
// storage directory, launching the server process against a generated
// config, the fixed startup wait (or optional readiness poll), and the
// ordered kill / wait-for-exit / stop-script shutdown sequence.
package broker
