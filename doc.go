// Package kafkaenv provisions ephemeral single-node Kafka (KRaft) brokers
// for automated tests.
//
// Each Start call on a Harness performs the full provisioning pipeline:
// allocate a free port pair, create an isolated per-instance workspace,
// generate a server config from the distribution's template, format the
// metadata storage, spawn the broker process, and wait until it is usable.
// Close tears it all down again. Instances are fully independent, so
// parallel test packages can run brokers side by side on one host.
//
// The harness shells out to an unpacked broker distribution on the host,
// located via WithDistributionDir or the KAFKAENV_DIST_DIR environment
// variable; it does not embed or download one.
//
// # Basic Usage
//
//	import "github.com/giantswarm/kafkaenv"
//
//	ctx := context.Background()
//
//	h := kafkaenv.New(kafkaenv.WithDistributionDir("/opt/kafka"))
//	b, err := h.Start(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close(ctx) // exactly once; a second Close is undefined
//
//	// Point any Kafka client at b.Addr(), e.g. "localhost:9092".
//
// # Readiness
//
// By default Start sleeps a fixed interval (DefaultStartupWait) after the
// spawn; there is no protocol-level health check. WithReadinessProbe
// switches to an active TCP probe of the client port. Either way, clients
// should treat early coordinator-unavailable errors as retryable.
//
// # Crash recovery
//
// Instances leaked by a killed test binary cannot be cleaned up at exit;
// they are recorded in an on-disk registry and reclaimed by the next run
// via Harness.Purge (typically from TestMain).
package kafkaenv
