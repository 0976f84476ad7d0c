// Package netutil allocates the listener ports for ephemeral broker
// instances. An Allocator scans upward from a base port and remembers every
// port it has ever handed out, so two provisioning pipelines in the same
// process can never receive overlapping pairs.
package netutil
