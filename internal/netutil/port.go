package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// maxPortScan is the number of ports probed above the base before giving up.
// This guards against pathological hosts where a large contiguous range is
// occupied.
const maxPortScan = 1000

// PortPair holds the two listener ports of one broker instance: the
// client-facing port and the internal controller (metadata quorum) port.
// The two values are always distinct.
type PortPair struct {
	Client     int
	Controller int
}

// Allocator hands out broker port pairs. It owns a taken-ports set covering
// every port it has ever returned, which only grows for the allocator's
// lifetime. This prevents re-using a port the harness already claimed in the
// same run (the kernel may report a just-released port as bindable before a
// previous instance's listener has fully unbound). It does not detect
// collisions across separate harness processes.
//
// One Allocator is scoped to one Harness and shared by all of its
// provisioning pipelines, so concurrent Start calls never overlap.
type Allocator struct {
	base int

	mu    sync.Mutex
	taken map[int]struct{}
	log   *slog.Logger
}

// NewAllocator creates an Allocator scanning upward from basePort.
// If logger is nil, slog.Default() is used as a fallback.
// Panics if basePort is not a valid TCP port, since the base is a
// compile-time constant or option value and an invalid one is a programmer
// error.
func NewAllocator(basePort int, logger *slog.Logger) *Allocator {
	if basePort <= 0 || basePort > 65535 {
		panic(fmt.Sprintf("kafkaenv: base port must be in 1..65535, got %d", basePort))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		base:  basePort,
		taken: make(map[int]struct{}),
		log:   logger,
	}
}

// Taken reports whether the allocator has already handed out the given port.
func (a *Allocator) Taken(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.taken[port]
	return ok
}

// claim probes ports upward from start and returns the first one that is
// bindable on the host and not yet in the taken set. On success the port is
// recorded in the set and the open listener is returned; the caller must
// close it once the whole pair is chosen. Holding the listener open until
// then stops a concurrent claim from being handed the same port by the
// kernel.
func (a *Allocator) claim(start int) (*net.TCPListener, int, error) {
	for port := start; port < start+maxPortScan && port <= 65535; port++ {
		a.mu.Lock()
		_, used := a.taken[port]
		a.mu.Unlock()
		if used {
			continue
		}

		addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return nil, 0, fmt.Errorf("resolve tcp address: %w", err)
		}
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			// Port is in use by some other process; keep scanning.
			a.log.Debug("port not bindable, scanning upward", "port", port, "error", err)
			continue
		}

		a.mu.Lock()
		if _, used := a.taken[port]; used {
			// Another goroutine claimed the port between the set check and
			// the bind. Rare, but possible; retry with the next port.
			a.mu.Unlock()
			_ = l.Close()
			continue
		}
		a.taken[port] = struct{}{}
		a.mu.Unlock()

		return l, port, nil
	}
	return nil, 0, fmt.Errorf("no free port in range %d..%d", start, start+maxPortScan-1)
}

// AllocatePair allocates two distinct free ports, scanning upward from the
// allocator's base. Both listeners are held open until both ports are chosen,
// guaranteeing the pair is distinct even under concurrent allocation, then
// closed. The ports stay in the taken set forever; the set is never
// reconciled against OS state beyond the bind probe.
func (a *Allocator) AllocatePair() (PortPair, error) {
	l1, client, err := a.claim(a.base)
	if err != nil {
		return PortPair{}, fmt.Errorf("allocate client port: %w", err)
	}

	l2, controller, err := a.claim(client + 1)
	if err != nil {
		// The client port stays in the taken set: the set only grows, and a
		// failed pipeline never recycles ports within the same run.
		if closeErr := l1.Close(); closeErr != nil {
			a.log.Warn("close listener after port allocation", "port", client, "error", closeErr)
		}
		return PortPair{}, fmt.Errorf("allocate controller port: %w", err)
	}

	if closeErr := l1.Close(); closeErr != nil {
		a.log.Warn("close listener after port allocation", "port", client, "error", closeErr)
	}
	if closeErr := l2.Close(); closeErr != nil {
		a.log.Warn("close listener after port allocation", "port", controller, "error", closeErr)
	}

	a.log.Debug("allocated port pair", "client", client, "controller", controller)
	return PortPair{Client: client, Controller: controller}, nil
}
