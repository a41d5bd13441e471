// Package alloc leases devices from the pool to suite attempts and
// guarantees their release. Lease is atomic over the pool: a failed call
// rolls every tentative lease back, and a mutex spans the whole
// candidate-scan-and-mark step so concurrent suites can never be handed
// the same free device.
package alloc

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Infineon/mpy-test-ext/internal/devpool"
	"github.com/Infineon/mpy-test-ext/internal/errors"
)

// Lease binds leased devices to one suite attempt, in requirement
// declaration order.
type Lease struct {
	devices []*devpool.Device
}

// Device returns the device leased for the i-th requirement.
func (l *Lease) Device(i int) *devpool.Device {
	return l.devices[i]
}

// Devices returns the leased devices in requirement order.
func (l *Lease) Devices() []*devpool.Device {
	return l.devices
}

// Allocator matches requirements against the pool and tracks leases.
type Allocator struct {
	mu   sync.Mutex
	pool *devpool.Pool
	log  zerolog.Logger
}

// New builds an Allocator over the given pool.
func New(pool *devpool.Pool, log zerolog.Logger) *Allocator {
	return &Allocator{pool: pool, log: log}
}

// Lease processes requirements in declaration order and leases the first
// free matching candidate for each. If any requirement has no eligible
// candidate the whole call fails and every tentative lease is rolled
// back; no partial lease escapes.
func (a *Allocator) Lease(reqs []devpool.Requirement) (*Lease, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	lease := &Lease{}
	for _, req := range reqs {
		candidates := a.pool.Candidates(req.Board, req.Version)
		if len(candidates) == 0 {
			a.rollback(lease)
			return nil, errors.NewWithDetails(errors.ENoDevice,
				fmt.Sprintf("no free device matches requirement (role %s)", req.Role),
				map[string]string{
					"board":   req.Board,
					"version": req.Version,
					"role":    string(req.Role),
				})
		}

		// First candidate wins; pool order is the tie-break.
		d := candidates[0]
		d.Leased = true
		lease.devices = append(lease.devices, d)

		a.log.Debug().
			Str("serial", d.SerialID).
			Str("port", d.Port).
			Str("role", string(req.Role)).
			Msg("device leased")
	}

	return lease, nil
}

// Release returns every leased device to the pool. Idempotent and
// nil-safe: it must run on every exit path of a strategy invocation,
// including abnormal harness termination.
//
// Devices are released in lease order, so for multi_stub the DUT lease
// is released before the stub lease.
func (a *Allocator) Release(l *Lease) {
	if l == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range l.devices {
		if d.Leased {
			d.Leased = false
			a.log.Debug().Str("serial", d.SerialID).Msg("device released")
		}
	}
}

// rollback frees tentative leases of a failed Lease call.
// Caller holds the mutex.
func (a *Allocator) rollback(l *Lease) {
	for _, d := range l.devices {
		d.Leased = false
	}
}

// Satisfiable reports whether the pool could ever satisfy the
// requirements, ignoring current lease state but requiring a distinct
// device per requirement. Used to distinguish "skip this suite" from a
// transient allocation failure.
func (a *Allocator) Satisfiable(reqs []devpool.Requirement) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	taken := make(map[*devpool.Device]bool)
	for _, req := range reqs {
		found := false
		for _, d := range a.pool.Devices() {
			if taken[d] || !d.Connected || !d.Matches(req.Board, req.Version) {
				continue
			}
			taken[d] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}
