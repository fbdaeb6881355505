// Package sync models the IRQ-masking mutex collaborator described in
// spec §5/§6.4: a critical section that the caller acquires before touching
// either allocator and releases afterwards. The real collaborator disables
// hardware interrupts on Acquire and restores the prior interrupt-enabled
// flag on Release; this hosted rendition keeps the same acquire/release
// pairing and re-entrancy-forbidding contract using a plain mutex plus an
// atomic held counter, so the contract is exercisable in tests without real
// hardware. No interrupt-enabled flag is saved on Acquire or restored on
// Release.
package sync

import (
	"sync"
	"sync/atomic"
)

// CriticalSection serializes access to a single allocator instance. It is
// not reentrant: a goroutine that calls Acquire while already holding the
// section will deadlock, mirroring how a nested cli/sti pair on real
// hardware would mis-restore the interrupt flag.
type CriticalSection struct {
	mu      sync.Mutex
	nesting int32
}

// Acquire masks interrupts (acquires the underlying lock) and records that
// the section is now held.
func (c *CriticalSection) Acquire() {
	c.mu.Lock()
	atomic.AddInt32(&c.nesting, 1)
}

// Release restores interrupts (releases the underlying lock).
func (c *CriticalSection) Release() {
	atomic.AddInt32(&c.nesting, -1)
	c.mu.Unlock()
}

// Held reports whether the section is currently acquired. Intended for
// assertions in tests and debug builds, not for control flow.
func (c *CriticalSection) Held() bool {
	return atomic.LoadInt32(&c.nesting) > 0
}
