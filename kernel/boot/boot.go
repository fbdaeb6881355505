// Package boot wires the buddy and slab allocators together the way
// original_source/kernel/src/lib.rs and memory.rs wire a single global
// BuddyBlock to a set of per-object Slab allocators, all serialized by
// irq_mutex.IrqMutex. buddy and slab stay independently testable; this is
// the only package that knows about both at once.
package boot

import (
	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/mem/buddy"
	"github.com/achilleasa/memcore/kernel/mem/buddyprovider"
	"github.com/achilleasa/memcore/kernel/mem/region"
	"github.com/achilleasa/memcore/kernel/mem/slab"
	"github.com/achilleasa/memcore/kernel/sync"
)

// MemorySystem holds the single buddy allocator backing a kernel image and
// the critical section guarding registration of new slab allocators
// against it, mirroring MEMORY_DATA's IrqMutex<MemoryData> in memory.rs.
type MemorySystem struct {
	cs       sync.CriticalSection
	buddy    *buddy.Allocator
	provider *buddyprovider.Adapter
}

// Bootstrap constructs the global buddy allocator over the (virtual_base,
// length) range described by region, the counterpart of memory.rs's
// init_dyn_alloc: the paging bootstrap has already mapped the range and
// handed it off, and this package only owns what comes after that point.
func Bootstrap(r *region.Region) *MemorySystem {
	b := buddy.New(r.Base(), r.Len())
	return &MemorySystem{
		buddy:    b,
		provider: buddyprovider.New(b),
	}
}

// NewSlab registers a new typed slab allocator backed by the shared buddy
// allocator, the Go counterpart of rigoros's pattern of one Slab per kernel
// object type (task_t, interrupt queue node, ...) all drawing pages from
// the same BuddyBlock. Registration itself is serialized; the returned
// allocator's own Alloc/Dealloc calls are not.
func (m *MemorySystem) NewSlab(payloadSize, payloadAlign uint16) *slab.Allocator {
	m.cs.Acquire()
	defer m.cs.Release()

	return slab.New(payloadSize, payloadAlign, m.provider)
}

// Allocate requests byteLen bytes directly from the shared buddy allocator,
// for callers that want raw pages rather than a typed slab (memory.rs's
// top-level allocate/deallocate).
func (m *MemorySystem) Allocate(byteLen uintptr) (uintptr, bool) {
	m.cs.Acquire()
	defer m.cs.Release()

	return m.buddy.Alloc(byteLen)
}

// AllocateChecked is the error-returning counterpart of Allocate, for
// callers in this hosted rendition that expect an idiomatic Go `error`
// rather than a bare bool — e.g. a device driver's init path that wants to
// wrap allocation failure with %w context. It reports
// errors.ErrOutOfMemory when the buddy allocator has no block large enough
// to satisfy byteLen.
func (m *MemorySystem) AllocateChecked(byteLen uintptr) (uintptr, error) {
	addr, ok := m.Allocate(byteLen)
	if !ok {
		return 0, errors.ErrOutOfMemory
	}
	return addr, nil
}

// Deallocate returns a byteLen-sized block previously obtained from
// Allocate.
func (m *MemorySystem) Deallocate(addr uintptr, byteLen uintptr) {
	m.cs.Acquire()
	defer m.cs.Release()

	m.buddy.Dealloc(addr, byteLen)
}

// Info reports the underlying buddy allocator's layout and usage.
func (m *MemorySystem) Info() buddy.Info {
	m.cs.Acquire()
	defer m.cs.Release()

	return m.buddy.Info()
}
