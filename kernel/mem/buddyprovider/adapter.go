// Package buddyprovider adapts a *buddy.Allocator to the slab.PageProvider
// capability (spec §2 "Page-Provider Adapter", §6.1), so a slab allocator
// can be backed by the buddy allocator in production while remaining
// decoupled from it for testing (a mock or fixture can stand in instead,
// see kernel/mem/slab/slabtest).
package buddyprovider

import (
	"github.com/achilleasa/memcore/kernel/mem"
	"github.com/achilleasa/memcore/kernel/mem/buddy"
)

// Adapter implements slab.PageProvider by requesting/releasing single unit
// pages from an underlying buddy allocator.
type Adapter struct {
	buddy *buddy.Allocator
}

// New wraps b as a page provider.
func New(b *buddy.Allocator) *Adapter {
	return &Adapter{buddy: b}
}

// Allocate requests a single unit page from the underlying buddy allocator.
func (a *Adapter) Allocate() (uintptr, bool) {
	return a.buddy.Alloc(mem.UnitSize)
}

// Deallocate returns a single unit page to the underlying buddy allocator.
func (a *Adapter) Deallocate(addr uintptr) {
	a.buddy.Dealloc(addr, mem.UnitSize)
}
