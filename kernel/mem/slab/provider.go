package slab

//go:generate mockgen -source=provider.go -destination=slabtest/mock_provider.go -package=slabtest

// PageProvider is the capability the slab allocator needs from its page
// source, per spec §4.2/§6.1: a source of unit-size-aligned pages. In
// production this is backed by the buddy allocator (see
// kernel/mem/buddyprovider); unit tests back it with a mock or a small
// in-memory fixture. Implementations must not call back into the slab
// allocator that owns them (spec §5, re-entrancy).
type PageProvider interface {
	// Allocate returns a unit-size-aligned pointer to mem.UnitSize bytes,
	// or (0, false) if no page is available. The page's contents are not
	// required to be zeroed.
	Allocate() (uintptr, bool)

	// Deallocate releases a page previously returned by Allocate. Passing
	// a pointer not obtained from Allocate is a programmer error.
	Deallocate(addr uintptr)
}
