package slabtest

import (
	"unsafe"

	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/mem"
)

// debugFreedFill marks pages this fixture has handed back, so a dangling
// write into a "freed" page is easy to spot in a failing test.
const debugFreedFill = 0xdd

// FixtureProvider is a small in-process slab.PageProvider fixture for tests
// that don't need gomock's call-expectation machinery, grounded on
// original_source/slab_alloc/src/test.rs's MockPageAllocator: it hands out
// real page-aligned backing memory, tracks which pages are currently live,
// and panics (rather than silently accepting) a Deallocate call for a page
// it never gave out.
type FixtureProvider struct {
	capacity int // 0 means unlimited
	pages    map[uintptr][]byte
	live     int
}

// NewFixtureProvider returns a fixture willing to hand out up to capacity
// live pages at once. capacity == 0 means unlimited.
func NewFixtureProvider(capacity int) *FixtureProvider {
	return &FixtureProvider{capacity: capacity, pages: make(map[uintptr][]byte)}
}

// Allocate hands out a fresh page-aligned, zero-filled unit page.
func (f *FixtureProvider) Allocate() (uintptr, bool) {
	if f.capacity > 0 && f.live >= f.capacity {
		return 0, false
	}

	buf := make([]byte, mem.UnitSize*2)
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := mem.AlignUp(base, mem.UnitSize)

	f.pages[aligned] = buf
	f.live++
	return aligned, true
}

// Deallocate returns a page previously handed out by Allocate, poisoning
// its contents so a later dangling write is observable.
func (f *FixtureProvider) Deallocate(addr uintptr) {
	if _, ok := f.pages[addr]; !ok {
		errors.Panicf("slabtest: invalid deallocate", "addr=%#x was never allocated by this fixture", addr)
	}

	mem.Memset(addr, debugFreedFill, mem.UnitSize)
	delete(f.pages, addr)
	f.live--
}

// LivePages returns how many pages are currently held by callers.
func (f *FixtureProvider) LivePages() int { return f.live }
