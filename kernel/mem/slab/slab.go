// Package slab implements the slab allocator described in spec §3.2/§4.2: a
// fixed-size typed-object allocator built on top of a page-granular
// PageProvider, with per-object integrity metadata (magic tags, redzones,
// poison fill) and an intrusive doubly linked list of partially-used pages.
//
// Algorithmically this is a port of original_source/slab_alloc/src/lib.rs's
// SlabAllocator (object/page header layout, front/back redzone offsets,
// magic/poison constants), upgraded per spec §3.2 from the original's
// singly-threaded free-page chain to the doubly linked pageList in
// pagelist.go. Stylistically it follows achilleasa-gopher-os's
// kernel/mem/physical/allocator.go: raw uintptr addresses, (value, ok)
// results for recoverable failure, panics naming the violated invariant for
// corruption.
package slab

import (
	"unsafe"

	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/mem"
)

// Allocator carves fixed-size, fixed-alignment objects out of unit pages
// obtained from a PageProvider.
type Allocator struct {
	payloadSize  uint16
	payloadAlign uint16

	leftOffset   uint16 // distance from slot start to payload
	slotSize     uint16
	slotOffset   uint16 // distance from page start to first slot
	slotsPerPage uint16

	provider PageProvider
	partial  pageList
}

// New constructs a slab allocator for objects of size payloadSize aligned to
// payloadAlign, backed by provider. Construction panics (spec §7) if the
// requested size/alignment cannot be satisfied within a single unit page.
func New(payloadSize, payloadAlign uint16, provider PageProvider) *Allocator {
	if !mem.IsPowerOfTwo(uintptr(payloadAlign)) {
		errors.Panicf("slab: invalid alignment", "align=%d is not a power of two", payloadAlign)
	}
	if uintptr(payloadAlign) > mem.UnitSize/4 {
		errors.Panicf("slab: invalid alignment", "align=%d exceeds unit/4", payloadAlign)
	}
	if payloadSize == 0 {
		errors.Panicf("slab: invalid size", "payload size must be nonzero")
	}
	if uintptr(payloadSize) >= mem.UnitSize/2 {
		errors.Panicf("slab: invalid size", "payload size=%d must be < unit/2", payloadSize)
	}

	slotAlign := payloadAlign
	if hdrAlign := uint16(unsafe.Alignof(slotHeader{})); hdrAlign > slotAlign {
		slotAlign = hdrAlign
	}

	headerSize := uint16(unsafe.Sizeof(slotHeader{}))
	leftOffset := alignUp16(headerSize+redzoneSize, slotAlign)
	slotSize := alignUp16(leftOffset+payloadSize+redzoneSize, slotAlign)
	if uintptr(slotSize) > mem.UnitSize/2 {
		errors.Panicf("slab: invalid size", "slot size=%d exceeds unit/2", slotSize)
	}

	pageHeaderSize := uint16(unsafe.Sizeof(pageHeader{}))
	slotOffset := alignUp16(pageHeaderSize, slotAlign)
	slotsPerPage := (uint16(mem.UnitSize) - slotOffset) / slotSize
	if slotsPerPage < 1 {
		errors.Panicf("slab: invalid layout", "no slots fit in a unit page")
	}

	return &Allocator{
		payloadSize:  payloadSize,
		payloadAlign: payloadAlign,
		leftOffset:   leftOffset,
		slotSize:     slotSize,
		slotOffset:   slotOffset,
		slotsPerPage: slotsPerPage,
		provider:     provider,
	}
}

// SlotsPerPage returns how many objects a single unit page holds, mostly
// useful for tests that want to force a page boundary.
func (a *Allocator) SlotsPerPage() int { return int(a.slotsPerPage) }

// Alloc returns a pointer to a freshly zeroed payloadSize-byte, payloadAlign
// -aligned object, or (0, false) if a new page was needed and the provider
// had none to give.
func (a *Allocator) Alloc() (uintptr, bool) {
	if a.partial.empty() {
		page, ok := a.formatNewPage()
		if !ok {
			return 0, false
		}
		a.partial.assignSingleton(page)
	}

	page := a.partial.head
	pageAddr := uintptr(unsafe.Pointer(page))

	slotOffset := page.freeHead
	slotAddr := pageAddr + uintptr(slotOffset)
	slot := slotAt(slotAddr)

	page.freeHead = slot.next
	slot.next = 0

	if page.freeHead == 0 {
		a.partial.remove(page)
	}

	a.checkFreeSlotIntegrity(slotAddr)

	slot.magic = magicAllocated
	payloadAddr := slotAddr + uintptr(a.leftOffset)
	mem.Memset(payloadAddr, 0, uintptr(a.payloadSize))
	page.allocCount++

	return payloadAddr, true
}

// Dealloc releases a payload pointer previously returned by Alloc and still
// live. Any integrity violation panics (spec §7): magic mismatch, nonzero
// slot.next (double free), or a damaged redzone (overflow/underflow).
func (a *Allocator) Dealloc(payload uintptr) {
	slotAddr := payload - uintptr(a.leftOffset)
	slot := slotAt(slotAddr)

	if slot.magic != magicAllocated {
		errors.Panicf("slab: invalid dealloc", "magic mismatch at %#x (double free or corruption)", slotAddr)
	}
	if slot.next != 0 {
		errors.Panicf("slab: double free", "slot at %#x already on a free list", slotAddr)
	}
	if !a.redzonesIntact(slotAddr) {
		errors.Panicf("slab: redzone mismatch", "buffer overflow or underflow at %#x", slotAddr)
	}

	mem.Memset(payload, poisonFill, uintptr(a.payloadSize))
	slot.magic = magicEmpty

	pageAddr := pageAddrOf(slotAddr)
	page := headerAt(pageAddr)

	wasFull := page.freeHead == 0
	slot.next = page.freeHead
	page.freeHead = uint16(slotAddr - pageAddr)
	page.allocCount--

	if page.allocCount == 0 {
		if !wasFull {
			a.partial.remove(page)
		}
		a.provider.Deallocate(pageAddr)
		return
	}

	if wasFull {
		a.partial.pushBack(page)
	}
}

// formatNewPage requests a fresh page from the provider and lays out its
// slot array: every slot's header is set to MAGIC_EMPTY, chained through
// slot.next, with both redzones filled and the payload poisoned.
func (a *Allocator) formatNewPage() (*pageHeader, bool) {
	addr, ok := a.provider.Allocate()
	if !ok {
		return nil, false
	}

	page := headerAt(addr)
	page.link = pageLink{}
	page.allocCount = 0
	page.freeHead = a.slotOffset

	rightOffset := a.leftOffset + a.payloadSize
	offset := a.slotOffset
	for i := uint16(0); i < a.slotsPerPage; i++ {
		slotAddr := addr + uintptr(offset)
		slot := slotAt(slotAddr)
		slot.magic = magicEmpty

		mem.Memset(slotAddr+uintptr(a.leftOffset-redzoneSize), redzoneFill, redzoneSize)
		mem.Memset(slotAddr+uintptr(a.leftOffset), poisonFill, uintptr(a.payloadSize))
		mem.Memset(slotAddr+uintptr(rightOffset), redzoneFill, redzoneSize)

		if i+1 < a.slotsPerPage {
			slot.next = offset + a.slotSize
		} else {
			slot.next = 0
		}
		offset += a.slotSize
	}

	return page, true
}

// checkFreeSlotIntegrity validates a slot popped off a free list before it
// is handed out, per spec §4.2 step 4: the magic tag must still say
// "empty", both redzones must be intact, and the whole payload must still
// read as poison (anything else means a dangling pointer wrote through a
// freed object, or the free list itself is corrupt).
func (a *Allocator) checkFreeSlotIntegrity(slotAddr uintptr) {
	slot := slotAt(slotAddr)
	if slot.magic != magicEmpty {
		errors.Panicf("slab poisoned", "magic mismatch on popped slot at %#x", slotAddr)
	}
	if !a.redzonesIntact(slotAddr) {
		errors.Panicf("slab poisoned", "redzone mismatch on popped slot at %#x", slotAddr)
	}
	if !mem.MemsetEqual(slotAddr+uintptr(a.leftOffset), poisonFill, uintptr(a.payloadSize)) {
		errors.Panicf("slab poisoned", "payload not fully poisoned on popped slot at %#x (dangling write)", slotAddr)
	}
}

// redzonesIntact checks both the left and right redzone of the slot at
// slotAddr against REDZONE_FILL.
func (a *Allocator) redzonesIntact(slotAddr uintptr) bool {
	frontOK := mem.MemsetEqual(slotAddr+uintptr(a.leftOffset-redzoneSize), redzoneFill, redzoneSize)
	rightOffset := a.leftOffset + a.payloadSize
	backOK := mem.MemsetEqual(slotAddr+uintptr(rightOffset), redzoneFill, redzoneSize)
	return frontOK && backOK
}
