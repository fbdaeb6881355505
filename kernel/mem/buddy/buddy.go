// Package buddy implements the buddy page allocator described in spec
// §3.1/§4.1: a single contiguous region of machine pages, split into
// power-of-two blocks tracked by one free bitmap per level, coalesced back
// together on free.
//
// Algorithmically this is a direct port of original_source/buddyblock/src/lib.rs
// (BuddyBlockInfo::new's two-pass metadata-sizing, the bitmap_index_for_size
// level search, and the XOR-buddy coalescing loop). Stylistically it follows
// achilleasa-gopher-os's kernel/mem/physical/allocator.go: raw addresses as
// uintptr, per-level bitmaps, (value, ok) results for recoverable failure,
// panics for programmer/corruption errors.
package buddy

import (
	"unsafe"

	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/kfmt/early"
	"github.com/achilleasa/memcore/kernel/mem"
)

// descriptorSize is the per-level bookkeeping overhead (a bits pointer plus
// a free-count word) folded into the metadata-region size calculation, so
// that the reserved metadata area has the same footprint a native
// pointer-and-count descriptor array would occupy.
const descriptorSize = 2 * unsafe.Sizeof(uintptr(0))

// Info summarizes an allocator's layout, matching the caller↔buddy interface
// of spec §6.2.
type Info struct {
	DataBase      uintptr
	DataLen       uintptr
	Units         uint32
	Levels        uint32
	MetadataBytes uintptr
	Used          uintptr
}

// Allocator manages a single contiguous [addr, addr+len) range, handing out
// power-of-two multiples of mem.UnitSize from the data sub-range that
// follows its own metadata.
type Allocator struct {
	addr       uintptr
	totalLen   uintptr
	dataOffset uintptr
	units      uint32
	used       uintptr
	bitmaps    []levelBitmap
	counts     []uint32
}

// chunkLayout mirrors BuddyBlockInfo::from_chunk: given a candidate length,
// compute how many units it covers, how many bitmap levels that implies, and
// how many bytes the packed bitmaps (plus per-level descriptors) need.
func chunkLayout(length uintptr) (units uint32, levels uint32, metadataBytes uintptr) {
	units = uint32((length-1)/mem.UnitSize + 1)

	var bitsBytes uint32
	blockCount := units
	for {
		levels++
		bitsBytes += bitmapBytesFor(blockCount)
		if blockCount == 1 {
			break
		}
		blockCount /= 2
	}

	metadataBytes = uintptr(levels)*descriptorSize + uintptr(bitsBytes)
	return
}

// levelForSize returns the smallest level i such that mem.UnitSize<<i is at
// least size.
func levelForSize(size uintptr) uint32 {
	var idx uint32
	for (mem.UnitSize << idx) < size {
		idx++
	}
	return idx
}

// New constructs a buddy allocator over [addr, addr+length). length must
// exceed mem.UnitSize; construction panics (spec §7) if the range cannot
// even hold its own metadata.
func New(addr, length uintptr) *Allocator {
	if length <= mem.UnitSize {
		errors.Panicf("buddy: region too small", "len=%#x unit=%#x", length, mem.UnitSize)
	}

	_, _, tmpMetadata := chunkLayout(length)
	dataOffset := mem.AlignUp(tmpMetadata, mem.UnitSize)
	if dataOffset >= length {
		errors.Panicf("buddy: metadata does not fit in region", "len=%#x metadata=%#x", length, tmpMetadata)
	}

	units, levels, metadataBytes := chunkLayout(length - dataOffset)
	if metadataBytes >= dataOffset {
		errors.Panicf("buddy: metadata does not fit in reserved pages", "metadata=%#x reserved=%#x", metadataBytes, dataOffset)
	}

	a := &Allocator{
		addr:       addr,
		totalLen:   length,
		dataOffset: dataOffset,
		units:      units,
		bitmaps:    make([]levelBitmap, levels),
		counts:     make([]uint32, levels),
	}

	a.formatBitmaps()

	early.Printf("[buddy] region=%#x..%#x units=%d levels=%d metadata=%d data=%#x..%#x\n",
		addr, addr+length, units, levels, metadataBytes, a.DataBase(), addr+length)

	return a
}

// formatBitmaps zeroes the metadata bitmap area and marks the single
// top-level block free, along with any odd trailing block at a lower level
// (spec's asymmetric-tail invariant), mirroring BuddyBlock::new.
func (a *Allocator) formatBitmaps() {
	var totalBits uint32
	blockCount := a.units
	for range a.bitmaps {
		n := bitmapBytesFor(blockCount)
		totalBits += n
		if blockCount == 1 {
			break
		}
		blockCount /= 2
	}
	mem.Memset(a.addr, 0, uintptr(totalBits))

	var offset uintptr
	blockCount = a.units
	for i := range a.bitmaps {
		n := bitmapBytesFor(blockCount)
		bits := unsafe.Slice((*byte)(unsafe.Pointer(a.addr+offset)), n)

		var count uint32
		if blockCount%2 != 0 {
			bits[n-1] = 1 << ((blockCount % 8) - 1)
			count = 1
		}

		a.counts[i] = count
		a.bitmaps[i] = levelBitmap{bits: bits, count: &a.counts[i]}

		offset += uintptr(n)
		blockCount /= 2
	}
}

// DataBase returns the address of the first byte callers may be handed.
func (a *Allocator) DataBase() uintptr { return a.addr + a.dataOffset }

// DataLen returns the size in bytes of the data sub-range.
func (a *Allocator) DataLen() uintptr { return a.totalLen - a.dataOffset }

// Used returns the total bytes currently allocated (sum of aligned request
// sizes).
func (a *Allocator) Used() uintptr { return a.used }

// Free returns the total bytes currently available.
func (a *Allocator) Free() uintptr { return a.DataLen() - a.used }

// Info returns a snapshot of the allocator's layout and current usage.
func (a *Allocator) Info() Info {
	return Info{
		DataBase:      a.DataBase(),
		DataLen:       a.DataLen(),
		Units:         a.units,
		Levels:        uint32(len(a.bitmaps)),
		MetadataBytes: a.dataOffset,
		Used:          a.used,
	}
}

// Alloc requests byteLen bytes, rounded up to a power-of-two multiple of
// mem.UnitSize. It returns the address of the allocated block and true, or
// (0, false) if no block of the required size or larger is free.
func (a *Allocator) Alloc(byteLen uintptr) (uintptr, bool) {
	if byteLen == 0 {
		errors.Panic("buddy: zero-length alloc")
	}

	alignedLen := mem.AlignUp(byteLen, mem.UnitSize)
	fitLevel := levelForSize(alignedLen)
	if fitLevel >= uint32(len(a.bitmaps)) {
		return 0, false
	}

	for lvl := fitLevel; lvl < uint32(len(a.bitmaps)); lvl++ {
		bm := a.bitmaps[lvl]
		if bm.empty() {
			continue
		}

		blockIdx := bm.firstFree()
		bm.setUsed(blockIdx)

		below := int(blockIdx)
		for l := int(lvl) - 1; l >= int(fitLevel); l-- {
			below *= 2
			a.bitmaps[l].setFree(uint32(below + 1))
		}

		a.used += alignedLen
		return a.DataBase() + uintptr(blockIdx)*(mem.UnitSize<<lvl), true
	}

	return 0, false
}

// Dealloc releases the block covering [addr, addr+byteLen), realigning the
// range inward to unit boundaries and coalescing buddies upward. byteLen==0
// is a no-op. addr must lie within the data region and the corresponding
// block must currently be allocated; violations panic (spec §7).
func (a *Allocator) Dealloc(addr, byteLen uintptr) {
	if byteLen == 0 {
		return
	}

	dataBase := a.DataBase()
	dataLen := a.DataLen()

	alignedStart := mem.Align(addr, mem.UnitSize)
	alignedEnd := mem.AlignUp(addr+byteLen, mem.UnitSize)
	alignedLen := alignedEnd - alignedStart

	if !(dataBase <= alignedStart && alignedStart < dataBase+dataLen) {
		errors.Panicf("buddy: dealloc address out of range", "addr=%#x base=%#x len=%#x", addr, dataBase, dataLen)
	}
	if !(dataBase < alignedEnd && alignedEnd <= dataBase+dataLen) {
		errors.Panicf("buddy: dealloc range out of bounds", "addr=%#x byteLen=%#x base=%#x len=%#x", addr, byteLen, dataBase, dataLen)
	}

	level := levelForSize(alignedLen)
	if level >= uint32(len(a.bitmaps)) {
		errors.Panicf("buddy: dealloc size exceeds top level", "alignedLen=%#x", alignedLen)
	}

	blockIdx := uint32((alignedStart - dataBase) / (mem.UnitSize << level))
	cur := level
	for {
		bm := a.bitmaps[cur]
		if bm.get(blockIdx) {
			errors.Panicf("buddy: double free", "level=%d block=%d", cur, blockIdx)
		}
		bm.setFree(blockIdx)

		buddyIdx := blockIdx ^ 1
		if bm.get(buddyIdx) {
			if cur+1 >= uint32(len(a.bitmaps)) {
				break
			}
			bm.setUsed(buddyIdx)
			bm.setUsed(blockIdx)
			blockIdx /= 2
			cur++
		} else {
			break
		}
	}

	a.used -= alignedLen
}
