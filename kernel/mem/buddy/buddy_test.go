package buddy

import (
	"fmt"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/mem"
)

// newRegion returns a mem.UnitSize-aligned address backed by a plain Go byte
// slice large enough to hold size bytes after alignment. The slice is kept
// alive for the duration of the test via t.Cleanup.
func newRegion(t testing.TB, size uintptr) uintptr {
	t.Helper()
	buf := make([]byte, size+mem.UnitSize)
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := mem.AlignUp(base, mem.UnitSize)
	t.Cleanup(func() { _ = buf })
	return aligned
}

func TestConstructOverTwoMebibytes(t *testing.T) {
	addr := newRegion(t, 0x200000)

	a := New(addr, 0x200000)
	info := a.Info()

	require.EqualValues(t, 0x1ff, info.Units)
	require.EqualValues(t, 9, info.Levels)
	require.Equal(t, addr+mem.UnitSize, info.DataBase)

	// units=0x1ff decomposes into one odd-tail orphan block per level
	// (formatBitmaps's asymmetric-tail invariant), so a level-0 request
	// is satisfied by level 0's own orphan at block index 510, not by
	// descending from the top-level block at offset 0.
	p, ok := a.Alloc(1)
	require.True(t, ok)
	require.Equal(t, addr+mem.UnitSize+0x1fe000, p)

	a.Dealloc(p, 1)
	require.Zero(t, a.Used())
}

func TestConstructPanicsOnTinyRegion(t *testing.T) {
	addr := newRegion(t, mem.UnitSize*2)
	require.Panics(t, func() { New(addr, mem.UnitSize) })
	require.Panics(t, func() { New(addr, mem.UnitSize-1) })
}

func TestAllocZeroPanics(t *testing.T) {
	addr := newRegion(t, 0x20000)
	a := New(addr, 0x20000)
	require.Panics(t, func() { a.Alloc(0) })
}

func TestAllocExhaustion(t *testing.T) {
	addr := newRegion(t, 0x20000)
	a := New(addr, 0x20000)

	_, ok := a.Alloc(a.DataLen() + 1)
	require.False(t, ok, "request larger than the whole data region must fail")
}

func TestLevelByLevelFillAndDrain(t *testing.T) {
	addr := newRegion(t, 0x200000)
	a := New(addr, 0x200000)

	levels := a.Info().Levels
	units := a.Info().Units

	for i := uint32(0); i < levels; i++ {
		blockSize := mem.UnitSize << i
		blockCount := units >> i
		if blockCount == 0 {
			continue
		}

		addrs := make([]uintptr, 0, blockCount)
		for j := uint32(0); j < blockCount; j++ {
			p, ok := a.Alloc(blockSize - 1)
			if !ok {
				break
			}
			addrs = append(addrs, p)
		}

		expectUsed := uintptr(len(addrs)) * blockSize
		require.Equal(t, expectUsed, a.Used(), "level %d fill mismatch", i)

		for _, p := range addrs {
			a.Dealloc(p, blockSize-1)
		}
		require.Zero(t, a.Used(), "level %d drain mismatch", i)
	}
}

func TestDeallocDoubleFreePanics(t *testing.T) {
	addr := newRegion(t, 0x20000)
	a := New(addr, 0x20000)

	p, ok := a.Alloc(100)
	require.True(t, ok)

	// This region's unit count (31) leaves level 0 with a single odd-tail
	// orphan at block index 30, which is what a level-0 request consumes
	// first; derive the expected block index from the allocation itself
	// instead of hardcoding it, so this doesn't re-break if construction
	// layout ever changes.
	blockIdx := (p - a.DataBase()) / mem.UnitSize

	a.Dealloc(p, 100)
	require.PanicsWithValue(t, errors.KernelPanic{Invariant: "buddy: double free", Detail: fmt.Sprintf("level=0 block=%d", blockIdx)}, func() {
		a.Dealloc(p, 100)
	})
}

func TestDeallocOutOfRangePanics(t *testing.T) {
	addr := newRegion(t, 0x20000)
	a := New(addr, 0x20000)

	require.Panics(t, func() { a.Dealloc(addr-mem.UnitSize, 1) })
	require.Panics(t, func() { a.Dealloc(a.DataBase()+a.DataLen(), 1) })
}

func TestNoSiblingsBothFree(t *testing.T) {
	addr := newRegion(t, 0x40000)
	a := New(addr, 0x40000)

	rng := rand.New(rand.NewSource(7))
	var live []struct {
		addr uintptr
		size uintptr
	}

	for i := 0; i < 500; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			a.Dealloc(live[idx].addr, live[idx].size)
			live = append(live[:idx], live[idx+1:]...)
			continue
		}

		size := uintptr(1 + rng.Intn(int(mem.UnitSize)*8))
		p, ok := a.Alloc(size)
		if ok {
			live = append(live, struct {
				addr uintptr
				size uintptr
			}{p, size})
		}

		assertNoCoalescableSiblings(t, a)
	}

	for _, l := range live {
		a.Dealloc(l.addr, l.size)
	}
	require.Zero(t, a.Used())
}

// assertNoCoalescableSiblings checks the quantified invariant from spec §8:
// at any moment, no two sibling blocks in the same level are both marked
// free (they would have been coalesced into the level above).
func assertNoCoalescableSiblings(t testing.TB, a *Allocator) {
	t.Helper()
	for _, bm := range a.bitmaps[:len(a.bitmaps)-1] {
		nBlocks := len(bm.bits) * 8
		for i := 0; i < nBlocks; i += 2 {
			if bm.get(uint32(i)) && bm.get(uint32(i+1)) {
				t.Fatalf("sibling blocks %d and %d both free", i, i+1)
			}
		}
	}
}

func TestUsedNeverExceedsDataLen(t *testing.T) {
	addr := newRegion(t, 0x40000)
	a := New(addr, 0x40000)

	rng := rand.New(rand.NewSource(42))
	var live []struct {
		addr uintptr
		size uintptr
	}

	for i := 0; i < 2000; i++ {
		op := rng.Intn(2)
		if op == 0 || len(live) == 0 {
			size := uintptr(1 + rng.Intn(int(a.DataLen())))
			p, ok := a.Alloc(size)
			require.LessOrEqual(t, a.Used(), a.DataLen())
			if ok {
				live = append(live, struct {
					addr uintptr
					size uintptr
				}{p, size})
			}
		} else {
			idx := rng.Intn(len(live))
			a.Dealloc(live[idx].addr, live[idx].size)
			live = append(live[:idx], live[idx+1:]...)
		}
	}

	for _, l := range live {
		a.Dealloc(l.addr, l.size)
	}
	require.Zero(t, a.Used())
}
