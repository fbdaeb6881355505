package boot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/mem"
	"github.com/achilleasa/memcore/kernel/mem/region"
)

func newMemorySystem(t testing.TB, size uintptr) *MemorySystem {
	t.Helper()
	r, err := region.Reserve(size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Release() })
	return Bootstrap(r)
}

func TestBootstrapExposesUnderlyingBuddyLayout(t *testing.T) {
	ms := newMemorySystem(t, 0x200000)

	info := ms.Info()
	require.EqualValues(t, 0x1ff, info.Units)
	require.EqualValues(t, 9, info.Levels)
}

func TestMemorySystemAllocateDeallocateRoundTrips(t *testing.T) {
	ms := newMemorySystem(t, 0x200000)

	p, ok := ms.Allocate(mem.UnitSize)
	require.True(t, ok)
	require.NotZero(t, p)
	require.Equal(t, mem.UnitSize, ms.Info().Used)

	ms.Deallocate(p, mem.UnitSize)
	require.Zero(t, ms.Info().Used)
}

func TestNewSlabIsBackedByTheSharedBuddyAllocator(t *testing.T) {
	ms := newMemorySystem(t, 0x400000)

	s := ms.NewSlab(32, 8)
	slots := s.SlotsPerPage()
	require.Greater(t, slots, 0)

	var ptrs []uintptr
	for i := 0; i < slots; i++ {
		p, ok := s.Alloc()
		require.True(t, ok)
		ptrs = append(ptrs, p)
	}
	require.NotZero(t, ms.Info().Used, "slab page allocation must draw from the shared buddy allocator")

	for _, p := range ptrs {
		s.Dealloc(p)
	}
	require.Zero(t, ms.Info().Used, "returning all slots must release the backing page back to the buddy allocator")
}

func TestAllocateCheckedReportsOutOfMemory(t *testing.T) {
	ms := newMemorySystem(t, 0x20000)

	p, err := ms.AllocateChecked(ms.Info().DataLen + 1)
	require.Zero(t, p)
	require.ErrorIs(t, err, errors.ErrOutOfMemory)
}

func TestAllocateCheckedSucceeds(t *testing.T) {
	ms := newMemorySystem(t, 0x20000)

	p, err := ms.AllocateChecked(mem.UnitSize)
	require.NoError(t, err)
	require.NotZero(t, p)
}

func TestMultipleSlabsShareOneBuddyAllocator(t *testing.T) {
	ms := newMemorySystem(t, 0x400000)

	taskSlab := ms.NewSlab(64, 16)
	queueSlab := ms.NewSlab(16, 8)

	p1, ok := taskSlab.Alloc()
	require.True(t, ok)
	p2, ok := queueSlab.Alloc()
	require.True(t, ok)
	require.NotEqual(t, mem.Align(p1, mem.UnitSize), mem.Align(p2, mem.UnitSize))

	taskSlab.Dealloc(p1)
	queueSlab.Dealloc(p2)
	require.Zero(t, ms.Info().Used)
}
