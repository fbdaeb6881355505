// Package region provides the "paging bootstrap" collaborator's counterpart
// for this hosted module: a way to obtain a contiguous, page-aligned,
// unit-size-aligned (virtual_base, length) range to hand to the buddy
// allocator, as described in spec §1 and §6.4. On real hardware this comes
// from the kernel's own paging-table construction, which is explicitly out
// of scope; here it comes from an anonymous mmap via golang.org/x/sys/unix,
// the same mechanism used elsewhere in the pack to get real page-aligned
// memory from the host OS.
package region

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/achilleasa/memcore/kernel/errors"
	"github.com/achilleasa/memcore/kernel/mem"
)

// Region is a contiguous, page-aligned byte range backing the memory
// subsystem under test or in a hosted demo.
type Region struct {
	base uintptr
	len  uintptr
	buf  []byte
	owns bool
}

// Reserve maps a fresh anonymous, zero-filled region of at least length
// bytes, rounded up to a whole number of unit pages. The returned Region's
// base address is page-aligned, matching the alignment guarantee the real
// paging bootstrap provides.
func Reserve(length uintptr) (*Region, error) {
	if length == 0 {
		return nil, errors.ErrInvalidParamValue
	}
	rounded := mem.AlignUp(length, mem.UnitSize)

	buf, err := unix.Mmap(-1, 0, int(rounded), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}

	return &Region{
		base: sliceBase(buf),
		len:  rounded,
		buf:  buf,
		owns: true,
	}, nil
}

// Fixed wraps a caller-owned byte slice as a Region without mapping new
// memory, for tests that want a plain heap-backed range. buf's address is
// not guaranteed page-aligned; callers that need alignment should allocate
// extra slack and align the base themselves before calling Fixed.
func Fixed(buf []byte) *Region {
	return &Region{
		base: sliceBase(buf),
		len:  uintptr(len(buf)),
		buf:  buf,
		owns: false,
	}
}

// sliceBase returns the address of a non-empty byte slice's backing array.
func sliceBase(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

// Base returns the region's starting address.
func (r *Region) Base() uintptr { return r.base }

// Len returns the region's length in bytes.
func (r *Region) Len() uintptr { return r.len }

// Release unmaps the region if it was obtained via Reserve. Calling Release
// on a Region built with Fixed is a no-op.
func (r *Region) Release() error {
	if !r.owns {
		return nil
	}
	return unix.Munmap(r.buf)
}
