// Package errors provides the small set of sentinel error and panic types
// shared by the memory subsystem. It intentionally stays tiny: the core
// allocators distinguish only between "recoverable" conditions (returned as
// values) and "fatal" conditions (programmer or corruption errors, raised as
// panics), and both categories are represented here.
package errors

import "fmt"

// KernelError is a simple string-backed error, mirroring the style used
// throughout the kernel for sentinel values that callers compare with ==
// rather than errors.Is/As.
type KernelError string

func (e KernelError) Error() string { return string(e) }

// Sentinel errors for the recoverable failure category described in spec
// §7. The buddy and slab allocators themselves report recoverable failure
// as a (value, ok) pair; these sentinels are returned by the wrappers
// around them (boot.MemorySystem.AllocateChecked, region.Reserve).
const (
	// ErrInvalidParamValue is returned when a caller-supplied parameter is
	// out of the range the callee accepts.
	ErrInvalidParamValue = KernelError("invalid parameter value")

	// ErrOutOfMemory is returned when an allocation request cannot be
	// satisfied from the available free blocks.
	ErrOutOfMemory = KernelError("out of memory")
)

// KernelPanic is the value every fatal (programmer/corruption) error in the
// memory subsystem panics with. Keeping it a distinct type lets a boot-time
// recover() handler type-assert the panic value and print it as part of a
// kernel-panic screen dump instead of a generic runtime error.
type KernelPanic struct {
	// Invariant names the specific invariant that was violated.
	Invariant string
	// Detail carries additional context (addresses, sizes) for the dump.
	Detail string
}

func (p KernelPanic) Error() string {
	if p.Detail == "" {
		return p.Invariant
	}
	return fmt.Sprintf("%s: %s", p.Invariant, p.Detail)
}

// Panic raises a KernelPanic naming the violated invariant.
func Panic(invariant string) {
	panic(KernelPanic{Invariant: invariant})
}

// Panicf raises a KernelPanic naming the violated invariant with formatted
// detail, e.g. errors.Panicf("double free", "addr=%#x", addr).
func Panicf(invariant, format string, args ...interface{}) {
	panic(KernelPanic{Invariant: invariant, Detail: fmt.Sprintf(format, args...)})
}
