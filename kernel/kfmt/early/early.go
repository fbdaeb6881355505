// Package early provides a minimal, dependency-free printf used for boot-time
// and panic diagnostics, in the spirit of gopher-os's kernel/kfmt/early
// package. The freestanding original writes straight to the VGA text buffer
// before any heap exists; the terminal/VGA renderer is an explicit
// out-of-scope collaborator for this module (spec §1), so this rendition
// writes to a settable io.Writer (os.Stderr by default) instead.
//
// This package is for low-volume diagnostic tracing only — allocator
// construction summaries and panic dumps — and must never sit on the
// alloc/dealloc hot path.
package early

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects subsequent Printf calls. Tests use this to capture
// diagnostic output instead of writing to stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Printf formats according to a format specifier and writes to the current
// output writer. Write errors are ignored, matching the original's
// can't-fail VGA writer semantics.
func Printf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, format, args...)
}
