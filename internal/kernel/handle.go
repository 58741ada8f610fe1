package kernel

import (
	"fmt"
	"sync/atomic"
)

// Handle owns one kernel object reference. It is never copied by value:
// pass *Handle, and use Release to hand the raw value to the kernel in a
// move descriptor.
type Handle struct {
	k      Closer
	raw    uint32
	closed atomic.Bool
}

// NewHandle takes ownership of a freshly obtained raw handle.
func NewHandle(k Closer, raw uint32) *Handle {
	return &Handle{k: k, raw: raw}
}

// CurrentProcessHandle returns the current-process pseudo-handle.
func CurrentProcessHandle() *Handle {
	return &Handle{raw: CurrentProcess}
}

// CurrentThreadHandle returns the current-thread pseudo-handle.
func CurrentThreadHandle() *Handle {
	return &Handle{raw: CurrentThread}
}

// Raw returns the numeric value for a system call or an outgoing
// descriptor. It does not transfer ownership.
func (h *Handle) Raw() uint32 {
	return h.raw
}

// IsPseudo reports whether h is one of the two pseudo-handles.
func (h *Handle) IsPseudo() bool {
	return IsPseudo(h.raw)
}

// IsPseudo reports whether raw is one of the two pseudo-handle values.
func IsPseudo(raw uint32) bool {
	return raw == CurrentProcess || raw == CurrentThread
}

// Close closes the kernel object once. Later calls and pseudo-handles are
// no-ops.
func (h *Handle) Close() error {
	if h.IsPseudo() || !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.k.CloseHandle(h.raw).Err()
}

// Release gives up ownership without closing and returns the raw value.
func (h *Handle) Release() uint32 {
	h.closed.Store(true)
	return h.raw
}

func (h *Handle) String() string {
	return fmt.Sprintf("handle(0x%08X)", h.raw)
}
