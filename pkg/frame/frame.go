// Package frame implements the zero-copy boundary between a host H.264
// encoder and mediacore: an EncodedFrame wraps externally-owned AVCC
// bytes plus an opaque release callback, and guarantees that callback
// fires exactly once no matter how the frame is disposed of (sent,
// dropped, or discarded at shutdown).
//
// Grounded on the original prototype's EncodedFrame (interop/mod.rs,
// interop/video.rs), which releases on Rust's Drop; Go has no
// destructors, so this package makes the release explicit and
// idempotent with an atomic guard instead, per the design notes' call
// for "a move-only resource that carries its release action".
package frame

import (
	"sync/atomic"
	"unsafe"
)

// ReleaseFunc returns ownership of the frame's backing buffer to the
// host. It must be safe to call from any goroutine.
type ReleaseFunc func(ctx unsafe.Pointer)

// EncodedFrame is a single AVCC-framed H.264 access unit owned by the
// host application until Release is called.
type EncodedFrame struct {
	// Data is the AVCC-framed byte slice. The core does not copy it and
	// must not read it after Release has returned.
	Data []byte

	ctx      unsafe.Pointer
	release  ReleaseFunc
	released atomic.Bool
}

// New wraps data with ctx/release. Release has not yet been called.
func New(data []byte, ctx unsafe.Pointer, release ReleaseFunc) *EncodedFrame {
	return &EncodedFrame{Data: data, ctx: ctx, release: release}
}

// Release returns ownership of the frame to the host. It is safe to
// call multiple times or from multiple goroutines; only the first call
// invokes the host's release callback.
func (f *EncodedFrame) Release() {
	if f.released.CompareAndSwap(false, true) {
		f.release(f.ctx)
	}
}
