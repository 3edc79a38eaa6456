package frame

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestReleaseInvokesCallbackExactlyOnce(t *testing.T) {
	var calls atomic.Uint64
	f := New([]byte{0x01}, nil, func(unsafe.Pointer) { calls.Add(1) })

	f.Release()
	f.Release()
	f.Release()

	require.EqualValues(t, 1, calls.Load())
}

func TestReleasePassesThroughCtx(t *testing.T) {
	var gotCtx unsafe.Pointer
	marker := 42
	ctx := unsafe.Pointer(&marker)

	f := New(nil, ctx, func(c unsafe.Pointer) { gotCtx = c })
	f.Release()

	require.Equal(t, ctx, gotCtx)
}
