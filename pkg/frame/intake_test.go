package frame

import (
	"errors"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediacore/pkg/corerr"
	"github.com/lanikai/mediacore/pkg/corestats"
)

func newTestFrame(released *atomic.Bool) *EncodedFrame {
	return New([]byte{0xAA}, nil, func(unsafe.Pointer) {
		if released != nil {
			released.Store(true)
		}
	})
}

func TestIntakeTryPushAndRecv(t *testing.T) {
	stats := &corestats.Stats{}
	q := NewIntake(stats)
	f := newTestFrame(nil)

	require.NoError(t, q.TryPush(f))

	got := <-q.Recv()
	require.Same(t, f, got)
	require.EqualValues(t, 1, stats.Snapshot().FramesAccepted)
}

func TestIntakeTryPushReleasesOnFull(t *testing.T) {
	stats := &corestats.Stats{}
	q := NewIntake(stats)
	for i := 0; i < IntakeCapacity; i++ {
		require.NoError(t, q.TryPush(newTestFrame(nil)))
	}

	var released atomic.Bool
	overflow := newTestFrame(&released)
	err := q.TryPush(overflow)

	require.True(t, errors.Is(err, corerr.ErrChannelFull))
	require.True(t, released.Load())
	require.EqualValues(t, 1, stats.Snapshot().FramesDroppedFull)
	require.EqualValues(t, IntakeCapacity, stats.Snapshot().FramesAccepted)
}

func TestIntakeTryPushReleasesOnClosed(t *testing.T) {
	stats := &corestats.Stats{}
	q := NewIntake(stats)
	q.Close()

	var released atomic.Bool
	f := newTestFrame(&released)
	err := q.TryPush(f)

	require.True(t, errors.Is(err, corerr.ErrChannelClosed))
	require.True(t, released.Load())
	require.EqualValues(t, 1, stats.Snapshot().FramesDroppedClosed)
}

func TestIntakeCloseDrainsAndReleasesQueued(t *testing.T) {
	q := NewIntake(&corestats.Stats{})

	var released [3]atomic.Bool
	for i := range released {
		require.NoError(t, q.TryPush(newTestFrame(&released[i])))
	}

	q.Close()

	for i := range released {
		require.True(t, released[i].Load(), "frame %d not released", i)
	}
}

func TestIntakeCloseIsIdempotent(t *testing.T) {
	q := NewIntake(&corestats.Stats{})
	q.Close()
	require.NotPanics(t, func() { q.Close() })
}
