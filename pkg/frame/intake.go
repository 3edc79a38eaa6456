package frame

import (
	"sync"

	"github.com/lanikai/mediacore/pkg/corerr"
	"github.com/lanikai/mediacore/pkg/corestats"
)

// IntakeCapacity is the bounded queue depth between PushFrame and the
// sender loop (spec §4.5: "bounded queue (capacity 64)").
const IntakeCapacity = 64

// Intake is the host-facing frame queue: a single-consumer (the sender
// loop), multi-producer (the host encoder) bounded channel with
// non-blocking pushes, per spec §4.5's backpressure policy — "real-time
// preference dominates", so a full queue drops the newest frame rather
// than blocking the producer.
type Intake struct {
	mu     sync.Mutex
	ch     chan *EncodedFrame
	closed bool
	stats  *corestats.Stats
}

// NewIntake returns an empty Intake with capacity IntakeCapacity. Every
// drop TryPush takes (full or closed) is recorded on stats, per spec
// §4.5's "the new frame is dropped and released, and a counter is
// incremented".
func NewIntake(stats *corestats.Stats) *Intake {
	return &Intake{ch: make(chan *EncodedFrame, IntakeCapacity), stats: stats}
}

// TryPush attempts to enqueue f without blocking. On ErrChannelFull or
// ErrChannelClosed, f has already been released exactly once, and the
// matching drop counter already incremented, before TryPush returns,
// satisfying the exactly-once release contract for every
// accepted-or-rejected push.
func (q *Intake) TryPush(f *EncodedFrame) error {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		f.Release()
		q.stats.IncFramesDroppedClosed()
		return corerr.ErrChannelClosed
	}

	select {
	case q.ch <- f:
		q.mu.Unlock()
		q.stats.IncFramesAccepted()
		return nil
	default:
		q.mu.Unlock()
		f.Release()
		q.stats.IncFramesDroppedFull()
		return corerr.ErrChannelFull
	}
}

// Recv returns the channel the sender loop ranges/selects over to
// consume queued frames.
func (q *Intake) Recv() <-chan *EncodedFrame {
	return q.ch
}

// Close marks the intake closed: further TryPush calls fail with
// ErrChannelClosed, and drains+releases whatever is left queued,
// matching spec §5's "pending frames in the intake queue are released
// during teardown".
func (q *Intake) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	for f := range q.ch {
		f.Release()
	}
}
