// Package playout implements the receive-side jitter buffer: a
// min-heap of staged NAL units ordered by playout deadline, released to
// a decoder sink at scheduled times. The heap shape (Len/Less/Swap/Push/
// Pop plus an index field) is grounded directly on
// gtfodev-camsRelay/pkg/nest/queue.go's ticketHeap, generalized from
// priority+FIFO ticket dispatch to deadline-ordered frame dispatch.
package playout

import (
	"container/heap"
	"sync"
	"time"
)

// Node is one staged, reassembled NAL unit awaiting playout.
type Node struct {
	// ArrivalClockTime is the arrival time passed to Insert, in media
	// clock ticks. media.Receiver passes the time at which the packet
	// completing the NAL unit arrived, not the time of its first packet.
	ArrivalClockTime uint64

	// RTPTimestamp is the access unit's RTP timestamp.
	RTPTimestamp uint32

	// PlayoutDeadline is ArrivalClockTime + the configured jitter
	// delay, in media clock ticks.
	PlayoutDeadline uint64

	// Payload is the reassembled NAL unit.
	Payload []byte

	arrivalOrder uint64
	index        int
}

// nodeHeap implements heap.Interface, ordering by PlayoutDeadline, with
// RTPTimestamp then arrival order as tiebreaks (spec §3 Ordering).
type nodeHeap []*Node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].PlayoutDeadline != h[j].PlayoutDeadline {
		return h[i].PlayoutDeadline < h[j].PlayoutDeadline
	}
	if h[i].RTPTimestamp != h[j].RTPTimestamp {
		return h[i].RTPTimestamp < h[j].RTPTimestamp
	}
	return h[i].arrivalOrder < h[j].arrivalOrder
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x interface{}) {
	n := len(*h)
	node := x.(*Node)
	node.index = n
	*h = append(*h, node)
}

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

// DecoderSink receives a fully reassembled, playout-scheduled NAL unit.
// It resolves the design notes' open question on the buffer's never-
// specified consumer contract.
type DecoderSink func(Node)

// Buffer is a fixed-jitter-delay playout buffer. JitterDelay is in
// media clock ticks and is always supplied by the caller of New; the
// buffer applies no default of its own.
type Buffer struct {
	mu        sync.Mutex
	heap      nodeHeap
	timer     *time.Timer
	sink      DecoderSink
	nowFn     func() uint64
	jitter    uint64
	clockRate uint64

	allowLate  bool
	arrivalSeq uint64
	stopped    bool
}

// Option configures a Buffer at construction.
type Option func(*Buffer)

// WithLateDelivery controls whether a node whose deadline has already
// passed at insertion time is delivered immediately (true, the default)
// or dropped (false).
func WithLateDelivery(allow bool) Option {
	return func(b *Buffer) { b.allowLate = allow }
}

// New returns a Buffer that delivers to sink, using jitterDelay media
// clock ticks at clockRateHz (e.g. 90000 for video) and nowFn to read
// the current media clock time, also in ticks.
func New(jitterDelay uint64, clockRateHz uint64, nowFn func() uint64, sink DecoderSink, opts ...Option) *Buffer {
	b := &Buffer{
		sink:      sink,
		nowFn:     nowFn,
		jitter:    jitterDelay,
		clockRate: clockRateHz,
		allowLate: true,
	}
	heap.Init(&b.heap)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Insert stages a reassembled NAL unit for playout. Its deadline is
// arrivalClockTime + JitterDelay. A deadline already in the past is
// delivered immediately if late delivery is permitted, else dropped.
func (b *Buffer) Insert(arrivalClockTime uint64, rtpTimestamp uint32, payload []byte) {
	b.mu.Lock()

	if b.stopped {
		b.mu.Unlock()
		return
	}

	deadline := arrivalClockTime + b.jitter
	node := &Node{
		ArrivalClockTime: arrivalClockTime,
		RTPTimestamp:     rtpTimestamp,
		PlayoutDeadline:  deadline,
		Payload:          payload,
		arrivalOrder:     b.arrivalSeq,
	}
	b.arrivalSeq++

	if deadline <= b.nowFn() {
		b.mu.Unlock()
		if b.allowLate {
			b.sink(*node)
		}
		return
	}

	heap.Push(&b.heap, node)
	b.rescheduleLocked()
	b.mu.Unlock()
}

// rescheduleLocked arms the delivery timer for the current head of the
// heap. Callers must hold b.mu.
func (b *Buffer) rescheduleLocked() {
	if len(b.heap) == 0 {
		return
	}
	head := b.heap[0]
	now := b.nowFn()
	var delay time.Duration
	if head.PlayoutDeadline > now {
		delay = b.ticksToDuration(head.PlayoutDeadline - now)
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(delay, b.fire)
		return
	}
	b.timer.Reset(delay)
}

// fire is invoked by the delivery timer. It pops and delivers every
// node whose deadline has arrived, then reschedules for the new head.
func (b *Buffer) fire() {
	b.mu.Lock()

	var due []*Node
	now := b.nowFn()
	for len(b.heap) > 0 && b.heap[0].PlayoutDeadline <= now {
		due = append(due, heap.Pop(&b.heap).(*Node))
	}
	b.rescheduleLocked()
	b.mu.Unlock()

	for _, n := range due {
		b.sink(*n)
	}
}

// Len returns the number of nodes currently staged.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.heap)
}

// ticksToDuration converts a media clock tick delta to a wall-clock
// time.Duration at the buffer's clock rate.
func (b *Buffer) ticksToDuration(ticks uint64) time.Duration {
	if b.clockRate == 0 {
		return 0
	}
	return time.Duration(ticks) * time.Second / time.Duration(b.clockRate)
}

// Stop halts the delivery timer. Staged nodes are left undelivered.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
}
