package media

import (
	"net"
	"net/netip"

	"github.com/lanikai/mediacore/pkg/corelog"
	"github.com/lanikai/mediacore/pkg/corestats"
	"github.com/lanikai/mediacore/pkg/peer"
	"github.com/lanikai/mediacore/pkg/playout"
	"github.com/lanikai/mediacore/pkg/rtph264"
)

// maxDatagramSize bounds a single read, comfortably above the largest
// fragment FragmentNAL ever produces under a 1500-byte path MTU.
const maxDatagramSize = 1500

// Receiver reads UDP datagrams for one stream kind, applies the
// observed-peer heuristic to sources the signaling layer never
// registered, depacketizes per-SSRC FU-A runs, and stages completed NAL
// units into a playout buffer. One Depacketizer is kept per remote SSRC
// so concurrent senders never share reassembly state (spec §5).
type Receiver struct {
	logger   *corelog.Logger
	stats    *corestats.Stats
	conn     *net.UDPConn
	observed *peer.ObservedInserter
	buffer   *playout.Buffer
	nowFn    func() uint64

	depacketizers map[uint32]*rtph264.Depacketizer
	gapsSeen      map[uint32]uint64
}

// NewReceiver returns a Receiver reading from conn and staging completed
// NAL units into buf. nowFn reads the current media clock time in ticks,
// used as each staged node's arrival time.
func NewReceiver(
	logger *corelog.Logger,
	stats *corestats.Stats,
	conn *net.UDPConn,
	observed *peer.ObservedInserter,
	buf *playout.Buffer,
	nowFn func() uint64,
) *Receiver {
	return &Receiver{
		logger:        logger,
		stats:         stats,
		conn:          conn,
		observed:      observed,
		buffer:        buf,
		nowFn:         nowFn,
		depacketizers: make(map[uint32]*rtph264.Depacketizer),
		gapsSeen:      make(map[uint32]uint64),
	}
}

// Run reads datagrams until conn is closed, at which point ReadFrom
// returns an error and Run returns. Intended to run in its own
// goroutine, one per stream kind.
func (r *Receiver) Run() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := r.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return
		}
		r.handleDatagram(addr, buf[:n])
	}
}

func (r *Receiver) handleDatagram(addr netip.AddrPort, data []byte) {
	if r.observed.Observe(addr) {
		r.stats.IncObservedPeerInserts()
		r.logger.DebugSignaling("observed peer admitted", "peer", addr)
	}

	hdr, payload, err := rtph264.Deserialize(data)
	if err != nil {
		r.logger.DebugRTP("malformed rtp packet", "peer", addr, "error", err)
		return
	}
	r.stats.IncPacketsReceived()

	dep, ok := r.depacketizers[hdr.SSRC]
	if !ok {
		dep = rtph264.NewDepacketizer()
		r.depacketizers[hdr.SSRC] = dep
	}

	nal, complete := dep.Feed(hdr, payload)
	if gaps := dep.ReassemblyGaps; gaps > r.gapsSeen[hdr.SSRC] {
		r.stats.IncReassemblyGaps()
		r.gapsSeen[hdr.SSRC] = gaps
	}
	if !complete {
		return
	}

	r.buffer.Insert(r.nowFn(), hdr.Timestamp, nal)
}
