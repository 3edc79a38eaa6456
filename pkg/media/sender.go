// Package media implements the per-stream UDP sender and receiver loops
// that move RTP-packetized H.264 access units between mediacore and its
// media peers. Grounded on gtfodev-camsRelay's CameraRelay send path
// (pull a frame from a channel, iterate known destinations, treat a
// single destination's I/O failure as non-fatal), generalized from its
// single-peer WebRTC track write to the spec's UDP-multicast-by-loop
// fan-out over an arbitrary peer set.
package media

import (
	"net"
	"net/netip"

	"github.com/lanikai/mediacore/pkg/corelog"
	"github.com/lanikai/mediacore/pkg/corestats"
	"github.com/lanikai/mediacore/pkg/frame"
	"github.com/lanikai/mediacore/pkg/peer"
	"github.com/lanikai/mediacore/pkg/rtph264"
)

// Sender drains a frame.Intake, packetizes each accepted frame's NAL
// units into RTP/FU-A fragments, and writes every fragment to every
// currently registered media peer. One Sender exists per stream kind,
// and sess is owned exclusively by it (spec §5).
type Sender struct {
	logger *corelog.Logger
	stats  *corestats.Stats
	conn   *net.UDPConn
	peers  *peer.Registry
	intake *frame.Intake
	sess   *rtph264.SessionState
}

// NewSender returns a Sender that writes to conn and reads peer
// addresses from peers.
func NewSender(
	logger *corelog.Logger,
	stats *corestats.Stats,
	conn *net.UDPConn,
	peers *peer.Registry,
	intake *frame.Intake,
	sess *rtph264.SessionState,
) *Sender {
	return &Sender{logger: logger, stats: stats, conn: conn, peers: peers, intake: intake, sess: sess}
}

// Run drains frames from the intake until it is closed. Intended to run
// in its own goroutine, one per stream kind.
func (s *Sender) Run() {
	for f := range s.intake.Recv() {
		s.sendFrame(f)
	}
}

// sendFrame packetizes and sends one access unit, releasing f exactly
// once regardless of how sending goes.
func (s *Sender) sendFrame(f *frame.EncodedFrame) {
	defer f.Release()

	dest := s.peers.Snapshot()
	if len(dest) == 0 {
		s.logger.DebugRTP("dropping frame, no media peers")
		return
	}

	nalus := rtph264.ExtractNALUnits(f.Data)
	if len(nalus) == 0 {
		s.logger.DebugNAL("frame produced no NAL units")
		return
	}

	for i, nal := range nalus {
		isLastNAL := i == len(nalus)-1
		packets, err := rtph264.FragmentNAL(nal, s.sess, isLastNAL)
		if err != nil {
			s.logger.DebugNAL("nal fragmentation failed", "error", err)
			continue
		}
		for _, pkt := range packets {
			s.sendToAll(dest, pkt)
		}
	}

	s.sess.AdvanceTimestamp()
}

// sendToAll writes pkt to every address in dest. A single peer's I/O
// error is logged and does not abort delivery to the rest (spec §4.5).
func (s *Sender) sendToAll(dest []netip.AddrPort, pkt []byte) {
	for _, addr := range dest {
		n, err := s.conn.WriteToUDPAddrPort(pkt, addr)
		if err != nil {
			s.logger.Warn("media send failed", "peer", addr, "error", err)
			continue
		}
		s.stats.AddBytesSent(uint64(n))
		s.stats.AddPacketsSent(1)
	}
}
