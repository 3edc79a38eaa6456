// Package corestats tracks the read-only counters spec §7 requires for
// CHANNEL_FULL and REASSEMBLY_GAP (and a few companion metrics), the
// way gtfodev-camsRelay's CameraRelay tracks per-pipeline counts with
// atomic.Uint64 fields read through plain getters.
package corestats

import "sync/atomic"

// Stats holds one stream's lifetime counters.
type Stats struct {
	framesAccepted      atomic.Uint64
	framesDroppedFull   atomic.Uint64
	framesDroppedClosed atomic.Uint64
	packetsSent         atomic.Uint64
	bytesSent           atomic.Uint64
	packetsReceived     atomic.Uint64
	reassemblyGaps      atomic.Uint64
	observedPeerInserts atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats, safe to read without
// further synchronization.
type Snapshot struct {
	FramesAccepted      uint64
	FramesDroppedFull   uint64
	FramesDroppedClosed uint64
	PacketsSent         uint64
	BytesSent           uint64
	PacketsReceived     uint64
	ReassemblyGaps      uint64
	ObservedPeerInserts uint64
}

// IncFramesAccepted counts a frame admitted into the intake queue.
// Mutually exclusive with IncFramesDroppedFull/IncFramesDroppedClosed
// for any single PushFrame call.
func (s *Stats) IncFramesAccepted()     { s.framesAccepted.Add(1) }
func (s *Stats) IncFramesDroppedFull()   { s.framesDroppedFull.Add(1) }
func (s *Stats) IncFramesDroppedClosed() { s.framesDroppedClosed.Add(1) }
func (s *Stats) AddPacketsSent(n uint64) { s.packetsSent.Add(n) }
func (s *Stats) AddBytesSent(n uint64)   { s.bytesSent.Add(n) }
func (s *Stats) IncPacketsReceived()     { s.packetsReceived.Add(1) }
func (s *Stats) IncReassemblyGaps()      { s.reassemblyGaps.Add(1) }
func (s *Stats) IncObservedPeerInserts() { s.observedPeerInserts.Add(1) }

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		FramesAccepted:      s.framesAccepted.Load(),
		FramesDroppedFull:   s.framesDroppedFull.Load(),
		FramesDroppedClosed: s.framesDroppedClosed.Load(),
		PacketsSent:         s.packetsSent.Load(),
		BytesSent:           s.bytesSent.Load(),
		PacketsReceived:     s.packetsReceived.Load(),
		ReassemblyGaps:      s.reassemblyGaps.Load(),
		ObservedPeerInserts: s.observedPeerInserts.Load(),
	}
}
