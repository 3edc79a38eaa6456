// Package rtph264 implements the RTP packetization and depacketization
// pipeline for H.264 access units: fixed 12-byte RTP headers (no CSRC,
// no extensions), AVCC NAL extraction, and RFC 6184 FU-A
// fragmentation/reassembly. Header (de)serialization is grounded on
// bluenviron-gortsplib's rtph264 package, which builds and parses
// packets through github.com/pion/rtp directly rather than hand-rolling
// the bit layout.
package rtph264

import (
	"math/rand"

	"github.com/pion/rtp"
)

// ClockRateHz is the RTP clock rate for H.264 video (90 kHz).
const ClockRateHz = 90000

// DefaultFrameIncrement advances the RTP timestamp by this amount per
// access unit at the default target of 30 fps: 90000/30 = 3000.
const DefaultFrameIncrement = ClockRateHz / 30

// PayloadType is the dynamic RTP payload type used for H.264.
const PayloadType = 96

// SessionState is the per-outbound-stream RTP sequencing state. It is
// owned by exactly one sender loop and is never shared across
// goroutines (spec §5: "RTPSessionState is owned by its sender task and
// is not shared").
type SessionState struct {
	SSRC           uint32
	Sequence       uint16
	Timestamp      uint32
	FrameIncrement uint32
}

// NewSessionState returns a SessionState with a random SSRC and initial
// sequence number, the way bluenviron-gortsplib's Encoder seeds
// sequenceNumber/ssrc with rand.Uint32() at construction.
func NewSessionState() *SessionState {
	return &SessionState{
		SSRC:           rand.Uint32(),
		Sequence:       uint16(rand.Uint32()),
		Timestamp:      rand.Uint32(),
		FrameIncrement: DefaultFrameIncrement,
	}
}

// nextSequence returns the current sequence number and advances it by
// one, wrapping mod 2^16 via uint16 overflow.
func (s *SessionState) nextSequence() uint16 {
	seq := s.Sequence
	s.Sequence++
	return seq
}

// AdvanceTimestamp advances the RTP timestamp by FrameIncrement,
// wrapping mod 2^32 via uint32 overflow. Call once per access unit,
// after its final fragment has been emitted.
func (s *SessionState) AdvanceTimestamp() {
	s.Timestamp += s.FrameIncrement
}

// Header mirrors the fixed 12-byte RTP header fields this spec uses:
// version 2, no padding, no extension, csrc_count 0.
type Header struct {
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

// Serialize renders h as the 12 raw header bytes, via pion/rtp so the
// bit layout matches RFC 3550 exactly.
func Serialize(h Header) ([]byte, error) {
	hdr := rtp.Header{
		Version:        2,
		Marker:         h.Marker,
		PayloadType:    h.PayloadType,
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}
	return hdr.Marshal()
}

// Deserialize parses the RTP header from buf, tolerating any payload
// type value (unknown payload types pass through unexamined).
func Deserialize(buf []byte) (Header, []byte, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(buf); err != nil {
		return Header{}, nil, err
	}
	return Header{
		Marker:         pkt.Header.Marker,
		PayloadType:    pkt.Header.PayloadType,
		SequenceNumber: pkt.Header.SequenceNumber,
		Timestamp:      pkt.Header.Timestamp,
		SSRC:           pkt.Header.SSRC,
	}, pkt.Payload, nil
}

// marshalPacket serializes a full RTP packet (header + payload) in one
// call, the way gortsplib's Encoder does via rtp.Packet.Marshal.
func marshalPacket(h Header, payload []byte) ([]byte, error) {
	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         h.Marker,
			PayloadType:    h.PayloadType,
			SequenceNumber: h.SequenceNumber,
			Timestamp:      h.Timestamp,
			SSRC:           h.SSRC,
		},
		Payload: payload,
	}
	return pkt.Marshal()
}
