package rtph264

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeHeaderRoundTrip(t *testing.T) {
	h := Header{
		Marker:         true,
		PayloadType:    PayloadType,
		SequenceNumber: 17645,
		Timestamp:      2289526357,
		SSRC:           0x9dbb7812,
	}

	pkt, err := marshalPacket(h, []byte{0xaa, 0xbb, 0xcc})
	require.NoError(t, err)

	got, payload, err := Deserialize(pkt)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, payload)
}

func TestSessionStateNextSequenceWraps(t *testing.T) {
	s := &SessionState{Sequence: 0xFFFF}
	first := s.nextSequence()
	require.Equal(t, uint16(0xFFFF), first)
	require.Equal(t, uint16(0), s.Sequence)
}

func TestSessionStateAdvanceTimestampWraps(t *testing.T) {
	s := &SessionState{Timestamp: 0xFFFFFFFF, FrameIncrement: 10}
	s.AdvanceTimestamp()
	require.Equal(t, uint32(9), s.Timestamp)
}

func TestNewSessionStateUsesDefaultFrameIncrement(t *testing.T) {
	s := NewSessionState()
	require.Equal(t, uint32(DefaultFrameIncrement), s.FrameIncrement)
}
