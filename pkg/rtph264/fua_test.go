package rtph264

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragmentNALSinglePacketBelowThreshold(t *testing.T) {
	sess := NewSessionState()
	nal := append([]byte{0x65}, bytes.Repeat([]byte{0xAB}, 100)...)

	pkts, err := FragmentNAL(nal, sess, true)
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	hdr, payload, err := Deserialize(pkts[0])
	require.NoError(t, err)
	require.True(t, hdr.Marker)
	require.Equal(t, nal, payload)
}

func TestFragmentNALSplitsOversizeNAL(t *testing.T) {
	sess := NewSessionState()
	nalHeader := byte(0x65) // nri=0x60, type=5
	body := bytes.Repeat([]byte{0xCD}, 3000)
	nal := append([]byte{nalHeader}, body...)

	pkts, err := FragmentNAL(nal, sess, true)
	require.NoError(t, err)
	require.Greater(t, len(pkts), 1)

	dep := NewDepacketizer()
	var reassembled []byte
	var done bool
	for i, pkt := range pkts {
		hdr, payload, err := Deserialize(pkt)
		require.NoError(t, err)

		isLast := i == len(pkts)-1
		require.Equal(t, isLast, hdr.Marker)

		reassembled, done = dep.Feed(hdr, payload)
	}
	require.True(t, done)
	require.Equal(t, nal, reassembled)
	require.Zero(t, dep.ReassemblyGaps)
}

func TestFragmentNALSequenceIsContiguous(t *testing.T) {
	sess := NewSessionState()
	start := sess.Sequence
	nal := append([]byte{0x65}, bytes.Repeat([]byte{0x01}, 4000)...)

	pkts, err := FragmentNAL(nal, sess, false)
	require.NoError(t, err)

	for i, pkt := range pkts {
		hdr, _, err := Deserialize(pkt)
		require.NoError(t, err)
		require.Equal(t, start+uint16(i), hdr.SequenceNumber)
	}
}

func TestFragmentNALRejectsEmptyInput(t *testing.T) {
	_, err := FragmentNAL(nil, NewSessionState(), true)
	require.Error(t, err)
}

func TestDepacketizerPassesThroughSingleNAL(t *testing.T) {
	dep := NewDepacketizer()
	hdr := Header{SequenceNumber: 1, Timestamp: 1000, PayloadType: PayloadType}
	nal, ok := dep.Feed(hdr, []byte{0x67, 0x01, 0x02})
	require.True(t, ok)
	require.Equal(t, []byte{0x67, 0x01, 0x02}, nal)
}

func TestDepacketizerCountsGapOnMissingStart(t *testing.T) {
	dep := NewDepacketizer()
	// A middle/end FU-A fragment with no prior start fragment.
	hdr := Header{SequenceNumber: 5, Timestamp: 2000, PayloadType: PayloadType}
	fuIndicator := byte(28 | 0x60)
	fuHeader := byte(5) // no S or E bit
	_, ok := dep.Feed(hdr, []byte{fuIndicator, fuHeader, 0x01, 0x02})
	require.False(t, ok)
	require.EqualValues(t, 1, dep.ReassemblyGaps)
}

func TestDepacketizerCountsGapOnNonContiguousSequence(t *testing.T) {
	sess := NewSessionState()
	nal := append([]byte{0x65}, bytes.Repeat([]byte{0x02}, 3000)...)
	pkts, err := FragmentNAL(nal, sess, true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pkts), 3)

	dep := NewDepacketizer()

	hdr0, payload0, err := Deserialize(pkts[0])
	require.NoError(t, err)
	_, done := dep.Feed(hdr0, payload0)
	require.False(t, done)

	// Skip pkts[1], feed the last fragment directly: sequence gap.
	hdrLast, payloadLast, err := Deserialize(pkts[len(pkts)-1])
	require.NoError(t, err)
	_, done = dep.Feed(hdrLast, payloadLast)
	require.False(t, done)
	require.EqualValues(t, 1, dep.ReassemblyGaps)
}
