package rtph264

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func avccFrame(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], uint32(len(n)))
		out = append(out, prefix[:]...)
		out = append(out, n...)
	}
	return out
}

func TestExtractNALUnits(t *testing.T) {
	cases := []struct {
		name  string
		data  []byte
		nalus [][]byte
	}{
		{
			name:  "single NAL",
			data:  avccFrame([]byte{0x67, 0x01, 0x02}),
			nalus: [][]byte{{0x67, 0x01, 0x02}},
		},
		{
			name:  "multiple NALs",
			data:  avccFrame([]byte{0x67, 0x01}, []byte{0x68, 0x02, 0x03}, []byte{0x65, 0x04}),
			nalus: [][]byte{{0x67, 0x01}, {0x68, 0x02, 0x03}, {0x65, 0x04}},
		},
		{
			name:  "empty input",
			data:  nil,
			nalus: nil,
		},
		{
			name:  "zero-length NAL halts extraction",
			data:  append(avccFrame([]byte{0x67, 0x01}), []byte{0x00, 0x00, 0x00, 0x00}...),
			nalus: [][]byte{{0x67, 0x01}},
		},
		{
			name:  "truncated length prefix halts extraction",
			data:  append(avccFrame([]byte{0x67, 0x01}), []byte{0x00, 0x00}...),
			nalus: [][]byte{{0x67, 0x01}},
		},
		{
			name:  "length exceeding buffer halts extraction",
			data:  append(avccFrame([]byte{0x67, 0x01}), []byte{0x00, 0x00, 0x00, 0xFF}...),
			nalus: [][]byte{{0x67, 0x01}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.nalus, ExtractNALUnits(tc.data))
		})
	}
}
