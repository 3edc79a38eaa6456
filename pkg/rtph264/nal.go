package rtph264

import "encoding/binary"

// avccLengthPrefix is the size, in bytes, of the big-endian length
// prefix preceding each NAL unit in AVCC framing.
const avccLengthPrefix = 4

// ExtractNALUnits walks an AVCC-framed access unit and returns its NAL
// units in order. A malformed length (zero, or one that would read past
// the end of data) halts extraction at that point; NAL units already
// collected are still returned, matching spec boundary behaviour B2 —
// this mirrors the original prototype's get_nal_units, which breaks out
// of its loop on the same conditions rather than erroring the whole
// frame.
func ExtractNALUnits(data []byte) [][]byte {
	var nalus [][]byte

	offset := 0
	for offset+avccLengthPrefix <= len(data) {
		length := binary.BigEndian.Uint32(data[offset : offset+avccLengthPrefix])
		if length == 0 {
			break
		}

		start := offset + avccLengthPrefix
		end := start + int(length)
		if end > len(data) {
			break
		}

		nalus = append(nalus, data[start:end])
		offset = end
	}

	return nalus
}
