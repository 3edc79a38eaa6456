package rtph264

import "fmt"

// MaxFragmentPayload is the largest NAL payload, in bytes, carried
// unfragmented in one RTP packet before FU-A splitting kicks in (chosen
// under a 1500-byte path MTU).
const MaxFragmentPayload = 1200

// fuaIndicatorType marks an RTP payload as an RFC 6184 FU-A
// fragmentation unit.
const fuaIndicatorType = 28

// FragmentNAL splits one NAL unit into RTP packets for sess, advancing
// sess's sequence number by one per packet. marker is set on the
// outgoing packet only when isLastNAL is true, and then only on the
// packet carrying the final fragment — see spec §4.1 and RFC 6184 §5.8,
// which this fixes to S-bit-on-first/E-bit-on-last after the original
// prototype's branching swapped them in at least one code path (the
// design notes call this out as buggy).
func FragmentNAL(nal []byte, sess *SessionState, isLastNAL bool) ([][]byte, error) {
	if len(nal) == 0 {
		return nil, fmt.Errorf("rtph264: empty NAL unit")
	}

	if len(nal) <= MaxFragmentPayload+1 {
		hdr := Header{
			PayloadType:    PayloadType,
			SequenceNumber: sess.nextSequence(),
			Timestamp:      sess.Timestamp,
			SSRC:           sess.SSRC,
			Marker:         isLastNAL,
		}
		pkt, err := marshalPacket(hdr, nal)
		if err != nil {
			return nil, err
		}
		return [][]byte{pkt}, nil
	}

	nri := nal[0] & 0x60
	typ := nal[0] & 0x1F
	rest := nal[1:]

	var packets [][]byte
	for offset, first := 0, true; offset < len(rest); first = false {
		chunkLen := len(rest) - offset
		if chunkLen > MaxFragmentPayload {
			chunkLen = MaxFragmentPayload
		}
		chunk := rest[offset : offset+chunkLen]
		offset += chunkLen

		start := first
		end := offset == len(rest)

		fuIndicator := fuaIndicatorType | nri
		fuHeader := typ
		if start {
			fuHeader |= 1 << 7
		}
		if end {
			fuHeader |= 1 << 6
		}

		payload := make([]byte, 2+len(chunk))
		payload[0] = fuIndicator
		payload[1] = fuHeader
		copy(payload[2:], chunk)

		hdr := Header{
			PayloadType:    PayloadType,
			SequenceNumber: sess.nextSequence(),
			Timestamp:      sess.Timestamp,
			SSRC:           sess.SSRC,
			Marker:         isLastNAL && end,
		}
		pkt, err := marshalPacket(hdr, payload)
		if err != nil {
			return nil, err
		}
		packets = append(packets, pkt)
	}

	return packets, nil
}

// reassembly accumulates FU-A fragments for one (ssrc, timestamp) NAL
// unit until an end fragment arrives.
type reassembly struct {
	nri        byte
	typ        byte
	payload    []byte
	lastSeq    uint16
	haveStart  bool
	haveAnySeq bool
}

// Depacketizer reassembles FU-A fragments and passes single-NAL packets
// through unchanged. One Depacketizer must be used per SSRC: a
// Receiver keyed on the remote SSRC so concurrent senders never share
// reassembly state (spec §5: "receivers must use ssrc to demultiplex").
type Depacketizer struct {
	byTimestamp map[uint32]*reassembly

	// ReassemblyGaps counts FU-A accumulations abandoned due to a
	// missing fragment (an E-bit packet with no prior S, or a
	// non-contiguous sequence number within the run).
	ReassemblyGaps uint64
}

// NewDepacketizer returns an empty Depacketizer.
func NewDepacketizer() *Depacketizer {
	return &Depacketizer{byTimestamp: make(map[uint32]*reassembly)}
}

// Feed processes one received RTP packet's header and payload. When it
// completes a NAL unit (a single-NAL packet, or the E-bit fragment of
// an FU-A run), it returns the reassembled NAL and true.
func (d *Depacketizer) Feed(hdr Header, payload []byte) ([]byte, bool) {
	if len(payload) == 0 {
		return nil, false
	}

	naluType := payload[0] & 0x1F
	if naluType != fuaIndicatorType {
		return append([]byte(nil), payload...), true
	}

	return d.feedFUA(hdr, payload)
}

func (d *Depacketizer) feedFUA(hdr Header, payload []byte) ([]byte, bool) {
	if len(payload) < 2 {
		d.ReassemblyGaps++
		return nil, false
	}

	nri := payload[0] & 0x60
	fuHeader := payload[1]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0
	typ := fuHeader & 0x1F
	chunk := payload[2:]

	r, ok := d.byTimestamp[hdr.Timestamp]

	if start {
		r = &reassembly{
			nri:        nri,
			typ:        typ,
			payload:    append([]byte{}, chunk...),
			lastSeq:    hdr.SequenceNumber,
			haveStart:  true,
			haveAnySeq: true,
		}
		d.byTimestamp[hdr.Timestamp] = r
		if end {
			delete(d.byTimestamp, hdr.Timestamp)
			return d.finish(r), true
		}
		return nil, false
	}

	if !ok || !r.haveStart {
		// An E (or middle) packet arrived without a prior S: abandon.
		delete(d.byTimestamp, hdr.Timestamp)
		d.ReassemblyGaps++
		return nil, false
	}

	if hdr.SequenceNumber != r.lastSeq+1 {
		// Non-contiguous sequence numbers across the accumulation.
		delete(d.byTimestamp, hdr.Timestamp)
		d.ReassemblyGaps++
		return nil, false
	}

	r.lastSeq = hdr.SequenceNumber
	r.payload = append(r.payload, chunk...)

	if end {
		delete(d.byTimestamp, hdr.Timestamp)
		return d.finish(r), true
	}

	return nil, false
}

func (d *Depacketizer) finish(r *reassembly) []byte {
	nal := make([]byte, 0, 1+len(r.payload))
	nal = append(nal, r.nri|r.typ)
	nal = append(nal, r.payload...)
	return nal
}
