// Package signaling implements the peer-mesh discovery protocol: a
// line-oriented, CRLF-terminated text request/response exchanged over
// TCP, plus the join algorithm and per-connection state machine that
// use it. Grounded on the original prototype's
// session_management/signaling_server.rs (handle_signaling_client,
// connect_to_signaling_server) for the parse/build shape, translated
// from a single-kind exchange into the spec's video/audio-tagged one.
package signaling

import (
	"bytes"
	"net/netip"
	"unicode/utf8"

	"github.com/lanikai/mediacore/pkg/corerr"
	"github.com/lanikai/mediacore/pkg/sessionconfig"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

const crlf = "\r\n"

// request is a parsed REQUEST block (spec §4.4).
type request struct {
	Kind          streamkind.Kind
	SignalingAddr netip.AddrPort
	MediaAddr     netip.AddrPort
	H264          sessionconfig.H264Config // valid only when Kind == Video
}

// response is a parsed RESPONSE block (spec §4.4).
type response struct {
	Kind      streamkind.Kind
	MediaAddr netip.AddrPort
	H264      sessionconfig.H264Config // valid only when Kind == Video
	Peers     []netip.AddrPort
}

// splitBlock splits a raw CRLF-terminated block into fields, stopping
// at the first empty field (the blank line that ends a block), the way
// the original prototype's handle_signaling_client uses
// .lines().take_while(|line| !line.is_empty()).
func splitBlock(data []byte) [][]byte {
	parts := bytes.Split(data, []byte(crlf))
	var fields [][]byte
	for _, p := range parts {
		if len(p) == 0 {
			break
		}
		fields = append(fields, p)
	}
	return fields
}

// validCodecField rejects a SPS/PPS line containing an embedded CR or
// LF byte: such a field cannot round-trip through a CRLF-delimited
// wire block, so the spec treats it as invalid input rather than
// attempting any escaping scheme.
func validCodecField(b []byte) bool {
	return len(b) > 0 && !bytes.ContainsAny(b, "\r\n")
}

func parseAddr(field []byte) (netip.AddrPort, error) {
	if !utf8.Valid(field) {
		return netip.AddrPort{}, corerr.ErrInvalidData
	}
	addr, err := netip.ParseAddrPort(string(field))
	if err != nil {
		return netip.AddrPort{}, corerr.ErrInvalidData
	}
	return addr, nil
}

// parseRequest parses a REQUEST block per spec §4.4.
func parseRequest(data []byte) (request, error) {
	fields := splitBlock(data)
	if len(fields) < 3 {
		return request{}, corerr.ErrInvalidData
	}

	if !utf8.Valid(fields[0]) {
		return request{}, corerr.ErrInvalidData
	}
	kind, err := streamkind.Parse(string(fields[0]))
	if err != nil {
		return request{}, err
	}

	sigAddr, err := parseAddr(fields[1])
	if err != nil {
		return request{}, err
	}
	mediaAddr, err := parseAddr(fields[2])
	if err != nil {
		return request{}, err
	}

	req := request{Kind: kind, SignalingAddr: sigAddr, MediaAddr: mediaAddr}

	if kind == streamkind.Video {
		if len(fields) < 5 {
			return request{}, corerr.ErrInvalidData
		}
		sps, pps := fields[3], fields[4]
		if !validCodecField(sps) || !validCodecField(pps) {
			return request{}, corerr.ErrInvalidData
		}
		req.H264 = sessionconfig.H264Config{
			SPS: append([]byte(nil), sps...),
			PPS: append([]byte(nil), pps...),
		}
	}

	return req, nil
}

// buildRequest renders a REQUEST block for sending.
func buildRequest(req request) []byte {
	var buf bytes.Buffer
	buf.WriteString(req.Kind.String())
	buf.WriteString(crlf)
	buf.WriteString(req.SignalingAddr.String())
	buf.WriteString(crlf)
	buf.WriteString(req.MediaAddr.String())
	buf.WriteString(crlf)
	if req.Kind == streamkind.Video {
		buf.Write(req.H264.SPS)
		buf.WriteString(crlf)
		buf.Write(req.H264.PPS)
		buf.WriteString(crlf)
	}
	buf.WriteString(crlf)
	return buf.Bytes()
}

// parseResponse parses a RESPONSE block per spec §4.4.
func parseResponse(data []byte) (response, error) {
	fields := splitBlock(data)
	if len(fields) < 2 {
		return response{}, corerr.ErrInvalidData
	}

	if !utf8.Valid(fields[0]) {
		return response{}, corerr.ErrInvalidData
	}
	kind, err := streamkind.Parse(string(fields[0]))
	if err != nil {
		return response{}, err
	}

	mediaAddr, err := parseAddr(fields[1])
	if err != nil {
		return response{}, err
	}

	resp := response{Kind: kind, MediaAddr: mediaAddr}

	idx := 2
	if kind == streamkind.Video {
		if len(fields) < 4 {
			return response{}, corerr.ErrInvalidData
		}
		sps, pps := fields[2], fields[3]
		if !validCodecField(sps) || !validCodecField(pps) {
			return response{}, corerr.ErrInvalidData
		}
		resp.H264 = sessionconfig.H264Config{
			SPS: append([]byte(nil), sps...),
			PPS: append([]byte(nil), pps...),
		}
		idx = 4
	}

	for _, f := range fields[idx:] {
		addr, err := parseAddr(f)
		if err != nil {
			return response{}, err
		}
		resp.Peers = append(resp.Peers, addr)
	}

	return resp, nil
}

// buildResponse renders a RESPONSE block for sending.
func buildResponse(resp response) []byte {
	var buf bytes.Buffer
	buf.WriteString(resp.Kind.String())
	buf.WriteString(crlf)
	buf.WriteString(resp.MediaAddr.String())
	buf.WriteString(crlf)
	if resp.Kind == streamkind.Video {
		buf.Write(resp.H264.SPS)
		buf.WriteString(crlf)
		buf.Write(resp.H264.PPS)
		buf.WriteString(crlf)
	}
	for _, addr := range resp.Peers {
		buf.WriteString(addr.String())
		buf.WriteString(crlf)
	}
	buf.WriteString(crlf)
	return buf.Bytes()
}
