package signaling

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/lanikai/mediacore/pkg/corerr"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

// readIdleTimeout is how long a signaling connection may sit without
// producing a complete request block before it is aborted with
// ErrTimeout (spec §5 Cancellation & timeouts).
const readIdleTimeout = 5 * time.Second

// maxRequestSize bounds a single signaling block, generously sized for
// an SPS/PPS pair plus address lines (spec doesn't bound this, but an
// unbounded read is its own availability bug).
const maxRequestSize = 1 << 20

// connState names the per-connection state machine stages spec §4.4
// defines: READING → PARSED → REPLIED → DONE, transitions only
// forward. It exists purely for logging/tracing; a socket that fails
// to parse is simply dropped rather than transitioned to an error
// state.
type connState string

const (
	stateReading connState = "reading"
	stateParsed  connState = "parsed"
	stateReplied connState = "replied"
	stateDone    connState = "done"
)

// Listen binds a TCP listener on addr and records it as the engine's
// local signaling address.
func (e *Engine) Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ap, err := netip.ParseAddrPort(ln.Addr().String())
	if err != nil {
		ln.Close()
		return nil, err
	}
	e.SetLocalSignalingAddr(ap)
	return ln, nil
}

// Serve runs the accept loop on ln until ctx is cancelled or Accept
// fails terminally. Each accepted connection gets its own handler
// goroutine, which reads and parses the request; a video request is then
// held until the video SessionConfig's Ready channel is closed, before
// any reply is built or any registry is touched. Video is the only kind
// carrying SPS/PPS, so audio requests are not gated.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				e.Logger.Warn("signaling accept failed", "error", err)
				return
			}
		}

		connID := uuid.New().String()[:8]
		go e.handleConn(ctx, conn, connID)
	}
}

// handleConn drives one accepted connection through READING → PARSED →
// REPLIED → DONE. A parse failure, a malformed request, or an idle
// timeout drops the connection without a reply (spec §4.4: "closes with
// RST-like behaviour (just dropped) and is logged").
func (e *Engine) handleConn(ctx context.Context, conn net.Conn, connID string) {
	defer conn.Close()

	log := e.Logger.With("conn", connID, "remote", conn.RemoteAddr().String())
	state := stateReading
	log.DebugSignaling("signaling connection accepted", "state", state)

	data, err := readBlock(conn)
	if err != nil {
		log.Warn("signaling read failed", "error", err)
		return
	}

	req, err := parseRequest(data)
	if err != nil {
		log.Warn("signaling request invalid", "error", err)
		return
	}
	state = stateParsed
	log.DebugSignaling("signaling request parsed", "state", state, "kind", req.Kind.String())

	cfg := e.Config[req.Kind]
	if req.Kind == streamkind.Video {
		select {
		case <-cfg.Ready():
		case <-ctx.Done():
			return
		}
	}

	resp, err := e.buildReply(req)
	if err != nil {
		log.Warn("signaling request rejected", "error", err)
		return
	}

	isNewSignaling := e.Signaling.Add(req.SignalingAddr)
	e.Media[req.Kind].Add(req.MediaAddr)
	if req.Kind == streamkind.Video && len(req.H264.SPS) > 0 {
		cfg.SetRemoteH264(req.SignalingAddr, req.H264)
	}

	if _, err := conn.Write(buildResponse(resp)); err != nil {
		log.Warn("signaling reply failed", "error", err)
		return
	}
	state = stateReplied
	log.DebugSignaling("signaling reply sent", "state", state, "new_peer", isNewSignaling)

	state = stateDone
	log.DebugSignaling("signaling connection done", "state", state)
}

// buildReply assembles the RESPONSE for an already-parsed, already-
// validated request.
func (e *Engine) buildReply(req request) (response, error) {
	resp := response{
		Kind:      req.Kind,
		MediaAddr: e.Media[req.Kind].Local(),
	}

	if req.Kind == streamkind.Video {
		cfg, err := e.Config[req.Kind].GetLocalH264()
		if err != nil {
			return response{}, err
		}
		resp.H264 = cfg
	}

	for _, addr := range e.Signaling.Snapshot() {
		if addr != req.SignalingAddr {
			resp.Peers = append(resp.Peers, addr)
		}
	}

	return resp, nil
}

// readBlock reads from r until a blank CRLF-terminated line is seen,
// returning everything read, including that terminating blank line. A
// read that stalls for readIdleTimeout returns ErrTimeout.
func readBlock(r net.Conn) ([]byte, error) {
	br := bufio.NewReaderSize(r, 4096)
	var buf bytes.Buffer

	for {
		if buf.Len() > maxRequestSize {
			return nil, corerr.ErrInvalidData
		}

		r.SetReadDeadline(time.Now().Add(readIdleTimeout))
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			buf.Write(line)
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, corerr.ErrTimeout
			}
			return nil, err
		}

		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			return buf.Bytes(), nil
		}
	}
}
