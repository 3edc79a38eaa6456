package signaling

import (
	"bufio"
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediacore/pkg/corelog"
	"github.com/lanikai/mediacore/pkg/corestats"
	"github.com/lanikai/mediacore/pkg/peer"
	"github.com/lanikai/mediacore/pkg/sessionconfig"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	unused := netip.MustParseAddrPort("127.0.0.1:1")

	var media [streamkind.Count]*peer.Registry
	var config [streamkind.Count]*sessionconfig.SessionConfig
	var stats [streamkind.Count]*corestats.Stats
	for k := 0; k < streamkind.Count; k++ {
		media[k] = peer.NewRegistry(unused)
		config[k] = sessionconfig.New()
		stats[k] = &corestats.Stats{}
	}
	return NewEngine(corelog.Default(), peer.NewRegistry(unused), media, config, stats)
}

func TestServeRepliesToAudioRequestImmediately(t *testing.T) {
	e := newTestEngine(t)

	ln, err := e.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	req := request{
		Kind:          streamkind.Audio,
		SignalingAddr: netip.MustParseAddrPort("127.0.0.1:9001"),
		MediaAddr:     netip.MustParseAddrPort("127.0.0.1:9002"),
	}
	_, err = conn.Write(buildRequest(req))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := readResponseBlock(conn)
	require.NoError(t, err)

	resp, err := parseResponse(data)
	require.NoError(t, err)
	require.Equal(t, streamkind.Audio, resp.Kind)
	require.Equal(t, e.Media[streamkind.Audio].Local(), resp.MediaAddr)

	require.True(t, e.Signaling.Contains(req.SignalingAddr))
	require.True(t, e.Media[streamkind.Audio].Contains(req.MediaAddr))
}

func TestServeGatesVideoRequestOnLocalH264Readiness(t *testing.T) {
	e := newTestEngine(t)

	ln, err := e.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	req := request{
		Kind:          streamkind.Video,
		SignalingAddr: netip.MustParseAddrPort("127.0.0.1:9003"),
		MediaAddr:     netip.MustParseAddrPort("127.0.0.1:9004"),
		H264:          sessionconfig.H264Config{SPS: []byte{0x67}, PPS: []byte{0x68}},
	}
	_, err = conn.Write(buildRequest(req))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, err = readResponseBlock(conn)
	require.Error(t, err, "no response expected before local H264 config is set")

	require.NoError(t, e.Config[streamkind.Video].SetLocalH264([]byte{0x67, 0x00}, []byte{0x68, 0x00}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := readResponseBlock(conn)
	require.NoError(t, err)

	resp, err := parseResponse(data)
	require.NoError(t, err)
	require.Equal(t, streamkind.Video, resp.Kind)
	require.Equal(t, []byte{0x67, 0x00}, resp.H264.SPS)
}

func TestServeDropsMalformedRequestWithoutReply(t *testing.T) {
	e := newTestEngine(t)

	ln, err := e.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-a-kind\r\n127.0.0.1:1\r\n127.0.0.1:2\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err, "connection should be dropped, not replied to")
}

// readResponseBlock reads a full CRLF-terminated RESPONSE block,
// including its trailing blank line, the same shape readBlock produces
// server-side.
func readResponseBlock(conn net.Conn) ([]byte, error) {
	br := bufio.NewReader(conn)
	var out []byte
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			out = append(out, line...)
		}
		if err != nil {
			return nil, err
		}
		if len(line) == len("\r\n") && line[0] == '\r' {
			return out, nil
		}
	}
}
