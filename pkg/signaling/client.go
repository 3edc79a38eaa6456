package signaling

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/lanikai/mediacore/pkg/corerr"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

// bootstrapDialAttempts and bootstrapDialDelay bound how hard the join
// algorithm retries its one synchronous dependency, the bootstrap dial,
// before surfacing failure to the host. Grounded on
// helixml-helix/api/pkg/gptscript/runner.go's retry.Do(...,
// retry.Attempts(n), retry.Delay(d)) use around a single dial.
const (
	bootstrapDialAttempts = 3
	bootstrapDialDelay    = 200 * time.Millisecond
)

// Join runs the join algorithm (spec §4.4): dial bootstrapAddr, send a
// REQUEST carrying this node's own signaling/media addresses and H.264
// config, then depth-1 fan out the peer list the bootstrap returns.
// Every recipient of a REQUEST also adds this node to its own sets, so
// the mesh converges without Join needing to recurse further.
func (e *Engine) Join(ctx context.Context, kind streamkind.Kind, bootstrapAddr string) error {
	var resp response
	err := retry.Do(
		func() error {
			r, err := e.exchange(ctx, bootstrapAddr, kind)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Attempts(bootstrapDialAttempts),
		retry.Delay(bootstrapDialDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			e.Logger.Warn("retrying signaling join", "bootstrap", bootstrapAddr, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("join %s: %w", bootstrapAddr, err)
	}

	bootstrapAP, parseErr := netip.ParseAddrPort(bootstrapAddr)
	if parseErr == nil {
		e.Signaling.Add(bootstrapAP)
		if kind == streamkind.Video && len(resp.H264.SPS) > 0 {
			e.Config[kind].SetRemoteH264(bootstrapAP, resp.H264)
		}
	}
	e.Media[kind].Add(resp.MediaAddr)

	for _, peerAddr := range resp.Peers {
		if peerAddr == e.Signaling.Local() {
			continue
		}
		peerResp, err := e.exchange(ctx, peerAddr.String(), kind)
		if err != nil {
			e.Logger.Warn("signaling fanout failed", "peer", peerAddr, "error", err)
			continue
		}
		e.Signaling.Add(peerAddr)
		e.Media[kind].Add(peerResp.MediaAddr)
		if kind == streamkind.Video && len(peerResp.H264.SPS) > 0 {
			e.Config[kind].SetRemoteH264(peerAddr, peerResp.H264)
		}
	}

	return nil
}

// exchange dials addr once, sends a REQUEST for kind, and returns the
// parsed RESPONSE. A duplicate (already-known) peer is still replied
// to by the remote end per spec §4.4, so this call is safe to repeat
// against an address already in the registries.
func (e *Engine) exchange(ctx context.Context, addr string, kind streamkind.Kind) (response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return response{}, fmt.Errorf("%w: %w", corerr.ErrIOFailure, err)
	}
	defer conn.Close()

	req := request{
		Kind:          kind,
		SignalingAddr: e.Signaling.Local(),
		MediaAddr:     e.Media[kind].Local(),
	}
	if kind == streamkind.Video {
		cfg, err := e.Config[kind].GetLocalH264()
		if err != nil {
			return response{}, err
		}
		req.H264 = cfg
	}

	if _, err := conn.Write(buildRequest(req)); err != nil {
		return response{}, fmt.Errorf("%w: %w", corerr.ErrIOFailure, err)
	}

	data, err := readBlock(conn)
	if err != nil {
		return response{}, fmt.Errorf("%w: %w", corerr.ErrIOFailure, err)
	}

	return parseResponse(data)
}
