package signaling

import (
	"net/netip"
	"sync"

	"github.com/lanikai/mediacore/pkg/corelog"
	"github.com/lanikai/mediacore/pkg/corestats"
	"github.com/lanikai/mediacore/pkg/peer"
	"github.com/lanikai/mediacore/pkg/sessionconfig"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

// Engine holds the registries and config stores a signaling listener
// and its join client operate on. One Engine is shared by both stream
// kinds — the signaling-peer set is shared per spec §3, while the
// media-peer sets and session configs are kept one per kind.
type Engine struct {
	Logger *corelog.Logger

	// Signaling is the shared signaling-peer registry. Its Local()
	// address is this node's own signaling address, advertised to
	// peers and excluded from its own fan-out — see
	// SetLocalSignalingAddr for how that address gets retargeted once
	// the listener actually binds.
	Signaling *peer.Registry

	// Media holds one media-peer registry per stream kind.
	Media [streamkind.Count]*peer.Registry

	// Config holds one SessionConfig per stream kind.
	Config [streamkind.Count]*sessionconfig.SessionConfig

	// Stats holds one counter block per stream kind.
	Stats [streamkind.Count]*corestats.Stats

	mu sync.RWMutex
}

// NewEngine constructs an Engine over the given shared signaling
// registry and per-kind media registries/configs/stats.
func NewEngine(
	logger *corelog.Logger,
	signalingPeers *peer.Registry,
	media [streamkind.Count]*peer.Registry,
	config [streamkind.Count]*sessionconfig.SessionConfig,
	stats [streamkind.Count]*corestats.Stats,
) *Engine {
	return &Engine{
		Logger:    logger,
		Signaling: signalingPeers,
		Media:     media,
		Config:    config,
		Stats:     stats,
	}
}

// SetLocalSignalingAddr retargets the shared signaling registry's own
// address to addr, the listener's actual bound address. New() seeds
// the registry with the caller-supplied pre-bind address so the
// registry exists and can exclude self-inserts before any socket is
// open; Listen calls this once the real address (e.g. the concrete
// port chosen for an ephemeral ":0" bind) is known, the same way
// InitStream rebuilds the media registry from udpConn.LocalAddr()
// instead of trusting the pre-bind address.
func (e *Engine) SetLocalSignalingAddr(addr netip.AddrPort) {
	e.Signaling.SetLocal(addr)
}

// SetMediaRegistry installs the media-peer registry for kind. Callers
// must do this before Listen/Serve/Join are used for kind — mediacore
// calls it once, from InitStream, before any signaling traffic for the
// kind is possible.
func (e *Engine) SetMediaRegistry(kind streamkind.Kind, reg *peer.Registry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Media[kind] = reg
}

