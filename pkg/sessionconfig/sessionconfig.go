// Package sessionconfig holds the local H.264 decoder configuration
// (SPS/PPS) a node advertises to peers, plus the remote configs peers
// advertise back, following the shape of the original prototype's
// PeerSpecifications (self_h264_args) split from per-peer remote
// storage.
package sessionconfig

import (
	"net/netip"
	"sync"

	"github.com/lanikai/mediacore/pkg/corerr"
)

// H264Config is an opaque, non-empty SPS/PPS pair.
type H264Config struct {
	SPS []byte
	PPS []byte
}

func (c H264Config) valid() bool {
	return len(c.SPS) > 0 && len(c.PPS) > 0
}

// SessionConfig stores the local H.264 config exactly once, and caches
// remote peers' configs as learned from signaling responses. It also
// exposes a readiness gate: Ready() is closed the moment SetLocalH264
// succeeds, so a signaling listener can block its accept loop on it
// instead of busy-looping (see the original's "just twaddle until we
// get our own specs" comment, replaced here with a channel wait).
type SessionConfig struct {
	mu      sync.RWMutex
	local   H264Config
	set     bool
	ready   chan struct{}
	readyOnce sync.Once
	remote  map[netip.AddrPort]H264Config
}

// New returns an unset SessionConfig.
func New() *SessionConfig {
	return &SessionConfig{
		ready:  make(chan struct{}),
		remote: make(map[netip.AddrPort]H264Config),
	}
}

// SetLocalH264 sets the local SPS/PPS exactly once. A second call
// returns ErrAlreadyInitialized and leaves the stored config untouched.
// sps and pps are copied; the caller's buffers may be reused afterward.
func (s *SessionConfig) SetLocalH264(sps, pps []byte) error {
	cfg := H264Config{SPS: append([]byte(nil), sps...), PPS: append([]byte(nil), pps...)}
	if !cfg.valid() {
		return corerr.ErrInvalidData
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		return corerr.ErrAlreadyInitialized
	}
	s.local = cfg
	s.set = true
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

// GetLocalH264 returns the local SPS/PPS, or ErrNotReady before the
// first successful SetLocalH264 call.
func (s *SessionConfig) GetLocalH264() (H264Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return H264Config{}, corerr.ErrNotReady
	}
	return s.local, nil
}

// Ready returns a channel that is closed once SetLocalH264 has
// succeeded. Signaling listeners select on it before accepting
// connections into a half-initialized registry.
func (s *SessionConfig) Ready() <-chan struct{} {
	return s.ready
}

// SetRemoteH264 records the H.264 config a peer advertised in its
// signaling response or request.
func (s *SessionConfig) SetRemoteH264(addr netip.AddrPort, cfg H264Config) error {
	if !cfg.valid() {
		return corerr.ErrInvalidData
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote[addr] = cfg
	return nil
}

// GetRemoteH264 returns the H.264 config previously recorded for addr,
// if any.
func (s *SessionConfig) GetRemoteH264(addr netip.AddrPort) (H264Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.remote[addr]
	return cfg, ok
}
