// Package peer holds the peer-address sets mediacore maintains per
// stream: the media-peer set (remote UDP sockets) and, via the same
// type, the signaling-peer set (remote TCP listeners). The two are
// distinct registries because a peer's signaling port and media port
// differ; see the original prototype's PeerManager (media) versus
// PeerSpecifications.peer_signaling_address (signaling).
package peer

import (
	"net/netip"
	"sync"
)

// Registry is a thread-safe set of peer addresses, excluding a fixed
// local address from ever being inserted.
type Registry struct {
	mu    sync.RWMutex
	local netip.AddrPort
	addrs map[netip.AddrPort]struct{}
	order []netip.AddrPort
}

// NewRegistry returns an empty Registry that will refuse to insert
// local.
func NewRegistry(local netip.AddrPort) *Registry {
	return &Registry{
		local: local,
		addrs: make(map[netip.AddrPort]struct{}),
	}
}

// Add inserts addr and reports whether it was newly added. Inserting
// the registry's own local address, or an address already present, is
// a no-op that returns false.
func (r *Registry) Add(addr netip.AddrPort) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if addr == r.local {
		return false
	}

	if _, ok := r.addrs[addr]; ok {
		return false
	}
	r.addrs[addr] = struct{}{}
	r.order = append(r.order, addr)
	return true
}

// Snapshot returns the current peer set as a slice. Iteration order is
// stable within one snapshot (insertion order) but is not guaranteed to
// match a later snapshot once peers are added concurrently.
func (r *Registry) Snapshot() []netip.AddrPort {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]netip.AddrPort, len(r.order))
	copy(out, r.order)
	return out
}

// Size returns the number of peers currently registered.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Contains reports whether addr is already registered.
func (r *Registry) Contains(addr netip.AddrPort) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.addrs[addr]
	return ok
}

// Local returns the registry's own excluded local address.
func (r *Registry) Local() netip.AddrPort {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.local
}

// SetLocal retargets the registry's excluded local address, for the
// case where the registry was constructed before its owner's listener
// was actually bound (e.g. an ephemeral port resolves to a concrete
// port only once net.Listen/net.ListenPacket returns). A registered
// peer equal to the new local address is not removed, and the old
// local address becomes insertable with Add.
func (r *Registry) SetLocal(addr netip.AddrPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local = addr
}
