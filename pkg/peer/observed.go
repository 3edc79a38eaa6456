package peer

import (
	"net/netip"

	"golang.org/x/time/rate"
)

// maxObservedInserts bounds how large the underlying Registry may grow
// while the observed-peer heuristic is admitting addresses, so a burst
// of spoofed UDP traffic cannot grow the media-peer set without limit.
// The bound is on the registry's total size, not a separate count of
// observed-only inserts, so signaling-sourced peers already in the
// registry eat into the same budget.
const maxObservedInserts = 256

// ObservedInserter rate-limits the receiver's "unknown source address"
// heuristic (spec §4.5 / §9): a peer that missed signaling can still be
// recovered from its first inbound datagram, but only at a bounded
// rate and up to a bounded total, the way gtfodev-camsRelay's
// CommandQueue paces Nest API calls with a single rate.Limiter per
// queue.
type ObservedInserter struct {
	reg     *Registry
	limiter *rate.Limiter
	max     int
}

// NewObservedInserter wraps reg with a limiter admitting at most
// perSecond new observed peers per second, refusing to admit once reg's
// total size reaches max (0 uses the package default).
func NewObservedInserter(reg *Registry, perSecond float64, max int) *ObservedInserter {
	if max <= 0 {
		max = maxObservedInserts
	}
	return &ObservedInserter{
		reg:     reg,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		max:     max,
	}
}

// Observe admits addr into the underlying registry if it is new, the
// rate limiter has budget, and the registry has not grown to o.max. It
// returns true iff addr was inserted.
func (o *ObservedInserter) Observe(addr netip.AddrPort) bool {
	if o.reg.Contains(addr) || addr == o.reg.Local() {
		return false
	}
	if o.reg.Size() >= o.max {
		return false
	}
	if !o.limiter.Allow() {
		return false
	}
	return o.reg.Add(addr)
}
