package peer

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustAddrPort(t *testing.T, s string) netip.AddrPort {
	t.Helper()
	ap, err := netip.ParseAddrPort(s)
	require.NoError(t, err)
	return ap
}

func TestRegistryAddRejectsLocalAddress(t *testing.T) {
	local := mustAddrPort(t, "127.0.0.1:5000")
	r := NewRegistry(local)

	require.False(t, r.Add(local))
	require.Equal(t, 0, r.Size())
}

func TestRegistryAddIsIdempotent(t *testing.T) {
	r := NewRegistry(mustAddrPort(t, "127.0.0.1:5000"))
	peerAddr := mustAddrPort(t, "127.0.0.1:6000")

	require.True(t, r.Add(peerAddr))
	require.False(t, r.Add(peerAddr))
	require.Equal(t, 1, r.Size())
}

func TestRegistrySnapshotPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry(mustAddrPort(t, "127.0.0.1:5000"))
	addrs := []netip.AddrPort{
		mustAddrPort(t, "127.0.0.1:6001"),
		mustAddrPort(t, "127.0.0.1:6002"),
		mustAddrPort(t, "127.0.0.1:6003"),
	}
	for _, a := range addrs {
		r.Add(a)
	}

	require.Equal(t, addrs, r.Snapshot())
}

func TestRegistryContains(t *testing.T) {
	r := NewRegistry(mustAddrPort(t, "127.0.0.1:5000"))
	peerAddr := mustAddrPort(t, "127.0.0.1:6000")

	require.False(t, r.Contains(peerAddr))
	r.Add(peerAddr)
	require.True(t, r.Contains(peerAddr))
}

func TestRegistrySetLocalRetargetsExclusion(t *testing.T) {
	preBind := mustAddrPort(t, "127.0.0.1:0")
	bound := mustAddrPort(t, "127.0.0.1:6000")
	r := NewRegistry(preBind)

	require.Equal(t, preBind, r.Local())

	r.SetLocal(bound)
	require.Equal(t, bound, r.Local())

	require.False(t, r.Add(bound))
	require.True(t, r.Add(preBind))
}
