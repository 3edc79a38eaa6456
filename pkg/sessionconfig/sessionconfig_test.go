package sessionconfig

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediacore/pkg/corerr"
)

func TestSetLocalH264SucceedsOnce(t *testing.T) {
	sc := New()

	require.NoError(t, sc.SetLocalH264([]byte{0x01}, []byte{0x02}))

	cfg, err := sc.GetLocalH264()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, cfg.SPS)
	require.Equal(t, []byte{0x02}, cfg.PPS)

	err = sc.SetLocalH264([]byte{0x03}, []byte{0x04})
	require.True(t, errors.Is(err, corerr.ErrAlreadyInitialized))

	// The second call must not have clobbered the first.
	cfg, err = sc.GetLocalH264()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, cfg.SPS)
}

func TestSetLocalH264RejectsEmptyFields(t *testing.T) {
	sc := New()
	err := sc.SetLocalH264(nil, []byte{0x01})
	require.True(t, errors.Is(err, corerr.ErrInvalidData))
}

func TestGetLocalH264BeforeSetIsNotReady(t *testing.T) {
	sc := New()
	_, err := sc.GetLocalH264()
	require.True(t, errors.Is(err, corerr.ErrNotReady))
}

func TestReadyChannelClosesOnSet(t *testing.T) {
	sc := New()

	select {
	case <-sc.Ready():
		t.Fatal("ready channel closed before SetLocalH264")
	default:
	}

	require.NoError(t, sc.SetLocalH264([]byte{0x01}, []byte{0x02}))

	select {
	case <-sc.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready channel did not close after SetLocalH264")
	}
}

func TestSetLocalH264CopiesInput(t *testing.T) {
	sc := New()
	sps := []byte{0x01, 0x02}
	require.NoError(t, sc.SetLocalH264(sps, []byte{0x03}))

	sps[0] = 0xFF

	cfg, err := sc.GetLocalH264()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), cfg.SPS[0])
}

func TestRemoteH264RoundTrip(t *testing.T) {
	sc := New()
	addr := netip.MustParseAddrPort("127.0.0.1:6000")

	_, ok := sc.GetRemoteH264(addr)
	require.False(t, ok)

	require.NoError(t, sc.SetRemoteH264(addr, H264Config{SPS: []byte{0x01}, PPS: []byte{0x02}}))

	cfg, ok := sc.GetRemoteH264(addr)
	require.True(t, ok)
	require.Equal(t, []byte{0x01}, cfg.SPS)
}

func TestSetRemoteH264RejectsEmptyConfig(t *testing.T) {
	sc := New()
	addr := netip.MustParseAddrPort("127.0.0.1:6000")
	err := sc.SetRemoteH264(addr, H264Config{})
	require.True(t, errors.Is(err, corerr.ErrInvalidData))
}
