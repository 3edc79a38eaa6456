// Package mediacore is the top-level orchestration handle: one
// MediaCore owns both stream kinds (video, audio) as explicit struct
// members, replacing the original prototype's global OnceLock/OnceCell
// singletons (DESIGN NOTES §9: "a rewrite should expose a single
// MediaCore handle ... making the singletons explicit members").
// Grounded on gtfodev-camsRelay's CameraRelay, which owns its pipeline
// state (context, cancel, counters, queue) as struct fields rather than
// package globals, and on cmd/relay/main.go's construct-then-Run
// lifecycle.
package mediacore

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/lanikai/mediacore/pkg/corelog"
	"github.com/lanikai/mediacore/pkg/corerr"
	"github.com/lanikai/mediacore/pkg/corestats"
	"github.com/lanikai/mediacore/pkg/frame"
	"github.com/lanikai/mediacore/pkg/media"
	"github.com/lanikai/mediacore/pkg/peer"
	"github.com/lanikai/mediacore/pkg/playout"
	"github.com/lanikai/mediacore/pkg/rtph264"
	"github.com/lanikai/mediacore/pkg/sessionconfig"
	"github.com/lanikai/mediacore/pkg/signaling"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

// StreamParams configures one stream kind's media socket and playout
// buffer at InitStream time.
type StreamParams struct {
	MediaAddr          string // UDP listen address, e.g. "0.0.0.0:0"
	JitterDelayTicks   uint64 // playout buffer delay, in media clock ticks
	ClockRateHz        uint64 // media clock rate, e.g. rtph264.ClockRateHz
	Sink               playout.DecoderSink
	ObservedPerSecond  float64 // observed-peer insert rate limit
	ObservedMaxInserts int     // 0 uses the package default
}

// streamState holds the goroutine-owned state for one initialized
// stream kind.
type streamState struct {
	claimed atomic.Bool

	conn     *net.UDPConn
	peers    *peer.Registry
	config   *sessionconfig.SessionConfig
	stats    *corestats.Stats
	intake   *frame.Intake
	buffer   *playout.Buffer
	observed *peer.ObservedInserter
	sess     *rtph264.SessionState
	sender   *media.Sender
	receiver *media.Receiver

	ready atomic.Bool
}

// MediaCore is the process-wide handle a host application constructs
// once and drives through InitStream/SetH264Config/PushFrame (spec §6).
type MediaCore struct {
	logger    *corelog.Logger
	signaling *signaling.Engine
	streams   [streamkind.Count]*streamState

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs an uninitialized MediaCore bound to localSignalingAddr
// (this node's own TCP signaling address, known ahead of Listen so the
// shared signaling registry can exclude it). The signaling registry,
// and config stores and stats for both stream kinds, exist after New; a
// kind's media-peer registry and media socket are created, and its
// goroutines started, only when InitStream is called for that kind.
func New(logger *corelog.Logger, localSignalingAddr netip.AddrPort) *MediaCore {
	if logger == nil {
		logger = corelog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc := &MediaCore{logger: logger, ctx: ctx, cancel: cancel}

	var mediaRegs [streamkind.Count]*peer.Registry
	var configs [streamkind.Count]*sessionconfig.SessionConfig
	var stats [streamkind.Count]*corestats.Stats

	for k := 0; k < streamkind.Count; k++ {
		mc.streams[k] = &streamState{config: sessionconfig.New(), stats: &corestats.Stats{}}
		configs[k] = mc.streams[k].config
		stats[k] = mc.streams[k].stats
	}

	mc.signaling = signaling.NewEngine(logger, peer.NewRegistry(localSignalingAddr), mediaRegs, configs, stats)
	mc.signaling.SetLocalSignalingAddr(localSignalingAddr)
	return mc
}

// ListenSignaling binds the shared signaling TCP listener and starts its
// accept loop. Must be called before Join.
func (mc *MediaCore) ListenSignaling(addr string) error {
	ln, err := mc.signaling.Listen(addr)
	if err != nil {
		return fmt.Errorf("%w: %w", corerr.ErrIOFailure, err)
	}
	go mc.signaling.Serve(mc.ctx, ln)
	return nil
}

// Join runs the signaling join algorithm for kind against bootstrapAddr
// (spec §4.4).
func (mc *MediaCore) Join(kind streamkind.Kind, bootstrapAddr string) error {
	return mc.signaling.Join(mc.ctx, kind, bootstrapAddr)
}

// InitStream binds kind's UDP media socket, wires its sender/receiver
// loops, and starts them. A second call for the same kind returns
// ErrAlreadyInitialized without rebinding (spec §6, grounded on
// signaling_server.rs's AUDIO_PEERS.set(...).is_err() guard).
func (mc *MediaCore) InitStream(kind streamkind.Kind, params StreamParams) error {
	st := mc.streams[kind]

	if !st.claimed.CompareAndSwap(false, true) {
		return corerr.ErrAlreadyInitialized
	}

	conn, err := net.ListenPacket("udp", params.MediaAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", corerr.ErrIOFailure, err)
	}
	udpConn := conn.(*net.UDPConn)

	localMediaAddr, err := addrPortFromAddr(udpConn.LocalAddr())
	if err != nil {
		udpConn.Close()
		return fmt.Errorf("%w: %w", corerr.ErrIOFailure, err)
	}

	peers := peer.NewRegistry(localMediaAddr)
	mc.signaling.SetMediaRegistry(kind, peers)

	observed := peer.NewObservedInserter(peers, params.ObservedPerSecond, params.ObservedMaxInserts)
	nowFn := mediaClockNowFn(params.ClockRateHz)
	buffer := playout.New(params.JitterDelayTicks, params.ClockRateHz, nowFn, params.Sink)
	intake := frame.NewIntake(st.stats)
	sess := rtph264.NewSessionState()

	st.conn = udpConn
	st.peers = peers
	st.observed = observed
	st.buffer = buffer
	st.intake = intake
	st.sess = sess
	st.sender = media.NewSender(mc.logger, st.stats, udpConn, peers, intake, sess)
	st.receiver = media.NewReceiver(mc.logger, st.stats, udpConn, observed, buffer, nowFn)

	go st.sender.Run()
	go st.receiver.Run()
	st.ready.Store(true)
	return nil
}

// SetH264Config records kind's local SPS/PPS exactly once (spec §4.3).
// It may be called before or after InitStream.
func (mc *MediaCore) SetH264Config(kind streamkind.Kind, sps, pps []byte) error {
	return mc.streams[kind].config.SetLocalH264(sps, pps)
}

// PushFrame enqueues an encoded access unit for kind onto its intake
// queue. data is not copied; release is invoked exactly once, either
// immediately (on rejection) or after the sender loop finishes with the
// frame (spec §4.6).
func (mc *MediaCore) PushFrame(kind streamkind.Kind, data []byte, ctx unsafe.Pointer, release frame.ReleaseFunc) error {
	st := mc.streams[kind]
	if !st.ready.Load() {
		f := frame.New(data, ctx, release)
		f.Release()
		return corerr.ErrNotReady
	}
	return st.intake.TryPush(frame.New(data, ctx, release))
}

// Stats returns a point-in-time snapshot of kind's counters.
func (mc *MediaCore) Stats(kind streamkind.Kind) corestats.Snapshot {
	return mc.streams[kind].stats.Snapshot()
}

// Close stops signaling/media goroutines and releases any frames still
// queued in an intake (spec §5: "pending frames in the intake queue are
// released during teardown").
func (mc *MediaCore) Close() {
	mc.cancel()
	for k := 0; k < streamkind.Count; k++ {
		st := mc.streams[k]
		if !st.ready.Load() {
			continue
		}
		st.intake.Close()
		st.buffer.Stop()
		st.conn.Close()
	}
}

// addrPortFromAddr converts a bound *net.UDPConn's LocalAddr into a
// netip.AddrPort, as required by the peer/signaling packages.
func addrPortFromAddr(addr net.Addr) (netip.AddrPort, error) {
	return netip.ParseAddrPort(addr.String())
}

// mediaClockNowFn returns a nowFn suitable for playout.Buffer and
// media.Receiver: wall-clock time since process start, expressed in
// ticks of clockRateHz, so a buffer's jitter delay (itself in ticks) is
// compared against the same unit it is configured in.
func mediaClockNowFn(clockRateHz uint64) func() uint64 {
	start := time.Now()
	return func() uint64 {
		elapsed := time.Since(start)
		return uint64(elapsed) * clockRateHz / uint64(time.Second)
	}
}
