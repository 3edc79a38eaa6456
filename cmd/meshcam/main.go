// Command meshcam is a demo host application for the mediacore library.
// It has no camera or encoder; it stands in for one the way the
// original prototype's src/bin/main.rs stood in for a real media
// source by reading lines from stdin and fanning them out over UDP to
// whatever peers the SIP/signaling handshake discovered. meshcam keeps
// that same stdin-driven structure, but pushes each line through
// mediacore's actual H.264/RTP pipeline as a one-NAL synthetic access
// unit instead of sending raw text.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/lanikai/mediacore/pkg/corelog"
	"github.com/lanikai/mediacore/pkg/mediacore"
	"github.com/lanikai/mediacore/pkg/playout"
	"github.com/lanikai/mediacore/pkg/rtph264"
	"github.com/lanikai/mediacore/pkg/streamkind"
)

func main() {
	fs := flag.NewFlagSet("meshcam", flag.ExitOnError)
	logFlags := corelog.RegisterFlags(fs)

	signalingAddr := fs.String("signaling-addr", "127.0.0.1:5060", "this node's TCP signaling listen address")
	mediaAddr := fs.String("media-addr", "127.0.0.1:0", "this node's UDP media listen address")
	bootstrap := fs.String("bootstrap", "", "signaling address of an existing mesh member to join (empty: start a new mesh)")
	kindFlag := fs.String("kind", "video", "stream kind to carry: video or audio")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Peer-mesh H.264/RTP conferencing core demo host\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logConfig, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logger: %v\n", err)
		os.Exit(1)
	}
	log, err := corelog.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	corelog.SetDefault(log)

	kind, err := streamkind.Parse(*kindFlag)
	if err != nil {
		log.Error("invalid -kind", "value", *kindFlag)
		os.Exit(1)
	}

	localSignaling, err := netip.ParseAddrPort(*signalingAddr)
	if err != nil {
		log.Error("invalid -signaling-addr", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	core := mediacore.New(log, localSignaling)
	defer core.Close()

	if kind == streamkind.Video {
		// Synthetic SPS/PPS: meshcam has no encoder, so it advertises
		// placeholder codec parameters sufficient to exercise the
		// signaling handshake and RTP pipeline end to end.
		if err := core.SetH264Config(kind, []byte{0x67, 0x42, 0x00, 0x1f}, []byte{0x68, 0xce, 0x3c, 0x80}); err != nil {
			log.Error("failed to set local H.264 config", "error", err)
			os.Exit(1)
		}
	}

	if err := core.InitStream(kind, mediacore.StreamParams{
		MediaAddr:          *mediaAddr,
		JitterDelayTicks:   2 * rtph264.DefaultFrameIncrement,
		ClockRateHz:        rtph264.ClockRateHz,
		ObservedPerSecond:  5,
		ObservedMaxInserts: 0,
		Sink: func(n playout.Node) {
			fmt.Printf("playout: ts=%d deadline=%d bytes=%d\n", n.RTPTimestamp, n.PlayoutDeadline, len(n.Payload))
		},
	}); err != nil {
		log.Error("failed to init stream", "error", err)
		os.Exit(1)
	}

	if err := core.ListenSignaling(*signalingAddr); err != nil {
		log.Error("failed to listen for signaling", "error", err)
		os.Exit(1)
	}
	log.Info("signaling listening", "addr", *signalingAddr)

	if *bootstrap != "" {
		if err := core.Join(kind, *bootstrap); err != nil {
			log.Error("failed to join mesh", "bootstrap", *bootstrap, "error", err)
			os.Exit(1)
		}
		log.Info("joined mesh", "bootstrap", *bootstrap)
	} else {
		log.Info("starting a new mesh, no bootstrap given")
	}

	log.Info("ready, type lines on stdin to push synthetic frames; press Ctrl+C to stop")

	go readStdinFrames(ctx, log, core, kind)
	go logStatsPeriodically(ctx, log, core, kind)

	<-ctx.Done()
	log.Info("shutting down")
	time.Sleep(50 * time.Millisecond) // let in-flight sends drain
}

// readStdinFrames turns each stdin line into a single-NAL AVCC access
// unit and pushes it onto the core's intake, the stand-in for a real
// H.264 encoder's output.
func readStdinFrames(ctx context.Context, log *corelog.Logger, core *mediacore.MediaCore, kind streamkind.Kind) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		frameData := wrapAsAVCC(line)
		owned := make([]byte, len(frameData))
		copy(owned, frameData)

		if err := core.PushFrame(kind, owned, nil, func(unsafe.Pointer) {}); err != nil {
			log.Warn("push frame failed", "error", err)
		}
	}
}

// logStatsPeriodically logs a human-readable throughput summary every
// few seconds, so a long-running mesh member's stdout stays readable
// instead of drowning in raw byte counts.
func logStatsPeriodically(ctx context.Context, log *corelog.Logger, core *mediacore.MediaCore, kind streamkind.Kind) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := core.Stats(kind)
			log.Info("stream stats",
				"frames_accepted", snap.FramesAccepted,
				"bytes_sent", humanize.Bytes(snap.BytesSent),
				"packets_sent", snap.PacketsSent,
				"packets_received", snap.PacketsReceived,
				"reassembly_gaps", snap.ReassemblyGaps,
				"observed_peer_inserts", snap.ObservedPeerInserts,
			)
		}
	}
}

// wrapAsAVCC frames payload as a single NAL unit with a 4-byte
// big-endian length prefix, the minimal AVCC access unit ExtractNALUnits
// expects.
func wrapAsAVCC(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	return out
}
