// Package corerr defines the sentinel error kinds shared by every
// mediacore component, so callers can use errors.Is instead of string
// matching.
package corerr

import "errors"

var (
	// ErrInvalidData covers malformed signaling requests, invalid UTF-8,
	// and unknown stream kinds.
	ErrInvalidData = errors.New("mediacore: invalid data")

	// ErrNotReady is returned when signaling is attempted before
	// SessionConfig.SetLocalH264 has completed.
	ErrNotReady = errors.New("mediacore: not ready")

	// ErrAlreadyInitialized is returned by a second InitStream call for
	// the same stream kind.
	ErrAlreadyInitialized = errors.New("mediacore: already initialized")

	// ErrChannelFull is returned (and counted) when the frame intake
	// queue rejects a push because it is at capacity.
	ErrChannelFull = errors.New("mediacore: channel full")

	// ErrChannelClosed is returned (and counted) when a push lands on a
	// stream that has been shut down.
	ErrChannelClosed = errors.New("mediacore: channel closed")

	// ErrReassemblyGap is counted when FU-A reassembly is abandoned due
	// to a missing fragment or non-contiguous sequence numbers.
	ErrReassemblyGap = errors.New("mediacore: reassembly gap")

	// ErrIOFailure wraps transient socket errors. It is never fatal to
	// a sender or signaling loop; see the receiver loop's exception in
	// package media.
	ErrIOFailure = errors.New("mediacore: io failure")

	// ErrTimeout is returned when a signaling read stalls past the idle
	// deadline.
	ErrTimeout = errors.New("mediacore: timeout")

	// ErrNotImplemented is not returned by any mediacore component; the
	// audio lane runs the same generic pipeline as video.
	ErrNotImplemented = errors.New("mediacore: not implemented")
)
