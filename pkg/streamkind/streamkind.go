// Package streamkind defines the two media lanes mediacore carries.
// Audio exists as a symmetric placeholder (registries, config, and
// orchestration all key by Kind) but has no packetization logic of its
// own; the media package applies rtph264's H.264 packetization to every
// kind.
package streamkind

import "github.com/lanikai/mediacore/pkg/corerr"

// Kind identifies a media lane.
type Kind int

const (
	Audio Kind = iota
	Video
)

// String renders the wire-protocol token for k ("audio" or "video").
func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unknown"
	}
}

// Parse parses the wire-protocol token used in signaling line 1.
func Parse(s string) (Kind, error) {
	switch s {
	case "video":
		return Video, nil
	case "audio":
		return Audio, nil
	default:
		return 0, corerr.ErrInvalidData
	}
}

// Count is the number of stream kinds, used to size fixed [Count]T
// arrays keyed by Kind.
const Count = 2
