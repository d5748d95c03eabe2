package sequencer

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// LoopMode defines the loop behavior.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopPlaylist
	LoopTrack
)

// String returns the loop mode name.
func (m LoopMode) String() string {
	switch m {
	case LoopNone:
		return "none"
	case LoopPlaylist:
		return "playlist"
	case LoopTrack:
		return "track"
	default:
		return "unknown"
	}
}

// Cycle returns the mode following m: none, playlist, track, none.
func (m LoopMode) Cycle() LoopMode {
	switch m {
	case LoopNone:
		return LoopPlaylist
	case LoopPlaylist:
		return LoopTrack
	default:
		return LoopNone
	}
}

// ParseLoopMode parses a loop mode name. The empty string is LoopNone.
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return LoopNone, nil
	case "playlist", "all":
		return LoopPlaylist, nil
	case "track", "one":
		return LoopTrack, nil
	default:
		return LoopNone, errors.Newf("unknown loop mode %q", s)
	}
}
