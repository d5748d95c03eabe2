package playback

import (
	"time"

	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
)

// State represents the playback state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is active (playing or paused).
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// Snapshot is a copy of the observable player state.
type Snapshot struct {
	State       State
	UserPlaying bool

	// Track is the track being heard, nil when stopped.
	Track *playlist.Track
	Queue []playlist.Track
	Index int

	Position             time.Duration
	Duration             time.Duration
	Seekable             bool
	BufferProgress       float64
	BufferingSlow        bool
	DecreasedPerformance bool
	LiveInfo             string

	Volume float64
	Speed  float64
	Pitch  float64

	LoopMode sequencer.LoopMode
	Shuffle  bool
}

func (s Snapshot) stream() StreamChange {
	return StreamChange{
		Duration:             s.Duration,
		Seekable:             s.Seekable,
		BufferProgress:       s.BufferProgress,
		BufferingSlow:        s.BufferingSlow,
		DecreasedPerformance: s.DecreasedPerformance,
	}
}
