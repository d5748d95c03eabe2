package playback

import (
	"time"

	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
)

// StateChange is emitted when the playing state or the user intent changes.
//
// UserPlaying can be true while Current is not StatePlaying: the user asked
// for audio but the player is waiting for audio focus or the track is still
// being prepared.
type StateChange struct {
	Previous    State
	Current     State
	UserPlaying bool
}

// TrackChange is emitted when a different track becomes the one heard.
//
// Emitted by:
//   - the gapless handover from one track to the next
//   - a restart after a jump, a queue replacement or the removal of the
//     current track
//   - the end of playback, with a nil Current
//
// Previous is nil for the first track.
type TrackChange struct {
	Previous *playlist.Track
	Current  *playlist.Track
	Index    int
}

// QueueChange is emitted when the queue contents or its cursor change.
type QueueChange struct {
	Tracks []playlist.Track
	Index  int
}

// ModeChange is emitted when the loop mode or shuffle changes.
type ModeChange struct {
	LoopMode sequencer.LoopMode
	Shuffle  bool
}

// PositionChange is emitted every second of media time while playing and
// after a seek.
type PositionChange struct {
	Position time.Duration
}

// StreamChange is emitted when a property of the current stream changes.
type StreamChange struct {
	Duration             time.Duration
	Seekable             bool
	BufferProgress       float64
	BufferingSlow        bool
	DecreasedPerformance bool
}

// ParamsChange is emitted when volume, speed or pitch changes.
type ParamsChange struct {
	Volume float64
	Speed  float64
	Pitch  float64
}

// LiveInfo carries text metadata attached to a live stream.
type LiveInfo struct {
	Text string
}

// ErrorEvent is emitted when an error occurs during playback. Playback
// continues with the next track.
type ErrorEvent struct {
	Operation string // e.g., "play", "seek"
	Path      string // track path if applicable
	Err       error
}
