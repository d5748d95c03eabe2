// Package app contains the terminal front-end of the player.
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/segue/internal/playback"
)

// Message category interfaces for type-based routing in Update().
// External messages (from other packages) cannot implement these interfaces,
// so they are handled separately in the Update() switch.

// PlaybackMessage is implemented by messages related to audio playback.
type PlaybackMessage interface {
	tea.Msg
	playbackMessage()
}

// TickMsg is sent periodically to update the UI (e.g., progress bar).
type TickMsg time.Time

func (TickMsg) playbackMessage() {}

// ServiceStateChangedMsg is sent when the playing state changes.
type ServiceStateChangedMsg playback.StateChange

func (ServiceStateChangedMsg) playbackMessage() {}

// ServiceTrackChangedMsg is sent when a different track becomes audible.
type ServiceTrackChangedMsg playback.TrackChange

func (ServiceTrackChangedMsg) playbackMessage() {}

// ServicePositionMsg is sent every second of media time and after a seek.
type ServicePositionMsg playback.PositionChange

func (ServicePositionMsg) playbackMessage() {}

// ServiceQueueChangedMsg is sent when the queue or its cursor changes.
type ServiceQueueChangedMsg playback.QueueChange

func (ServiceQueueChangedMsg) playbackMessage() {}

// ServiceModeChangedMsg is sent when loop mode or shuffle changes.
type ServiceModeChangedMsg playback.ModeChange

func (ServiceModeChangedMsg) playbackMessage() {}

// ServiceStreamChangedMsg is sent when duration, seekability or buffering
// of the current stream changes.
type ServiceStreamChangedMsg playback.StreamChange

func (ServiceStreamChangedMsg) playbackMessage() {}

// ServiceParamsChangedMsg is sent when volume, speed or pitch changes.
type ServiceParamsChangedMsg playback.ParamsChange

func (ServiceParamsChangedMsg) playbackMessage() {}

// ServiceLiveInfoMsg carries live stream metadata.
type ServiceLiveInfoMsg playback.LiveInfo

func (ServiceLiveInfoMsg) playbackMessage() {}

// ServiceErrorMsg is sent when playback of a track fails.
type ServiceErrorMsg playback.ErrorEvent

func (ServiceErrorMsg) playbackMessage() {}

// ServiceClosedMsg is sent when the playback service shuts down.
type ServiceClosedMsg struct{}

func (ServiceClosedMsg) playbackMessage() {}

// StderrMsg carries a line written to stderr by a decoder library.
type StderrMsg struct {
	Line string
}

// NotifiedMsg reports the id of a desktop notification that was sent.
type NotifiedMsg struct {
	ID  uint32
	Err error
}
