package transition

import (
	"github.com/llehouerou/segue/internal/decoder"
)

// Predictor tells the controller what to play.
type Predictor interface {
	// Predict returns the track to play next. consume commits to it.
	Predict(consume bool) (decoder.Playable, bool)
	// IsLooping returns true if the current track repeats forever.
	IsLooping() bool
	// PlaybackCompleted is called when nothing is left to play.
	PlaybackCompleted()
}

type nopPredictor struct{}

func (nopPredictor) Predict(bool) (decoder.Playable, bool) { return nil, false }
func (nopPredictor) IsLooping() bool { return false }
func (nopPredictor) PlaybackCompleted() {}

// Observer receives the merged event stream of the controller. Every method
// is called on the controller loop and must not block.
type Observer interface {
	OnPlayingChanged(playing bool)
	OnUserPlayingChanged(playing bool)
	// OnTrackChanged is called when a new track became the active one, and
	// with nil when playback completed.
	OnTrackChanged(track decoder.Playable)
	OnBufferProgress(progress float64)
	OnBufferingSlow(slow bool)
	OnSeekableChanged(seekable bool)
	OnDuration(ms int64)
	OnTimestamp(ts decoder.Timestamp)
	OnPosition(ms int64)
	OnDecreasedPerformance()
	// OnPlaybackError reports a non-fatal error on the active track.
	OnPlaybackError(track decoder.Playable, err error)
	OnLiveData(text string)
	OnParamsChanged(p decoder.Params)
}

// NopObserver ignores every event. Embed it to observe only some.
type NopObserver struct{}

func (NopObserver) OnPlayingChanged(bool) {}
func (NopObserver) OnUserPlayingChanged(bool) {}
func (NopObserver) OnTrackChanged(decoder.Playable) {}
func (NopObserver) OnBufferProgress(float64) {}
func (NopObserver) OnBufferingSlow(bool) {}
func (NopObserver) OnSeekableChanged(bool) {}
func (NopObserver) OnDuration(int64) {}
func (NopObserver) OnTimestamp(decoder.Timestamp) {}
func (NopObserver) OnPosition(int64) {}
func (NopObserver) OnDecreasedPerformance() {}
func (NopObserver) OnPlaybackError(decoder.Playable, error) {}
func (NopObserver) OnLiveData(string) {}
func (NopObserver) OnParamsChanged(decoder.Params) {}
