package playback

import (
	"time"

	"github.com/llehouerou/segue/internal/decoder"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
)

// Controller and playlist notifications. They run on the loop and turn into
// subscription events.

// predictor feeds playlist tracks to the controller.
type predictor struct {
	*sequencer.Sequencer
}

func (p predictor) Predict(consume bool) (decoder.Playable, bool) {
	t, ok := p.Sequencer.Predict(consume)
	if !ok {
		return nil, false
	}
	return t, true
}

// updateState applies fn and publishes a StateChange if the state or the
// user intent moved.
func (s *serviceImpl) updateState(fn func()) {
	prev, prevUser := s.state(), s.userPlaying
	fn()
	cur := s.state()
	if cur == prev && s.userPlaying == prevUser {
		return
	}
	e := StateChange{Previous: prev, Current: cur, UserPlaying: s.userPlaying}
	s.broadcast(func(sub *Subscription) { sub.sendState(e) })
}

func (s *serviceImpl) OnPlayingChanged(playing bool) {
	s.updateState(func() {
		if !playing {
			// Freeze the extrapolated position.
			s.position = s.positionMillis()
		}
		s.playing = playing
	})
}

func (s *serviceImpl) OnUserPlayingChanged(playing bool) {
	s.updateState(func() {
		s.userPlaying = playing
	})
}

func (s *serviceImpl) OnTrackChanged(p decoder.Playable) {
	var cur *playlist.Track
	if t, ok := p.(playlist.Track); ok {
		cur = &t
	}
	prev := s.track
	if prev == nil && cur == nil {
		return
	}
	s.updateState(func() {
		s.track = cur
	})
	s.position = 0
	s.timestamp = decoder.Timestamp{}
	s.duration = 0
	if cur != nil {
		s.duration = cur.Duration.Milliseconds()
	}
	s.bufferProgress = 0
	s.bufferingSlow = false
	s.decreasedPerformance = false
	s.liveInfo = ""

	index := -1
	if cur != nil {
		index = s.queue().Position()
	}
	s.log.Debug().Str("track", trackPath(cur)).Int("index", index).Msg("track changed")
	e := TrackChange{Previous: prev, Current: cur, Index: index}
	s.broadcast(func(sub *Subscription) { sub.sendTrack(e) })
	s.publishStream()
}

func (s *serviceImpl) OnBufferProgress(progress float64) {
	if progress == s.bufferProgress {
		return
	}
	s.bufferProgress = progress
	s.publishStream()
}

func (s *serviceImpl) OnBufferingSlow(slow bool) {
	if slow == s.bufferingSlow {
		return
	}
	s.bufferingSlow = slow
	s.publishStream()
}

func (s *serviceImpl) OnSeekableChanged(seekable bool) {
	if seekable == s.seekable {
		return
	}
	s.seekable = seekable
	s.publishStream()
}

func (s *serviceImpl) OnDuration(ms int64) {
	if ms <= 0 || ms == s.duration {
		return
	}
	s.duration = ms
	s.publishStream()
}

func (s *serviceImpl) OnTimestamp(ts decoder.Timestamp) {
	s.timestamp = ts
	s.position = ts.MediaMillis
}

func (s *serviceImpl) OnPosition(ms int64) {
	s.position = ms
	e := PositionChange{Position: time.Duration(ms) * time.Millisecond}
	s.broadcast(func(sub *Subscription) { sub.sendPosition(e) })
}

func (s *serviceImpl) OnDecreasedPerformance() {
	if s.decreasedPerformance {
		return
	}
	s.decreasedPerformance = true
	s.publishStream()
}

func (s *serviceImpl) OnPlaybackError(track decoder.Playable, err error) {
	e := ErrorEvent{Operation: "play", Err: err}
	if track != nil {
		e.Path = track.Locator()
	}
	s.broadcast(func(sub *Subscription) { sub.sendError(e) })
}

func (s *serviceImpl) OnLiveData(text string) {
	s.liveInfo = text
	e := LiveInfo{Text: text}
	s.broadcast(func(sub *Subscription) { sub.sendLive(e) })
}

func (s *serviceImpl) OnParamsChanged(p decoder.Params) {
	s.params = p
	e := ParamsChange{Volume: p.Volume, Speed: p.Speed, Pitch: p.Pitch}
	s.broadcast(func(sub *Subscription) { sub.sendParams(e) })
}

func (s *serviceImpl) publishStream() {
	e := StreamChange{
		Duration:             time.Duration(s.duration) * time.Millisecond,
		Seekable:             s.seekable,
		BufferProgress:       s.bufferProgress,
		BufferingSlow:        s.bufferingSlow,
		DecreasedPerformance: s.decreasedPerformance,
	}
	s.broadcast(func(sub *Subscription) { sub.sendStream(e) })
}

func (s *serviceImpl) OnReplaced(_, _ *playlist.Playlist) { s.publishQueue() }
func (s *serviceImpl) OnPositionChanged(_, _ int)         { s.publishQueue() }
func (s *serviceImpl) OnItemAdded(_ int)                  { s.publishQueue() }
func (s *serviceImpl) OnItemRemoved(_ int, _ bool)        { s.publishQueue() }

func (s *serviceImpl) publishQueue() {
	q := s.queue()
	if q == nil {
		return
	}
	e := QueueChange{Tracks: q.Tracks(), Index: q.Position()}
	s.broadcast(func(sub *Subscription) { sub.sendQueue(e) })
}

func trackPath(t *playlist.Track) string {
	if t == nil {
		return ""
	}
	return t.Path
}
