package transition

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/segue/internal/decoder"
)

// Session callbacks. They run on the loop.

// OnRecycled implements decoder.Callbacks.
func (c *Controller) OnRecycled(s *decoder.Session) {
	if c.closed {
		s.Destroy()
		return
	}
	var promote bool
	switch {
	case c.active.Holds(s):
		// The engine could no longer hand over to a next that has not
		// started yet.
		c.active.Take()
		n := c.next.Get()
		promote = n != nil && n.State() != decoder.StateStarted
	case c.leaked.Holds(s):
		c.leaked.Take()
	case c.next.Holds(s):
		c.next.Take()
		if a := c.active.Get(); a != nil && chainable(a) {
			a.SetNext(nil)
		}
	}
	c.pool.Put(s)
	if promote {
		c.skip()
	}
	c.pool.Prune()
}

// OnDestroyed implements decoder.Callbacks.
func (c *Controller) OnDestroyed(s *decoder.Session) {
	c.pool.Remove(s)
	if c.closed {
		return
	}
	switch {
	case c.active.Holds(s):
		c.active.Take()
		c.recover()
	case c.leaked.Holds(s):
		c.leaked.Take()
	case c.next.Holds(s):
		c.next.Take()
		if a := c.active.Get(); a != nil && chainable(a) {
			a.SetNext(nil)
		}
	}
	c.pool.Prune()
}

// OnInternalError implements decoder.Callbacks.
func (c *Controller) OnInternalError(s *decoder.Session, err error) {
	c.playbackError(s, err)
}

// OnTrackError implements decoder.Callbacks.
func (c *Controller) OnTrackError(s *decoder.Session, err error) {
	c.playbackError(s, err)
}

func (c *Controller) playbackError(s *decoder.Session, err error) {
	if c.closed {
		return
	}
	switch {
	case c.active.Holds(s):
		c.log.Error().Err(err).Stringer("session", s).Msg("active session failed")
		c.observer.OnPlaybackError(c.track, err)
	case c.next.Holds(s):
		c.log.Warn().Err(err).Stringer("session", s).Msg("next session failed")
	default:
		c.log.Warn().Err(err).Stringer("session", s).Msg("inactive session failed")
	}
}

// OnCompleted implements decoder.Callbacks. The session recycles or destroys
// itself right after.
func (c *Controller) OnCompleted(s *decoder.Session, cause error) {
	if c.closed || !c.active.Holds(s) {
		return
	}
	if cause != nil {
		c.active.Take()
		c.recover()
		return
	}
	if n := c.next.Get(); n != nil {
		switch n.State() {
		case decoder.StatePrepared:
			// The engine is handing over; wait for the next to report.
		case decoder.StateStarted:
			c.active.Take()
		default:
			c.active.Take()
			c.skip()
		}
		return
	}
	c.active.Take()
	c.setTimestamp(decoder.Timestamp{})
	if _, ok := c.predictor.Predict(false); ok {
		// A further track should have been chained.
		c.recover()
		return
	}
	c.log.Debug().Msg("playback completed")
	c.setUserPlaying(false)
	c.predictor.PlaybackCompleted()
	c.observer.OnTrackChanged(nil)
	c.pool.Prune()
}

// OnStartedAsNext implements decoder.Callbacks.
func (c *Controller) OnStartedAsNext(s *decoder.Session) {
	if c.closed {
		return
	}
	if !c.next.Holds(s) {
		panic(errors.AssertionFailedf("%s started as next but is not the next session", s))
	}
	c.next.Take()
	if old := c.active.Take(); old != nil {
		c.leaked.Set(old)
	}
	c.activate(s, c.nextTrack)
	s.UpdateParams(c.params)
	c.errorSkips = 0
	c.setSeekable(true)
	c.predictor.Predict(true)
	c.observer.OnTrackChanged(c.track)
	if c.next.Empty() && c.active.Holds(s) {
		c.prepareNext()
	}
	c.observer.OnDuration(s.Duration())
	c.pool.Prune()
}

// OnDecreasedPerformance implements decoder.Callbacks.
func (c *Controller) OnDecreasedPerformance(s *decoder.Session) {
	if c.fromActive(s, "decreased performance") {
		c.observer.OnDecreasedPerformance()
	}
}

// OnBufferProgress implements decoder.Callbacks.
func (c *Controller) OnBufferProgress(s *decoder.Session, progress float64) {
	if c.fromActive(s, "buffer progress") {
		c.observer.OnBufferProgress(progress)
	}
}

// OnBuffering implements decoder.Callbacks.
func (c *Controller) OnBuffering(s *decoder.Session, buffering bool) {
	if c.fromActive(s, "buffering") {
		c.observer.OnBufferingSlow(buffering)
	}
}

// OnMetadataUpdate implements decoder.Callbacks.
func (c *Controller) OnMetadataUpdate(s *decoder.Session) {
	c.log.Debug().Stringer("session", s).Msg("metadata update")
}

// OnUnseekable implements decoder.Callbacks.
func (c *Controller) OnUnseekable(s *decoder.Session) {
	if c.fromActive(s, "unseekable") {
		c.setSeekable(false)
	}
}

// OnTimestamp implements decoder.Callbacks.
func (c *Controller) OnTimestamp(s *decoder.Session, ts decoder.Timestamp) {
	if c.fromActive(s, "timestamp") {
		c.errorSkips = 0
		c.setTimestamp(ts)
	}
}

// OnLiveData implements decoder.Callbacks.
func (c *Controller) OnLiveData(s *decoder.Session, text string) {
	if c.fromActive(s, "live data") {
		c.observer.OnLiveData(text)
	}
}

// OnDuration implements decoder.Callbacks.
func (c *Controller) OnDuration(s *decoder.Session, ms int64) {
	if !c.closed && c.active.Holds(s) {
		c.observer.OnDuration(ms)
	}
}

// OnSeekCompleted implements decoder.Callbacks.
func (c *Controller) OnSeekCompleted(s *decoder.Session) {
	if c.closed || !c.active.Holds(s) || c.playing {
		return
	}
	// No timestamps arrive while paused.
	pos := s.Position()
	c.setTimestamp(decoder.Timestamp{Anchor: time.Now(), MediaMillis: pos, Rate: c.params.Speed})
	c.observer.OnPosition(pos)
}

// fromActive returns true if an informational callback should be handled.
func (c *Controller) fromActive(s *decoder.Session, what string) bool {
	if c.closed {
		return false
	}
	if !c.active.Holds(s) {
		c.log.Warn().Stringer("session", s).Str("event", what).Msg("dropping event from inactive session")
		return false
	}
	return true
}
