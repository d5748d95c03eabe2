// Package transition keeps one decoder session playing and the next one
// ready, so the engine can switch tracks without a gap.
//
// The Controller owns three slots. The active session is the one the user
// hears. The next session is prepared and chained after it. The leaked
// session is an outgoing active one that was replaced by its chained next
// before it reported its own completion.
package transition

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/decoder"
	"github.com/llehouerou/segue/internal/focus"
	"github.com/llehouerou/segue/internal/loop"
)

// ErrNotSeekable is returned by Seek when the active stream cannot seek.
var ErrNotSeekable = errors.New("stream is not seekable")

// MaxErrorSkips is how many tracks in a row may fail before the controller
// stops trying.
const MaxErrorSkips = 10

var (
	_ decoder.Callbacks = (*Controller)(nil)
	_ focus.Handler     = (*Controller)(nil)
)

// Options configures a Controller.
type Options struct {
	Factory decoder.Factory
	// Arbiter grants audio focus. Nil grants it unconditionally.
	Arbiter  focus.Arbiter
	Observer Observer
	// Retain is the number of idle sessions kept for reuse.
	Retain int
	Params decoder.Params
}

// Controller drives decoder sessions from a Predictor. Methods may be called
// from any goroutine; they run on the loop.
type Controller struct {
	log      zerolog.Logger
	loop     *loop.Loop
	pool     *decoder.Pool
	arbiter  focus.Arbiter
	observer Observer

	predictor Predictor

	active slot
	next   slot
	leaked slot
	// track is what the active session was initialized with. A session
	// forgets its source when it recycles itself.
	track     decoder.Playable
	nextTrack decoder.Playable

	params      decoder.Params
	playing     bool
	userPlaying bool
	ignoreFocus bool
	hasFocus    bool
	seekable    bool

	timestamp  decoder.Timestamp
	cancelTick func()
	errorSkips int
	closed     bool
}

// New creates a controller. Nothing plays until a predictor is set and Play
// is called.
func New(l *loop.Loop, opts Options, log zerolog.Logger) *Controller {
	c := &Controller{
		log:       log.With().Str("component", "controller").Logger(),
		loop:      l,
		arbiter:   opts.Arbiter,
		observer:  opts.Observer,
		predictor: nopPredictor{},
		params:    opts.Params,
	}
	if c.arbiter == nil {
		c.arbiter = grantAll{}
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	if c.params == (decoder.Params{}) {
		c.params = decoder.DefaultParams
	}
	c.active = slot{name: "active", log: &c.log}
	c.next = slot{name: "next", log: &c.log}
	c.leaked = slot{name: "leaked", log: &c.log}

	factory := opts.Factory
	c.pool = decoder.NewPool(opts.Retain, func() (*decoder.Session, error) {
		return decoder.NewSession(l, factory, c, log)
	}, log)
	return c
}

// SetPredictor replaces the predictor and restarts playback from its
// prediction. Nil predicts nothing.
func (c *Controller) SetPredictor(p Predictor) {
	c.do(func() {
		if p == nil {
			p = nopPredictor{}
		}
		c.predictor = p
		c.onPredictionChanged(true)
	})
}

// OnPredictionChanged implements sequencer.Listener.
func (c *Controller) OnPredictionChanged(currentImpacted bool) {
	c.do(func() {
		c.onPredictionChanged(currentImpacted)
	})
}

// Play starts playback if it is not already playing.
func (c *Controller) Play() {
	c.do(func() {
		if !c.playing {
			c.playOrPause()
		}
	})
}

// Pause pauses playback if it is playing.
func (c *Controller) Pause() {
	c.do(func() {
		if c.playing {
			c.playOrPause()
		}
	})
}

// Toggle plays or pauses.
func (c *Controller) Toggle() {
	c.do(c.playOrPause)
}

// Seek moves the active track to ms.
func (c *Controller) Seek(ms int64) error {
	var err error
	c.do(func() {
		if !c.seekable {
			err = ErrNotSeekable
			return
		}
		s := c.active.Get()
		if s == nil {
			c.log.Warn().Int64("target", ms).Msg("seek lost, nothing is active")
			return
		}
		switch st := s.State(); st {
		case decoder.StateStarted, decoder.StatePaused:
			s.Seek(ms)
		case decoder.StateInitialized, decoder.StatePreparing, decoder.StatePrepared, decoder.StateStopped:
			s.SeekOnStart(ms)
		default:
			c.log.Warn().Int64("target", ms).Stringer("state", st).Msg("seek lost, session is not playing")
		}
	})
	return err
}

// SetParams changes volume, speed and pitch.
func (c *Controller) SetParams(p decoder.Params) {
	c.do(func() {
		if p == c.params {
			return
		}
		c.params = p
		if s := c.active.Get(); s != nil {
			s.UpdateParams(p)
		}
		c.observer.OnParamsChanged(p)
	})
}

// Params returns the current volume, speed and pitch.
func (c *Controller) Params() decoder.Params {
	p, _ := loop.Call(c.loop, func() decoder.Params { return c.params })
	return p
}

// Playing returns true if audio is being produced.
func (c *Controller) Playing() bool {
	v, _ := loop.Call(c.loop, func() bool { return c.playing })
	return v
}

// UserPlaying returns true if the user wants audio.
func (c *Controller) UserPlaying() bool {
	v, _ := loop.Call(c.loop, func() bool { return c.userPlaying })
	return v
}

// Seekable returns true if Seek is allowed.
func (c *Controller) Seekable() bool {
	v, _ := loop.Call(c.loop, func() bool { return c.seekable })
	return v
}

// Timestamp returns the current position anchor. It is zero when nothing
// plays.
func (c *Controller) Timestamp() decoder.Timestamp {
	ts, _ := loop.Call(c.loop, func() decoder.Timestamp { return c.timestamp })
	return ts
}

// Position returns the position of the active track in milliseconds.
func (c *Controller) Position() int64 {
	pos, _ := loop.Call(c.loop, func() int64 {
		if s := c.active.Get(); s != nil {
			return s.Position()
		}
		return 0
	})
	return pos
}

// Duration returns the duration of the active track in milliseconds.
func (c *Controller) Duration() int64 {
	d, _ := loop.Call(c.loop, func() int64 {
		if s := c.active.Get(); s != nil {
			return s.Duration()
		}
		return 0
	})
	return d
}

// Track returns the track of the active session.
func (c *Controller) Track() decoder.Playable {
	t, _ := loop.Call(c.loop, func() decoder.Playable {
		if c.active.Empty() {
			return nil
		}
		return c.track
	})
	return t
}

// Close stops playback, gives up audio focus and destroys every session.
func (c *Controller) Close() {
	c.do(func() {
		if c.closed {
			return
		}
		c.stop()
		c.arbiter.Abandon(c)
		c.pool.DestroyAll()
		c.closed = true
	})
}

// OnFocusChange implements focus.Handler.
func (c *Controller) OnFocusChange(change focus.Change) {
	c.loop.Post(func() {
		if !c.closed {
			c.focusChanged(change)
		}
	})
}

func (c *Controller) do(fn func()) {
	if err := c.loop.Do(fn); err != nil {
		c.log.Warn().Err(err).Msg("controller call dropped")
	}
}

func (c *Controller) playOrPause() {
	if c.closed {
		return
	}
	if c.playing {
		c.setUserPlaying(false)
		c.realPause()
		return
	}
	if c.userPlaying {
		// A focus request is outstanding: play without waiting for it.
		c.setIgnoreFocus(true)
		return
	}
	c.errorSkips = 0
	c.setUserPlaying(true)
	if c.ignoreFocus || c.hasFocus {
		c.realPlay()
		return
	}
	res := c.arbiter.Request(c)
	c.log.Debug().Stringer("result", res).Msg("requested audio focus")
	if res == focus.Granted {
		c.focusChanged(focus.Gain)
	}
}

func (c *Controller) focusChanged(change focus.Change) {
	c.log.Debug().Stringer("change", change).Msg("audio focus changed")
	switch change {
	case focus.Gain:
		c.setHasFocus(true)
	case focus.Loss:
		c.setUserPlaying(false)
		c.setHasFocus(false)
		c.realPause()
	case focus.LossTransient:
		c.setHasFocus(false)
	case focus.LossTransientCanDuck:
		// Ducking is left to the output.
	}
}

func (c *Controller) setPlaying(v bool) {
	if v == c.playing {
		return
	}
	c.playing = v
	c.observer.OnPlayingChanged(v)
}

func (c *Controller) setUserPlaying(v bool) {
	changed := v != c.userPlaying
	c.userPlaying = v
	if !v {
		c.setPlaying(false)
		c.setIgnoreFocus(false)
	}
	if changed {
		c.observer.OnUserPlayingChanged(v)
	}
}

func (c *Controller) setIgnoreFocus(v bool) {
	c.ignoreFocus = v
	if c.playing && c.userPlaying && !v && !c.hasFocus {
		c.realPause()
	} else if v && c.userPlaying && !c.playing {
		c.realPlay()
	}
}

func (c *Controller) setHasFocus(v bool) {
	if v == c.hasFocus {
		return
	}
	c.hasFocus = v
	if v {
		c.setIgnoreFocus(false)
	}
	if c.ignoreFocus {
		return
	}
	if c.playing && c.userPlaying && !v {
		c.realPause()
	} else if c.userPlaying && !c.playing && v {
		c.realPlay()
	}
}

func (c *Controller) setSeekable(v bool) {
	if v == c.seekable {
		return
	}
	c.seekable = v
	c.observer.OnSeekableChanged(v)
}

func (c *Controller) setTimestamp(ts decoder.Timestamp) {
	if ts == c.timestamp {
		return
	}
	c.timestamp = ts
	if c.cancelTick != nil {
		c.cancelTick()
		c.cancelTick = nil
	}
	if ts.IsZero() {
		return
	}
	c.tick()
	c.observer.OnTimestamp(ts)
}

// tick publishes the position and schedules itself at the next whole second
// of media time.
func (c *Controller) tick() {
	s := c.active.Get()
	if c.timestamp.IsZero() || !c.playing || s == nil {
		return
	}
	pos := s.Position()
	rate := c.timestamp.Rate
	if rate <= 0 {
		rate = 1
	}
	left := float64(1000-pos%1000) / rate
	c.cancelTick = c.loop.PostDelayed(time.Duration(left*float64(time.Millisecond)), c.tick)
	if pos >= 0 {
		c.observer.OnPosition(pos)
	}
}

func (c *Controller) realPlay() {
	c.setPlaying(true)
	s := c.active.Get()
	if s == nil {
		c.skip()
		return
	}
	s.UpdateParams(c.params)
	c.startSession(s)
}

func (c *Controller) realPause() {
	c.setPlaying(false)
	s := c.active.Get()
	if s == nil {
		return
	}
	switch s.State() {
	case decoder.StateStarted:
		s.Pause()
	case decoder.StateEnd:
	default:
		s.CancelStart()
	}
}

func (c *Controller) startSession(s *decoder.Session) {
	switch st := s.State(); st {
	case decoder.StatePrepared, decoder.StatePaused, decoder.StatePreparing,
		decoder.StateInitialized, decoder.StateStopped:
		s.Start()
	default:
		c.log.Debug().Stringer("session", s).Stringer("state", st).Msg("not starting session")
	}
}

func (c *Controller) stop() {
	c.setUserPlaying(false)
	c.setTimestamp(decoder.Timestamp{})
	if s := c.active.Get(); s != nil {
		switch s.State() {
		case decoder.StateStarted, decoder.StatePaused, decoder.StatePrepared:
			s.Stop()
		default:
		}
	}
	c.release(c.active.Take())
	c.release(c.next.Take())
	c.release(c.leaked.Take())
	c.pool.Prune()
}

// release recycles a session the controller no longer needs and pools it.
// A destroyed session is dropped.
func (c *Controller) release(s *decoder.Session) {
	if s == nil {
		return
	}
	if s.State() == decoder.StateEnd {
		return
	}
	s.Recycle()
	c.pool.Put(s)
}

// chainable returns true if s is alive and SetNext can be called on it.
func chainable(s *decoder.Session) bool {
	switch s.State() {
	case decoder.StateIdle, decoder.StateBusy, decoder.StateError, decoder.StateEnd, decoder.StateCompleted:
		return false
	default:
		return true
	}
}

func (c *Controller) onPredictionChanged(currentImpacted bool) {
	if c.closed {
		return
	}
	c.log.Debug().Bool("current_impacted", currentImpacted).Msg("prediction changed")
	c.release(c.next.Take())
	if currentImpacted {
		c.errorSkips = 0
		c.release(c.active.Take())
		c.skip()
		return
	}
	c.prepareNext()
}

// prepareNext prefetches the predicted track and chains it after the active
// session.
func (c *Controller) prepareNext() {
	active := c.active.Get()
	if active == nil {
		c.log.Debug().Msg("no active session to chain after")
		return
	}
	if !chainable(active) {
		c.log.Debug().Stringer("state", active.State()).Msg("active session cannot be chained")
		return
	}
	if c.predictor.IsLooping() {
		active.SetNext(active)
		return
	}
	track, ok := c.predictor.Predict(false)
	if !ok {
		active.SetNext(nil)
		return
	}
	s, err := c.pool.Get()
	if err != nil {
		c.log.Error().Err(err).Msg("allocating next session failed")
		active.SetNext(nil)
		return
	}
	c.next.Set(s)
	c.nextTrack = track
	if err := s.Initialize(track); err != nil {
		c.log.Warn().Err(err).Str("track", track.Locator()).Msg("prefetching next track failed")
		active.SetNext(nil)
		return
	}
	if err := s.Preload(); err != nil {
		c.log.Warn().Err(err).Str("track", track.Locator()).Msg("prefetching next track failed")
		active.SetNext(nil)
		return
	}
	active.SetNext(s)
}

// skip makes the next predicted track the active one. The active slot must
// be empty.
func (c *Controller) skip() {
	if !c.active.Empty() {
		panic(errors.AssertionFailedf("skip with active session %s", c.active.Get()))
	}
	c.setTimestamp(decoder.Timestamp{})

	if s := c.next.Take(); s != nil {
		c.activate(s, c.nextTrack)
		c.predictor.Predict(true)
	} else if track, ok := c.predictor.Predict(false); ok {
		s, err := c.pool.Get()
		if err != nil {
			c.log.Error().Err(err).Msg("allocating session failed")
			c.observer.OnPlaybackError(track, err)
			c.setUserPlaying(false)
			return
		}
		c.activate(s, track)
		if err := s.Initialize(track); err != nil {
			c.log.Warn().Err(err).Str("track", track.Locator()).Msg("initializing track failed")
			c.predictor.Predict(true)
			c.setSeekable(true)
			c.pool.Prune()
			return
		}
		c.predictor.Predict(true)
	}

	s := c.active.Get()
	if s == nil {
		c.log.Debug().Msg("nothing left to play")
		c.setUserPlaying(false)
		c.predictor.PlaybackCompleted()
		c.observer.OnTrackChanged(nil)
		c.setSeekable(true)
		c.pool.Prune()
		return
	}
	c.observer.OnTrackChanged(c.track)
	s.UpdateParams(c.params)
	if c.playing {
		c.startSession(s)
	} else if s.State().NeedsPrepare() {
		if err := s.Preload(); err != nil {
			c.log.Warn().Err(err).Msg("preloading track failed")
		}
	}
	if c.next.Empty() && c.active.Holds(s) {
		c.prepareNext()
	}
	c.setSeekable(true)
	c.pool.Prune()
}

func (c *Controller) activate(s *decoder.Session, track decoder.Playable) {
	c.active.Set(s)
	c.track = track
}

// recover replaces a failed active session with the next track, unless too
// many tracks failed in a row.
func (c *Controller) recover() {
	c.errorSkips++
	if c.errorSkips > MaxErrorSkips {
		c.log.Error().Int("failures", c.errorSkips-1).Msg("too many tracks failed in a row, stopping")
		c.errorSkips = 0
		c.setUserPlaying(false)
		c.predictor.PlaybackCompleted()
		c.observer.OnTrackChanged(nil)
		c.pool.Prune()
		return
	}
	c.skip()
}

type grantAll struct{}

func (grantAll) Request(focus.Handler) focus.Result { return focus.Granted }
func (grantAll) Abandon(focus.Handler) {}
