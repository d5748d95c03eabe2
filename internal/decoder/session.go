package decoder

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/loop"
)

// Callbacks receives structured session events. Every callback is posted to
// the session loop and runs after the call that caused it has returned.
type Callbacks interface {
	// OnRecycled is called once the session is back in IDLE after it ended
	// playback on its own (end of stream or error).
	OnRecycled(s *Session)
	// OnDestroyed is called once the session released its engine after a
	// fatal error.
	OnDestroyed(s *Session)
	// OnInternalError reports an engine or parameter failure.
	OnInternalError(s *Session, err error)
	// OnTrackError reports a failure bound to the current track.
	OnTrackError(s *Session, err error)
	// OnCompleted is called when playback stopped. cause is nil at the end
	// of the stream.
	OnCompleted(s *Session, cause error)
	OnDecreasedPerformance(s *Session)
	// OnBufferProgress reports played plus buffered, in [0, 1].
	OnBufferProgress(s *Session, progress float64)
	OnBuffering(s *Session, buffering bool)
	// OnStartedAsNext is called when the engine switched to this session
	// from the one it was chained after.
	OnStartedAsNext(s *Session)
	OnMetadataUpdate(s *Session)
	OnUnseekable(s *Session)
	OnTimestamp(s *Session, ts Timestamp)
	OnLiveData(s *Session, text string)
	OnDuration(s *Session, ms int64)
	OnSeekCompleted(s *Session)
}

// continuation runs once when the session reaches PREPARED.
type continuation struct {
	owner *Session
	run   func()
}

// Session wraps one engine instance and its state machine.
//
// Every method marshals onto the loop; called from the loop it runs in place.
// Calling a method from a state it does not accept is a programming error
// and panics with an assertion failure.
type Session struct {
	id   string
	loop *loop.Loop
	cb   Callbacks
	log  zerolog.Logger

	engine Engine
	gen    atomic.Uint64
	epoch  uint64

	state          State
	source         Playable
	pending        *continuation
	deferredNext   *Session
	liveData       map[uint64]func()
	liveSeq        uint64
	lastPosition   atomic.Int64
	seeking        int64
	seekingDesired int64
	deferredSeek   int64
	params         Params
}

// NewSession allocates an engine through factory and wraps it.
func NewSession(l *loop.Loop, factory Factory, cb Callbacks, log zerolog.Logger) (*Session, error) {
	s := &Session{
		id:             uuid.NewString()[:8],
		loop:           l,
		cb:             cb,
		liveData:       make(map[uint64]func()),
		seeking:        -1,
		seekingDesired: -1,
		deferredSeek:   -1,
		params:         DefaultParams,
	}
	s.log = log.With().Str("component", "session").Str("session", s.id).Logger()

	var ferr error
	err := l.Do(func() {
		s.log.Debug().Msg("allocating engine")
		e, err := factory()
		if err != nil {
			ferr = err
			return
		}
		s.engine = e
		e.SetListener(&listener{s: s})
		// Resetting after the listener is set reports more errors.
		e.Reset()
	})
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		return nil, errors.Wrap(ferr, "create engine")
	}
	return s, nil
}

func (s *Session) String() string {
	return fmt.Sprintf("Session[%s]", s.id)
}

// ID returns the short session id used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	st, err := loop.Call(s.loop, func() State { return s.state })
	if err != nil {
		return StateEnd
	}
	return st
}

// Source returns the track the session was initialized with.
func (s *Session) Source() Playable {
	p, _ := loop.Call(s.loop, func() Playable { return s.source })
	return p
}

// Position returns the playback position in milliseconds. When the engine
// cannot be queried the last known position is returned.
func (s *Session) Position() int64 {
	pos, err := loop.Call(s.loop, func() int64 {
		if s.state.Queryable() {
			s.lastPosition.Store(s.engine.Position())
		}
		return s.lastPosition.Load()
	})
	if err != nil {
		return s.lastPosition.Load()
	}
	return pos
}

// Duration returns the media duration in milliseconds, or 0 when unknown.
func (s *Session) Duration() int64 {
	d, _ := loop.Call(s.loop, func() int64 {
		if s.state.Queryable() || s.state == StateCompleted {
			return s.engine.Duration()
		}
		return 0
	})
	return d
}

// Initialize binds the session to a track. IDLE → INITIALIZED.
// A non-nil error means the session failed and is recycling itself.
func (s *Session) Initialize(p Playable) error {
	var err error
	s.run(func() {
		s.assertState(StateIdle)
		s.setState(StateBusy)
		s.source = p
		if e := s.engine.SetDataSource(p.Locator()); e != nil {
			err = s.fail(AsEngineError(e, ErrIO))
			return
		}
		s.setState(StateInitialized)
	})
	return err
}

// Preload starts asynchronous preparation. INITIALIZED, STOPPED → PREPARING.
// A non-nil error means the session failed and is recycling itself.
func (s *Session) Preload() error {
	var err error
	s.run(func() {
		err = s.preload()
	})
	return err
}

func (s *Session) preload() error {
	s.assertState(StateInitialized, StateStopped)
	s.setState(StateBusy)
	if err := s.engine.PrepareAsync(); err != nil {
		return s.fail(AsEngineError(err, ErrIO))
	}
	s.setState(StatePreparing)
	return nil
}

// Start starts playback with the current params. From INITIALIZED,
// PREPARING or STOPPED the start is deferred until the session is prepared.
func (s *Session) Start() {
	s.run(s.start)
}

func (s *Session) start() {
	s.assertState(StatePrepared, StatePaused, StatePreparing, StateInitialized, StateStopped)
	if s.state != StatePrepared && s.state != StatePaused {
		if s.pending != nil && s.pending.owner == s {
			return
		}
		s.setPending(&continuation{owner: s, run: func() {
			s.assertState(StatePrepared)
			s.start()
		}})
		if s.state != StatePreparing {
			_ = s.preload()
		}
		return
	}
	s.setState(StateBusy)
	// Params go in the same call so the engine never starts at a stale rate.
	if err := s.engine.Start(s.params); err != nil {
		s.paramsFailed(err)
		return
	}
	s.setState(StateStarted)
	s.issueDeferredSeek()
}

// CancelStart drops a start deferred until PREPARED.
func (s *Session) CancelStart() {
	s.run(func() {
		if s.pending != nil && s.pending.owner == s {
			s.log.Debug().Msg("cancelling deferred start")
			s.pending = nil
		}
	})
}

// Pause pauses playback. STARTED → PAUSED.
func (s *Session) Pause() {
	s.run(func() {
		s.assertState(StateStarted)
		s.setState(StateBusy)
		if err := s.engine.Pause(); err != nil {
			_ = s.fail(AsEngineError(err, ErrUnknown))
			return
		}
		s.setState(StatePaused)
	})
}

// Stop stops playback. STARTED, PAUSED, PREPARED → STOPPED.
func (s *Session) Stop() {
	s.run(func() {
		s.assertState(StateStarted, StatePaused, StatePrepared)
		s.setState(StateBusy)
		if err := s.engine.Stop(); err != nil {
			_ = s.fail(AsEngineError(err, ErrUnknown))
			return
		}
		s.setState(StateStopped)
	})
}

// Seek moves playback to ms. While a seek is in flight only the latest
// target is kept and issued once the current one completes.
func (s *Session) Seek(ms int64) {
	s.run(func() {
		s.assertState(StateStarted, StatePaused)
		s.seekingDesired = ms
		if s.seeking == -1 {
			s.issueSeek()
		}
	})
}

// SeekOnStart records ms as the position to seek to once the session is
// STARTED. A later call replaces the target.
func (s *Session) SeekOnStart(ms int64) {
	s.run(func() {
		s.assertState(StateInitialized, StatePreparing, StatePrepared, StateStopped)
		s.log.Debug().Int64("target", ms).Stringer("state", s.state).Msg("seek deferred until started")
		s.deferredSeek = ms
	})
}

func (s *Session) issueDeferredSeek() {
	if s.deferredSeek < 0 {
		return
	}
	s.seekingDesired = s.deferredSeek
	s.deferredSeek = -1
	if s.seeking == -1 {
		s.issueSeek()
	}
}

func (s *Session) issueSeek() {
	s.seeking = s.seekingDesired
	s.log.Debug().Int64("target", s.seeking).Stringer("state", s.state).Msg("seeking")
	if err := s.engine.SeekTo(s.seeking); err != nil {
		s.seeking = -1
		_ = s.fail(AsEngineError(err, ErrIO))
	}
}

// UpdateParams stores p and applies it to the engine when that cannot
// implicitly start or pause it. Otherwise p is applied with the next Start.
func (s *Session) UpdateParams(p Params) {
	s.run(func() {
		s.params = p
		if (s.state == StateStarted && p.Speed > 0) || (s.state == StatePaused && p.Speed == 0) {
			s.assertNotState(StateError)
			if err := s.engine.SetParams(p); err != nil {
				s.paramsFailed(err)
			}
		}
	})
}

// SetNext chains next after this session so the engine switches to it
// without a gap. Chaining the session to itself loops it. A next session
// still preparing is chained once it is prepared.
func (s *Session) SetNext(next *Session) {
	s.run(func() {
		s.assertNotState(StateBusy, StateError, StateEnd, StateCompleted)
		s.dropDeferredNext()

		if next == s {
			s.engine.SetLooping(true)
			s.chain(nil)
			return
		}
		s.engine.SetLooping(false)

		if next != nil && next.state == StatePreparing {
			s.deferredNext = next
			next.setPending(&continuation{owner: s, run: func() {
				if s.deferredNext != next {
					return
				}
				s.deferredNext = nil
				switch s.state {
				case StateIdle, StateError, StateEnd, StateCompleted:
					return
				default:
				}
				if next.state != StatePrepared {
					s.log.Warn().Stringer("next", next).Stringer("state", next.state).
						Msg("tried to chain next session in invalid state")
					return
				}
				s.chain(next)
			}})
			return
		}
		if next != nil {
			next.assertState(StatePrepared)
		}
		s.chain(next)
	})
}

func (s *Session) chain(next *Session) {
	var e Engine
	if next != nil {
		e = next.engine
	}
	if err := s.engine.SetNext(e); err != nil {
		s.log.Error().Err(err).Msg("chaining next engine failed")
	}
}

// Recycle returns the session to IDLE from any state but BUSY and END.
// Pending continuations and scheduled live metadata are dropped, and so are
// callbacks posted before the call that have not run yet.
func (s *Session) Recycle() {
	s.run(func() {
		s.epoch++
		s.recycle()
	})
}

func (s *Session) recycle() {
	s.assertNotState(StateBusy, StateEnd)
	if s.state == StateIdle {
		return
	}
	s.setState(StateBusy)
	s.cleanup()
	s.engine.Reset()
	s.gen.Add(1)
	s.source = nil
	s.lastPosition.Store(0)
	s.setState(StateIdle)
}

// Destroy releases the engine. The session cannot be used afterwards.
func (s *Session) Destroy() {
	s.run(func() {
		s.epoch++
		s.destroy()
	})
}

func (s *Session) destroy() {
	s.assertNotState(StateBusy, StateEnd)
	s.setState(StateBusy)
	s.cleanup()
	s.engine.Release()
	s.gen.Add(1)
	s.setState(StateEnd)
}

func (s *Session) cleanup() {
	for id, cancel := range s.liveData {
		cancel()
		delete(s.liveData, id)
	}
	s.pending = nil
	s.dropDeferredNext()
	s.seeking = -1
	s.seekingDesired = -1
	s.deferredSeek = -1
}

func (s *Session) dropDeferredNext() {
	n := s.deferredNext
	if n == nil {
		return
	}
	if n.pending != nil && n.pending.owner == s {
		n.pending = nil
	}
	s.deferredNext = nil
}

func (s *Session) setPending(c *continuation) {
	if s.pending != nil && c != nil {
		panic(errors.AssertionFailedf("%s: overwriting pending prepared continuation", s))
	}
	s.pending = c
}

func (s *Session) recycleSelf(cause error) {
	s.notify(func(cb Callbacks) { cb.OnCompleted(s, cause) })
	s.recycle()
	s.notify(func(cb Callbacks) { cb.OnRecycled(s) })
}

func (s *Session) destroySelf(cause error) {
	s.notify(func(cb Callbacks) { cb.OnCompleted(s, cause) })
	s.destroy()
	s.notify(func(cb Callbacks) { cb.OnDestroyed(s) })
}

// fail moves the session to ERROR and reacts to ee by its severity.
func (s *Session) fail(ee *EngineError) error {
	s.setState(StateError)
	s.escalate(ee)
	return ee
}

func (s *Session) escalate(ee *EngineError) {
	switch Classify(ee.Code) {
	case SeverityTrack:
		s.notify(func(cb Callbacks) { cb.OnTrackError(s, ee) })
		s.recycleSelf(ee)
	case SeverityTimeout:
		s.notify(func(cb Callbacks) { cb.OnInternalError(s, ee) })
		s.recycleSelf(ee)
	case SeverityBug:
		panic(errors.AssertionFailedf("%s: engine reported an invalid operation: %v", s, ee))
	default:
		s.notify(func(cb Callbacks) { cb.OnInternalError(s, ee) })
		s.destroySelf(ee)
	}
}

// paramsFailed handles a rejected Start or SetParams. Unsupported params
// are an internal error and the session recycles itself.
func (s *Session) paramsFailed(err error) {
	ee := AsEngineError(err, ErrUnsupported)
	s.log.Error().Err(ee).Interface("params", s.params).Msg("applying playback params failed")
	s.setState(StateError)
	if ee.Code == ErrUnsupported {
		s.notify(func(cb Callbacks) { cb.OnInternalError(s, ee) })
		s.recycleSelf(ee)
		return
	}
	s.escalate(ee)
}

// notify posts a callback. It is dropped if the owner recycled or destroyed
// the session in between.
func (s *Session) notify(fn func(cb Callbacks)) {
	epoch := s.epoch
	s.loop.Post(func() {
		if s.epoch != epoch {
			s.log.Debug().Msg("dropping callback for a recycled session")
			return
		}
		fn(s.cb)
	})
}

func (s *Session) run(fn func()) {
	if err := s.loop.Do(fn); err != nil {
		s.log.Warn().Err(err).Msg("session call dropped")
	}
}

func (s *Session) setState(st State) {
	s.log.Debug().Msgf("state is now %s, was %s", st, s.state)
	s.state = st
}

func (s *Session) assertState(good ...State) {
	if !slices.Contains(good, s.state) {
		panic(errors.AssertionFailedf("%s: state %s is not in allowed states %v", s, s.state, good))
	}
}

func (s *Session) assertNotState(bad ...State) {
	if slices.Contains(bad, s.state) {
		panic(errors.AssertionFailedf("%s: state %s is in disallowed states %v", s, s.state, bad))
	}
}

// Engine callbacks, run on the loop.

func (s *Session) handlePrepared() {
	s.assertState(StatePreparing)
	s.setState(StatePrepared)
	duration := s.engine.Duration()
	if c := s.pending; c != nil {
		s.pending = nil
		c.run()
	}
	s.notify(func(cb Callbacks) { cb.OnDuration(s, duration) })
}

func (s *Session) handleSeekComplete() {
	target := s.seeking
	s.seeking = -1
	s.assertState(StateStarted, StatePaused)
	if target != s.seekingDesired {
		s.issueSeek()
		return
	}
	s.seekingDesired = -1
	s.notify(func(cb Callbacks) { cb.OnSeekCompleted(s) })
}

// handleCompletion is only reached when the engine is not looping.
func (s *Session) handleCompletion() {
	s.assertNotState(StateError, StateEnd, StateIdle, StateCompleted)
	s.setState(StateCompleted)
	s.recycleSelf(nil)
}

func (s *Session) handleBufferingUpdate(percent int) {
	if s.state != StateStarted && s.state != StatePaused {
		s.log.Debug().Int("percent", percent).Stringer("state", s.state).Msg("dropping buffering update")
		return
	}
	progress := float64(percent) / 100
	s.notify(func(cb Callbacks) { cb.OnBufferProgress(s, progress) })
}

func (s *Session) handleInfo(what Info, extra int) {
	switch what {
	case InfoBadInterleaving:
		s.notify(func(cb Callbacks) { cb.OnDecreasedPerformance(s) })
	case InfoBufferingStart:
		s.notify(func(cb Callbacks) { cb.OnBuffering(s, true) })
	case InfoBufferingEnd:
		s.notify(func(cb Callbacks) { cb.OnBuffering(s, false) })
	case InfoStartedAsNext:
		if s.state != StatePrepared {
			// The owner started it explicitly after the previous one ended.
			s.log.Warn().Stringer("state", s.state).Msg("dropping late started-as-next")
			return
		}
		s.setState(StateStarted)
		s.notify(func(cb Callbacks) { cb.OnStartedAsNext(s) })
		s.issueDeferredSeek()
	case InfoMetadataUpdate:
		s.notify(func(cb Callbacks) { cb.OnMetadataUpdate(s) })
	case InfoNotSeekable:
		s.notify(func(cb Callbacks) { cb.OnUnseekable(s) })
	case InfoAudioNotPlaying:
		s.log.Warn().Int("extra", extra).Msg("engine reports audio not playing")
		ee := &EngineError{Code: ErrUnknown, Extra: extra}
		s.notify(func(cb Callbacks) { cb.OnInternalError(s, ee) })
	case InfoUnknown:
		s.log.Debug().Int("extra", extra).Msg("dropping implementation-detail info")
	default:
		s.log.Warn().Stringer("what", what).Int("extra", extra).Msg("dropping unknown info")
	}
}

func (s *Session) handleError(code ErrorCode, extra int) {
	s.log.Error().Stringer("state", s.state).Stringer("code", code).Int("extra", extra).Msg("engine error")
	if s.state == StateIdle || s.state == StateEnd {
		return
	}
	_ = s.fail(&EngineError{Code: code, Extra: extra})
}

func (s *Session) handleTimeDiscontinuity(ts Timestamp) {
	// Races make this reachable in any state.
	if s.state != StateStarted && s.state != StatePaused {
		return
	}
	s.notify(func(cb Callbacks) { cb.OnTimestamp(s, ts) })
}

func (s *Session) handleTimedMetadata(atMillis int64, data []byte) {
	if s.state != StateStarted && s.state != StatePaused {
		s.log.Debug().Stringer("state", s.state).Msg("dropping timed metadata")
		return
	}
	text := string(data)
	left := atMillis - s.engine.Position()
	if left <= 0 {
		s.notify(func(cb Callbacks) { cb.OnLiveData(s, text) })
		return
	}

	s.liveSeq++
	id := s.liveSeq
	s.liveData[id] = s.loop.PostDelayed(time.Duration(left)*time.Millisecond, func() {
		delete(s.liveData, id)
		switch s.state {
		case StateStarted, StatePaused, StateStopped:
			s.cb.OnLiveData(s, text)
		default:
		}
	})
}

// listener adapts engine callbacks onto the loop. Callbacks posted before a
// Reset or Release are dropped when they run.
type listener struct {
	s *Session
}

func (l *listener) post(fn func()) {
	gen := l.s.gen.Load()
	l.s.loop.Post(func() {
		if l.s.gen.Load() != gen {
			l.s.log.Debug().Msg("dropping stale engine callback")
			return
		}
		fn()
	})
}

func (l *listener) OnPrepared() { l.post(l.s.handlePrepared) }
func (l *listener) OnSeekComplete() { l.post(l.s.handleSeekComplete) }
func (l *listener) OnCompletion() { l.post(l.s.handleCompletion) }
func (l *listener) OnBufferingUpdate(percent int) { l.post(func() { l.s.handleBufferingUpdate(percent) }) }
func (l *listener) OnInfo(what Info, extra int) { l.post(func() { l.s.handleInfo(what, extra) }) }
func (l *listener) OnError(code ErrorCode, extra int) {
	l.post(func() { l.s.handleError(code, extra) })
}

func (l *listener) OnTimeDiscontinuity(ts Timestamp) {
	l.post(func() { l.s.handleTimeDiscontinuity(ts) })
}

func (l *listener) OnTimedMetadata(atMillis int64, data []byte) {
	l.post(func() { l.s.handleTimedMetadata(atMillis, data) })
}
