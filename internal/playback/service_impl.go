package playback

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/decoder"
	"github.com/llehouerou/segue/internal/loop"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
	"github.com/llehouerou/segue/internal/transition"
)

// Verify serviceImpl implements its contracts at compile time.
var (
	_ Service             = (*serviceImpl)(nil)
	_ transition.Observer = (*serviceImpl)(nil)
	_ playlist.Listener   = (*serviceImpl)(nil)
)

// serviceImpl owns one loop. Every field below subsMu is only touched on it.
type serviceImpl struct {
	log   zerolog.Logger
	loop  *loop.Loop
	ctrl  *transition.Controller
	seq   *sequencer.Sequencer
	lists *playlist.Dispatcher

	subsMu sync.RWMutex
	subs   []*Subscription
	closed atomic.Bool

	playing              bool
	userPlaying          bool
	track                *playlist.Track
	position             int64
	timestamp            decoder.Timestamp
	duration             int64
	seekable             bool
	bufferProgress       float64
	bufferingSlow        bool
	decreasedPerformance bool
	liveInfo             string
	params               decoder.Params
}

// New creates a player with an empty queue.
func New(opts Options, log zerolog.Logger) Service {
	params := opts.Params
	if params == (decoder.Params{}) {
		params = decoder.DefaultParams
	}
	l := loop.New(log)
	s := &serviceImpl{
		log:    log.With().Str("component", "playback").Logger(),
		loop:   l,
		seq:    sequencer.New(log, opts.Rand),
		lists:  playlist.NewDispatcher(log),
		params: params,
	}
	s.ctrl = transition.New(l, transition.Options{
		Factory:  opts.Factory,
		Arbiter:  opts.Arbiter,
		Observer: s,
		Retain:   opts.Retain,
		Params:   params,
	}, log)

	_ = l.Do(func() {
		s.seq.SetLoopMode(opts.LoopMode)
		s.seq.SetShuffle(opts.Shuffle)
		s.seq.SetListener(s.ctrl)
		s.lists.Register(s.seq)
		s.lists.Register(s)
		s.ctrl.SetPredictor(predictor{s.seq})
		s.lists.Install(playlist.NewPlaylist())
	})
	return s
}

func (s *serviceImpl) do(fn func() error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	var err error
	if lerr := s.loop.Do(func() { err = fn() }); lerr != nil {
		return ErrClosed
	}
	return err
}

func (s *serviceImpl) queue() *playlist.Playlist {
	return s.lists.Playlist()
}

// Play starts playback. It does nothing if already playing.
func (s *serviceImpl) Play() error {
	return s.do(func() error {
		s.ctrl.Play()
		return nil
	})
}

// Pause pauses playback. It does nothing if already paused.
func (s *serviceImpl) Pause() error {
	return s.do(func() error {
		s.ctrl.Pause()
		return nil
	})
}

// Toggle toggles between play and pause.
func (s *serviceImpl) Toggle() error {
	return s.do(func() error {
		s.ctrl.Toggle()
		return nil
	})
}

// Next moves to the next track in play order. It does nothing on the last
// track unless the playlist loops.
func (s *serviceImpl) Next() error {
	return s.do(func() error {
		pos, ok := s.seq.NextPosition()
		if !ok {
			return nil
		}
		s.queue().SetPosition(pos)
		return nil
	})
}

// Previous moves to the previous track in play order, or back to the start
// of the current one.
func (s *serviceImpl) Previous() error {
	return s.do(func() error {
		pos, ok := s.seq.PrevPosition()
		if !ok {
			if err := s.seekTo(0); err != nil && !errors.Is(err, ErrNotSeekable) {
				return err
			}
			return nil
		}
		s.queue().SetPosition(pos)
		return nil
	})
}

// Seek moves the position by delta, clamped to the track.
func (s *serviceImpl) Seek(delta time.Duration) error {
	return s.do(func() error {
		target := s.positionMillis() + delta.Milliseconds()
		if s.duration > 0 {
			target = min(target, s.duration)
		}
		return s.seekTo(max(target, 0))
	})
}

// SeekTo moves to position in the current track.
func (s *serviceImpl) SeekTo(position time.Duration) error {
	return s.do(func() error {
		return s.seekTo(max(position.Milliseconds(), 0))
	})
}

func (s *serviceImpl) seekTo(ms int64) error {
	return s.ctrl.Seek(ms)
}

// JumpTo restarts playback on the track at index.
func (s *serviceImpl) JumpTo(index int) error {
	return s.do(func() error {
		q := s.queue()
		if index < 0 || index >= q.Len() {
			return errors.Wrapf(ErrOutOfRange, "jump to %d in a queue of %d", index, q.Len())
		}
		q.SetPosition(index)
		return nil
	})
}

// Replace installs a new queue with the cursor on start.
func (s *serviceImpl) Replace(tracks []playlist.Track, start int) error {
	return s.do(func() error {
		if start < 0 || (start > 0 && start >= len(tracks)) {
			return errors.Wrapf(ErrOutOfRange, "start at %d in a queue of %d", start, len(tracks))
		}
		p := playlist.NewPlaylist(tracks...)
		p.SetPosition(start)
		s.lists.Install(p)
		return nil
	})
}

// Add appends tracks to the queue.
func (s *serviceImpl) Add(tracks ...playlist.Track) error {
	return s.do(func() error {
		s.queue().Append(tracks...)
		return nil
	})
}

// Insert inserts track before index at. at may equal the queue length.
func (s *serviceImpl) Insert(at int, track playlist.Track) error {
	return s.do(func() error {
		q := s.queue()
		if at < 0 || at > q.Len() {
			return errors.Wrapf(ErrOutOfRange, "insert at %d in a queue of %d", at, q.Len())
		}
		q.Add(track, at)
		return nil
	})
}

// Remove removes the track at index at. Removing the current track restarts
// playback on the one that took its place.
func (s *serviceImpl) Remove(at int) error {
	return s.do(func() error {
		q := s.queue()
		if at < 0 || at >= q.Len() {
			return errors.Wrapf(ErrOutOfRange, "remove %d from a queue of %d", at, q.Len())
		}
		q.Remove(at)
		return nil
	})
}

// Move moves the track at from to index to.
func (s *serviceImpl) Move(from, to int) error {
	return s.do(func() error {
		q := s.queue()
		n := q.Len()
		if from < 0 || from >= n || to < 0 || to >= n {
			return errors.Wrapf(ErrOutOfRange, "move %d to %d in a queue of %d", from, to, n)
		}
		q.Move(from, to)
		return nil
	})
}

// SetLoopMode sets the loop mode.
func (s *serviceImpl) SetLoopMode(mode sequencer.LoopMode) error {
	return s.do(func() error {
		s.setMode(mode, s.seq.Shuffle())
		return nil
	})
}

// CycleLoopMode cycles none, playlist, track.
func (s *serviceImpl) CycleLoopMode() (sequencer.LoopMode, error) {
	var mode sequencer.LoopMode
	err := s.do(func() error {
		mode = s.seq.LoopMode().Cycle()
		s.setMode(mode, s.seq.Shuffle())
		return nil
	})
	return mode, err
}

// SetShuffle turns shuffle on or off.
func (s *serviceImpl) SetShuffle(enabled bool) error {
	return s.do(func() error {
		s.setMode(s.seq.LoopMode(), enabled)
		return nil
	})
}

// ToggleShuffle toggles shuffle and returns the new value.
func (s *serviceImpl) ToggleShuffle() (bool, error) {
	var enabled bool
	err := s.do(func() error {
		enabled = !s.seq.Shuffle()
		s.setMode(s.seq.LoopMode(), enabled)
		return nil
	})
	return enabled, err
}

func (s *serviceImpl) setMode(mode sequencer.LoopMode, shuffle bool) {
	if mode == s.seq.LoopMode() && shuffle == s.seq.Shuffle() {
		return
	}
	s.seq.SetLoopMode(mode)
	s.seq.SetShuffle(shuffle)
	e := ModeChange{LoopMode: mode, Shuffle: shuffle}
	s.broadcast(func(sub *Subscription) { sub.sendMode(e) })
}

// SetVolume sets the volume in [0, 1].
func (s *serviceImpl) SetVolume(volume float64) error {
	return s.do(func() error {
		p := s.params
		p.Volume = clamp(volume, 0, 1)
		s.ctrl.SetParams(p)
		return nil
	})
}

// SetSpeed sets the playback speed.
func (s *serviceImpl) SetSpeed(speed float64) error {
	return s.do(func() error {
		p := s.params
		p.Speed = clamp(speed, minSpeed, maxSpeed)
		s.ctrl.SetParams(p)
		return nil
	})
}

// SetPitch sets the pitch.
func (s *serviceImpl) SetPitch(pitch float64) error {
	return s.do(func() error {
		p := s.params
		p.Pitch = clamp(pitch, minPitch, maxPitch)
		s.ctrl.SetParams(p)
		return nil
	})
}

// Snapshot returns a copy of the player state. A closed player returns an
// empty snapshot.
func (s *serviceImpl) Snapshot() Snapshot {
	snap, _ := loop.Call(s.loop, s.snapshot)
	return snap
}

// Position returns the current playback position.
func (s *serviceImpl) Position() time.Duration {
	ms, _ := loop.Call(s.loop, s.positionMillis)
	return time.Duration(ms) * time.Millisecond
}

func (s *serviceImpl) snapshot() Snapshot {
	q := s.queue()
	snap := Snapshot{
		State:                s.state(),
		UserPlaying:          s.userPlaying,
		Queue:                q.Tracks(),
		Index:                q.Position(),
		Position:             time.Duration(s.positionMillis()) * time.Millisecond,
		Duration:             time.Duration(s.duration) * time.Millisecond,
		Seekable:             s.seekable,
		BufferProgress:       s.bufferProgress,
		BufferingSlow:        s.bufferingSlow,
		DecreasedPerformance: s.decreasedPerformance,
		LiveInfo:             s.liveInfo,
		Volume:               s.params.Volume,
		Speed:                s.params.Speed,
		Pitch:                s.params.Pitch,
		LoopMode:             s.seq.LoopMode(),
		Shuffle:              s.seq.Shuffle(),
	}
	if s.track != nil {
		t := *s.track
		snap.Track = &t
	}
	return snap
}

// positionMillis extrapolates the position from the timestamp anchor while
// playing.
func (s *serviceImpl) positionMillis() int64 {
	pos := s.position
	if s.playing && !s.timestamp.IsZero() {
		pos = s.timestamp.PositionAt(time.Now())
	}
	if s.duration > 0 {
		pos = min(pos, s.duration)
	}
	return max(pos, 0)
}

func (s *serviceImpl) state() State {
	switch {
	case s.playing:
		return StatePlaying
	case s.track != nil:
		return StatePaused
	default:
		return StateStopped
	}
}

// Subscribe returns a subscription primed with the current state.
func (s *serviceImpl) Subscribe() *Subscription {
	sub := newSubscription()
	if s.closed.Load() {
		sub.close()
		return sub
	}
	err := s.loop.Do(func() {
		snap := s.snapshot()
		s.subsMu.Lock()
		s.subs = append(s.subs, sub)
		s.subsMu.Unlock()
		replay(sub, snap)
	})
	if err != nil {
		sub.close()
	}
	return sub
}

func replay(sub *Subscription, snap Snapshot) {
	sub.sendState(StateChange{Previous: snap.State, Current: snap.State, UserPlaying: snap.UserPlaying})
	sub.sendQueue(QueueChange{Tracks: snap.Queue, Index: snap.Index})
	sub.sendMode(ModeChange{LoopMode: snap.LoopMode, Shuffle: snap.Shuffle})
	sub.sendParams(ParamsChange{Volume: snap.Volume, Speed: snap.Speed, Pitch: snap.Pitch})
	if snap.Track != nil {
		sub.sendTrack(TrackChange{Current: snap.Track, Index: snap.Index})
		sub.sendStream(snap.stream())
		sub.sendPosition(PositionChange{Position: snap.Position})
	}
	if snap.LiveInfo != "" {
		sub.sendLive(LiveInfo{Text: snap.LiveInfo})
	}
}

// Unsubscribe stops delivery to sub and closes its Done channel.
func (s *serviceImpl) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if i := slices.Index(s.subs, sub); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
	}
	sub.close()
}

func (s *serviceImpl) broadcast(send func(sub *Subscription)) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		send(sub)
	}
}

// Close stops playback, releases every decoder and closes all subscriptions.
func (s *serviceImpl) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.ctrl.Close()
	s.loop.Close()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()
	s.log.Debug().Msg("player closed")
	return nil
}
