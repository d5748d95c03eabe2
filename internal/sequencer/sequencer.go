// Package sequencer decides which track plays after the current one.
//
// The sequencer watches the installed playlist and reports when its
// prediction changed. It knows nothing about sessions or engines.
package sequencer

import (
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/playlist"
)

// Listener is told when the predicted track changed.
type Listener interface {
	// OnPredictionChanged is called after a change. currentImpacted is true
	// when the track currently playing is no longer the right one.
	OnPredictionChanged(currentImpacted bool)
}

var _ playlist.Listener = (*Sequencer)(nil)

// Sequencer predicts the next track from the playlist cursor, the loop mode
// and the shuffle order. It is not safe for concurrent use.
type Sequencer struct {
	log      zerolog.Logger
	rng      *rand.Rand
	pl       *playlist.Playlist
	listener Listener

	mode    LoopMode
	shuffle bool
	order   []int

	hasConsumedFirst      bool
	handledPositionChange bool

	expected prediction
}

// prediction is what Predict(false) would return. offset locates the
// predicted slot relative to the cursor, so duplicate tracks in the playlist
// are told apart.
type prediction struct {
	track   playlist.Track
	ok      bool
	offset  int
	looping bool
}

// New creates a sequencer. src seeds the shuffle order; nil picks a random
// seed.
func New(log zerolog.Logger, src rand.Source) *Sequencer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sequencer{
		log: log.With().Str("component", "sequencer").Logger(),
		rng: rand.New(src),
	}
}

// SetListener sets the prediction listener.
func (s *Sequencer) SetListener(l Listener) {
	s.listener = l
}

// Playlist returns the playlist being sequenced, or nil.
func (s *Sequencer) Playlist() *playlist.Playlist {
	return s.pl
}

// LoopMode returns the loop mode.
func (s *Sequencer) LoopMode() LoopMode {
	return s.mode
}

// Shuffle returns true if shuffle is on.
func (s *Sequencer) Shuffle() bool {
	return s.shuffle
}

// SetLoopMode changes the loop mode. The listener is told only if the
// predicted track changed.
func (s *Sequencer) SetLoopMode(m LoopMode) {
	if m == s.mode {
		return
	}
	s.log.Debug().Stringer("mode", m).Msg("loop mode changed")
	s.mode = m
	s.recheck()
}

// SetShuffle turns shuffle on or off. Turning it on draws a new order that
// starts with the current track.
func (s *Sequencer) SetShuffle(on bool) {
	if on == s.shuffle {
		return
	}
	s.log.Debug().Bool("shuffle", on).Msg("shuffle changed")
	s.shuffle = on
	s.reshuffle()
	s.recheck()
}

// Predict returns the track to play next. The first call after the playlist
// or its cursor changed returns the current track. consume commits to the
// prediction: the cursor moves to the returned track.
func (s *Sequencer) Predict(consume bool) (playlist.Track, bool) {
	if consume {
		s.log.Debug().Msg("consuming prediction")
	}
	if !s.hasConsumedFirst {
		s.hasConsumedFirst = consume
		t, ok := s.current()
		if consume {
			s.remember()
		}
		return t, ok
	}
	if s.IsLooping() {
		return s.current()
	}
	pos, ok := s.NextPosition()
	if !ok {
		return playlist.Track{}, false
	}
	t, _ := s.pl.Item(pos)
	if consume {
		// The cursor change is ours: the listener only has to refresh the
		// prediction, not restart the current track.
		s.handledPositionChange = true
		s.pl.SetPosition(pos)
	}
	return t, true
}

// IsLooping returns true if the current track repeats forever.
func (s *Sequencer) IsLooping() bool {
	if s.size() == 0 {
		return false
	}
	if s.mode == LoopTrack {
		return true
	}
	if s.mode != LoopPlaylist {
		return false
	}
	next, ok := s.NextPosition()
	return ok && next == s.pl.Position()
}

// PlaybackCompleted is called when the last predicted track stopped and
// nothing follows it.
func (s *Sequencer) PlaybackCompleted() {
	s.log.Debug().Msg("playback completed")
	s.hasConsumedFirst = false
	s.remember()
}

// NextPosition returns the index after the cursor.
func (s *Sequencer) NextPosition() (int, bool) {
	return s.step(1)
}

// PrevPosition returns the index before the cursor.
func (s *Sequencer) PrevPosition() (int, bool) {
	return s.step(-1)
}

func (s *Sequencer) step(delta int) (int, bool) {
	n := s.size()
	if n == 0 {
		return 0, false
	}
	cur := s.pl.Position()
	if s.shuffle && len(s.order) == n {
		i := slices.Index(s.order, cur)
		if i < 0 {
			return 0, false
		}
		j, ok := s.wrap(i+delta, n)
		if !ok {
			return 0, false
		}
		return s.order[j], true
	}
	return s.wrap(cur+delta, n)
}

// wrap maps pos into [0, n) when looping over the playlist.
func (s *Sequencer) wrap(pos, n int) (int, bool) {
	if pos >= 0 && pos < n {
		return pos, true
	}
	if s.mode != LoopPlaylist {
		return 0, false
	}
	return ((pos % n) + n) % n, true
}

func (s *Sequencer) size() int {
	if s.pl == nil {
		return 0
	}
	return s.pl.Len()
}

func (s *Sequencer) current() (playlist.Track, bool) {
	if s.pl == nil {
		return playlist.Track{}, false
	}
	return s.pl.Current()
}

func (s *Sequencer) peek() prediction {
	if s.size() == 0 {
		return prediction{}
	}
	looping := s.IsLooping()
	if !s.hasConsumedFirst || looping {
		t, ok := s.current()
		return prediction{track: t, ok: ok, looping: looping}
	}
	pos, ok := s.NextPosition()
	if !ok {
		return prediction{}
	}
	t, ok := s.pl.Item(pos)
	return prediction{track: t, ok: ok, offset: pos - s.pl.Position()}
}

func (s *Sequencer) remember() {
	s.expected = s.peek()
}

// recheck tells the listener about a changed prediction that does not
// affect the current track.
func (s *Sequencer) recheck() {
	p := s.peek()
	if p == s.expected {
		return
	}
	s.expected = p
	s.dispatch(false)
}

func (s *Sequencer) reshuffle() {
	n := s.size()
	if !s.shuffle || n == 0 {
		s.order = nil
		return
	}
	cur := s.pl.Position()
	order := make([]int, 0, n)
	order = append(order, cur)
	for _, i := range s.rng.Perm(n) {
		if i != cur {
			order = append(order, i)
		}
	}
	s.order = order
}

func (s *Sequencer) dispatch(currentImpacted bool) {
	s.log.Debug().Bool("current_impacted", currentImpacted).Msg("prediction changed")
	if s.listener != nil {
		s.listener.OnPredictionChanged(currentImpacted)
	}
}

// OnReplaced implements playlist.Listener.
func (s *Sequencer) OnReplaced(_, newList *playlist.Playlist) {
	s.pl = newList
	s.hasConsumedFirst = false
	s.handledPositionChange = false
	s.reshuffle()
	s.remember()
	s.dispatch(true)
}

// OnPositionChanged implements playlist.Listener.
func (s *Sequencer) OnPositionChanged(_, _ int) {
	if s.handledPositionChange {
		s.handledPositionChange = false
		s.remember()
		s.dispatch(false)
		return
	}
	s.hasConsumedFirst = false
	s.remember()
	s.dispatch(true)
}

// OnItemAdded implements playlist.Listener.
func (s *Sequencer) OnItemAdded(_ int) {
	s.reshuffle()
	s.recheck()
}

// OnItemRemoved implements playlist.Listener.
func (s *Sequencer) OnItemRemoved(_ int, wasCurrent bool) {
	s.reshuffle()
	if wasCurrent {
		s.hasConsumedFirst = false
		s.remember()
		s.dispatch(true)
		return
	}
	s.recheck()
}
