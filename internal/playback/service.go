package playback

import (
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/segue/internal/decoder"
	"github.com/llehouerou/segue/internal/focus"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
	"github.com/llehouerou/segue/internal/transition"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("player closed")
	// ErrNotSeekable is returned when seeking a stream that cannot seek.
	ErrNotSeekable = transition.ErrNotSeekable
	// ErrOutOfRange is returned for a queue index outside the queue.
	ErrOutOfRange = errors.New("queue index out of range")
)

// Service defines the playback service contract.
type Service interface {
	// Playback control
	Play() error
	Pause() error
	Toggle() error
	Next() error
	Previous() error // Seeks to the start when there is no previous track
	Seek(delta time.Duration) error
	SeekTo(position time.Duration) error

	// Queue navigation (restarts playback on the chosen track)
	JumpTo(index int) error

	// Queue manipulation
	Replace(tracks []playlist.Track, start int) error
	Add(tracks ...playlist.Track) error
	Insert(at int, track playlist.Track) error
	Remove(at int) error
	Move(from, to int) error

	// Mode control
	SetLoopMode(mode sequencer.LoopMode) error
	CycleLoopMode() (sequencer.LoopMode, error)
	SetShuffle(enabled bool) error
	ToggleShuffle() (bool, error)

	// Rate settings. Setting the current value does nothing.
	SetVolume(volume float64) error
	SetSpeed(speed float64) error
	SetPitch(pitch float64) error

	// State queries
	Snapshot() Snapshot
	Position() time.Duration

	// Event subscription
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Lifecycle
	Close() error
}

// Options configures a Service.
type Options struct {
	Factory decoder.Factory
	// Arbiter grants audio focus. Nil grants it unconditionally.
	Arbiter focus.Arbiter
	// Retain is the number of idle decoder sessions kept for reuse.
	Retain int
	Params decoder.Params

	LoopMode sequencer.LoopMode
	Shuffle  bool
	// Rand seeds the shuffle order. Nil picks a random seed.
	Rand rand.Source
}

const (
	minSpeed = 0.25
	maxSpeed = 4.0
	minPitch = 0.5
	maxPitch = 2.0
)

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
