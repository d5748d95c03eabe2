// Package player implements the decoder engine on top of beep.
//
// One Output owns the speaker. Every Engine created from it renders through
// the Output, which plays at most one engine at a time and switches to the
// chained next engine inside the audio callback, so there is no gap between
// tracks.
package player

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/decoder"
)

// DefaultSampleRate is the speaker rate used when none is configured.
const DefaultSampleRate = beep.SampleRate(44100)

var _ beep.Streamer = (*Output)(nil)

// Output renders engines onto the speaker.
type Output struct {
	log  zerolog.Logger
	rate beep.SampleRate

	// mu guards current and the state of every engine of this output. The
	// audio callback holds it while rendering.
	mu      sync.Mutex
	current *Engine
	speaker bool
}

// NewOutput initializes the speaker at rate with a buffer of the given
// length and starts rendering.
func NewOutput(rate beep.SampleRate, buffer time.Duration, log zerolog.Logger) (*Output, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	o := newOutput(rate, log)
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, errors.Wrap(err, "init speaker")
	}
	o.speaker = true
	speaker.Play(o)
	o.log.Info().Int("rate", int(rate)).Dur("buffer", buffer).Msg("speaker ready")
	return o, nil
}

// newOutput creates an output that is not attached to the speaker. Stream
// drives it.
func newOutput(rate beep.SampleRate, log zerolog.Logger) *Output {
	return &Output{
		log:  log.With().Str("component", "output").Logger(),
		rate: rate,
	}
}

// NewEngine creates an engine rendering through o. It is a decoder.Factory.
func (o *Output) NewEngine() (decoder.Engine, error) {
	return &Engine{out: o, params: decoder.DefaultParams}, nil
}

// Err implements beep.Streamer.
func (o *Output) Err() error { return nil }

// Close detaches o from the speaker.
func (o *Output) Close() {
	if o.speaker {
		speaker.Clear()
	}
	o.mu.Lock()
	o.current = nil
	o.mu.Unlock()
}
