package player

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/llehouerou/segue/internal/decoder"
)

// resampleQuality is the interpolation quality used when the file rate or
// the speed differ from the speaker.
const resampleQuality = 4

var _ decoder.Engine = (*Engine)(nil)

// Engine decodes one file. Preparation runs on its own goroutine; every
// other call is synchronous.
//
// Pitch cannot change independently of speed: a pitch other than 1 is
// rejected as unsupported.
type Engine struct {
	out *Output

	// Guarded by out.mu.
	listener  decoder.Listener
	locator   string
	gen       uint64
	src       beep.StreamSeekCloser
	format    beep.Format
	volume    *effects.Volume
	params    decoder.Params
	preparing bool
	prepared  bool
	playing   bool
	looping   bool
	released  bool
	next      *Engine
}

func invalid(format string, args ...any) error {
	return &decoder.EngineError{Code: decoder.ErrInvalidOperation, Err: errors.Newf(format, args...)}
}

func (e *Engine) SetListener(l decoder.Listener) {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	e.listener = l
}

func (e *Engine) SetDataSource(locator string) error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if e.released {
		return invalid("engine released")
	}
	if e.locator != "" {
		return invalid("data source already set to %s", e.locator)
	}
	e.locator = locator
	return nil
}

// PrepareAsync opens and decodes the data source in the background and
// reports OnPrepared or OnError.
func (e *Engine) PrepareAsync() error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if e.locator == "" || e.preparing || e.prepared {
		return invalid("prepare of %q", e.locator)
	}
	e.preparing = true
	go e.prepare(e.gen, e.locator)
	return nil
}

func (e *Engine) prepare(gen uint64, path string) {
	src, format, err := open(path)

	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if gen != e.gen {
		// Reset or released while decoding.
		if src != nil {
			src.Close()
		}
		return
	}
	e.preparing = false
	if err != nil {
		e.out.log.Warn().Err(err).Str("path", path).Msg("prepare failed")
		code := decoder.CodeOf(err)
		e.notify(func(l decoder.Listener) { l.OnError(code, 0) })
		return
	}
	e.src, e.format = src, format
	e.build()
	e.prepared = true
	e.out.log.Debug().Str("path", path).Int("rate", int(format.SampleRate)).
		Dur("duration", format.SampleRate.D(src.Len())).Msg("prepared")
	e.notify(func(l decoder.Listener) {
		l.OnPrepared()
		l.OnBufferingUpdate(100)
	})
}

// build wires the decoded source through the resampler and volume. It
// drops whatever the resampler buffered.
func (e *Engine) build() {
	var s beep.Streamer = e.src
	ratio := float64(e.format.SampleRate) / float64(e.out.rate) * e.params.Speed
	if ratio != 1 {
		s = beep.ResampleRatio(resampleQuality, ratio, s)
	}
	e.volume = &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   levelToVolume(e.params.Volume),
		Silent:   e.params.Volume <= 0,
	}
}

// apply validates p and makes it current.
func (e *Engine) apply(p decoder.Params) error {
	if p.Pitch != 1 {
		return &decoder.EngineError{Code: decoder.ErrUnsupported, Err: errors.Newf("pitch %.2f", p.Pitch)}
	}
	if p.Speed <= 0 {
		return &decoder.EngineError{Code: decoder.ErrUnsupported, Err: errors.Newf("speed %.2f", p.Speed)}
	}
	speedChanged := p.Speed != e.params.Speed
	e.params = p
	if e.src == nil {
		return nil
	}
	if speedChanged {
		e.build()
		return nil
	}
	e.volume.Volume = levelToVolume(p.Volume)
	e.volume.Silent = p.Volume <= 0
	return nil
}

func (e *Engine) Start(p decoder.Params) error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if !e.prepared {
		return invalid("start of unprepared %q", e.locator)
	}
	if err := e.apply(p); err != nil {
		return err
	}
	e.playing = true
	e.out.current = e
	e.discontinuity()
	return nil
}

func (e *Engine) Pause() error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if !e.prepared {
		return invalid("pause of unprepared %q", e.locator)
	}
	e.playing = false
	return nil
}

// Stop pauses and closes the source. The engine must be prepared again.
func (e *Engine) Stop() error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	e.playing = false
	e.prepared = false
	e.closeSource()
	return nil
}

func (e *Engine) SeekTo(ms int64) error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if e.src == nil {
		return invalid("seek of unprepared %q", e.locator)
	}
	pos := e.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
	pos = min(max(pos, 0), e.src.Len())
	if err := e.src.Seek(pos); err != nil {
		return &decoder.EngineError{Code: decoder.ErrIO, Err: err}
	}
	e.build()
	e.notify(func(l decoder.Listener) { l.OnSeekComplete() })
	if e.playing {
		e.discontinuity()
	}
	return nil
}

func (e *Engine) SetParams(p decoder.Params) error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if err := e.apply(p); err != nil {
		return err
	}
	if e.playing {
		e.discontinuity()
	}
	return nil
}

func (e *Engine) SetLooping(looping bool) {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	e.looping = looping
}

// SetNext chains next: when this engine reaches its end, the output
// switches to next without a gap.
func (e *Engine) SetNext(next decoder.Engine) error {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if next == nil {
		e.next = nil
		return nil
	}
	n, ok := next.(*Engine)
	if !ok || n.out != e.out || n == e {
		return invalid("cannot chain %T", next)
	}
	e.next = n
	return nil
}

func (e *Engine) Position() int64 {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	return e.position()
}

func (e *Engine) Duration() int64 {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	if e.src == nil {
		return 0
	}
	return e.format.SampleRate.D(e.src.Len()).Milliseconds()
}

// Reset returns the engine to its initial state. A pending preparation is
// dropped.
func (e *Engine) Reset() {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	e.reset()
}

func (e *Engine) Release() {
	e.out.mu.Lock()
	defer e.out.mu.Unlock()
	e.reset()
	e.released = true
	e.listener = nil
}

func (e *Engine) reset() {
	e.gen++
	e.closeSource()
	e.locator = ""
	e.preparing = false
	e.prepared = false
	e.playing = false
	e.looping = false
	e.next = nil
	e.params = decoder.DefaultParams
}

func (e *Engine) closeSource() {
	if e.out.current == e {
		e.out.current = nil
	}
	if e.src == nil {
		return
	}
	if err := e.src.Close(); err != nil {
		e.out.log.Debug().Err(err).Str("path", e.locator).Msg("closing source failed")
	}
	e.src = nil
	e.volume = nil
}

func (e *Engine) position() int64 {
	if e.src == nil {
		return 0
	}
	return e.format.SampleRate.D(e.src.Position()).Milliseconds()
}

// discontinuity anchors the current position to now.
func (e *Engine) discontinuity() {
	ts := decoder.Timestamp{Anchor: time.Now(), MediaMillis: e.position(), Rate: e.params.Speed}
	e.notify(func(l decoder.Listener) { l.OnTimeDiscontinuity(ts) })
}

// notify calls fn with the listener. out.mu must be held; listeners only
// queue work.
func (e *Engine) notify(fn func(l decoder.Listener)) {
	if e.listener != nil {
		fn(e.listener)
	}
}
