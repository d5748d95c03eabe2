// internal/decoder/fake.go
package decoder

import (
	"sync"
	"time"
)

// FakeFactory creates FakeEngines and records them.
type FakeFactory struct {
	mu      sync.Mutex
	engines []*FakeEngine

	// Err makes New fail.
	Err error
	// Duration is reported by every engine once prepared.
	Duration int64
	// AutoPrepare fires OnPrepared from PrepareAsync.
	AutoPrepare bool
	// FailPrepare makes an auto-prepare of a locator fail with the code.
	FailPrepare map[string]ErrorCode
	// FailDataSource makes SetDataSource of a locator return the error.
	FailDataSource map[string]error
	// ParamsErr is returned by Start and SetParams when set.
	ParamsErr error
}

var _ Engine = (*FakeEngine)(nil)

// New implements Factory.
func (f *FakeFactory) New() (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	e := &FakeEngine{factory: f}
	f.engines = append(f.engines, e)
	return e, nil
}

// Engines returns every engine created so far.
func (f *FakeFactory) Engines() []*FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeEngine, len(f.engines))
	copy(out, f.engines)
	return out
}

// Find returns the live engine currently bound to locator.
func (f *FakeFactory) Find(locator string) *FakeEngine {
	for _, e := range f.Engines() {
		if e.Locator() == locator && !e.Released() {
			return e
		}
	}
	return nil
}

// Playing returns the engines currently producing audio.
func (f *FakeFactory) Playing() []*FakeEngine {
	var out []*FakeEngine
	for _, e := range f.Engines() {
		if e.Playing() {
			out = append(out, e)
		}
	}
	return out
}

// FakeEngine is an in-memory Engine for tests. Fire* methods deliver
// callbacks the way a real engine would.
type FakeEngine struct {
	factory *FakeFactory

	mu        sync.Mutex
	listener  Listener
	locator   string
	preparing bool
	prepared  bool
	playing   bool
	looping   bool
	released  bool
	next      *FakeEngine
	params    Params
	position  int64
	seeks     []int64
	resets    int
}

func (e *FakeEngine) SetListener(l Listener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

func (e *FakeEngine) SetDataSource(locator string) error {
	if err := e.factory.dataSourceErr(locator); err != nil {
		return err
	}
	e.mu.Lock()
	e.locator = locator
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) PrepareAsync() error {
	e.mu.Lock()
	e.preparing = true
	loc := e.locator
	e.mu.Unlock()

	if !e.factory.autoPrepare() {
		return nil
	}
	if code, ok := e.factory.prepareFailure(loc); ok {
		e.FireError(code, 0)
		return nil
	}
	e.FirePrepared()
	return nil
}

func (e *FakeEngine) Start(p Params) error {
	if err := e.factory.paramsErr(); err != nil {
		return err
	}
	e.mu.Lock()
	if !e.prepared {
		e.mu.Unlock()
		return &EngineError{Code: ErrInvalidOperation}
	}
	e.playing = true
	e.params = p
	pos := e.position
	e.mu.Unlock()
	e.FireDiscontinuity(Timestamp{Anchor: time.Now(), MediaMillis: pos, Rate: p.Speed})
	return nil
}

func (e *FakeEngine) Pause() error {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) Stop() error {
	e.mu.Lock()
	e.playing = false
	e.prepared = false
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) SeekTo(ms int64) error {
	e.mu.Lock()
	e.seeks = append(e.seeks, ms)
	e.position = ms
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) SetParams(p Params) error {
	if err := e.factory.paramsErr(); err != nil {
		return err
	}
	e.mu.Lock()
	e.params = p
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) SetLooping(looping bool) {
	e.mu.Lock()
	e.looping = looping
	e.mu.Unlock()
}

func (e *FakeEngine) SetNext(next Engine) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if next == nil {
		e.next = nil
		return nil
	}
	e.next = next.(*FakeEngine)
	return nil
}

func (e *FakeEngine) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *FakeEngine) Duration() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prepared {
		return 0
	}
	return e.factory.duration()
}

func (e *FakeEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locator = ""
	e.preparing = false
	e.prepared = false
	e.playing = false
	e.looping = false
	e.next = nil
	e.position = 0
	e.seeks = nil
	e.resets++
}

func (e *FakeEngine) Release() {
	e.Reset()
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()
}

// FirePrepared completes a pending PrepareAsync.
func (e *FakeEngine) FirePrepared() {
	e.mu.Lock()
	if !e.preparing {
		e.mu.Unlock()
		return
	}
	e.preparing = false
	e.prepared = true
	l := e.listener
	e.mu.Unlock()
	l.OnPrepared()
}

// FireCompletion reports the end of the stream.
func (e *FakeEngine) FireCompletion() {
	e.mu.Lock()
	e.playing = false
	l := e.listener
	e.mu.Unlock()
	l.OnCompletion()
}

// Finish plays the stream to its end like a real engine: a looping engine
// rewinds, a chained engine hands over to its next before completing.
func (e *FakeEngine) Finish() {
	e.mu.Lock()
	if e.looping {
		e.position = 0
		rate := e.params.Speed
		e.mu.Unlock()
		e.FireDiscontinuity(Timestamp{Anchor: time.Now(), Rate: rate})
		return
	}
	next := e.next
	e.next = nil
	e.mu.Unlock()

	if next != nil {
		next.mu.Lock()
		ready := next.prepared
		next.playing = ready
		next.mu.Unlock()
		if ready {
			next.FireInfo(InfoStartedAsNext, 0)
		}
	}
	e.FireCompletion()
}

// FireInfo delivers an info callback.
func (e *FakeEngine) FireInfo(what Info, extra int) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnInfo(what, extra)
}

// FireError delivers an error callback.
func (e *FakeEngine) FireError(code ErrorCode, extra int) {
	e.mu.Lock()
	e.playing = false
	e.preparing = false
	l := e.listener
	e.mu.Unlock()
	l.OnError(code, extra)
}

// FireSeekComplete completes the last seek.
func (e *FakeEngine) FireSeekComplete() {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnSeekComplete()
}

// FireBufferingUpdate reports buffering progress in percent.
func (e *FakeEngine) FireBufferingUpdate(percent int) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnBufferingUpdate(percent)
}

// FireDiscontinuity reports a new timestamp anchor.
func (e *FakeEngine) FireDiscontinuity(ts Timestamp) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	if l != nil {
		l.OnTimeDiscontinuity(ts)
	}
}

// FireTimedMetadata delivers live metadata due at atMillis.
func (e *FakeEngine) FireTimedMetadata(atMillis int64, text string) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnTimedMetadata(atMillis, []byte(text))
}

// SetPosition sets the position reported by Position.
func (e *FakeEngine) SetPosition(ms int64) {
	e.mu.Lock()
	e.position = ms
	e.mu.Unlock()
}

func (e *FakeEngine) Locator() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locator
}

func (e *FakeEngine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *FakeEngine) Looping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.looping
}

func (e *FakeEngine) Prepared() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prepared
}

func (e *FakeEngine) Next() *FakeEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next
}

func (e *FakeEngine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

func (e *FakeEngine) Seeks() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int64, len(e.seeks))
	copy(out, e.seeks)
	return out
}

func (e *FakeEngine) Resets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resets
}

func (e *FakeEngine) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

func (f *FakeFactory) dataSourceErr(locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FailDataSource[locator]
}

func (f *FakeFactory) autoPrepare() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AutoPrepare
}

func (f *FakeFactory) prepareFailure(locator string) (ErrorCode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.FailPrepare[locator]
	return code, ok
}

func (f *FakeFactory) paramsErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ParamsErr
}

func (f *FakeFactory) duration() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Duration
}
