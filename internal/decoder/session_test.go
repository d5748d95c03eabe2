package decoder

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/segue/internal/loop"
)

type track string

func (t track) Locator() string { return string(t) }

// recorder collects session callbacks as short event names.
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
	live   []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Filter returns the recorded events whose name is one of names, in order.
func (r *recorder) Filter(names ...string) []string {
	var out []string
	for _, ev := range r.Events() {
		if slices.Contains(names, ev) {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) Count(name string) int {
	return len(r.Filter(name))
}

func (r *recorder) Live() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.live)
}

func (r *recorder) OnRecycled(*Session) { r.add("recycled") }
func (r *recorder) OnDestroyed(*Session) { r.add("destroyed") }
func (r *recorder) OnInternalError(_ *Session, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.add("internal-error")
}

func (r *recorder) OnTrackError(_ *Session, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.add("track-error")
}
func (r *recorder) OnCompleted(*Session, error) { r.add("completed") }
func (r *recorder) OnDecreasedPerformance(*Session) { r.add("decreased-performance") }
func (r *recorder) OnBufferProgress(*Session, float64) { r.add("buffer-progress") }
func (r *recorder) OnBuffering(_ *Session, b bool) { r.add(fmt.Sprintf("buffering:%v", b)) }
func (r *recorder) OnStartedAsNext(*Session) { r.add("started-as-next") }
func (r *recorder) OnMetadataUpdate(*Session) { r.add("metadata-update") }
func (r *recorder) OnUnseekable(*Session) { r.add("unseekable") }
func (r *recorder) OnTimestamp(*Session, Timestamp) { r.add("timestamp") }
func (r *recorder) OnDuration(_ *Session, ms int64) { r.add(fmt.Sprintf("duration:%d", ms)) }
func (r *recorder) OnSeekCompleted(*Session) { r.add("seek-completed") }
func (r *recorder) OnLiveData(_ *Session, text string) {
	r.mu.Lock()
	r.live = append(r.live, text)
	r.mu.Unlock()
	r.add("live")
}

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l := loop.New(zerolog.Nop())
	t.Cleanup(l.Close)
	return l
}

func newSession(t *testing.T, l *loop.Loop, f *FakeFactory) (*Session, *FakeEngine, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := NewSession(l, f.New, rec, zerolog.Nop())
	require.NoError(t, err)
	engines := f.Engines()
	return s, engines[len(engines)-1], rec
}

// startedSession returns a session playing a.mp3.
func startedSession(t *testing.T, l *loop.Loop, f *FakeFactory) (*Session, *FakeEngine, *recorder) {
	t.Helper()
	s, e, rec := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))
	s.Start()
	e.FirePrepared()
	l.Idle()
	require.Equal(t, StateStarted, s.State())
	return s, e, rec
}

func requireAssertion(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected an assertion failure")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.IsAssertionFailure(err), "unexpected panic: %v", err)
	}()
	fn()
}

func TestNewSession_FactoryError(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{Err: errors.New("no device")}

	_, err := NewSession(l, f.New, &recorder{}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no device")
}

func TestSession_PrepareFlow(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{Duration: 180000}
	s, e, rec := newSession(t, l, f)

	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.Initialize(track("a.mp3")))
	assert.Equal(t, StateInitialized, s.State())
	assert.Equal(t, "a.mp3", e.Locator())

	require.NoError(t, s.Preload())
	assert.Equal(t, StatePreparing, s.State())

	e.FirePrepared()
	l.Idle()
	assert.Equal(t, StatePrepared, s.State())
	assert.Equal(t, []string{"duration:180000"}, rec.Events())
	assert.Equal(t, int64(180000), s.Duration())
}

func TestSession_StartFromInitializedDefersUntilPrepared(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, _ := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))

	s.Start()
	assert.Equal(t, StatePreparing, s.State())
	assert.False(t, e.Playing())

	// A second start while preparing does not register twice.
	s.Start()

	e.FirePrepared()
	l.Idle()
	assert.Equal(t, StateStarted, s.State())
	assert.True(t, e.Playing())
	assert.Equal(t, DefaultParams, e.Params())
}

func TestSession_StartAppliesParamsAtomically(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{AutoPrepare: true}
	s, e, _ := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))
	require.NoError(t, s.Preload())
	l.Idle()
	require.Equal(t, StatePrepared, s.State())

	p := Params{Volume: 0.5, Speed: 1.25, Pitch: 1}
	s.UpdateParams(p)
	assert.Equal(t, Params{}, e.Params(), "params are not pushed while prepared")

	s.Start()
	assert.Equal(t, StateStarted, s.State())
	assert.Equal(t, p, e.Params())
}

func TestSession_CancelStart(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, _ := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))

	s.Start()
	s.CancelStart()
	e.FirePrepared()
	l.Idle()

	assert.Equal(t, StatePrepared, s.State())
	assert.False(t, e.Playing())
}

func TestSession_IllegalStatesPanic(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, _, _ := newSession(t, l, f)

	requireAssertion(t, func() { s.Pause() })
	requireAssertion(t, func() { s.Seek(10) })
	requireAssertion(t, func() { s.Stop() })
	requireAssertion(t, func() { _ = s.Preload() })

	require.NoError(t, s.Initialize(track("a.mp3")))
	requireAssertion(t, func() { _ = s.Initialize(track("b.mp3")) })

	s.Destroy()
	requireAssertion(t, func() { s.Destroy() })
	requireAssertion(t, func() { s.Recycle() })
}

func TestSession_PauseAndResume(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, _ := startedSession(t, l, f)

	s.Pause()
	assert.Equal(t, StatePaused, s.State())
	assert.False(t, e.Playing())

	s.Start()
	assert.Equal(t, StateStarted, s.State())
	assert.True(t, e.Playing())
}

func TestSession_SeekCoalescing(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, rec := startedSession(t, l, f)

	s.Seek(1000)
	s.Seek(2000)
	s.Seek(3000)
	assert.Equal(t, []int64{1000}, e.Seeks())

	e.FireSeekComplete()
	l.Idle()
	assert.Equal(t, []int64{1000, 3000}, e.Seeks())
	assert.Equal(t, 0, rec.Count("seek-completed"))

	e.FireSeekComplete()
	l.Idle()
	assert.Equal(t, []int64{1000, 3000}, e.Seeks())
	assert.Equal(t, 1, rec.Count("seek-completed"))
	assert.Equal(t, int64(3000), s.Position())
}

func TestSession_SeekOnStart(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, rec := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))
	s.Start()
	require.Equal(t, StatePreparing, s.State())

	s.SeekOnStart(1000)
	s.SeekOnStart(30000)
	assert.Empty(t, e.Seeks())

	e.FirePrepared()
	l.Idle()
	require.Equal(t, StateStarted, s.State())
	assert.Equal(t, []int64{30000}, e.Seeks())

	e.FireSeekComplete()
	l.Idle()
	assert.Equal(t, 1, rec.Count("seek-completed"))
}

func TestSession_RecycleDropsSeekOnStart(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{AutoPrepare: true}
	s, e, _ := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))
	s.SeekOnStart(5000)

	s.Recycle()
	require.NoError(t, s.Initialize(track("b.mp3")))
	s.Start()
	l.Idle()

	require.Equal(t, StateStarted, s.State())
	assert.Empty(t, e.Seeks())
}

func TestSession_PositionCachedWhenNotQueryable(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, _ := startedSession(t, l, f)

	e.SetPosition(4200)
	assert.Equal(t, int64(4200), s.Position())

	s.Stop()
	require.NoError(t, s.Preload())
	require.Equal(t, StatePreparing, s.State())

	e.SetPosition(999)
	assert.Equal(t, int64(4200), s.Position())
}

func TestSession_ErrorHandling(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		want      []string
		wantState State
	}{
		{"malformed recycles", ErrMalformed, []string{"track-error", "completed", "recycled"}, StateIdle},
		{"io recycles", ErrIO, []string{"track-error", "completed", "recycled"}, StateIdle},
		{"unsupported recycles", ErrUnsupported, []string{"track-error", "completed", "recycled"}, StateIdle},
		{"not progressive recycles", ErrNotProgressive, []string{"track-error", "completed", "recycled"}, StateIdle},
		{"timeout recycles as internal", ErrTimedOut, []string{"internal-error", "completed", "recycled"}, StateIdle},
		{"engine died destroys", ErrEngineDied, []string{"internal-error", "completed", "destroyed"}, StateEnd},
		{"system error destroys", ErrSystem, []string{"internal-error", "completed", "destroyed"}, StateEnd},
		{"unknown code destroys", ErrorCode(99), []string{"internal-error", "completed", "destroyed"}, StateEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLoop(t)
			f := &FakeFactory{}
			s, e, rec := startedSession(t, l, f)

			e.FireError(tt.code, 0)
			l.Idle()

			got := rec.Filter("track-error", "internal-error", "completed", "recycled", "destroyed")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantState, s.State())
			assert.Equal(t, tt.wantState == StateEnd, e.Released())
		})
	}
}

func TestSession_InitializeFailureRecycles(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{FailDataSource: map[string]error{"missing.mp3": errors.New("no such file")}}
	s, _, rec := newSession(t, l, f)

	err := s.Initialize(track("missing.mp3"))
	require.Error(t, err)
	assert.Equal(t, ErrIO, CodeOf(err))

	l.Idle()
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []string{"track-error", "completed", "recycled"}, rec.Events())
}

func TestSession_UnsupportedParamsRecycle(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, _, rec := startedSession(t, l, f)

	f.mu.Lock()
	f.ParamsErr = &EngineError{Code: ErrUnsupported}
	f.mu.Unlock()

	s.UpdateParams(Params{Volume: 1, Speed: 1, Pitch: 2})
	l.Idle()

	assert.Equal(t, []string{"internal-error", "completed", "recycled"},
		rec.Filter("track-error", "internal-error", "completed", "recycled"))
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_UpdateParamsRules(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, _ := startedSession(t, l, f)

	faster := Params{Volume: 0.8, Speed: 1.5, Pitch: 1}
	s.UpdateParams(faster)
	assert.Equal(t, faster, e.Params(), "applied while started")

	s.Pause()
	slower := Params{Volume: 0.8, Speed: 0.75, Pitch: 1}
	s.UpdateParams(slower)
	assert.Equal(t, faster, e.Params(), "deferred while paused")

	s.Start()
	assert.Equal(t, slower, e.Params())
}

func TestSession_StartedAsNext(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{AutoPrepare: true}
	a, ea, recA := startedSession(t, l, f)
	b, eb, recB := newSession(t, l, f)

	require.NoError(t, b.Initialize(track("b.mp3")))
	require.NoError(t, b.Preload())
	l.Idle()
	require.Equal(t, StatePrepared, b.State())

	a.SetNext(b)
	assert.Same(t, eb, ea.Next())

	ea.Finish()
	l.Idle()

	assert.Equal(t, StateStarted, b.State())
	assert.Equal(t, StateIdle, a.State())
	assert.Equal(t, 1, recB.Count("started-as-next"))
	assert.Equal(t, []string{"completed", "recycled"}, recA.Filter("completed", "recycled"))
}

func TestSession_SetNextSelfLoops(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, rec := startedSession(t, l, f)

	s.SetNext(s)
	assert.True(t, e.Looping())
	assert.Nil(t, e.Next())

	e.Finish()
	l.Idle()
	assert.Equal(t, StateStarted, s.State())
	assert.Equal(t, 0, rec.Count("completed"))

	s.SetNext(nil)
	assert.False(t, e.Looping())
}

func TestSession_SetNextDefersWhilePreparing(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	a, ea, _ := startedSession(t, l, f)
	b, eb, _ := newSession(t, l, f)

	require.NoError(t, b.Initialize(track("b.mp3")))
	require.NoError(t, b.Preload())

	a.SetNext(b)
	assert.Nil(t, ea.Next())

	eb.FirePrepared()
	l.Idle()
	assert.Equal(t, StatePrepared, b.State())
	assert.Same(t, eb, ea.Next())
}

func TestSession_DeferredChainDroppedWithOwner(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	a, ea, _ := startedSession(t, l, f)
	b, eb, _ := newSession(t, l, f)

	require.NoError(t, b.Initialize(track("b.mp3")))
	require.NoError(t, b.Preload())
	a.SetNext(b)

	a.Recycle()

	// b can now register its own start continuation.
	b.Start()
	eb.FirePrepared()
	l.Idle()
	assert.Equal(t, StateStarted, b.State())
	assert.Nil(t, ea.Next())
}

func TestSession_StaleCallbackDropped(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, rec := newSession(t, l, f)
	require.NoError(t, s.Initialize(track("a.mp3")))
	require.NoError(t, s.Preload())

	require.NoError(t, l.Do(func() {
		e.FirePrepared()
		s.Recycle()
	}))
	l.Idle()

	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, rec.Events())
}

func TestSession_PendingNotificationDroppedOnRecycle(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, _, rec := startedSession(t, l, f)
	before := len(rec.Events())

	require.NoError(t, l.Do(func() {
		s.handleBufferingUpdate(50)
		s.Recycle()
	}))
	l.Idle()

	assert.Len(t, rec.Events(), before)
	assert.Equal(t, 0, rec.Count("buffer-progress"))
}

func TestSession_InfoCallbacks(t *testing.T) {
	l := newLoop(t)
	f := &FakeFactory{}
	s, e, rec := startedSession(t, l, f)

	e.FireInfo(InfoBufferingStart, 0)
	e.FireInfo(InfoBufferingEnd, 0)
	e.FireInfo(InfoBadInterleaving, 0)
	e.FireInfo(InfoNotSeekable, 0)
	e.FireInfo(InfoMetadataUpdate, 0)
	e.FireInfo(InfoUnknown, 7)
	e.FireInfo(InfoAudioNotPlaying, 0)
	e.FireBufferingUpdate(40)
	l.Idle()

	assert.Equal(t, []string{
		"buffering:true", "buffering:false", "decreased-performance", "unseekable",
		"metadata-update", "internal-error", "buffer-progress",
	}, rec.Filter("buffering:true", "buffering:false", "decreased-performance", "unseekable",
		"metadata-update", "internal-error", "buffer-progress"))
	assert.Equal(t, StateStarted, s.State())
}

func TestSession_LiveMetadata(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := loop.New(zerolog.Nop())
		defer l.Close()
		f := &FakeFactory{}
		rec := &recorder{}
		s, err := NewSession(l, f.New, rec, zerolog.Nop())
		require.NoError(t, err)
		e := f.Engines()[0]

		require.NoError(t, s.Initialize(track("radio.ogg")))
		s.Start()
		e.FirePrepared()
		l.Idle()

		e.SetPosition(1000)
		e.FireTimedMetadata(500, "now")
		e.FireTimedMetadata(6000, "later")
		l.Idle()
		assert.Equal(t, []string{"now"}, rec.Live())

		time.Sleep(4 * time.Second)
		synctest.Wait()
		l.Idle()
		assert.Equal(t, []string{"now"}, rec.Live())

		time.Sleep(2 * time.Second)
		synctest.Wait()
		l.Idle()
		assert.Equal(t, []string{"now", "later"}, rec.Live())

		e.FireTimedMetadata(20000, "never")
		l.Idle()
		s.Recycle()

		time.Sleep(30 * time.Second)
		synctest.Wait()
		l.Idle()
		assert.Equal(t, []string{"now", "later"}, rec.Live())
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Severity
	}{
		{ErrIO, SeverityTrack},
		{ErrMalformed, SeverityTrack},
		{ErrUnsupported, SeverityTrack},
		{ErrNotProgressive, SeverityTrack},
		{ErrTimedOut, SeverityTimeout},
		{ErrEngineDied, SeveritySession},
		{ErrSystem, SeveritySession},
		{ErrUnknown, SeveritySession},
		{ErrorCode(42), SeveritySession},
		{ErrInvalidOperation, SeverityBug},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code))
		})
	}
}

func TestAsEngineError(t *testing.T) {
	plain := errors.New("disk gone")
	ee := AsEngineError(plain, ErrIO)
	assert.Equal(t, ErrIO, ee.Code)
	assert.ErrorIs(t, ee, plain)

	wrapped := errors.Wrap(&EngineError{Code: ErrMalformed}, "decode")
	assert.Equal(t, ErrMalformed, AsEngineError(wrapped, ErrIO).Code)
	assert.Equal(t, ErrMalformed, CodeOf(wrapped))
	assert.Equal(t, ErrUnknown, CodeOf(plain))
}

func TestTimestamp_PositionAt(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := Timestamp{Anchor: anchor, MediaMillis: 10000, Rate: 1.5}

	assert.Equal(t, int64(10000), ts.PositionAt(anchor))
	assert.Equal(t, int64(13000), ts.PositionAt(anchor.Add(2*time.Second)))
	assert.Equal(t, int64(10000), ts.PositionAt(anchor.Add(-time.Second)))
	assert.Equal(t, int64(0), Timestamp{}.PositionAt(anchor))

	paused := Timestamp{Anchor: anchor, MediaMillis: 500, Rate: 0}
	assert.Equal(t, int64(500), paused.PositionAt(anchor.Add(time.Minute)))
}
