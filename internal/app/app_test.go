package app

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/segue/internal/decoder"
	"github.com/llehouerou/segue/internal/notify"
	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
	"github.com/llehouerou/segue/internal/state"
)

func newService(t *testing.T) playback.Service {
	t.Helper()
	f := &decoder.FakeFactory{AutoPrepare: true, Duration: 180000}
	svc := playback.New(playback.Options{
		Factory: f.New,
		Params:  decoder.DefaultParams,
		Rand:    rand.NewPCG(1, 2),
	}, zerolog.Nop())
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func testTracks() []playlist.Track {
	return []playlist.Track{
		{Path: "/music/a.mp3", Title: "Alpha", Artist: "Band", Duration: 3 * time.Minute},
		{Path: "/music/b.mp3", Title: "Beta", Artist: "Band"},
		{Path: "/music/c.mp3", Title: "Gamma"},
	}
}

func newModel(t *testing.T) (Model, playback.Service, *state.Mock) {
	t.Helper()
	svc := newService(t)
	require.NoError(t, svc.Replace(testTracks(), 0))
	store := state.NewMock()
	return New(svc, store, Options{SeekStep: 5 * time.Second}, zerolog.Nop()), svc, store
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestModel_PlayPause(t *testing.T) {
	m, svc, _ := newModel(t)

	press(t, m, " ")
	assert.Eventually(t, func() bool {
		return svc.Snapshot().State == playback.StatePlaying
	}, 2*time.Second, 10*time.Millisecond)

	press(t, m, " ")
	assert.Eventually(t, func() bool {
		return svc.Snapshot().State == playback.StatePaused
	}, 2*time.Second, 10*time.Millisecond)
}

func TestModel_NextAndPrevious(t *testing.T) {
	m, _, _ := newModel(t)

	m = press(t, m, "n")
	assert.Equal(t, 1, m.snap.Index)

	m = press(t, m, "n", "n")
	assert.Equal(t, 2, m.snap.Index, "last track without looping")

	m = press(t, m, "b")
	assert.Equal(t, 1, m.snap.Index)
}

func TestModel_ModeKeys(t *testing.T) {
	m, _, _ := newModel(t)

	m = press(t, m, "R")
	assert.Equal(t, sequencer.LoopPlaylist, m.snap.LoopMode)

	m = press(t, m, "S")
	assert.True(t, m.snap.Shuffle)
}

func TestModel_RateKeys(t *testing.T) {
	m, _, _ := newModel(t)

	m = press(t, m, "-")
	assert.InDelta(t, 0.95, m.snap.Volume, 1e-9)

	m = press(t, m, "]", "]")
	assert.InDelta(t, 1.5, m.snap.Speed, 1e-9)

	m = press(t, m, "\\")
	assert.InDelta(t, 1.0, m.snap.Speed, 1e-9)
}

func TestModel_QueueEditing(t *testing.T) {
	m, _, _ := newModel(t)

	m = press(t, m, "j")
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, "K")
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, "Beta", m.snap.Queue[0].Title)

	m = press(t, m, "J")
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, "Beta", m.snap.Queue[1].Title)

	m = press(t, m, "d")
	require.Len(t, m.snap.Queue, 2)
	assert.Equal(t, "Gamma", m.snap.Queue[1].Title)

	m = press(t, m, "j", "j", "j")
	assert.Equal(t, 1, m.cursor, "cursor stays inside the queue")
}

func TestModel_QueueKeysIgnoredWhenHidden(t *testing.T) {
	m, _, _ := newModel(t)

	m = press(t, m, "p", "j", "d")
	assert.False(t, m.showQueue)
	assert.Equal(t, 0, m.cursor)
	assert.Len(t, m.snap.Queue, 3)
}

func TestModel_QuitSavesQueue(t *testing.T) {
	m, _, store := newModel(t)
	m = press(t, m, "n", "R")

	_, cmd := m.Update(key("q"))

	require.NotNil(t, cmd)
	assert.Equal(t, 1, store.Saves())
	saved, err := store.GetQueue()
	require.NoError(t, err)
	assert.Equal(t, 1, saved.CurrentIndex)
	assert.Equal(t, "playlist", saved.LoopMode)
	assert.Len(t, saved.Tracks, 3)
}

func TestModel_TrackChangedRecordsPlay(t *testing.T) {
	m, _, store := newModel(t)
	track := testTracks()[2]

	m = update(t, m, ServiceTrackChangedMsg{Current: &track, Index: 2})

	assert.Equal(t, 2, m.cursor)
	history, err := store.History(0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "/music/c.mp3", history[0].Path)
	assert.Equal(t, "Gamma", history[0].Title)
}

func TestModel_TrackEndDoesNotRecord(t *testing.T) {
	m, _, store := newModel(t)

	update(t, m, ServiceTrackChangedMsg{Index: -1})

	history, err := store.History(0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestModel_ServiceErrorShowsStatus(t *testing.T) {
	m, _, _ := newModel(t)
	err := &decoder.EngineError{Code: decoder.ErrMalformed}

	m = update(t, m, ServiceErrorMsg{Operation: "play", Path: "/music/b.mp3", Err: err})

	assert.Equal(t, "Failed to play track 'b.mp3': "+decoder.ErrMalformed.String(), m.status)
	assert.Contains(t, ansi.Strip(m.View()), "Failed to play track")
}

func TestModel_StderrShowsStatus(t *testing.T) {
	m, _, _ := newModel(t)
	lines := make(chan string, 1)
	m.stderr = lines

	next, cmd := m.Update(StderrMsg{Line: "decoder warning"})

	assert.Equal(t, "decoder warning", next.(Model).status)
	assert.NotNil(t, cmd, "keeps watching stderr")
}

func TestModel_ResumeAppliedOnce(t *testing.T) {
	m, _, _ := newModel(t)
	m.resume = 30 * time.Second

	m = update(t, m, ServiceStateChangedMsg{Previous: playback.StateStopped, Current: playback.StatePaused})
	assert.Equal(t, 30*time.Second, m.resume, "waits for playback")

	m = update(t, m, ServiceStateChangedMsg{Previous: playback.StateStopped, Current: playback.StatePlaying})
	assert.Zero(t, m.resume)
}

func TestModel_TrackChangeCancelsResume(t *testing.T) {
	m, _, _ := newModel(t)
	m.resume = 30 * time.Second
	tracks := testTracks()

	m = update(t, m, ServiceTrackChangedMsg{Current: &tracks[0], Index: 0})
	assert.Equal(t, 30*time.Second, m.resume, "first track keeps the resume position")

	m = update(t, m, ServiceTrackChangedMsg{Previous: &tracks[0], Current: &tracks[1], Index: 1})
	assert.Zero(t, m.resume)
}

func TestModel_ServiceEvents(t *testing.T) {
	m, _, _ := newModel(t)

	m = update(t, m, ServicePositionMsg{Position: 42 * time.Second})
	assert.Equal(t, 42*time.Second, m.snap.Position)

	m = update(t, m, ServiceParamsChangedMsg{Volume: 0.3, Speed: 1.25, Pitch: 1})
	assert.InDelta(t, 0.3, m.snap.Volume, 1e-9)
	assert.InDelta(t, 1.25, m.snap.Speed, 1e-9)

	m = update(t, m, ServiceStreamChangedMsg{Duration: time.Minute, Seekable: true, BufferingSlow: true})
	assert.Equal(t, time.Minute, m.snap.Duration)
	assert.True(t, m.snap.BufferingSlow)

	m = update(t, m, ServiceLiveInfoMsg{Text: "Live Title"})
	assert.Equal(t, "Live Title", m.snap.LiveInfo)

	m = update(t, m, ServiceClosedMsg{})
	assert.Nil(t, m.WatchServiceEvents())
}

func TestModel_View(t *testing.T) {
	m, _, _ := newModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	out := ansi.Strip(m.View())
	assert.Contains(t, out, "Band - Alpha")
	assert.Contains(t, out, "03:00")
	assert.Contains(t, out, "Gamma")

	m = press(t, m, "?")
	out = ansi.Strip(m.View())
	assert.Contains(t, out, "Quit")
	assert.NotContains(t, out, "Gamma")
}

func TestRestoreQueue(t *testing.T) {
	svc := newService(t)
	store := state.NewMock()
	store.SetQueue(&state.QueueState{
		CurrentIndex: 1,
		LoopMode:     "playlist",
		Shuffle:      false,
		Volume:       0.5,
		Speed:        1.5,
		Pitch:        1,
		Position:     42 * time.Second,
		Tracks:       TracksToQueueTracks(testTracks()),
	})

	snap, err := RestoreQueue(svc, store)

	require.NoError(t, err)
	assert.Equal(t, 1, snap.Index)
	assert.Len(t, snap.Queue, 3)
	assert.Equal(t, sequencer.LoopPlaylist, snap.LoopMode)
	assert.InDelta(t, 0.5, snap.Volume, 1e-9)
	assert.InDelta(t, 1.5, snap.Speed, 1e-9)
	assert.Equal(t, 42*time.Second, snap.Position)
	assert.Equal(t, 3*time.Minute, snap.Queue[0].Duration)
}

func TestRestoreQueue_Empty(t *testing.T) {
	svc := newService(t)

	snap, err := RestoreQueue(svc, state.NewMock())

	require.NoError(t, err)
	assert.Empty(t, snap.Queue)
	assert.Equal(t, sequencer.LoopNone, snap.LoopMode)
}

func TestRestoreQueue_InvalidValues(t *testing.T) {
	svc := newService(t)
	store := state.NewMock()
	store.SetQueue(&state.QueueState{
		CurrentIndex: 7,
		LoopMode:     "bogus",
		Volume:       1,
		Tracks:       TracksToQueueTracks(testTracks()),
	})

	snap, err := RestoreQueue(svc, store)

	require.NoError(t, err)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, sequencer.LoopNone, snap.LoopMode)
	assert.InDelta(t, 1.0, snap.Speed, 1e-9, "unset speed keeps the default")
}

func TestQueueStateOf(t *testing.T) {
	tracks := testTracks()
	snap := playback.Snapshot{
		Queue:    tracks,
		Index:    2,
		LoopMode: sequencer.LoopTrack,
		Shuffle:  true,
		Volume:   0.7,
		Speed:    1,
		Pitch:    1,
		Position: time.Second,
	}

	s := QueueStateOf(snap)

	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, "track", s.LoopMode)
	assert.True(t, s.Shuffle)
	assert.Equal(t, time.Second, s.Position)
	require.Len(t, s.Tracks, 3)
	assert.Equal(t, QueueTracksToTracks(s.Tracks), tracks)
	assert.True(t, strings.HasSuffix(s.Tracks[0].Path, "a.mp3"))
}

func TestModel_NotifiesTrackChanges(t *testing.T) {
	m, _, _ := newModel(t)
	assert.Nil(t, m.NotifyCmd(testTracks()[0]), "no notifier configured")

	rec := &notify.Recorder{}
	m.notifier = rec
	m = update(t, m, NotifiedMsg{ID: 5})

	msg := m.NotifyCmd(testTracks()[1])()

	assert.Equal(t, NotifiedMsg{ID: 1}, msg)
	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Beta", sent[0].Title)
	assert.Equal(t, uint32(5), sent[0].ReplacesID)
}
