package playerbar

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/x/ansi"

	"github.com/llehouerou/segue/internal/icons"
	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
)

func snapshot() playback.Snapshot {
	queue := []playlist.Track{
		{Path: "/m/a.mp3", Title: "Alpha", Artist: "Band", Album: "Record", Duration: 3 * time.Minute},
		{Path: "/m/b.mp3", Title: "Beta", Artist: "Band"},
	}
	return playback.Snapshot{
		State:    playback.StatePlaying,
		Track:    &queue[0],
		Queue:    queue,
		Index:    0,
		Position: 90 * time.Second,
		Duration: 3 * time.Minute,
		Seekable: true,
		Volume:   0.8,
		Speed:    1,
		Pitch:    1,
		LoopMode: sequencer.LoopPlaylist,
		Shuffle:  true,
	}
}

func TestNewState(t *testing.T) {
	s := NewState(snapshot())

	if s.Title != "Alpha" || s.Artist != "Band" || s.Album != "Record" {
		t.Errorf("track fields = %q %q %q", s.Title, s.Artist, s.Album)
	}
	if s.Total != 2 || s.Index != 0 {
		t.Errorf("counter = %d/%d", s.Index, s.Total)
	}
	if got := s.ratio(); got != 0.5 {
		t.Errorf("ratio() = %v, want 0.5", got)
	}
}

func TestNewState_StoppedUsesQueueCursor(t *testing.T) {
	snap := snapshot()
	snap.State = playback.StateStopped
	snap.Track = nil
	snap.Duration = 0
	snap.Index = 1

	s := NewState(snap)
	if s.Title != "Beta" {
		t.Errorf("Title = %q, want Beta", s.Title)
	}
}

func TestRender(t *testing.T) {
	out := ansi.Strip(Render(NewState(snapshot()), progress.New(), 80))

	for _, want := range []string{icons.Play() + " Alpha", "Band · Record", "1/2", "01:30 / 03:00", "loop playlist", "shuffle", " 80%"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q in:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines != Height {
		t.Errorf("Render() has %d lines, want %d", lines, Height)
	}
}

func TestRender_NothingPlaying(t *testing.T) {
	out := ansi.Strip(Render(NewState(playback.Snapshot{Index: -1, Volume: 1, Speed: 1, Pitch: 1}), progress.New(), 60))

	if !strings.Contains(out, "Nothing playing") {
		t.Errorf("Render() = %q, want placeholder", out)
	}
	if strings.Contains(out, "shuffle") || strings.Contains(out, "loop") {
		t.Errorf("Render() shows inactive modes:\n%s", out)
	}
}

func TestState_Warnings(t *testing.T) {
	s := State{Buffering: true, Degraded: true}
	if got := s.warnings(); got != "buffering · decoder struggling" {
		t.Errorf("warnings() = %q", got)
	}
}
