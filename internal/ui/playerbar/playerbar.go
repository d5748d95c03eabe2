// Package playerbar renders the now-playing bar.
package playerbar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/llehouerou/segue/internal/icons"
	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
	"github.com/llehouerou/segue/internal/ui/render"
	"github.com/llehouerou/segue/internal/ui/styles"
)

// Height is the rendered height including the border.
const Height = 5

// State holds everything needed to render the player bar.
type State struct {
	Status      playback.State
	Title       string
	Artist      string
	Album       string
	Index       int
	Total       int
	Position    time.Duration
	Duration    time.Duration
	Seekable    bool
	Buffering   bool
	Degraded    bool
	LiveInfo    string
	Volume      float64
	Speed       float64
	Pitch       float64
	LoopMode    sequencer.LoopMode
	Shuffle     bool
	UserPlaying bool
}

// NewState builds a State from a player snapshot.
func NewState(snap playback.Snapshot) State {
	s := State{
		Status:      snap.State,
		Index:       snap.Index,
		Total:       len(snap.Queue),
		Position:    snap.Position,
		Duration:    snap.Duration,
		Seekable:    snap.Seekable,
		Buffering:   snap.BufferingSlow,
		Degraded:    snap.DecreasedPerformance,
		LiveInfo:    snap.LiveInfo,
		Volume:      snap.Volume,
		Speed:       snap.Speed,
		Pitch:       snap.Pitch,
		LoopMode:    snap.LoopMode,
		Shuffle:     snap.Shuffle,
		UserPlaying: snap.UserPlaying,
	}
	t := snap.Track
	if t == nil && snap.Index >= 0 && snap.Index < len(snap.Queue) {
		t = &snap.Queue[snap.Index]
	}
	if t != nil {
		s.Title = t.Title
		s.Artist = t.Artist
		s.Album = t.Album
		if s.Duration == 0 {
			s.Duration = t.Duration
		}
	}
	return s
}

// Render returns the player bar for the given width.
func Render(s State, bar progress.Model, width int) string {
	st := styles.T().S()
	inner := max(width-4, 10)

	lines := []string{
		render.Row(s.heading(), st.Muted.Render(s.counter()), inner),
		s.progressLine(bar, inner),
		render.Row(s.indicators(), st.Warning.Render(s.warnings()), inner),
	}
	return st.Panel.Padding(0, 1).Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (s State) heading() string {
	st := styles.T().S()
	symbol := icons.Stop()
	switch {
	case s.Status == playback.StatePlaying:
		symbol = icons.Play()
	case s.Status == playback.StatePaused:
		symbol = icons.Pause()
	case s.UserPlaying:
		symbol = icons.Waiting()
	}

	if s.Title == "" {
		return symbol + " " + st.Muted.Render("Nothing playing")
	}
	var parts []string
	if s.Artist != "" {
		parts = append(parts, s.Artist)
	}
	if s.Album != "" {
		parts = append(parts, s.Album)
	}
	if s.LiveInfo != "" {
		parts = append(parts, s.LiveInfo)
	}
	out := symbol + " " + st.Title.Render(render.Sanitize(s.Title))
	if len(parts) > 0 {
		out += "   " + st.Muted.Render(render.Sanitize(strings.Join(parts, " · ")))
	}
	return out
}

func (s State) counter() string {
	if s.Total == 0 || s.Index < 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", s.Index+1, s.Total)
}

func (s State) progressLine(bar progress.Model, width int) string {
	times := playlist.FormatDuration(s.Position) + " / " + playlist.FormatDuration(s.Duration)
	if !s.Seekable && s.Duration == 0 {
		times = playlist.FormatDuration(s.Position) + " / live"
	}
	bar.Width = max(width-len(times)-2, 5)
	return bar.ViewAs(s.ratio()) + "  " + styles.T().S().Muted.Render(times)
}

func (s State) ratio() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(max(float64(s.Position)/float64(s.Duration), 0), 1)
}

func (s State) indicators() string {
	st := styles.T().S()
	var parts []string
	switch s.LoopMode {
	case sequencer.LoopPlaylist:
		parts = append(parts, st.Indicator.Render(icons.LoopPlaylist()+" loop playlist"))
	case sequencer.LoopTrack:
		parts = append(parts, st.Indicator.Render(icons.LoopTrack()+" loop track"))
	case sequencer.LoopNone:
	}
	if s.Shuffle {
		parts = append(parts, st.Indicator.Render(icons.Shuffle()+" shuffle"))
	}
	parts = append(parts, st.Muted.Render(fmt.Sprintf("%s %3d%%", icons.Volume(s.Volume), int(s.Volume*100+0.5))))
	if s.Speed != 1 {
		parts = append(parts, st.Indicator.Render(fmt.Sprintf("%gx", s.Speed)))
	}
	if s.Pitch != 1 {
		parts = append(parts, st.Indicator.Render(fmt.Sprintf("pitch %g", s.Pitch)))
	}
	return strings.Join(parts, "  ")
}

func (s State) warnings() string {
	var parts []string
	if s.Buffering {
		parts = append(parts, "buffering")
	}
	if s.Degraded {
		parts = append(parts, "decoder struggling")
	}
	return strings.Join(parts, " · ")
}
