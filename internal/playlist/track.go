package playlist

import (
	"fmt"
	"time"
)

// Track represents a single track in a playlist.
type Track struct {
	Path        string // file path for playback
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
}

// Locator returns the path the decoder opens.
func (t Track) Locator() string {
	return t.Path
}

// Label returns "Artist - Title", or just the title when the artist is unknown.
func (t Track) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// FormatDuration formats a duration as MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
