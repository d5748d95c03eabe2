// Package icons selects the glyphs used for player status and modes.
package icons

// Style represents the icon style to use.
type Style string

const (
	StyleNerd    Style = "nerd"
	StyleUnicode Style = "unicode"
	StyleNone    Style = "none"
)

// Icons holds the icon characters for the current style.
type Icons struct {
	Play         string
	Pause        string
	Stop         string
	Waiting      string
	Shuffle      string
	LoopPlaylist string
	LoopTrack    string
	Volume       string
	VolumeMute   string
}

var (
	nerdIcons = Icons{
		Play:         "\uf04b", // nf-fa-play
		Pause:        "\uf04c", // nf-fa-pause
		Stop:         "\uf04d", // nf-fa-stop
		Waiting:      "󰔟",      // nf-md-timer_sand
		Shuffle:      "󰒟",      // nf-md-shuffle
		LoopPlaylist: "󰑖",      // nf-md-repeat
		LoopTrack:    "󰑘",      // nf-md-repeat_once
		Volume:       "󰕾",      // nf-md-volume_high
		VolumeMute:   "󰝟",      // nf-md-volume_mute
	}

	unicodeIcons = Icons{
		Play:         "▶",
		Pause:        "⏸",
		Stop:         "■",
		Waiting:      "…",
		Shuffle:      "🔀",
		LoopPlaylist: "🔁",
		LoopTrack:    "🔂",
		Volume:       "🔊",
		VolumeMute:   "🔇",
	}

	noneIcons = Icons{
		Play:         ">",
		Pause:        "||",
		Stop:         "[]",
		Waiting:      "..",
		Shuffle:      "[S]",
		LoopPlaylist: "[R]",
		LoopTrack:    "[1]",
		Volume:       "vol",
		VolumeMute:   "mute",
	}

	// current holds the active icon set
	current = noneIcons
)

// Init initializes the icons based on the style.
// Call this once at startup with the config value.
func Init(style string) {
	switch Style(style) {
	case StyleNerd:
		current = nerdIcons
	case StyleUnicode:
		current = unicodeIcons
	case StyleNone:
		current = noneIcons
	default:
		current = noneIcons
	}
}

// Valid reports whether style names a known icon style.
func Valid(style string) bool {
	switch Style(style) {
	case StyleNerd, StyleUnicode, StyleNone:
		return true
	}
	return false
}

// Play returns the playing indicator.
func Play() string { return current.Play }

// Pause returns the paused indicator.
func Pause() string { return current.Pause }

// Stop returns the stopped indicator.
func Stop() string { return current.Stop }

// Waiting is shown while playback is requested but not yet audible.
func Waiting() string { return current.Waiting }

// Shuffle returns the shuffle icon.
func Shuffle() string { return current.Shuffle }

// LoopPlaylist returns the repeat-all icon.
func LoopPlaylist() string { return current.LoopPlaylist }

// LoopTrack returns the repeat-one icon.
func LoopTrack() string { return current.LoopTrack }

// Volume returns the volume icon, or the muted one at zero volume.
func Volume(level float64) string {
	if level <= 0 {
		return current.VolumeMute
	}
	return current.Volume
}
