package player

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// TrackInfo is the tag metadata of a file.
type TrackInfo struct {
	Path        string
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Year        int
	Track       int
	Genre       string
}

// ReadTrackInfo reads the tags of the file at path. A file without a title
// is named after its base name.
func ReadTrackInfo(path string) (*TrackInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	title := m.Title()
	if title == "" {
		title = filepath.Base(path)
	}
	track, _ := m.Track()
	albumArtist := m.AlbumArtist()
	if albumArtist == "" {
		albumArtist = m.Artist()
	}

	return &TrackInfo{
		Path:        path,
		Title:       title,
		Artist:      m.Artist(),
		AlbumArtist: albumArtist,
		Album:       m.Album(),
		Year:        m.Year(),
		Track:       track,
		Genre:       m.Genre(),
	}, nil
}

// ProbeDuration decodes the headers of the file at path to find its length.
func ProbeDuration(path string) (time.Duration, error) {
	streamer, format, err := open(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// IsMusicFile returns true if the engine can decode the file at path.
func IsMusicFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains([]string{extMP3, extFLAC, extWAV, extOGG}, ext)
}
