package player

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/segue/internal/decoder"
)

func TestIsMusicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"song.MP3", true},
		{"song.flac", true},
		{"song.wav", true},
		{"song.ogg", true},
		{"song.OGG", true},
		{"song.opus", false},
		{"song.m4a", false},
		{"song.txt", false},
		{"song", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsMusicFile(tt.path); got != tt.want {
				t.Errorf("IsMusicFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestProbeDuration(t *testing.T) {
	path := writeWAV(t, "a.wav", 12000, 0.1)

	d, err := ProbeDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)
}

func TestProbeDuration_Unsupported(t *testing.T) {
	_, err := ProbeDuration(filepath.Join(t.TempDir(), "a.m4a"))
	assert.Equal(t, decoder.ErrUnsupported, decoder.CodeOf(err))
}

func TestReadTrackInfo_MissingFile(t *testing.T) {
	_, err := ReadTrackInfo(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
