package playlist

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/segue/internal/player"
)

// FromPath creates a playlist track from a file path by reading its metadata.
func FromPath(path string) Track {
	info, err := player.ReadTrackInfo(path)
	if err != nil {
		// Fallback to basic info from filename
		return Track{
			Path:  path,
			Title: filepath.Base(path),
		}
	}

	return Track{
		Path:        path,
		Title:       info.Title,
		Artist:      info.Artist,
		Album:       info.Album,
		TrackNumber: info.Track,
	}
}

// WithDuration reads the duration for a track (expensive - decodes audio headers).
func WithDuration(t Track) Track {
	d, err := player.ProbeDuration(t.Path)
	if err != nil {
		return t
	}
	t.Duration = d
	return t
}

// CollectPaths expands paths into playable tracks. Directories are walked
// recursively and their music files sorted by path; files are kept in the
// order given. Non-music files are skipped.
func CollectPaths(paths []string) ([]Track, error) {
	var tracks []Track
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "collect %s", path)
		}
		if !fi.IsDir() {
			if player.IsMusicFile(path) {
				tracks = append(tracks, FromPath(path))
			}
			continue
		}
		dir, err := collectDir(path)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, dir...)
	}
	return tracks, nil
}

func collectDir(root string) ([]Track, error) {
	var tracks []Track
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip directories/files with errors, continue walking
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() {
			return nil
		}
		if !player.IsMusicFile(path) {
			return nil
		}
		tracks = append(tracks, FromPath(path))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}

	// Sort by path for consistent ordering
	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].Path < tracks[j].Path
	})

	return tracks, nil
}
