//go:build linux

package mpris

import (
	"os"
	"path/filepath"
	"strings"
)

// coverNames lists common album art base names in priority order.
var coverNames = []string{"cover", "folder", "album", "front"}

var coverExts = []string{".jpg", ".jpeg", ".png"}

// FindAlbumArt looks for album art in the same directory as the track,
// ignoring case. It returns an empty string when there is none.
func FindAlbumArt(trackPath string) string {
	dir := filepath.Dir(trackPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	found := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			found[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, name := range coverNames {
		for _, ext := range coverExts {
			if real, ok := found[name+ext]; ok {
				return filepath.Join(dir, real)
			}
		}
	}
	return ""
}
