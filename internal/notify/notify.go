// Package notify provides desktop notifications via D-Bus.
package notify

import (
	"strings"
	"sync"

	"github.com/llehouerou/segue/internal/playlist"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// nowPlayingTimeout is how long a track notification stays visible.
const nowPlayingTimeout = 4000

// NowPlaying builds the notification shown when a track starts. It replaces
// the notification with id replaces, so skipping through tracks keeps a
// single bubble.
func NowPlaying(t playlist.Track, replaces uint32) Notification {
	title := t.Title
	if title == "" {
		title = t.Path
	}
	var parts []string
	if t.Artist != "" {
		parts = append(parts, t.Artist)
	}
	if t.Album != "" {
		parts = append(parts, t.Album)
	}
	return Notification{
		Title:      title,
		Body:       strings.Join(parts, " - "),
		Icon:       FindAlbumArtPath(t.Path),
		Timeout:    nowPlayingTimeout,
		ReplacesID: replaces,
		Urgency:    UrgencyLow,
	}
}

// Recorder is a Notifier that keeps what it is sent.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(n Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return uint32(len(r.sent)), nil
}

func (r *Recorder) Close(uint32) error { return nil }

// Sent returns a copy of the notifications sent so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
