//go:build linux

// Package mpris exposes the player on the session bus so desktop media keys
// and applets can control it.
package mpris

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/sequencer"
)

const (
	minRate = 0.25
	maxRate = 4.0
)

// Adapter connects a playback.Service to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
}

// New creates and starts a new MPRIS adapter.
func New(service playback.Service, log zerolog.Logger) (*Adapter, error) {
	log = log.With().Str("component", "mpris").Logger()
	a := &Adapter{
		server: server.NewServer("segue", &rootAdapter{}, &playerAdapter{service: service}),
	}

	go func() {
		if err := a.server.Listen(); err != nil {
			log.Warn().Err(err).Msg("mpris server stopped")
		}
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil
}

func (r *rootAdapter) Quit() error {
	return nil // the terminal owns the lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Segue", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the loop
// and shuffle extensions.
type playerAdapter struct {
	service playback.Service
}

func (p *playerAdapter) Next() error {
	return p.service.Next()
}

func (p *playerAdapter) Previous() error {
	return p.service.Previous()
}

func (p *playerAdapter) Pause() error {
	return p.service.Pause()
}

func (p *playerAdapter) PlayPause() error {
	return p.service.Toggle()
}

// Stop pauses and rewinds; the player has no separate stopped-with-queue state.
func (p *playerAdapter) Stop() error {
	if err := p.service.Pause(); err != nil {
		return err
	}
	if err := p.service.SeekTo(0); err != nil && !errors.Is(err, playback.ErrNotSeekable) {
		return err
	}
	return nil
}

func (p *playerAdapter) Play() error {
	return p.service.Play()
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return p.service.Seek(time.Duration(offset) * time.Microsecond)
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.service.SeekTo(time.Duration(position) * time.Microsecond)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.service.Snapshot().State {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	case playback.StateStopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return p.service.Snapshot().Speed, nil
}

// SetRate changes the speed. A rate of zero pauses, as MPRIS requires.
func (p *playerAdapter) SetRate(rate float64) error {
	if rate <= 0 {
		return p.service.Pause()
	}
	return p.service.SetSpeed(rate)
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.service.Snapshot()
	track := snap.Track
	if track == nil {
		return types.Metadata{}, nil
	}

	length := snap.Duration
	if length == 0 {
		length = track.Duration
	}
	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(formatTrackID(track.Path)),
		Length:      types.Microseconds(length.Microseconds()),
		Title:       track.Title,
		Album:       track.Album,
		TrackNumber: track.TrackNumber,
	}
	if track.Artist != "" {
		meta.Artist = []string{track.Artist}
	}
	if artPath := FindAlbumArt(track.Path); artPath != "" {
		meta.ArtUrl = "file://" + artPath
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.service.Snapshot().Volume, nil
}

func (p *playerAdapter) SetVolume(volume float64) error {
	return p.service.SetVolume(volume)
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return minRate, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return maxRate, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	snap := p.service.Snapshot()
	if len(snap.Queue) == 0 {
		return false, nil
	}
	return snap.LoopMode == sequencer.LoopPlaylist || snap.Index < len(snap.Queue)-1, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	snap := p.service.Snapshot()
	return len(snap.Queue) > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return len(p.service.Snapshot().Queue) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.service.Snapshot().Seekable, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.service.Snapshot().LoopMode {
	case sequencer.LoopTrack:
		return types.LoopStatusTrack, nil
	case sequencer.LoopPlaylist:
		return types.LoopStatusPlaylist, nil
	case sequencer.LoopNone:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		return p.service.SetLoopMode(sequencer.LoopNone)
	case types.LoopStatusTrack:
		return p.service.SetLoopMode(sequencer.LoopTrack)
	case types.LoopStatusPlaylist:
		return p.service.SetLoopMode(sequencer.LoopPlaylist)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.service.Snapshot().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	return p.service.SetShuffle(shuffle)
}

func formatTrackID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
