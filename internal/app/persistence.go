package app

import (
	"github.com/cockroachdb/errors"

	"github.com/llehouerou/segue/internal/errmsg"
	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
	"github.com/llehouerou/segue/internal/state"
)

// SaveQueueState persists the queue and player settings immediately.
func (m *Model) SaveQueueState() {
	if err := m.store.SaveQueue(m.queueState()); err != nil {
		m.log.Error().Err(err).Msg(errmsg.Format(errmsg.OpQueueSave, err))
	}
}

// SaveQueueStateLater schedules a debounced save of the queue.
func (m *Model) SaveQueueStateLater() {
	m.store.ScheduleQueueSave(m.queueState())
}

func (m *Model) queueState() state.QueueState {
	s := QueueStateOf(m.snap)
	if m.snap.State.IsActive() {
		s.Position = m.svc.Position()
	}
	return s
}

// QueueStateOf converts a player snapshot to its saved form.
func QueueStateOf(snap playback.Snapshot) state.QueueState {
	return state.QueueState{
		CurrentIndex: snap.Index,
		LoopMode:     snap.LoopMode.String(),
		Shuffle:      snap.Shuffle,
		Volume:       snap.Volume,
		Speed:        snap.Speed,
		Pitch:        snap.Pitch,
		Position:     snap.Position,
		Tracks:       TracksToQueueTracks(snap.Queue),
	}
}

// TracksToQueueTracks converts playlist tracks to state queue tracks.
func TracksToQueueTracks(tracks []playlist.Track) []state.QueueTrack {
	result := make([]state.QueueTrack, len(tracks))
	for i, t := range tracks {
		result[i] = state.QueueTrack{
			Path:        t.Path,
			Title:       t.Title,
			Artist:      t.Artist,
			Album:       t.Album,
			TrackNumber: t.TrackNumber,
			Duration:    t.Duration,
		}
	}
	return result
}

// QueueTracksToTracks converts saved queue tracks back to playlist tracks.
func QueueTracksToTracks(tracks []state.QueueTrack) []playlist.Track {
	result := make([]playlist.Track, len(tracks))
	for i, t := range tracks {
		result[i] = playlist.Track{
			Path:        t.Path,
			Title:       t.Title,
			Artist:      t.Artist,
			Album:       t.Album,
			TrackNumber: t.TrackNumber,
			Duration:    t.Duration,
		}
	}
	return result
}

// RestoreQueue loads the saved queue and settings into svc. The returned
// snapshot carries the saved position of the current track, which can only
// be applied once that track plays.
func RestoreQueue(svc playback.Service, store state.Interface) (playback.Snapshot, error) {
	saved, err := store.GetQueue()
	if err != nil {
		return playback.Snapshot{}, errors.Wrap(err, "load saved queue")
	}

	mode, err := sequencer.ParseLoopMode(saved.LoopMode)
	if err != nil {
		mode = sequencer.LoopNone
	}
	if err := svc.SetLoopMode(mode); err != nil {
		return playback.Snapshot{}, err
	}
	if err := svc.SetShuffle(saved.Shuffle); err != nil {
		return playback.Snapshot{}, err
	}
	if saved.Volume >= 0 {
		if err := svc.SetVolume(saved.Volume); err != nil {
			return playback.Snapshot{}, err
		}
	}
	if saved.Speed > 0 {
		if err := svc.SetSpeed(saved.Speed); err != nil {
			return playback.Snapshot{}, err
		}
	}
	if saved.Pitch > 0 {
		if err := svc.SetPitch(saved.Pitch); err != nil {
			return playback.Snapshot{}, err
		}
	}

	if len(saved.Tracks) > 0 {
		start := saved.CurrentIndex
		if start < 0 || start >= len(saved.Tracks) {
			start = 0
		}
		if err := svc.Replace(QueueTracksToTracks(saved.Tracks), start); err != nil {
			return playback.Snapshot{}, err
		}
	}

	snap := svc.Snapshot()
	snap.Position = saved.Position
	return snap, nil
}
