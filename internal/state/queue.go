package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/segue/internal/db"
)

// QueueTrack represents a track in the saved queue.
type QueueTrack struct {
	Path        string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
}

// QueueState represents the saved queue and player settings.
type QueueState struct {
	CurrentIndex int
	LoopMode     string
	Shuffle      bool
	Volume       float64
	Speed        float64
	Pitch        float64
	Position     time.Duration
	Tracks       []QueueTrack
}

func getQueue(db *sql.DB) (*QueueState, error) {
	// Get queue state
	var s QueueState
	var positionMs int64
	row := db.QueryRow(`
		SELECT current_index, loop_mode, shuffle, volume, speed, pitch, position_ms
		FROM queue_state WHERE id = 1
	`)
	err := row.Scan(&s.CurrentIndex, &s.LoopMode, &s.Shuffle, &s.Volume, &s.Speed, &s.Pitch, &positionMs)
	if errors.Is(err, sql.ErrNoRows) {
		return &QueueState{CurrentIndex: -1, LoopMode: "none", Volume: 1, Speed: 1, Pitch: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	s.Position = time.Duration(positionMs) * time.Millisecond

	// Get tracks
	rows, err := db.Query(`
		SELECT path, title, artist, album, track_number, duration_ms
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t QueueTrack
		var artist, album sql.NullString
		var trackNumber, durationMs sql.NullInt64

		err := rows.Scan(&t.Path, &t.Title, &artist, &album, &trackNumber, &durationMs)
		if err != nil {
			return nil, err
		}

		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.TrackNumber = int(dbutil.NullInt64Value(trackNumber))
		t.Duration = dbutil.NullMillis(durationMs)
		s.Tracks = append(s.Tracks, t)
	}

	return &s, rows.Err()
}

func saveQueue(sqlDB *sql.DB, state QueueState) error {
	return dbutil.WithTx(sqlDB, func(tx *sql.Tx) error {
		// Clear existing queue
		_, err := tx.Exec(`DELETE FROM queue_tracks`)
		if err != nil {
			return err
		}

		// Save queue state
		_, err = tx.Exec(`
			INSERT INTO queue_state (id, current_index, loop_mode, shuffle, volume, speed, pitch, position_ms)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				loop_mode = excluded.loop_mode,
				shuffle = excluded.shuffle,
				volume = excluded.volume,
				speed = excluded.speed,
				pitch = excluded.pitch,
				position_ms = excluded.position_ms
		`, state.CurrentIndex, state.LoopMode, state.Shuffle,
			state.Volume, state.Speed, state.Pitch, state.Position.Milliseconds())
		if err != nil {
			return err
		}

		// Insert tracks
		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, path, title, artist, album, track_number, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range state.Tracks {
			var duration any
			if t.Duration > 0 {
				duration = t.Duration.Milliseconds()
			}
			_, err = stmt.Exec(i, t.Path, t.Title, t.Artist, t.Album, t.TrackNumber, duration)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
