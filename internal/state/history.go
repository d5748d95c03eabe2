package state

import (
	"time"
)

// PlayRecord is one entry of the play history.
type PlayRecord struct {
	ID       int64
	Path     string
	Title    string
	PlayedAt time.Time
}

// RecordPlay appends a track that started playing at the given time.
func (m *Manager) RecordPlay(path, title string, at time.Time) error {
	_, err := m.db.Exec(`
		INSERT INTO play_history (path, title, played_at) VALUES (?, ?, ?)
	`, path, title, at.Unix())
	return err
}

// History returns up to limit plays, most recent first. A limit of zero or
// less returns everything.
func (m *Manager) History(limit int) ([]PlayRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := m.db.Query(`
		SELECT id, path, title, played_at
		FROM play_history
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PlayRecord
	for rows.Next() {
		var r PlayRecord
		var playedAt int64
		if err := rows.Scan(&r.ID, &r.Path, &r.Title, &playedAt); err != nil {
			return nil, err
		}
		r.PlayedAt = time.Unix(playedAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

// DeleteHistoryBefore removes plays older than cutoff.
func (m *Manager) DeleteHistoryBefore(cutoff time.Time) error {
	_, err := m.db.Exec(`DELETE FROM play_history WHERE played_at < ?`, cutoff.Unix())
	return err
}
