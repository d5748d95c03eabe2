package state

import (
	"database/sql"
	"time"
)

// Mock is a test double for Manager.
type Mock struct {
	queueState *QueueState
	saves      int
	plays      []PlayRecord
	closed     bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) DB() *sql.DB { return nil }

func (m *Mock) SaveQueue(state QueueState) error {
	m.queueState = &state
	m.saves++
	return nil
}

func (m *Mock) ScheduleQueueSave(state QueueState) {
	m.queueState = &state
}

func (m *Mock) GetQueue() (*QueueState, error) {
	if m.queueState == nil {
		return &QueueState{CurrentIndex: -1, LoopMode: "none", Volume: 1, Speed: 1, Pitch: 1}, nil
	}
	return m.queueState, nil
}

func (m *Mock) RecordPlay(path, title string, at time.Time) error {
	m.plays = append(m.plays, PlayRecord{ID: int64(len(m.plays) + 1), Path: path, Title: title, PlayedAt: at})
	return nil
}

func (m *Mock) History(limit int) ([]PlayRecord, error) {
	var out []PlayRecord
	for i := len(m.plays) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.plays[i])
	}
	return out, nil
}

func (m *Mock) Close() error {
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetQueue(state *QueueState) { m.queueState = state }

func (m *Mock) Saves() int { return m.saves }

func (m *Mock) IsClosed() bool { return m.closed }

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
