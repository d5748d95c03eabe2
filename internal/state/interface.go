package state

import (
	"database/sql"
	"time"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	DB() *sql.DB
	SaveQueue(state QueueState) error
	ScheduleQueueSave(state QueueState)
	GetQueue() (*QueueState, error)
	RecordPlay(path, title string, at time.Time) error
	History(limit int) ([]PlayRecord, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
