// Package state persists the play queue and the play history in SQLite.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "segue"
	dbFileName   = "segue.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *QueueState
}

// Open opens the database at path, or at the default location under the
// XDG data dir when path is empty.
func Open(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = getDBPath(); err != nil {
			return nil, errors.Wrap(err, "database path")
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create database dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}

	return &Manager{db: db}, nil
}

// Close flushes a scheduled queue save and closes the database.
func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending state
	if pending != nil {
		_ = saveQueue(m.db, *pending)
	}

	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// GetQueue returns the saved queue. An empty queue has CurrentIndex -1.
func (m *Manager) GetQueue() (*QueueState, error) {
	return getQueue(m.db)
}

// SaveQueue saves state now and drops any scheduled save.
func (m *Manager) SaveQueue(state QueueState) error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.pending = nil
	m.saveMu.Unlock()

	return saveQueue(m.db, state)
}

// ScheduleQueueSave saves state once no other state was scheduled for a
// short while. Close flushes a save still pending.
func (m *Manager) ScheduleQueueSave(state QueueState) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &state

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			_ = saveQueue(m.db, *pending)
		}
	})
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
