package app

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/keymap"
	"github.com/llehouerou/segue/internal/notify"
	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/state"
)

// Options configures the front-end.
type Options struct {
	// SeekStep is the relative seek distance. Long seeks use three steps.
	SeekStep time.Duration
	// Stderr delivers lines captured from stderr. Nil disables it.
	Stderr <-chan string
	// Resume is a position to restore once the first track starts.
	Resume time.Duration
	// Notifier announces track changes on the desktop. Nil disables it.
	Notifier notify.Notifier
}

// Model is the bubbletea model of the player.
type Model struct {
	svc      playback.Service
	sub      *playback.Subscription
	store    state.Interface
	keys     *keymap.Resolver
	log      zerolog.Logger
	stderr   <-chan string
	notifier notify.Notifier
	notifyID uint32

	seekStep time.Duration
	resume   time.Duration

	snap      playback.Snapshot
	cursor    int
	showQueue bool
	showHelp  bool
	status    string

	width    int
	height   int
	progress progress.Model
}

// New creates the model and subscribes to svc.
func New(svc playback.Service, store state.Interface, opts Options, log zerolog.Logger) Model {
	step := opts.SeekStep
	if step <= 0 {
		step = 5 * time.Second
	}
	m := Model{
		svc:       svc,
		sub:       svc.Subscribe(),
		store:     store,
		keys:      keymap.NewResolver(keymap.Bindings),
		log:       log.With().Str("component", "app").Logger(),
		stderr:    opts.Stderr,
		notifier:  opts.Notifier,
		seekStep:  step,
		resume:    opts.Resume,
		showQueue: true,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.refresh()
	m.cursor = max(m.snap.Index, 0)
	return m
}

// Init starts the event watchers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.WatchServiceEvents(), m.WatchStderr(), TickCmd())
}

// Update routes a message to its handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(PlaybackMessage); ok {
		return m.handlePlaybackMsg(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(msg.Width-4, 10)
		return m, nil
	case StderrMsg:
		m.status = msg.Line
		return m, m.WatchStderr()
	case NotifiedMsg:
		if msg.Err != nil {
			m.log.Debug().Err(msg.Err).Msg("notification failed")
			return m, nil
		}
		m.notifyID = msg.ID
		return m, nil
	}
	return m, nil
}

// refresh reloads the snapshot from the service.
func (m *Model) refresh() {
	m.snap = m.svc.Snapshot()
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if n := len(m.snap.Queue); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
