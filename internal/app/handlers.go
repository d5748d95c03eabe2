package app

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/llehouerou/segue/internal/errmsg"
	"github.com/llehouerou/segue/internal/keymap"
	"github.com/llehouerou/segue/internal/playback"
)

const (
	volumeStep = 0.05
	speedStep  = 0.25
	longSeek   = 3
)

// handleKey dispatches a key press to its action.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keys.Resolve(msg.String())
	if action == "" {
		return m, nil
	}

	switch action {
	case keymap.ActionQuit:
		m.SaveQueueState()
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
		return m, nil
	case keymap.ActionToggleQueue:
		m.showQueue = !m.showQueue
		return m, nil
	}

	if m.handlePlaybackKey(action) || (m.showQueue && m.handleQueueKey(action)) {
		m.refresh()
	}
	return m, nil
}

// handlePlaybackKey runs a transport or rate action. It returns false when
// the action is not one.
func (m *Model) handlePlaybackKey(action keymap.Action) bool {
	var err error
	op := errmsg.OpPlaybackPlay
	switch action {
	case keymap.ActionPlayPause:
		err = m.svc.Toggle()
	case keymap.ActionNextTrack:
		op, err = errmsg.OpPlaybackSkip, m.svc.Next()
	case keymap.ActionPrevTrack:
		op, err = errmsg.OpPlaybackSkip, m.svc.Previous()
	case keymap.ActionFirstTrack:
		op, err = errmsg.OpPlaybackSkip, m.jumpTo(0)
	case keymap.ActionLastTrack:
		op, err = errmsg.OpPlaybackSkip, m.jumpTo(len(m.snap.Queue)-1)
	case keymap.ActionSeekForward:
		op, err = errmsg.OpPlaybackSeek, m.svc.Seek(m.seekStep)
	case keymap.ActionSeekBack:
		op, err = errmsg.OpPlaybackSeek, m.svc.Seek(-m.seekStep)
	case keymap.ActionSeekForwardLong:
		op, err = errmsg.OpPlaybackSeek, m.svc.Seek(longSeek*m.seekStep)
	case keymap.ActionSeekBackLong:
		op, err = errmsg.OpPlaybackSeek, m.svc.Seek(-longSeek*m.seekStep)
	case keymap.ActionCycleLoop:
		_, err = m.svc.CycleLoopMode()
	case keymap.ActionToggleShuffle:
		_, err = m.svc.ToggleShuffle()
	case keymap.ActionVolumeUp:
		op, err = errmsg.OpPlaybackRate, m.svc.SetVolume(m.snap.Volume+volumeStep)
	case keymap.ActionVolumeDown:
		op, err = errmsg.OpPlaybackRate, m.svc.SetVolume(m.snap.Volume-volumeStep)
	case keymap.ActionSpeedUp:
		op, err = errmsg.OpPlaybackRate, m.svc.SetSpeed(m.snap.Speed+speedStep)
	case keymap.ActionSpeedDown:
		op, err = errmsg.OpPlaybackRate, m.svc.SetSpeed(m.snap.Speed-speedStep)
	case keymap.ActionSpeedReset:
		op, err = errmsg.OpPlaybackRate, m.svc.SetSpeed(1)
	default:
		return false
	}
	m.report(op, err)
	return true
}

// handleQueueKey runs a queue panel action. It returns false when the
// action is not one.
func (m *Model) handleQueueKey(action keymap.Action) bool {
	var err error
	n := len(m.snap.Queue)
	switch action {
	case keymap.ActionMoveUp:
		m.cursor--
	case keymap.ActionMoveDown:
		m.cursor++
	case keymap.ActionSelect:
		err = m.jumpTo(m.cursor)
	case keymap.ActionDelete:
		if n > 0 {
			err = m.svc.Remove(m.cursor)
		}
	case keymap.ActionMoveItemUp:
		if m.cursor > 0 {
			if err = m.svc.Move(m.cursor, m.cursor-1); err == nil {
				m.cursor--
			}
		}
	case keymap.ActionMoveItemDown:
		if m.cursor < n-1 {
			if err = m.svc.Move(m.cursor, m.cursor+1); err == nil {
				m.cursor++
			}
		}
	default:
		return false
	}
	m.report(errmsg.OpQueueEdit, err)
	return true
}

func (m *Model) jumpTo(index int) error {
	if index < 0 {
		return nil
	}
	m.resume = 0
	return m.svc.JumpTo(index)
}

// report shows err in the status line.
func (m *Model) report(op errmsg.Op, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, playback.ErrClosed) {
		m.log.Debug().Err(err).Msg("action on closed player")
		return
	}
	m.log.Warn().Err(err).Str("op", string(op)).Msg("action failed")
	m.status = errmsg.Format(op, err)
}

// handlePlaybackMsg routes playback-related messages.
func (m Model) handlePlaybackMsg(msg PlaybackMessage) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if m.snap.State == playback.StatePlaying {
			m.snap.Position = m.svc.Position()
		}
		return m, TickCmd()
	case ServiceClosedMsg:
		m.sub = nil
		return m, nil
	case ServiceStateChangedMsg:
		m.handleStateChanged(msg)
	case ServiceTrackChangedMsg:
		return m, tea.Batch(m.WatchServiceEvents(), m.handleTrackChanged(msg))
	case ServicePositionMsg:
		m.snap.Position = msg.Position
	case ServiceQueueChangedMsg:
		m.refresh()
		m.SaveQueueStateLater()
	case ServiceModeChangedMsg:
		m.snap.LoopMode = msg.LoopMode
		m.snap.Shuffle = msg.Shuffle
		m.SaveQueueStateLater()
	case ServiceParamsChangedMsg:
		m.snap.Volume = msg.Volume
		m.snap.Speed = msg.Speed
		m.snap.Pitch = msg.Pitch
		m.SaveQueueStateLater()
	case ServiceStreamChangedMsg:
		m.snap.Duration = msg.Duration
		m.snap.Seekable = msg.Seekable
		m.snap.BufferProgress = msg.BufferProgress
		m.snap.BufferingSlow = msg.BufferingSlow
		m.snap.DecreasedPerformance = msg.DecreasedPerformance
	case ServiceLiveInfoMsg:
		m.snap.LiveInfo = msg.Text
	case ServiceErrorMsg:
		m.handleServiceError(msg)
	}
	return m, m.WatchServiceEvents()
}

// handleStateChanged applies a pending resume position once playback of the
// restored track has started.
func (m *Model) handleStateChanged(msg ServiceStateChangedMsg) {
	m.refresh()
	if msg.Current != playback.StatePlaying || m.resume <= 0 {
		return
	}
	pos := m.resume
	m.resume = 0
	if err := m.svc.SeekTo(pos); err != nil {
		m.log.Debug().Err(err).Dur("position", pos).Msg("resume position not restored")
	}
}

func (m *Model) handleTrackChanged(msg ServiceTrackChangedMsg) tea.Cmd {
	if msg.Previous != nil {
		m.resume = 0
	}
	m.refresh()
	if msg.Current == nil {
		return nil
	}
	m.cursor = msg.Index
	m.clampCursor()
	m.status = ""
	if err := m.store.RecordPlay(msg.Current.Path, msg.Current.Label(), time.Now()); err != nil {
		m.log.Warn().Err(err).Str("path", msg.Current.Path).Msg(errmsg.Format(errmsg.OpHistoryRecord, err))
	}
	m.SaveQueueStateLater()
	return m.NotifyCmd(*msg.Current)
}

func (m *Model) handleServiceError(msg ServiceErrorMsg) {
	op := errmsg.OpPlaybackPlay
	if msg.Operation == "seek" {
		op = errmsg.OpPlaybackSeek
	}
	var name string
	if msg.Path != "" {
		name = filepath.Base(msg.Path)
	}
	m.status = errmsg.FormatWith(op, name, msg.Err)
}
