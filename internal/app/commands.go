package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/segue/internal/notify"
	"github.com/llehouerou/segue/internal/playlist"
)

// TickCmd returns a command that sends a TickMsg after one second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// WatchServiceEvents returns a command that waits for playback service events.
// It listens on all subscription channels and converts events to tea.Msg.
func (m Model) WatchServiceEvents() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return ServiceStateChangedMsg(e)
		case e := <-sub.TrackChanged:
			return ServiceTrackChangedMsg(e)
		case e := <-sub.PositionChanged:
			return ServicePositionMsg(e)
		case e := <-sub.QueueChanged:
			return ServiceQueueChangedMsg(e)
		case e := <-sub.ModeChanged:
			return ServiceModeChangedMsg(e)
		case e := <-sub.StreamChanged:
			return ServiceStreamChangedMsg(e)
		case e := <-sub.ParamsChanged:
			return ServiceParamsChangedMsg(e)
		case e := <-sub.LiveInfo:
			return ServiceLiveInfoMsg(e)
		case e := <-sub.Error:
			return ServiceErrorMsg(e)
		case <-sub.Done:
			return ServiceClosedMsg{}
		}
	}
}

// waitForChannel creates a command that waits for a value from a channel and converts it to a message.
// onResult receives the value and a boolean indicating if the channel is still open (false means channel closed).
func waitForChannel[T any](ch <-chan T, onResult func(T, bool) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		result, ok := <-ch
		return onResult(result, ok)
	}
}

// WatchStderr returns a command that waits for captured stderr output.
func (m Model) WatchStderr() tea.Cmd {
	return waitForChannel(m.stderr, func(line string, ok bool) tea.Msg {
		if !ok {
			return nil
		}
		return StderrMsg{Line: line}
	})
}

// NotifyCmd announces track on the desktop, replacing the previous
// notification.
func (m Model) NotifyCmd(track playlist.Track) tea.Cmd {
	n := m.notifier
	if n == nil {
		return nil
	}
	replaces := m.notifyID
	return func() tea.Msg {
		id, err := n.Notify(notify.NowPlaying(track, replaces))
		return NotifiedMsg{ID: id, Err: err}
	}
}
