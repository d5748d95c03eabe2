package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/segue/internal/icons"
	"github.com/llehouerou/segue/internal/keymap"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/ui/playerbar"
	"github.com/llehouerou/segue/internal/ui/render"
	"github.com/llehouerou/segue/internal/ui/styles"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// View renders the whole screen.
func (m Model) View() string {
	width, height := m.size()
	st := styles.T().S()

	header := render.Row(styles.T().Gradient("segue"), st.Subtle.Render("? help"), width)
	bar := playerbar.Render(playerbar.NewState(m.snap), m.progress, width)
	status := m.statusLine(width)

	sections := []string{header}
	body := height - 1 - playerbar.Height - 1
	switch {
	case m.showHelp:
		sections = append(sections, m.helpView(width, body))
	case m.showQueue:
		sections = append(sections, m.queueView(width, body))
	}
	sections = append(sections, bar, status)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}

func (m Model) statusLine(width int) string {
	if m.status == "" {
		return ""
	}
	return styles.T().S().Error.Render(render.Truncate(render.Sanitize(m.status), width))
}

// queueView renders the queue inside a panel of the given outer height.
func (m Model) queueView(width, height int) string {
	st := styles.T().S()
	inner := max(height-2, 1)
	rowWidth := max(width-4, 10)

	queue := m.snap.Queue
	var lines []string
	if len(queue) == 0 {
		lines = append(lines, st.Muted.Render("Queue is empty"))
	}

	// Keep the cursor visible.
	offset := 0
	if m.cursor >= inner {
		offset = m.cursor - inner + 1
	}
	end := min(offset+inner, len(queue))
	for i := offset; i < end; i++ {
		lines = append(lines, m.queueRow(i, queue[i], rowWidth))
	}
	for len(lines) < inner {
		lines = append(lines, "")
	}

	return st.Panel.Padding(0, 1).Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) queueRow(i int, t playlist.Track, width int) string {
	st := styles.T().S()
	marker := "  "
	if i == m.snap.Index {
		marker = render.PadPlain(icons.Play(), 2)
	}
	right := ""
	if t.Duration > 0 {
		right = playlist.FormatDuration(t.Duration)
	}
	left := fmt.Sprintf("%s%2d. %s", marker, i+1, render.Sanitize(t.Label()))
	row := render.Pad(render.Row(left, right, width), width)

	switch {
	case i == m.cursor:
		return st.Cursor.Render(row)
	case i == m.snap.Index:
		return st.Playing.Render(row)
	default:
		return st.Base.Render(row)
	}
}

// helpView lists the bindings of every context.
func (m Model) helpView(width, height int) string {
	st := styles.T().S()
	var lines []string
	for _, context := range []string{"global", "playback", "queue"} {
		lines = append(lines, st.Title.Render(strings.ToUpper(context[:1])+context[1:]))
		for _, b := range keymap.ByContext(context) {
			keys := render.PadPlain(strings.Join(b.Keys, ", "), 20)
			lines = append(lines, "  "+st.HelpKey.Render(keys)+st.Muted.Render(b.Description))
		}
	}
	inner := max(height-2, 1)
	if len(lines) > inner {
		lines = lines[:inner]
	}
	for i := range lines {
		lines[i] = render.Truncate(lines[i], width-4)
	}
	return st.Panel.Padding(0, 1).Width(width - 2).Render(strings.Join(lines, "\n"))
}
