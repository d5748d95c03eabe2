package keymap

// Binding describes a single key binding.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "queue"
}

// Bindings contains all key bindings for help generation.
var Bindings = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionHelp, []string{"?"}, "Show help", "global"},
	{ActionToggleQueue, []string{"p"}, "Toggle queue panel", "global"},

	// Playback
	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionNextTrack, []string{"pgdown", "n"}, "Next track", "playback"},
	{ActionPrevTrack, []string{"pgup", "b"}, "Previous track", "playback"},
	{ActionFirstTrack, []string{"home"}, "First track", "playback"},
	{ActionLastTrack, []string{"end"}, "Last track", "playback"},
	{ActionSeekBack, []string{"left", "shift+left"}, "Seek back one step", "playback"},
	{ActionSeekForward, []string{"right", "shift+right"}, "Seek forward one step", "playback"},
	{ActionSeekBackLong, []string{"ctrl+left"}, "Seek back three steps", "playback"},
	{ActionSeekForwardLong, []string{"ctrl+right"}, "Seek forward three steps", "playback"},
	{ActionCycleLoop, []string{"R"}, "Cycle loop mode", "playback"},
	{ActionToggleShuffle, []string{"S"}, "Toggle shuffle", "playback"},
	{ActionVolumeUp, []string{"+", "="}, "Volume up", "playback"},
	{ActionVolumeDown, []string{"-"}, "Volume down", "playback"},
	{ActionSpeedUp, []string{"]"}, "Faster", "playback"},
	{ActionSpeedDown, []string{"["}, "Slower", "playback"},
	{ActionSpeedReset, []string{"\\"}, "Normal speed", "playback"},

	// Queue panel
	{ActionMoveUp, []string{"k", "up"}, "Move up", "queue"},
	{ActionMoveDown, []string{"j", "down"}, "Move down", "queue"},
	{ActionSelect, []string{"enter"}, "Play track", "queue"},
	{ActionDelete, []string{"d", "delete"}, "Remove track", "queue"},
	{ActionMoveItemUp, []string{"K", "shift+up"}, "Move track up", "queue"},
	{ActionMoveItemDown, []string{"J", "shift+down"}, "Move track down", "queue"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range Bindings {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}
