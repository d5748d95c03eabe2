// Package keymap defines key bindings and action dispatch for the application.
package keymap

// Action represents a user-triggerable action.
type Action string

const (
	// Global actions
	ActionQuit        Action = "quit"
	ActionHelp        Action = "help"
	ActionToggleQueue Action = "toggle_queue"

	// Playback actions
	ActionPlayPause       Action = "play_pause"
	ActionNextTrack       Action = "next_track"
	ActionPrevTrack       Action = "prev_track"
	ActionFirstTrack      Action = "first_track"
	ActionLastTrack       Action = "last_track"
	ActionSeekForward     Action = "seek_forward"
	ActionSeekBack        Action = "seek_back"
	ActionSeekForwardLong Action = "seek_forward_long"
	ActionSeekBackLong    Action = "seek_back_long"
	ActionCycleLoop       Action = "cycle_loop"
	ActionToggleShuffle   Action = "toggle_shuffle"

	// Rate actions
	ActionVolumeUp   Action = "volume_up"
	ActionVolumeDown Action = "volume_down"
	ActionSpeedUp    Action = "speed_up"
	ActionSpeedDown  Action = "speed_down"
	ActionSpeedReset Action = "speed_reset"

	// Queue actions
	ActionMoveUp       Action = "move_up"
	ActionMoveDown     Action = "move_down"
	ActionSelect       Action = "select"         // enter - play selected
	ActionDelete       Action = "delete"         // d/delete - remove selected
	ActionMoveItemUp   Action = "move_item_up"   // shift+k
	ActionMoveItemDown Action = "move_item_down" // shift+j
)
