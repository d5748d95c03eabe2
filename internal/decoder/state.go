// internal/decoder/state.go
package decoder

// State is the session state machine.
//
//	IDLE ──initialize──▶ INITIALIZED ──preload──▶ PREPARING ──(prepared)──▶ PREPARED
//	                          ▲                                                │
//	                          │                                          start │ started-as-next
//	                          │                                                ▼
//	                       STOPPED ◀──stop── PAUSED ◀──pause── STARTED ──(end)──▶ COMPLETED
//
// Valid transitions:
//   - IDLE → INITIALIZED (Initialize)
//   - INITIALIZED, STOPPED → PREPARING (Preload)
//   - PREPARING → PREPARED (engine prepared)
//   - PREPARED, PAUSED → STARTED (Start)
//   - PREPARED → STARTED (engine started the session as chained next)
//   - STARTED → PAUSED (Pause)
//   - STARTED, PAUSED, PREPARED → STOPPED (Stop)
//   - any but BUSY, END → IDLE (Recycle)
//   - any but BUSY, END → END (Destroy)
//   - engine error → ERROR, then IDLE or END
//
// BUSY is held only for the duration of an engine call.
type State int

const (
	StateIdle State = iota
	StateInitialized
	StatePreparing
	StatePrepared
	StateStarted
	StatePaused
	StateStopped
	StateCompleted
	StateError
	StateEnd
	StateBusy
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInitialized:
		return "INITIALIZED"
	case StatePreparing:
		return "PREPARING"
	case StatePrepared:
		return "PREPARED"
	case StateStarted:
		return "STARTED"
	case StatePaused:
		return "PAUSED"
	case StateStopped:
		return "STOPPED"
	case StateCompleted:
		return "COMPLETED"
	case StateError:
		return "ERROR"
	case StateEnd:
		return "END"
	case StateBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// NeedsPrepare returns true if the engine must be prepared before it can play.
func (s State) NeedsPrepare() bool {
	return s == StateInitialized || s == StateStopped
}

// Queryable returns true if the engine position can be read.
func (s State) Queryable() bool {
	return s == StatePrepared || s == StateStarted || s == StatePaused || s == StateStopped
}

