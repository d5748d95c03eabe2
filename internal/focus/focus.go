// Package focus arbitrates exclusive use of the audio output between
// players.
package focus

// Result is the answer to a focus request.
type Result int

const (
	Granted Result = iota
	Denied
	// Delayed means the focus will be granted later through a Gain change.
	Delayed
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Delayed:
		return "delayed"
	default:
		return "unknown"
	}
}

// Change is a focus change notification.
type Change int

const (
	Gain Change = iota
	// Loss is permanent: the holder should stop and forget it wanted to play.
	Loss
	// LossTransient expects the holder to pause and resume on Gain.
	LossTransient
	// LossTransientCanDuck allows the holder to keep playing at a lower volume.
	LossTransientCanDuck
)

// String returns the change name.
func (c Change) String() string {
	switch c {
	case Gain:
		return "gain"
	case Loss:
		return "loss"
	case LossTransient:
		return "loss-transient"
	case LossTransientCanDuck:
		return "loss-transient-can-duck"
	default:
		return "unknown"
	}
}

// Handler receives focus changes. It may be called from any goroutine.
type Handler interface {
	OnFocusChange(c Change)
}

// Arbiter grants and revokes focus.
type Arbiter interface {
	Request(h Handler) Result
	Abandon(h Handler)
}
