package focus

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

var _ Arbiter = (*Broker)(nil)

type holder struct {
	h         Handler
	transient bool
	// suspended is set while a transient holder above has the focus.
	suspended bool
}

type notice struct {
	h Handler
	c Change
}

// Broker is an in-process Arbiter. Holders form a stack: the top one has the
// focus. A plain request takes the focus away for good, a transient request
// suspends the previous holder until it is abandoned.
//
// Handlers are called after the broker lock is released, on the goroutine
// that caused the change.
type Broker struct {
	log zerolog.Logger

	mu      sync.Mutex
	stack   []*holder
	locked  bool
	pending []Handler
}

// NewBroker creates an empty broker.
func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		log: log.With().Str("component", "focus").Logger(),
	}
}

// Request asks for permanent focus. While the broker is locked the request
// is queued and Delayed is returned.
func (b *Broker) Request(h Handler) Result {
	b.mu.Lock()
	if b.locked {
		if !slices.Contains(b.pending, h) {
			b.pending = append(b.pending, h)
		}
		b.mu.Unlock()
		b.log.Debug().Msg("focus request delayed")
		return Delayed
	}
	notices := b.grant(h, false, Loss)
	b.mu.Unlock()
	b.deliver(notices)
	return Granted
}

// RequestTransient asks for focus for a short while. The current holder is
// told LossTransient, or LossTransientCanDuck when canDuck is set, and gets
// the focus back once h abandons it.
func (b *Broker) RequestTransient(h Handler, canDuck bool) Result {
	b.mu.Lock()
	if b.locked {
		b.mu.Unlock()
		return Denied
	}
	change := LossTransient
	if canDuck {
		change = LossTransientCanDuck
	}
	notices := b.grant(h, true, change)
	b.mu.Unlock()
	b.deliver(notices)
	return Granted
}

// Abandon gives up the focus or a queued request. A holder suspended under h
// regains the focus.
func (b *Broker) Abandon(h Handler) {
	b.mu.Lock()
	b.pending = slices.DeleteFunc(b.pending, func(p Handler) bool { return p == h })
	i := b.index(h)
	if i < 0 {
		b.mu.Unlock()
		return
	}
	wasTop := i == len(b.stack)-1
	b.stack = slices.Delete(b.stack, i, i+1)
	var notices []notice
	if wasTop && !b.locked {
		if top := b.top(); top != nil && top.suspended {
			top.suspended = false
			notices = append(notices, notice{top.h, Gain})
		}
	}
	b.mu.Unlock()
	b.log.Debug().Msg("focus abandoned")
	b.deliver(notices)
}

// Lock takes the focus away from everyone, as an incoming call would. The
// holder is suspended and new requests are delayed until Unlock.
func (b *Broker) Lock() {
	b.mu.Lock()
	if b.locked {
		b.mu.Unlock()
		return
	}
	b.locked = true
	var notices []notice
	if top := b.top(); top != nil && !top.suspended {
		top.suspended = true
		notices = append(notices, notice{top.h, LossTransient})
	}
	b.mu.Unlock()
	b.deliver(notices)
}

// Unlock ends a Lock. The most recent delayed request is granted; without
// one, the suspended holder resumes.
func (b *Broker) Unlock() {
	b.mu.Lock()
	if !b.locked {
		b.mu.Unlock()
		return
	}
	b.locked = false
	var notices []notice
	if n := len(b.pending); n > 0 {
		h := b.pending[n-1]
		b.pending = nil
		notices = b.grant(h, false, Loss)
		notices = append(notices, notice{h, Gain})
	} else if top := b.top(); top != nil && top.suspended {
		top.suspended = false
		notices = append(notices, notice{top.h, Gain})
	}
	b.mu.Unlock()
	b.deliver(notices)
}

// Holder returns the handler that has the focus, or nil.
func (b *Broker) Holder() Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked {
		return nil
	}
	if top := b.top(); top != nil && !top.suspended {
		return top.h
	}
	return nil
}

// grant pushes h on top and returns what the previous holder must be told.
func (b *Broker) grant(h Handler, transient bool, change Change) []notice {
	if top := b.top(); top != nil && top.h == h {
		top.suspended = false
		return nil
	}
	if i := b.index(h); i >= 0 {
		b.stack = slices.Delete(b.stack, i, i+1)
	}
	var notices []notice
	if prev := b.top(); prev != nil {
		if change == Loss {
			b.stack = b.stack[:len(b.stack)-1]
		} else {
			prev.suspended = true
		}
		notices = append(notices, notice{prev.h, change})
	}
	b.stack = append(b.stack, &holder{h: h, transient: transient})
	b.log.Debug().Bool("transient", transient).Int("holders", len(b.stack)).Msg("focus granted")
	return notices
}

func (b *Broker) top() *holder {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Broker) index(h Handler) int {
	return slices.IndexFunc(b.stack, func(e *holder) bool { return e.h == h })
}

func (b *Broker) deliver(notices []notice) {
	for _, n := range notices {
		b.log.Debug().Stringer("change", n.c).Msg("focus change")
		n.h.OnFocusChange(n.c)
	}
}
