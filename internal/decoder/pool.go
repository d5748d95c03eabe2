package decoder

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// DefaultRetain is the number of idle sessions kept by Prune.
const DefaultRetain = 3

// Pool is a bag of idle sessions. It is not safe for concurrent use and
// is only touched from the loop that owns the sessions.
type Pool struct {
	idle   []*Session
	retain int
	alloc  func() (*Session, error)
	log    zerolog.Logger
}

// NewPool creates a pool allocating new sessions through alloc.
// retain <= 0 selects DefaultRetain.
func NewPool(retain int, alloc func() (*Session, error), log zerolog.Logger) *Pool {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Pool{
		retain: retain,
		alloc:  alloc,
		log:    log.With().Str("component", "pool").Logger(),
	}
}

// Get removes the oldest idle session, or allocates one if the pool is empty.
func (p *Pool) Get() (*Session, error) {
	if len(p.idle) > 0 {
		s := p.idle[0]
		p.idle[0] = nil
		p.idle = p.idle[1:]
		return s, nil
	}
	p.log.Debug().Msg("allocating new session")
	return p.alloc()
}

// Put returns a session to the pool. The session must not already be in it.
func (p *Pool) Put(s *Session) {
	if p.Contains(s) {
		panic(errors.AssertionFailedf("%s is already pooled", s))
	}
	p.idle = append(p.idle, s)
}

// Remove drops s from the pool without destroying it.
func (p *Pool) Remove(s *Session) bool {
	i := slices.Index(p.idle, s)
	if i < 0 {
		return false
	}
	p.idle = slices.Delete(p.idle, i, i+1)
	return true
}

// Contains reports whether s is idle in the pool.
func (p *Pool) Contains(s *Session) bool {
	return slices.Contains(p.idle, s)
}

// Len returns the number of idle sessions.
func (p *Pool) Len() int { return len(p.idle) }

// Retain returns the number of idle sessions Prune keeps.
func (p *Pool) Retain() int { return p.retain }

// Prune destroys the oldest idle sessions beyond the retained count.
func (p *Pool) Prune() {
	for len(p.idle) > p.retain {
		s := p.idle[0]
		p.idle[0] = nil
		p.idle = p.idle[1:]
		p.log.Debug().Stringer("session", s).Msg("pruning idle session")
		s.Destroy()
	}
}

// DestroyAll destroys every idle session.
func (p *Pool) DestroyAll() {
	for _, s := range p.idle {
		s.Destroy()
	}
	p.idle = nil
}
