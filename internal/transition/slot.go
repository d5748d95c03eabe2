package transition

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/segue/internal/decoder"
)

// slot holds at most one session. Setting a slot that is not empty is a
// programming error: a session would leak out of the controller's hands.
type slot struct {
	name string
	s    *decoder.Session
	log  *zerolog.Logger
}

func (sl *slot) Get() *decoder.Session { return sl.s }

func (sl *slot) Empty() bool { return sl.s == nil }

func (sl *slot) Holds(s *decoder.Session) bool {
	return s != nil && sl.s == s
}

func (sl *slot) Set(s *decoder.Session) {
	if sl.s != nil {
		panic(errors.AssertionFailedf("leaking %s session %s", sl.name, sl.s))
	}
	sl.log.Debug().Str("slot", sl.name).Stringer("session", s).Msg("slot filled")
	sl.s = s
}

// Take empties the slot and returns what it held.
func (sl *slot) Take() *decoder.Session {
	s := sl.s
	if s != nil {
		sl.log.Debug().Str("slot", sl.name).Stringer("session", s).Msg("slot emptied")
	}
	sl.s = nil
	return s
}
