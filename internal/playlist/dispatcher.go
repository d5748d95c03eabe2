package playlist

import (
	"slices"

	"github.com/rs/zerolog"
)

var _ Listener = (*Dispatcher)(nil)

// Dispatcher owns the installed playlist and forwards its notifications to
// every registered listener, in registration order.
type Dispatcher struct {
	log       zerolog.Logger
	playlist  *Playlist
	listeners []Listener
}

// NewDispatcher creates a dispatcher with no playlist installed.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log: log.With().Str("component", "playlist").Logger(),
	}
}

// Register adds a listener.
func (d *Dispatcher) Register(l Listener) {
	d.listeners = append(d.listeners, l)
}

// Unregister removes a listener. Unknown listeners are ignored.
func (d *Dispatcher) Unregister(l Listener) {
	if i := slices.Index(d.listeners, l); i >= 0 {
		d.listeners = slices.Delete(d.listeners, i, i+1)
	}
}

// Playlist returns the installed playlist, or nil.
func (d *Dispatcher) Playlist() *Playlist {
	return d.playlist
}

// Install replaces the installed playlist and notifies listeners. Installing
// the playlist that is already installed does nothing.
func (d *Dispatcher) Install(p *Playlist) {
	if p == d.playlist {
		return
	}
	old := d.playlist
	if old != nil {
		old.listener = nil
	}
	if p != nil {
		p.listener = d
	}
	d.playlist = p
	d.log.Debug().Int("tracks", lenOf(p)).Msg("playlist replaced")
	d.OnReplaced(old, p)
}

func (d *Dispatcher) OnReplaced(oldList, newList *Playlist) {
	for _, l := range slices.Clone(d.listeners) {
		l.OnReplaced(oldList, newList)
	}
}

func (d *Dispatcher) OnPositionChanged(oldPos, newPos int) {
	d.log.Debug().Int("old", oldPos).Int("new", newPos).Msg("position changed")
	for _, l := range slices.Clone(d.listeners) {
		l.OnPositionChanged(oldPos, newPos)
	}
}

func (d *Dispatcher) OnItemAdded(at int) {
	for _, l := range slices.Clone(d.listeners) {
		l.OnItemAdded(at)
	}
}

func (d *Dispatcher) OnItemRemoved(at int, wasCurrent bool) {
	for _, l := range slices.Clone(d.listeners) {
		l.OnItemRemoved(at, wasCurrent)
	}
}

func lenOf(p *Playlist) int {
	if p == nil {
		return 0
	}
	return p.Len()
}
