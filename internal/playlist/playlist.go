package playlist

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// Listener receives change notifications from a Playlist.
//
// Position changes and structural changes use distinct paths: adding or
// removing items never reports a position change, even when the numeric
// cursor moves as a result.
type Listener interface {
	// OnReplaced is called when a new playlist is installed wholesale.
	// Either argument may be nil.
	OnReplaced(oldList, newList *Playlist)
	// OnPositionChanged is called when the cursor was set explicitly.
	OnPositionChanged(oldPos, newPos int)
	// OnItemAdded is called after an item was inserted at index at.
	OnItemAdded(at int)
	// OnItemRemoved is called after the item at index at was removed.
	// wasCurrent is true if the removed item was under the cursor.
	OnItemRemoved(at int, wasCurrent bool)
}

type entry struct {
	track Track
}

// Playlist holds an ordered collection of tracks and a cursor.
//
// The cursor follows its item: inserting or removing other items shifts
// Position without a notification. A Playlist is not safe for concurrent
// use.
type Playlist struct {
	entries  []*entry
	current  *entry
	listener Listener
}

// NewPlaylist creates a playlist holding tracks with the cursor on the first.
func NewPlaylist(tracks ...Track) *Playlist {
	p := &Playlist{
		entries: make([]*entry, 0, len(tracks)),
	}
	for _, t := range tracks {
		p.entries = append(p.entries, &entry{track: t})
	}
	if len(p.entries) > 0 {
		p.current = p.entries[0]
	}
	return p
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.entries)
}

// Position returns the cursor index, 0 on an empty playlist.
func (p *Playlist) Position() int {
	if p.current == nil {
		return 0
	}
	if i := slices.Index(p.entries, p.current); i >= 0 {
		return i
	}
	return 0
}

// SetPosition moves the cursor. Setting 0 on an empty playlist is allowed;
// any other out-of-range index panics. Listeners are notified whenever the
// playlist is not empty, even if the cursor did not move.
func (p *Playlist) SetPosition(pos int) {
	size := len(p.entries)
	if pos < 0 || (pos > 0 && pos >= size) {
		panic(errors.AssertionFailedf("playlist of size %d: cursor set to %d", size, pos))
	}
	if size == 0 {
		p.current = nil
		return
	}
	old := p.Position()
	p.current = p.entries[pos]
	if p.listener != nil {
		p.listener.OnPositionChanged(old, pos)
	}
}

// Item returns the track at index i.
func (p *Playlist) Item(i int) (Track, bool) {
	if i < 0 || i >= len(p.entries) {
		return Track{}, false
	}
	return p.entries[i].track, true
}

// Current returns the track under the cursor.
func (p *Playlist) Current() (Track, bool) {
	return p.Item(p.Position())
}

// Tracks returns a copy of all tracks.
func (p *Playlist) Tracks() []Track {
	result := make([]Track, len(p.entries))
	for i, e := range p.entries {
		result[i] = e.track
	}
	return result
}

// Add inserts track at index at, in [0, Len()].
func (p *Playlist) Add(track Track, at int) {
	if at < 0 || at > len(p.entries) {
		panic(errors.AssertionFailedf("playlist of size %d: insert at %d", len(p.entries), at))
	}
	e := &entry{track: track}
	p.entries = slices.Insert(p.entries, at, e)
	if p.current == nil {
		p.current = e
	}
	if p.listener != nil {
		p.listener.OnItemAdded(at)
	}
}

// Append adds tracks at the end.
func (p *Playlist) Append(tracks ...Track) {
	for _, t := range tracks {
		p.Add(t, len(p.entries))
	}
}

// Remove removes the track at index at. Removing the current track moves the
// cursor to the item that took its place, wrapping to the first item.
func (p *Playlist) Remove(at int) {
	if at < 0 || at >= len(p.entries) {
		panic(errors.AssertionFailedf("playlist of size %d: remove at %d", len(p.entries), at))
	}
	oldPos := p.Position()
	wasCurrent := p.entries[at] == p.current
	p.entries = slices.Delete(p.entries, at, at+1)
	if wasCurrent {
		if len(p.entries) == 0 {
			p.current = nil
		} else {
			p.current = p.entries[oldPos%len(p.entries)]
		}
	}
	if p.listener != nil {
		p.listener.OnItemRemoved(at, wasCurrent)
	}
}

// Move moves the track at from to index to. The cursor follows the moved
// item. Listeners see a removal followed by an insertion, both reported once
// the move is complete.
func (p *Playlist) Move(from, to int) {
	size := len(p.entries)
	if from < 0 || from >= size || to < 0 || to >= size {
		panic(errors.AssertionFailedf("playlist of size %d: move %d to %d", size, from, to))
	}
	if from == to {
		return
	}
	e := p.entries[from]
	p.entries = slices.Delete(p.entries, from, from+1)
	p.entries = slices.Insert(p.entries, to, e)
	if p.listener != nil {
		p.listener.OnItemRemoved(from, false)
		p.listener.OnItemAdded(to)
	}
}
