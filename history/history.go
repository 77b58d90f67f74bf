// Package history keeps the ordered canvas snapshots behind undo and redo.
package history

import "whiteboard-server/core"

// History is an ordered list of snapshots with a current position.
// Index is -1 while empty and always a valid position otherwise.
type History struct {
	entries []core.Snapshot
	index   int
	limit   int
}

// New returns an empty history. A positive limit caps the number of kept
// snapshots by discarding the oldest ones.
func New(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{index: -1, limit: limit}
}

// Push drops any redo branch after the current position and appends s as
// the new current snapshot.
func (h *History) Push(s core.Snapshot) {
	h.entries = append(h.entries[:h.index+1], s)
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append(h.entries[:0:0], h.entries[drop:]...)
	}
	h.index = len(h.entries) - 1
}

// Reset replaces the whole history with s as the only entry.
func (h *History) Reset(s core.Snapshot) {
	h.entries = []core.Snapshot{s}
	h.index = 0
}

func (h *History) Undo() (core.Snapshot, bool) {
	if h.index <= 0 {
		return core.Snapshot{}, false
	}
	h.index--
	return h.entries[h.index], true
}

func (h *History) Redo() (core.Snapshot, bool) {
	if h.index >= len(h.entries)-1 {
		return core.Snapshot{}, false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *History) Current() (core.Snapshot, bool) {
	if h.index < 0 {
		return core.Snapshot{}, false
	}
	return h.entries[h.index], true
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Index() int {
	return h.index
}

// Entries returns a copy of the snapshot list, oldest first.
func (h *History) Entries() []core.Snapshot {
	out := make([]core.Snapshot, len(h.entries))
	copy(out, h.entries)
	return out
}

// Find returns the position of the snapshot with the given ID.
func (h *History) Find(id string) (core.Snapshot, int, bool) {
	for i, s := range h.entries {
		if s.ID == id {
			return s, i, true
		}
	}
	return core.Snapshot{}, -1, false
}
