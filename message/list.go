////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package message

// List is the ordered merged view of one conversation. It is not safe for
// concurrent use; the owning tracker serializes access under its own lock.
//
// Ordering rules: locally originated entries keep their insertion order while
// pending, and keep their position when confirmed. Remote entries are placed
// by timestamp relative to existing rows, but never ahead of a pending local
// send that was appended earlier.
type List struct {
	entries []*Entry
}

// Len returns the number of rows.
func (l *List) Len() int {
	return len(l.entries)
}

// Append adds a locally originated entry at the end of the view.
func (l *List) Append(e *Entry) {
	l.entries = append(l.entries, e)
}

// InsertRemote places a broker-pushed entry by its timestamp. It scans from
// the tail and stops at the first row that is either pending (local sends are
// never reordered) or older than the new entry.
func (l *List) InsertRemote(e *Entry) {
	i := len(l.entries)
	for i > 0 {
		prev := l.entries[i-1]
		if !prev.Confirmed() || !prev.CreatedAt.After(e.CreatedAt) {
			break
		}
		i--
	}

	l.entries = append(l.entries, nil)
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e
}

// Remove deletes the row with the given key, preserving the order of the
// rest. Returns false if no such row exists.
func (l *List) Remove(key string) bool {
	for i, e := range l.entries {
		if e.Key() == key {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// IndexOf returns the position of the row with the given key, or -1.
func (l *List) IndexOf(key string) int {
	for i, e := range l.entries {
		if e.Key() == key {
			return i
		}
	}
	return -1
}

// Snapshot returns a copy of the current view. The returned entries are
// copies; mutating them does not affect the list.
func (l *List) Snapshot() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}
