////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package presence turns the raw typing event stream into a stable
// per-conversation "who is typing now" set, robust to dropped, duplicate, and
// out-of-order events, and throttles the local user's outbound notices.
package presence

import (
	"sort"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/tradebridge/client/events"
)

// defaultExpiryWindow is how long a typing entry survives without a fresh
// start event. Expiry is the defense against a sender that never manages to
// emit its stop event.
const defaultExpiryWindow = 3 * time.Second

// ChangeFunc is notified whenever a conversation's typing set actually
// changes, with the new sorted membership.
type ChangeFunc func(conversationID int64, userIDs []int64)

// typingEntry holds the expiry timer for one (conversation, user) pair. At
// most one live entry exists per pair; a repeated start event re-arms the
// timer instead of inserting a duplicate. The deadline is authoritative: a
// timer that fires early, because it was stopped just after firing and then
// re-armed, must not remove an entry whose deadline is still ahead.
type typingEntry struct {
	timer    *time.Timer
	deadline time.Time
}

// Aggregator consumes user_typing events and answers synchronous reads of the
// current typing set.
type Aggregator struct {
	self   int64
	window time.Duration

	typing map[int64]map[int64]*typingEntry

	onChange ChangeFunc
	closed   bool

	mux sync.Mutex
}

// NewAggregator builds an Aggregator. localUser's own events are filtered
// out. A non-positive window selects the default expiry of 3 seconds.
// onChange may be nil.
func NewAggregator(localUser int64, window time.Duration,
	onChange ChangeFunc) *Aggregator {

	if window <= 0 {
		window = defaultExpiryWindow
	}

	return &Aggregator{
		self:     localUser,
		window:   window,
		typing:   make(map[int64]map[int64]*typingEntry),
		onChange: onChange,
	}
}

// HandleTyping applies one typing event: insertion on start, removal on stop.
// Every insertion (re)starts the entry's expiry timer.
func (a *Aggregator) HandleTyping(ev events.UserTyping) {
	if ev.UserID == a.self {
		return
	}

	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		return
	}

	changed := false
	users := a.typing[ev.ConversationID]

	if ev.IsTyping {
		if users == nil {
			users = make(map[int64]*typingEntry)
			a.typing[ev.ConversationID] = users
		}

		entry, exists := users[ev.UserID]
		if exists {
			entry.timer.Stop()
		} else {
			entry = &typingEntry{}
			users[ev.UserID] = entry
			changed = true
		}
		entry.deadline = netTime.Now().Add(a.window)
		entry.timer = time.AfterFunc(a.window, func() {
			a.expire(ev.ConversationID, ev.UserID)
		})
	} else if entry, exists := users[ev.UserID]; exists {
		entry.timer.Stop()
		delete(users, ev.UserID)
		if len(users) == 0 {
			delete(a.typing, ev.ConversationID)
		}
		changed = true
	}

	if !changed {
		a.mux.Unlock()
		return
	}

	snapshot := a.typingLocked(ev.ConversationID)
	a.mux.Unlock()

	a.notify(ev.ConversationID, snapshot)
}

// Typing returns the users currently typing in the conversation, sorted by
// ID. The read is synchronous and side-effect-free.
func (a *Aggregator) Typing(conversationID int64) []int64 {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.typingLocked(conversationID)
}

// Close cancels every expiry timer. The aggregator ignores events afterward.
func (a *Aggregator) Close() {
	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		return
	}
	a.closed = true
	for _, users := range a.typing {
		for _, entry := range users {
			entry.timer.Stop()
		}
	}
	a.typing = make(map[int64]map[int64]*typingEntry)
	a.mux.Unlock()
}

// expire is the timer body removing an entry that went silent.
func (a *Aggregator) expire(conversationID, userID int64) {
	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		return
	}

	users := a.typing[conversationID]
	entry, exists := users[userID]
	if !exists || netTime.Now().Before(entry.deadline) {
		a.mux.Unlock()
		return
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(a.typing, conversationID)
	}
	snapshot := a.typingLocked(conversationID)
	a.mux.Unlock()

	jww.TRACE.Printf("Typing entry for user %d in conversation %d expired.",
		userID, conversationID)
	a.notify(conversationID, snapshot)
}

// typingLocked snapshots one conversation's set. Must be called with the lock
// held.
func (a *Aggregator) typingLocked(conversationID int64) []int64 {
	users := a.typing[conversationID]
	out := make([]int64, 0, len(users))
	for userID := range users {
		out = append(out, userID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *Aggregator) notify(conversationID int64, userIDs []int64) {
	if a.onChange != nil {
		a.onChange(conversationID, userIDs)
	}
}
