////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package convo

import (
	"sort"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/xx_network/primitives/netTime"
)

// ChangeCallback receives a snapshot of the whole collection after every
// mutation, in mutation order, so derived views (the unread badge) are
// current by the time the mutating call returns. Callbacks must not call back
// into the Collection.
type ChangeCallback func(conversations []Conversation)

// Collection is the client-side set of conversations. Conversations are only
// ever added or mutated, never removed; archival is the Closed status.
type Collection struct {
	convos map[int64]*Conversation

	callbacks  map[uint64]ChangeCallback
	callbackID uint64

	mux sync.RWMutex

	// deliverMux serializes callback delivery. It is acquired while mux is
	// still held, so snapshots reach the callbacks in mutation order.
	deliverMux sync.Mutex
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{
		convos:    make(map[int64]*Conversation),
		callbacks: make(map[uint64]ChangeCallback),
	}
}

// AddChangeCallback adds a function run on every mutation of the collection.
// Returns a unique ID for the function so it can be removed later. The
// callback fires once immediately with the current contents.
func (c *Collection) AddChangeCallback(cb ChangeCallback) uint64 {
	c.mux.Lock()
	id := c.callbackID
	c.callbacks[id] = cb
	c.callbackID++
	snapshot := c.snapshot()
	c.deliverMux.Lock()
	c.mux.Unlock()

	cb(snapshot)
	c.deliverMux.Unlock()

	return id
}

// RemoveChangeCallback removes the callback with the given ID so it will no
// longer be run.
func (c *Collection) RemoveChangeCallback(id uint64) {
	c.mux.Lock()
	delete(c.callbacks, id)
	c.mux.Unlock()
}

// Get returns a copy of the conversation with the given ID.
func (c *Collection) Get(id int64) (Conversation, bool) {
	c.mux.RLock()
	defer c.mux.RUnlock()

	conv, exists := c.convos[id]
	if !exists {
		return Conversation{}, false
	}
	return *conv, true
}

// List returns a copy of every conversation, ordered by descending last
// activity.
func (c *Collection) List() []Conversation {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.snapshot()
}

// Upsert inserts or replaces a conversation record, as delivered by a
// conversation_updated event or a successful creation request.
func (c *Collection) Upsert(conv Conversation) {
	c.mux.Lock()
	stored := conv
	c.convos[conv.ID] = &stored
	c.notify()
}

// Bump records a confirmed incoming message: it advances last activity and
// increments the unread counter of the reading role.
func (c *Collection) Bump(conversationID int64, reader Role) {
	c.mux.Lock()
	conv, exists := c.convos[conversationID]
	if !exists {
		c.mux.Unlock()
		jww.WARN.Printf("Bump for unknown conversation %d dropped.",
			conversationID)
		return
	}

	conv.LastActivity = netTime.Now()
	if reader == Supplier {
		conv.SupplierUnread++
	} else {
		conv.BuyerUnread++
	}
	c.notify()
}

// ClearUnread zeroes the unread counter of the given role, as happens when
// that participant reads the conversation.
func (c *Collection) ClearUnread(conversationID int64, reader Role) {
	c.mux.Lock()
	conv, exists := c.convos[conversationID]
	if !exists {
		c.mux.Unlock()
		return
	}

	if reader == Supplier {
		conv.SupplierUnread = 0
	} else {
		conv.BuyerUnread = 0
	}
	c.notify()
}

// SetStatus moves a conversation between Open and Closed.
func (c *Collection) SetStatus(conversationID int64, status Status) {
	c.mux.Lock()
	conv, exists := c.convos[conversationID]
	if !exists {
		c.mux.Unlock()
		return
	}

	conv.Status = status
	c.notify()
}

// notify snapshots the collection and runs every registered callback. Must be
// called with the write lock held; the lock is released on return. The
// delivery lock is taken before the write lock is dropped, which keeps
// snapshots from concurrent mutations arriving at the callbacks out of order.
func (c *Collection) notify() {
	snapshot := c.snapshot()
	callbacks := make([]ChangeCallback, 0, len(c.callbacks))
	for _, cb := range c.callbacks {
		callbacks = append(callbacks, cb)
	}
	c.deliverMux.Lock()
	c.mux.Unlock()

	for _, cb := range callbacks {
		cb(snapshot)
	}
	c.deliverMux.Unlock()
}

// snapshot copies the collection. Must be called with at least a read lock.
func (c *Collection) snapshot() []Conversation {
	out := make([]Conversation, 0, len(c.convos))
	for _, conv := range c.convos {
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}
