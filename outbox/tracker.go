////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package outbox is the optimistic send pipeline. A composed message becomes
// visible locally before the network round trip settles, then is reconciled
// in place against the broker's authoritative record, with bounded
// retry-with-backoff on failure.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/tradebridge/client/message"
	"gitlab.com/tradebridge/client/request"
)

// EventModel is the UI-facing sink for changes to the merged message list.
// EntryAdded fires when a row appears, EntryUpdated when an existing row
// changes in place (its position never moves), and EntryRemoved when a row is
// discarded. Implementations must not call back into the tracker.
type EventModel interface {
	EntryAdded(entry message.Entry)
	EntryUpdated(entry message.Entry)
	EntryRemoved(key string)
}

// sendRequest is the POST body of a message send.
type sendRequest struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Tracker is the send pipeline of one conversation. Entries never move
// between conversations, so trackers need no cross-conversation locking.
//
// Every pending entry owns at most one backoff timer; Close cancels them all,
// so a torn-down tracker can never mutate state afterward.
type Tracker struct {
	conversationID int64
	me             int64
	path           string

	list     message.List
	byTemp   map[string]*message.Entry
	byServer map[int64]*message.Entry

	// inflight guards against concurrent duplicate retries: a temp ID is
	// present while exactly one send attempt for it is on the wire.
	inflight map[string]bool

	// meta holds the send metadata per temp ID until confirmation.
	meta map[string]map[string]interface{}

	timers map[string]*time.Timer
	closed bool

	net      request.Requestor
	em       EventModel
	isClosed func() bool
	params   Params

	mux sync.Mutex
}

// NewTracker builds the send pipeline for one conversation. isClosed reports
// whether the conversation has been archived; it is only consulted to log
// reconciliations that land after closure, which are tolerated.
func NewTracker(conversationID, localUser int64, net request.Requestor,
	em EventModel, params Params, isClosed func() bool) *Tracker {

	if isClosed == nil {
		isClosed = func() bool { return false }
	}

	return &Tracker{
		conversationID: conversationID,
		me:             localUser,
		path: fmt.Sprintf(
			"/conversations/%d/messages", conversationID),
		byTemp:   make(map[string]*message.Entry),
		byServer: make(map[int64]*message.Entry),
		inflight: make(map[string]bool),
		meta:     make(map[string]map[string]interface{}),
		timers:   make(map[string]*time.Timer),
		net:      net,
		em:       em,
		isClosed: isClosed,
		params:   params,
	}
}

// Send composes a message. The pending entry is appended to the list and
// surfaced to the event model before any network I/O, then the send request
// is performed and reconciled. Send returns once the first attempt settles;
// a failed attempt is not an error here, it is an errored entry with a retry
// scheduled.
//
// Returns ErrEmptyMessage synchronously when content trims to nothing.
func (t *Tracker) Send(ctx context.Context, content string,
	metadata map[string]interface{}) error {

	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	entry := &message.Entry{
		TempID:         message.NewTempID(),
		ConversationID: t.conversationID,
		SenderID:       t.me,
		Content:        content,
		CreatedAt:      netTime.Now(),
		Status:         message.Sending,
	}

	t.mux.Lock()
	if t.closed {
		t.mux.Unlock()
		return ErrClosed
	}
	t.list.Append(entry)
	t.byTemp[entry.TempID] = entry
	if metadata != nil {
		t.meta[entry.TempID] = metadata
	}
	t.inflight[entry.TempID] = true
	snapshot := *entry
	t.mux.Unlock()

	// The local append is observable before the request settles.
	t.em.EntryAdded(snapshot)

	t.dispatch(ctx, entry.TempID)
	return nil
}

// Retry re-attempts the send of an errored entry. It is idempotent against
// concurrent duplicate calls: a retry already on the wire is not
// re-triggered. Any pending backoff timer for the entry is cancelled first.
func (t *Tracker) Retry(ctx context.Context, tempID string) error {
	t.mux.Lock()
	if t.closed {
		t.mux.Unlock()
		return ErrClosed
	}

	entry, exists := t.byTemp[tempID]
	if !exists || entry.Confirmed() {
		t.mux.Unlock()
		return errors.Errorf("no retryable message %q", tempID)
	}

	if t.inflight[tempID] || entry.Status != message.Errored {
		// Already on the wire; nothing to do.
		t.mux.Unlock()
		jww.DEBUG.Printf("Retry of %s skipped, attempt already in flight.",
			tempID)
		return nil
	}

	t.cancelTimer(tempID)
	t.inflight[tempID] = true
	entry.Status = message.Sending
	entry.Err = ""
	snapshot := *entry
	t.mux.Unlock()

	t.em.EntryUpdated(snapshot)

	t.dispatch(ctx, tempID)
	return nil
}

// Remove discards an errored entry and cancels its backoff timer. This is the
// only way a failed send leaves the list. Entries that are pending or already
// confirmed are not removable.
func (t *Tracker) Remove(tempID string) bool {
	t.mux.Lock()
	entry, exists := t.byTemp[tempID]
	if !exists || entry.Status != message.Errored {
		t.mux.Unlock()
		return false
	}

	t.cancelTimer(tempID)
	delete(t.byTemp, tempID)
	delete(t.meta, tempID)
	t.list.Remove(entry.Key())
	t.mux.Unlock()

	t.em.EntryRemoved(tempID)
	return true
}

// AddRemote merges a broker-pushed message into the list, de-duplicating by
// server identity. This covers both messages from the other participant and
// the echo of the local user's own send racing its HTTP confirmation.
func (t *Tracker) AddRemote(msg message.Message) {
	t.mux.Lock()
	if t.closed {
		t.mux.Unlock()
		return
	}

	if _, duplicate := t.byServer[msg.ID]; duplicate {
		t.mux.Unlock()
		jww.TRACE.Printf("Dropping duplicate message %d.", msg.ID)
		return
	}

	entry := message.FromRemote(msg)
	t.byServer[msg.ID] = entry
	t.list.InsertRemote(entry)
	snapshot := *entry
	t.mux.Unlock()

	t.em.EntryAdded(snapshot)
}

// SetRemoteStatus applies a message_status_update to a confirmed entry.
// Returns false if the message does not belong to this conversation.
func (t *Tracker) SetRemoteStatus(messageID int64, status string) bool {
	t.mux.Lock()
	entry, exists := t.byServer[messageID]
	if !exists {
		t.mux.Unlock()
		return false
	}

	if status == "read" {
		entry.Read = true
	}
	snapshot := *entry
	t.mux.Unlock()

	t.em.EntryUpdated(snapshot)
	return true
}

// Messages returns a copy of the merged ordered view.
func (t *Tracker) Messages() []message.Entry {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.list.Snapshot()
}

// Close cancels every backoff timer owned by the tracker. In-flight requests
// are not cancelled; their results are dropped when they return.
func (t *Tracker) Close() {
	t.mux.Lock()
	if t.closed {
		t.mux.Unlock()
		return
	}
	t.closed = true
	for tempID := range t.timers {
		t.cancelTimer(tempID)
	}
	t.mux.Unlock()
}

// dispatch performs one send attempt for the entry and reconciles the
// outcome. The request body is built from the canonical entry at attempt
// time, never from a snapshot captured earlier.
func (t *Tracker) dispatch(ctx context.Context, tempID string) {
	t.mux.Lock()
	entry, exists := t.byTemp[tempID]
	if !exists || t.closed {
		delete(t.inflight, tempID)
		t.mux.Unlock()
		return
	}
	body := sendRequest{Content: entry.Content, Metadata: t.meta[tempID]}
	t.mux.Unlock()

	resp, err := t.net.Do(ctx, http.MethodPost, t.path, body)

	var msg message.Message
	if err == nil {
		err = json.Unmarshal(resp, &msg)
	}

	t.mux.Lock()
	delete(t.inflight, tempID)

	entry, exists = t.byTemp[tempID]
	if !exists || t.closed {
		// Removed or torn down while the request was on the wire.
		t.mux.Unlock()
		return
	}

	if err != nil {
		t.failLocked(entry, err)
		return
	}

	if _, duplicate := t.byServer[msg.ID]; duplicate {
		// The broker echo beat the confirmation; drop the pending entry in
		// favor of the already-merged record.
		delete(t.byTemp, tempID)
		delete(t.meta, tempID)
		t.list.Remove(tempID)
		t.mux.Unlock()

		t.em.EntryRemoved(tempID)
		return
	}

	// Reconcile in place: the row keeps its position, its identity becomes
	// the broker's.
	entry.ServerID = msg.ID
	entry.Status = message.Sent
	entry.CreatedAt = msg.CreatedAt
	entry.Err = ""
	t.byServer[msg.ID] = entry
	delete(t.byTemp, tempID)
	delete(t.meta, tempID)
	snapshot := *entry
	t.mux.Unlock()

	if t.isClosed() {
		jww.INFO.Printf(
			"Message %d reconciled into closed conversation %d.",
			msg.ID, t.conversationID)
	}

	t.em.EntryUpdated(snapshot)
}

// failLocked marks the entry errored and schedules the next automatic retry
// while the budget lasts. The retry count is re-read from the canonical entry
// here, at failure time. Must be called with the lock held; the lock is
// released on return.
func (t *Tracker) failLocked(entry *message.Entry, err error) {
	entry.RetryCount++
	entry.Status = message.Errored
	entry.Err = err.Error()
	tempID := entry.TempID
	retryCount := entry.RetryCount

	budgetLeft := retryCount < t.params.MaxRetries
	if budgetLeft {
		delay := t.params.retryDelay(retryCount)
		t.timers[tempID] = time.AfterFunc(delay, func() {
			t.autoRetry(tempID)
		})
		jww.WARN.Printf("Send of %s failed (attempt %d), retrying in %s: %+v",
			tempID, retryCount, delay, err)
	} else {
		jww.ERROR.Printf(
			"Send of %s failed %d times, awaiting user action: %+v",
			tempID, retryCount, err)
	}

	snapshot := *entry
	t.mux.Unlock()

	t.em.EntryUpdated(snapshot)
}

// autoRetry is the backoff timer body.
func (t *Tracker) autoRetry(tempID string) {
	t.mux.Lock()
	delete(t.timers, tempID)
	t.mux.Unlock()

	if err := t.Retry(context.Background(), tempID); err != nil {
		jww.DEBUG.Printf("Automatic retry of %s dropped: %+v", tempID, err)
	}
}

// cancelTimer stops and forgets the entry's backoff timer, if any. Must be
// called with the lock held.
func (t *Tracker) cancelTimer(tempID string) {
	if timer, exists := t.timers[tempID]; exists {
		timer.Stop()
		delete(t.timers, tempID)
	}
}
