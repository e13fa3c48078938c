////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package client assembles the messaging core behind the marketplace chat
// surface: the realtime session, the per-conversation optimistic outboxes,
// typing presence, and the unread badge projection.
//
// Construct exactly one Client at application start and pass it by reference
// to every consumer. The one-socket invariant lives here: all consumers share
// the Client's session and its room membership.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/tradebridge/client/convo"
	"gitlab.com/tradebridge/client/creds"
	"gitlab.com/tradebridge/client/events"
	"gitlab.com/tradebridge/client/message"
	"gitlab.com/tradebridge/client/outbox"
	"gitlab.com/tradebridge/client/presence"
	"gitlab.com/tradebridge/client/request"
	"gitlab.com/tradebridge/client/transport"
	"gitlab.com/tradebridge/client/unread"
)

// ErrConversationClosed rejects sends into an archived conversation.
var ErrConversationClosed = errors.New("conversation is closed")

// Config carries everything the Client needs at construction.
type Config struct {
	// UserID is the local user's identity.
	UserID int64

	// Role is which side of conversations the local user is on.
	Role convo.Role

	// Transport configures the realtime session.
	Transport transport.Params

	// Outbox configures the send pipelines.
	Outbox outbox.Params

	// TypingExpiry overrides the typing-entry expiry window when positive.
	TypingExpiry time.Duration

	// Dialer overrides the websocket dialer; leave nil in production.
	Dialer transport.Dialer

	// OnUnread, when set, receives the recomputed badge snapshot after
	// every conversation change.
	OnUnread func(snapshot unread.Snapshot)

	// OnTyping, when set, receives typing-set changes per conversation.
	OnTyping presence.ChangeFunc

	// OnTransportError, when set, receives terminal transport failures.
	OnTransportError func(err error)
}

// Client is the messaging core. See the package comment for the ownership
// model.
type Client struct {
	cfg Config

	session  *transport.Session
	outboxes *outbox.Store
	typing   *presence.Aggregator
	notifier *presence.Notifier
	convos   *convo.Collection

	unreadCbID uint64
	current    unread.Snapshot

	mux sync.RWMutex
}

// New wires the messaging core together. em receives every change to the
// merged message lists; net is the marketplace request layer.
func New(cfg Config, net request.Requestor, em outbox.EventModel,
	credStore creds.Store) *Client {

	c := &Client{
		cfg:    cfg,
		convos: convo.NewCollection(),
	}

	c.session = transport.NewSession(cfg.Transport, credStore, cfg.Dialer)
	c.outboxes = outbox.NewStore(net, em, cfg.Outbox, cfg.UserID, c.convos)
	c.typing = presence.NewAggregator(
		cfg.UserID, cfg.TypingExpiry, cfg.OnTyping)
	c.notifier = presence.NewNotifier(c.session, 0, 0)

	c.session.SetCallbacks(transport.Callbacks{
		MessageReceived:     c.handleNewMessage,
		UserTyping:          c.typing.HandleTyping,
		MessageStatus:       c.handleMessageStatus,
		ConversationUpdated: c.convos.Upsert,
		Disconnected: func(err error) {
			jww.INFO.Printf("Realtime session dropped: %+v", err)
		},
		Error: func(err error) {
			jww.ERROR.Printf("Realtime session failed: %+v", err)
			if cfg.OnTransportError != nil {
				cfg.OnTransportError(err)
			}
		},
	})

	c.unreadCbID = c.convos.AddChangeCallback(c.recomputeUnread)

	return c
}

// Connect establishes the realtime session.
func (c *Client) Connect(ctx context.Context) error {
	return c.session.Connect(ctx)
}

// Disconnect tears the realtime session down. Pending sends already on the
// wire still reconcile when they return.
func (c *Client) Disconnect() {
	c.session.Disconnect()
}

// Session exposes the shared realtime session.
func (c *Client) Session() *transport.Session {
	return c.session
}

// Conversations exposes the conversation collection.
func (c *Client) Conversations() *convo.Collection {
	return c.convos
}

// OpenConversation joins the conversation's room and returns its outbox
// tracker.
func (c *Client) OpenConversation(conversationID int64) *outbox.Tracker {
	c.session.JoinRoom(conversationID)
	return c.outboxes.Get(conversationID)
}

// LeaveConversation drops the conversation's room membership. Its tracker
// and message list stay intact.
func (c *Client) LeaveConversation(conversationID int64) {
	c.session.LeaveRoom(conversationID)
}

// Send composes a message into the conversation. Fails fast with
// ErrConversationClosed on archived conversations and with
// outbox.ErrEmptyMessage on blank content; network failures surface as an
// errored entry in the list, not as an error here.
func (c *Client) Send(ctx context.Context, conversationID int64,
	content string, metadata map[string]interface{}) error {

	if conv, exists := c.convos.Get(conversationID); exists &&
		conv.Status == convo.Closed {
		return ErrConversationClosed
	}

	c.notifier.Stop(conversationID)

	return c.outboxes.Get(conversationID).Send(ctx, content, metadata)
}

// Retry re-attempts an errored send.
func (c *Client) Retry(ctx context.Context, conversationID int64,
	tempID string) error {
	return c.outboxes.Get(conversationID).Retry(ctx, tempID)
}

// Discard drops an errored send.
func (c *Client) Discard(conversationID int64, tempID string) bool {
	return c.outboxes.Get(conversationID).Remove(tempID)
}

// Messages returns the merged ordered view of the conversation.
func (c *Client) Messages(conversationID int64) []message.Entry {
	return c.outboxes.Get(conversationID).Messages()
}

// Typing records a local keystroke in the conversation.
func (c *Client) Typing(conversationID int64) {
	c.notifier.Typing(conversationID)
}

// TypingUsers returns who is typing in the conversation right now.
func (c *Client) TypingUsers(conversationID int64) []int64 {
	return c.typing.Typing(conversationID)
}

// MarkRead reports the conversation read up to the given message and zeroes
// the local unread counter.
func (c *Client) MarkRead(conversationID, messageID int64) {
	c.session.MarkRead(conversationID, messageID)
	c.convos.ClearUnread(conversationID, c.cfg.Role)
}

// Unread returns the current badge snapshot.
func (c *Client) Unread() unread.Snapshot {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.current
}

// Close tears down everything the Client owns: the session, every backoff
// timer, and every typing timer. Requests already on the wire resolve on
// their own and are dropped.
func (c *Client) Close() {
	c.convos.RemoveChangeCallback(c.unreadCbID)
	c.notifier.Close()
	c.typing.Close()
	c.outboxes.Close()
	c.session.Disconnect()
}

// handleNewMessage merges a broker-pushed message and bumps the unread
// counter unless the local user sent it.
func (c *Client) handleNewMessage(ev events.NewMessage) {
	c.outboxes.AddRemote(message.Message{
		ID:             ev.ID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		Content:        ev.Content,
		CreatedAt:      ev.CreatedAt,
	})

	if ev.SenderID != c.cfg.UserID {
		c.convos.Bump(ev.ConversationID, c.cfg.Role)
	}
}

func (c *Client) handleMessageStatus(status events.MessageStatus) {
	if !c.outboxes.SetRemoteStatus(status.MessageID, status.Status) {
		jww.TRACE.Printf("Status update for unknown message %d dropped.",
			status.MessageID)
	}
}

// recomputeUnread is the conversation-change callback deriving the badge
// snapshot.
func (c *Client) recomputeUnread(conversations []convo.Conversation) {
	snapshot := unread.Compute(conversations, c.cfg.Role)

	c.mux.Lock()
	c.current = snapshot
	c.mux.Unlock()

	if c.cfg.OnUnread != nil {
		c.cfg.OnUnread(snapshot)
	}
}
