////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package transport

import (
	"gitlab.com/tradebridge/client/convo"
	"gitlab.com/tradebridge/client/events"
)

// Callbacks is the typed event surface of the session. SetCallbacks replaces
// the whole set atomically: the last registration wins. This is intentional
// single-consumer semantics; the root client fans events out to the rest of
// the system.
type Callbacks struct {
	// Connected fires after a fresh session is acknowledged and room intent
	// has been replayed.
	Connected func()

	// Reconnected fires instead of Connected when the session was restored
	// after an unplanned drop.
	Reconnected func()

	// Disconnected fires on an unplanned drop, before any reconnection
	// attempt. It does not fire for an explicit Disconnect.
	Disconnected func(err error)

	// Error fires for terminal transport failures, such as an exhausted
	// reconnection budget.
	Error func(err error)

	// MessageReceived fires for every new_message frame.
	MessageReceived func(msg events.NewMessage)

	// UserTyping fires for every user_typing frame.
	UserTyping func(typing events.UserTyping)

	// MessageStatus fires for every message_status_update frame.
	MessageStatus func(status events.MessageStatus)

	// ConversationUpdated fires for every conversation_updated frame.
	ConversationUpdated func(conv convo.Conversation)
}

// SetCallbacks replaces the registered handler set.
func (s *Session) SetCallbacks(cbs Callbacks) {
	s.cbMux.Lock()
	s.cbs = cbs
	s.cbMux.Unlock()
}

func (s *Session) fireConnected(reconnected bool) {
	s.cbMux.RLock()
	cbs := s.cbs
	s.cbMux.RUnlock()

	if reconnected && cbs.Reconnected != nil {
		cbs.Reconnected()
		return
	}
	if !reconnected && cbs.Connected != nil {
		cbs.Connected()
	}
}

func (s *Session) fireDisconnected(err error) {
	s.cbMux.RLock()
	cb := s.cbs.Disconnected
	s.cbMux.RUnlock()

	if cb != nil {
		cb(err)
	}
}

func (s *Session) fireError(err error) {
	s.cbMux.RLock()
	cb := s.cbs.Error
	s.cbMux.RUnlock()

	if cb != nil {
		cb(err)
	}
}
