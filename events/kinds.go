////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package events defines the realtime wire vocabulary shared between the
// client and the messaging broker. Every frame on the socket is an Envelope
// whose event field is one of the Kind wire names below.
package events

// Kind enumerates every event the broker can push and every emission the
// client can send.
type Kind uint32

const (
	// Unknown is the zero value; it never appears on the wire.
	Unknown Kind = 0

	/* connection lifecycle, broker to client */

	// Connected acknowledges a fresh session after the socket handshake.
	Connected Kind = 1
	// Disconnected informs handlers the broker is closing the session.
	Disconnected Kind = 2
	// Reconnected acknowledges a session restored after a drop.
	Reconnected Kind = 3
	// ConnectError reports a server-side failure to establish a session.
	ConnectError Kind = 4

	/* conversation traffic, broker to client */

	// NewMessageKind carries a confirmed message posted to a joined
	// conversation.
	NewMessageKind Kind = 10
	// UserTypingKind carries a typing start/stop notice for one user.
	UserTypingKind Kind = 11
	// MessageStatusKind carries a delivery/read status change for one message.
	MessageStatusKind Kind = 12
	// ConversationUpdatedKind carries a full refreshed conversation record.
	ConversationUpdatedKind Kind = 13

	/* emissions, client to broker */

	// JoinConversationKind subscribes the session to a conversation room.
	JoinConversationKind Kind = 20
	// LeaveConversationKind unsubscribes the session from a room.
	LeaveConversationKind Kind = 21
	// TypingStartKind tells the room the local user started typing.
	TypingStartKind Kind = 22
	// TypingStopKind tells the room the local user stopped typing.
	TypingStopKind Kind = 23
	// MarkAsReadKind reports messages read up to the given message.
	MarkAsReadKind Kind = 24
)

// wireNames maps each Kind to the event name used on the socket.
var wireNames = map[Kind]string{
	Connected:               "connect",
	Disconnected:            "disconnect",
	Reconnected:             "reconnect",
	ConnectError:            "connect_error",
	NewMessageKind:          "new_message",
	UserTypingKind:          "user_typing",
	MessageStatusKind:       "message_status_update",
	ConversationUpdatedKind: "conversation_updated",
	JoinConversationKind:    "join_conversation",
	LeaveConversationKind:   "leave_conversation",
	TypingStartKind:         "typing_start",
	TypingStopKind:          "typing_stop",
	MarkAsReadKind:          "mark_as_read",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(wireNames))
	for k, name := range wireNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of the Kind. This function adheres to the
// fmt.Stringer interface.
func (k Kind) String() string {
	if name, ok := wireNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a wire name to its Kind. Unrecognized names return
// Unknown; the dispatcher drops such frames instead of failing the session.
func ParseKind(name string) Kind {
	return kindsByName[name]
}
