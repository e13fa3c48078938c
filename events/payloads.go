////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package events

import "time"

// NewMessage is the payload of a new_message frame.
//
//	{
//	  "id":1001,
//	  "conversation_id":7,
//	  "sender_id":42,
//	  "content":"hello",
//	  "created_at":"2024-05-01T12:00:00Z"
//	}
type NewMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserTyping is the payload of a user_typing frame.
type UserTyping struct {
	ConversationID int64 `json:"conversation_id"`
	UserID         int64 `json:"user_id"`
	IsTyping       bool  `json:"is_typing"`
}

// MessageStatus is the payload of a message_status_update frame.
type MessageStatus struct {
	MessageID int64  `json:"message_id"`
	Status    string `json:"status"`
}

// JoinConversation is the payload of join_conversation and leave_conversation
// emissions.
type JoinConversation struct {
	ConversationID int64 `json:"conversation_id"`
}

// TypingNotice is the payload of typing_start and typing_stop emissions.
type TypingNotice struct {
	ConversationID int64 `json:"conversation_id"`
}

// MarkAsRead is the payload of a mark_as_read emission.
type MarkAsRead struct {
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
}
