////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package message holds the conversation message model: the broker-confirmed
// record, the locally pending (optimistic) entry, and the ordered merged view
// of both that the chat surface renders.
package message

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tempIDPrefix guarantees a locally generated identity can never collide with
// a broker-assigned identity, which is always numeric.
const tempIDPrefix = "pend-"

// Message is a broker-confirmed message. It is immutable once received except
// for the Read flag.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

// NewTempID generates a fresh local identity for an optimistic entry.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether the given key names a locally generated identity
// rather than a broker-assigned one.
func IsTempID(key string) bool {
	return strings.HasPrefix(key, tempIDPrefix)
}

// Entry is one row of the merged conversation view. A locally originated
// entry starts with only TempID set; reconciliation fills ServerID in place
// and the row keeps its position. Remote entries never carry a TempID.
type Entry struct {
	// TempID is the local identity. Empty for messages that arrived from the
	// broker rather than the local composer.
	TempID string

	// ServerID is the broker identity. Zero until the send is confirmed.
	ServerID int64

	ConversationID int64
	SenderID       int64
	Content        string
	CreatedAt      time.Time
	Read           bool

	Status Status

	// RetryCount is the number of failed send attempts so far.
	RetryCount uint

	// Err holds the detail of the last send failure while Status is Errored.
	Err string
}

// Key returns the identity the UI should address this row by: the server
// identity once confirmed, the temporary token before that.
func (e *Entry) Key() string {
	if e.ServerID != 0 {
		return strconv.FormatInt(e.ServerID, 10)
	}
	return e.TempID
}

// Confirmed reports whether the entry carries a broker identity.
func (e *Entry) Confirmed() bool {
	return e.ServerID != 0
}

// FromRemote builds an Entry for a broker-pushed message.
func FromRemote(m Message) *Entry {
	return &Entry{
		ServerID:       m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Read:           m.Read,
		Status:         Sent,
	}
}
