////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package convo holds the conversation model and the client-side collection
// of conversations the local user participates in.
package convo

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Role identifies which side of a conversation the local user is on.
type Role uint8

const (
	Buyer    Role = 0
	Supplier Role = 1
)

// String adheres to the fmt.Stringer interface.
func (r Role) String() string {
	if r == Supplier {
		return "supplier"
	}
	return "buyer"
}

// Status is the lifecycle state of a conversation. Closed conversations are
// archival: they reject new sends but are never removed from the collection.
type Status uint8

const (
	Open   Status = 0
	Closed Status = 1
)

// String adheres to the fmt.Stringer interface.
func (s Status) String() string {
	if s == Closed {
		return "closed"
	}
	return "open"
}

// MarshalJSON adheres to the json.Marshaler interface; the wire carries the
// status as a string.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON adheres to the json.Unmarshaler interface.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	switch str {
	case "open", "":
		*s = Open
	case "closed":
		*s = Closed
	default:
		return errors.Errorf("unknown conversation status %q", str)
	}
	return nil
}

// Priority levels a conversation can be flagged with by the marketplace.
const (
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Conversation is one buyer/supplier thread. The unread counters are kept
// per role; a missing counter on the wire decodes to zero and is treated as
// zero everywhere.
type Conversation struct {
	ID         int64  `json:"id"`
	BuyerID    int64  `json:"buyer_id"`
	SupplierID int64  `json:"supplier_id"`
	Status     Status `json:"status"`

	BuyerUnread    int `json:"buyer_unread,omitempty"`
	SupplierUnread int `json:"supplier_unread,omitempty"`

	// Priority is empty for ordinary conversations, or one of the priority
	// level constants.
	Priority string `json:"priority,omitempty"`

	LastActivity time.Time `json:"last_activity"`

	// CounterpartName is the denormalized display name of the other
	// participant, kept so the inbox can render without a profile fetch.
	CounterpartName string `json:"counterpart_name,omitempty"`
}

// UnreadFor returns the unread counter for the given role. Counters are
// clamped at zero on read so a bad server payload can never surface a
// negative badge.
func (c *Conversation) UnreadFor(role Role) int {
	n := c.BuyerUnread
	if role == Supplier {
		n = c.SupplierUnread
	}
	if n < 0 {
		return 0
	}
	return n
}

// IsPriority reports whether the conversation carries a priority flag.
func (c *Conversation) IsPriority() bool {
	return c.Priority == PriorityHigh || c.Priority == PriorityUrgent
}
