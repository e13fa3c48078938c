////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package unread derives badge counts from the conversation collection. It is
// a pure projection: it holds no state of its own and is recomputed on every
// collection change.
package unread

import "gitlab.com/tradebridge/client/convo"

// Snapshot is the derived badge state for one role.
type Snapshot struct {
	// Total is the sum of the role's unread counters across all
	// conversations.
	Total int

	// PerConversation maps conversation ID to its unread count. Zero counts
	// are omitted.
	PerConversation map[int64]int

	// PriorityTotal is the subset of Total belonging to conversations
	// flagged high or urgent priority.
	PriorityTotal int
}

// Compute projects the badge state for the given role out of the current
// conversation collection. Conversations with missing counters contribute
// zero.
func Compute(conversations []convo.Conversation, role convo.Role) Snapshot {
	snapshot := Snapshot{
		PerConversation: make(map[int64]int),
	}

	for i := range conversations {
		conv := &conversations[i]
		n := conv.UnreadFor(role)
		if n == 0 {
			continue
		}

		snapshot.Total += n
		snapshot.PerConversation[conv.ID] = n
		if conv.IsPriority() {
			snapshot.PriorityTotal += n
		}
	}

	return snapshot
}
