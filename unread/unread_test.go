////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package unread

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/tradebridge/client/convo"
)

// Tests that the badge totals are the sum of the per-conversation counts for
// the reading role, zero counts are omitted, priority conversations feed the
// priority total, and negative counters from a bad payload clamp to zero.
func TestCompute(t *testing.T) {
	conversations := []convo.Conversation{
		{ID: 1, BuyerUnread: 3, SupplierUnread: 1},
		{ID: 2, SupplierUnread: 4},
		{ID: 3, BuyerUnread: 2, Priority: convo.PriorityUrgent},
		{ID: 4, BuyerUnread: -5},
	}

	buyer := Compute(conversations, convo.Buyer)
	require.Equal(t, 5, buyer.Total)
	require.Equal(t, map[int64]int{1: 3, 3: 2}, buyer.PerConversation)
	require.Equal(t, 2, buyer.PriorityTotal)

	supplier := Compute(conversations, convo.Supplier)
	require.Equal(t, 5, supplier.Total)
	require.Equal(t, map[int64]int{1: 1, 2: 4}, supplier.PerConversation)
	require.Zero(t, supplier.PriorityTotal)
}

// Tests the empty projection.
func TestCompute_Empty(t *testing.T) {
	snapshot := Compute(nil, convo.Buyer)
	require.Zero(t, snapshot.Total)
	require.Empty(t, snapshot.PerConversation)
	require.Zero(t, snapshot.PriorityTotal)
}
