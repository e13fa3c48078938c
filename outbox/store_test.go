////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/tradebridge/client/message"
)

// Tests that Get hands out one tracker per conversation and that broker
// pushes are routed by conversation.
func TestStore(t *testing.T) {
	net := newMockRequestor()
	em := newCaptureModel()
	s := NewStore(net, em, testParams(), 42, nil)
	defer s.Close()

	tr := s.Get(7)
	require.Same(t, tr, s.Get(7))
	require.NotSame(t, tr, s.Get(9))

	s.AddRemote(message.Message{ID: 1001, ConversationID: 7, SenderID: 43,
		Content: "hello", CreatedAt: time.Now().UTC()})
	em.nextAdded(t)
	require.Len(t, s.Get(7).Messages(), 1)
	require.Empty(t, s.Get(9).Messages())

	// Status updates carry no conversation ID; the store finds the owner.
	require.True(t, s.SetRemoteStatus(1001, "read"))
	em.nextUpdated(t)
	require.False(t, s.SetRemoteStatus(9999, "read"))
}
