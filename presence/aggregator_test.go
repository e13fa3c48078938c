////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/tradebridge/client/events"
)

func nextChange(t *testing.T, changes chan []int64) []int64 {
	select {
	case users := <-changes:
		return users
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a typing change.")
		return nil
	}
}

func expectNoChange(t *testing.T, changes chan []int64,
	window time.Duration) {
	select {
	case users := <-changes:
		t.Fatalf("Unexpected typing change %v.", users)
	case <-time.After(window):
	}
}

// Tests insertion, duplicate-start collapse, stop removal, and filtering of
// the local user's own events.
func TestAggregator_HandleTyping(t *testing.T) {
	changes := make(chan []int64, 16)
	a := NewAggregator(99, time.Minute, func(_ int64, users []int64) {
		changes <- users
	})
	defer a.Close()

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})
	require.Equal(t, []int64{42}, nextChange(t, changes))

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 43,
		IsTyping: true})
	require.Equal(t, []int64{42, 43}, nextChange(t, changes))

	// A repeated start only re-arms the expiry; the set is unchanged.
	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})
	expectNoChange(t, changes, 50*time.Millisecond)
	require.Equal(t, []int64{42, 43}, a.Typing(7))

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 43,
		IsTyping: false})
	require.Equal(t, []int64{42}, nextChange(t, changes))

	// A stop with no matching start is a no-op.
	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 77,
		IsTyping: false})
	expectNoChange(t, changes, 50*time.Millisecond)

	// The local user's own events never enter the set.
	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 99,
		IsTyping: true})
	expectNoChange(t, changes, 50*time.Millisecond)
	require.Equal(t, []int64{42}, a.Typing(7))

	// Conversations are independent.
	require.Empty(t, a.Typing(8))
}

// Tests that an entry whose sender never emits a stop event expires on its
// own after the window.
func TestAggregator_Expiry(t *testing.T) {
	changes := make(chan []int64, 16)
	a := NewAggregator(99, 100*time.Millisecond, func(_ int64, users []int64) {
		changes <- users
	})
	defer a.Close()

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})
	require.Equal(t, []int64{42}, nextChange(t, changes))

	require.Equal(t, []int64{}, nextChange(t, changes))
	require.Empty(t, a.Typing(7))
}

// Tests that a fresh start event pushes the expiry out.
func TestAggregator_ExpiryRearm(t *testing.T) {
	a := NewAggregator(99, 300*time.Millisecond, nil)
	defer a.Close()

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})

	time.Sleep(150 * time.Millisecond)
	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})

	// Past the original deadline but inside the re-armed one.
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, []int64{42}, a.Typing(7))

	time.Sleep(300 * time.Millisecond)
	require.Empty(t, a.Typing(7))
}

// Tests that an expiry firing for an entry whose deadline was pushed out, as
// happens when a timer fires in the instant before a fresh start event stops
// it, leaves the entry alone.
func TestAggregator_StaleExpiry(t *testing.T) {
	changes := make(chan []int64, 16)
	a := NewAggregator(99, time.Minute, func(_ int64, users []int64) {
		changes <- users
	})
	defer a.Close()

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})
	require.Equal(t, []int64{42}, nextChange(t, changes))

	a.expire(7, 42)
	expectNoChange(t, changes, 50*time.Millisecond)
	require.Equal(t, []int64{42}, a.Typing(7))
}

// Tests that Close cancels timers and makes the aggregator inert.
func TestAggregator_Close(t *testing.T) {
	changes := make(chan []int64, 16)
	a := NewAggregator(99, 50*time.Millisecond, func(_ int64, users []int64) {
		changes <- users
	})

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 42,
		IsTyping: true})
	nextChange(t, changes)

	a.Close()
	require.Empty(t, a.Typing(7))

	a.HandleTyping(events.UserTyping{ConversationID: 7, UserID: 43,
		IsTyping: true})
	expectNoChange(t, changes, 100*time.Millisecond)
}
