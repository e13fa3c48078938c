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
)

type emission struct {
	conversationID int64
	isTyping       bool
}

type mockEmitter struct {
	emissions chan emission
}

func newMockEmitter() *mockEmitter {
	return &mockEmitter{emissions: make(chan emission, 16)}
}

func (m *mockEmitter) SendTyping(conversationID int64, isTyping bool) {
	m.emissions <- emission{conversationID, isTyping}
}

func (m *mockEmitter) next(t *testing.T) emission {
	select {
	case e := <-m.emissions:
		return e
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a typing emission.")
		return emission{}
	}
}

func (m *mockEmitter) expectNone(t *testing.T, window time.Duration) {
	select {
	case e := <-m.emissions:
		t.Fatalf("Unexpected emission %+v.", e)
	case <-time.After(window):
	}
}

// Tests that a keystroke burst collapses into one start notice and that the
// stop notice fires on its own after the quiet period.
func TestNotifier_Burst(t *testing.T) {
	em := newMockEmitter()
	n := NewNotifier(em, 100, 200*time.Millisecond)
	defer n.Close()

	for i := 0; i < 5; i++ {
		n.Typing(7)
	}

	require.Equal(t, emission{7, true}, em.next(t))
	em.expectNone(t, 50*time.Millisecond)

	require.Equal(t, emission{7, false}, em.next(t))

	// The next keystroke opens a new burst.
	n.Typing(7)
	require.Equal(t, emission{7, true}, em.next(t))
}

// Tests that an explicit Stop emits immediately and is idempotent.
func TestNotifier_Stop(t *testing.T) {
	em := newMockEmitter()
	n := NewNotifier(em, 100, time.Minute)
	defer n.Close()

	n.Typing(7)
	require.Equal(t, emission{7, true}, em.next(t))

	n.Stop(7)
	require.Equal(t, emission{7, false}, em.next(t))

	n.Stop(7)
	em.expectNone(t, 50*time.Millisecond)
}

// Tests that conversations hold independent bursts.
func TestNotifier_PerConversation(t *testing.T) {
	em := newMockEmitter()
	n := NewNotifier(em, 100, time.Minute)
	defer n.Close()

	n.Typing(7)
	require.Equal(t, emission{7, true}, em.next(t))
	n.Typing(9)
	require.Equal(t, emission{9, true}, em.next(t))

	n.Stop(7)
	require.Equal(t, emission{7, false}, em.next(t))
	em.expectNone(t, 50*time.Millisecond)
}

// Tests that Close cancels pending auto-stops without emitting.
func TestNotifier_Close(t *testing.T) {
	em := newMockEmitter()
	n := NewNotifier(em, 100, 100*time.Millisecond)

	n.Typing(7)
	require.Equal(t, emission{7, true}, em.next(t))

	n.Close()
	em.expectNone(t, 250*time.Millisecond)

	n.Typing(7)
	em.expectNone(t, 50*time.Millisecond)
}
