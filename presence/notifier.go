////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package presence

import (
	"sync"
	"time"

	"go.uber.org/ratelimit"
)

// defaultQuietPeriod is how long after the last keystroke the notifier
// auto-emits the stop notice.
const defaultQuietPeriod = 2 * time.Second

// defaultEmissionRate caps typing emissions per second across all
// conversations.
const defaultEmissionRate = 5

// Emitter is the outbound typing surface of the transport session.
type Emitter interface {
	SendTyping(conversationID int64, isTyping bool)
}

// Notifier is the local user's side of typing presence. It collapses a
// keystroke stream into one start notice per burst, auto-emits the stop
// notice after a quiet period, and rate-limits emissions so a fast typist
// cannot flood the socket.
type Notifier struct {
	emitter Emitter
	limiter ratelimit.Limiter
	quiet   time.Duration

	active map[int64]*time.Timer
	closed bool

	mux sync.Mutex
}

// NewNotifier builds a Notifier. Non-positive arguments select the defaults
// (5 emissions per second, 2 second quiet period).
func NewNotifier(emitter Emitter, emissionsPerSecond int,
	quiet time.Duration) *Notifier {

	if emissionsPerSecond <= 0 {
		emissionsPerSecond = defaultEmissionRate
	}
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}

	return &Notifier{
		emitter: emitter,
		limiter: ratelimit.New(emissionsPerSecond, ratelimit.WithoutSlack),
		quiet:   quiet,
		active:  make(map[int64]*time.Timer),
	}
}

// Typing records a keystroke in the conversation. The first keystroke of a
// burst emits typing_start; further ones only push the auto-stop timer out.
func (n *Notifier) Typing(conversationID int64) {
	n.mux.Lock()
	if n.closed {
		n.mux.Unlock()
		return
	}

	if timer, active := n.active[conversationID]; active {
		timer.Stop()
		n.active[conversationID] = n.armStop(conversationID)
		n.mux.Unlock()
		return
	}

	n.active[conversationID] = n.armStop(conversationID)
	n.mux.Unlock()

	n.limiter.Take()
	n.emitter.SendTyping(conversationID, true)
}

// Stop ends the typing burst immediately, as on message send or input blur.
func (n *Notifier) Stop(conversationID int64) {
	n.mux.Lock()
	timer, active := n.active[conversationID]
	if !active {
		n.mux.Unlock()
		return
	}
	timer.Stop()
	delete(n.active, conversationID)
	n.mux.Unlock()

	n.limiter.Take()
	n.emitter.SendTyping(conversationID, false)
}

// Close cancels every auto-stop timer without emitting.
func (n *Notifier) Close() {
	n.mux.Lock()
	if n.closed {
		n.mux.Unlock()
		return
	}
	n.closed = true
	for _, timer := range n.active {
		timer.Stop()
	}
	n.active = make(map[int64]*time.Timer)
	n.mux.Unlock()
}

// armStop arms the auto-stop timer for a conversation. Must be called with
// the lock held.
func (n *Notifier) armStop(conversationID int64) *time.Timer {
	return time.AfterFunc(n.quiet, func() {
		n.autoStop(conversationID)
	})
}

// autoStop is the quiet-period timer body.
func (n *Notifier) autoStop(conversationID int64) {
	n.mux.Lock()
	if _, active := n.active[conversationID]; !active || n.closed {
		n.mux.Unlock()
		return
	}
	delete(n.active, conversationID)
	n.mux.Unlock()

	n.limiter.Take()
	n.emitter.SendTyping(conversationID, false)
}
