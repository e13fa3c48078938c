////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package transport maintains the single long-lived realtime connection to
// the messaging broker: connection lifecycle, reconnection backoff, heartbeat,
// and per-conversation room membership.
package transport

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-collections/collections/set"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/tradebridge/client/convo"
	"gitlab.com/tradebridge/client/creds"
	"gitlab.com/tradebridge/client/events"
	"gitlab.com/tradebridge/client/stoppable"
)

// Session owns the one realtime connection shared by every consumer in the
// process. Construct it once at application start and pass it by reference;
// a second Session means a second socket.
//
// Room membership is client intent, not socket state: joins recorded while
// disconnected are replayed in full on every successful (re)connection.
type Session struct {
	params Params
	dialer Dialer
	creds  creds.Store

	state State
	conn  Conn

	// gen increments on every successful connection and on every explicit
	// disconnect, so a stale read loop cannot tear down its successor.
	gen uint64

	rooms *set.Set

	pending       *connAttempt
	attempt       uint32
	bo            *backoff.ExponentialBackOff
	reconTimer    *time.Timer
	manual        bool
	everConnected bool

	hbStop *stoppable.Single

	mux      sync.Mutex
	writeMux sync.Mutex

	cbs   Callbacks
	cbMux sync.RWMutex
}

// connAttempt lets concurrent Connect calls join one in-flight dial instead
// of opening duplicate sockets. The session only ever honors the attempt it
// currently owns: a superseded attempt may still settle, but it can neither
// install its socket nor touch the session bookkeeping.
type connAttempt struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// NewSession builds a Session. A nil dialer selects the production websocket
// dialer.
func NewSession(params Params, store creds.Store, dialer Dialer) *Session {
	if dialer == nil {
		dialer = &WebsocketDialer{PongTimeout: params.PongTimeout}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = params.ReconnectBaseDelay
	bo.Multiplier = params.ReconnectGrowthFactor
	bo.MaxInterval = params.ReconnectMaxDelay
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &Session{
		params: params,
		dialer: dialer,
		creds:  store,
		rooms:  set.New(),
		bo:     bo,
	}
}

// State returns the current lifecycle state of the session.
func (s *Session) State() State {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state
}

// Connect establishes the session. It is idempotent: when already connected
// it returns immediately, and when an attempt is in flight it waits for that
// attempt instead of dialing a second socket.
//
// Fails with ErrNoCredential when the credential store is empty and with
// ErrConnectTimeout when the broker does not acknowledge the session in time.
// Explicit calls reset the reconnection budget, so Connect is also the way
// out of the Errored state.
func (s *Session) Connect(ctx context.Context) error {
	return s.connect(ctx, true)
}

func (s *Session) connect(ctx context.Context, userInitiated bool) error {
	s.mux.Lock()
	switch s.state {
	case Connected:
		s.mux.Unlock()
		return nil
	case Connecting:
		att := s.pending
		s.mux.Unlock()
		select {
		case <-att.done:
			return att.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if userInitiated {
		s.manual = false
		s.attempt = 0
		s.bo.Reset()
	}
	s.state = Connecting
	dialCtx, cancel := context.WithCancel(ctx)
	att := &connAttempt{done: make(chan struct{}), cancel: cancel}
	s.pending = att
	s.mux.Unlock()

	err := s.dial(dialCtx, att)
	cancel()

	s.mux.Lock()
	att.err = err
	if s.pending == att {
		s.pending = nil
	}
	s.mux.Unlock()
	close(att.done)

	return err
}

// dial performs one connection attempt end to end: credential read, socket
// dial, acknowledgment wait, and session activation.
func (s *Session) dial(ctx context.Context, att *connAttempt) error {
	token := s.creds.Token()
	if token == "" {
		s.failAttempt(att)
		return ErrNoCredential
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.params.ConnectTimeout)
	defer cancel()

	jww.DEBUG.Printf("Dialing messaging broker at %s...", s.params.URL)
	conn, err := s.dialer.Dial(dialCtx, s.params.URL, token)
	if err != nil {
		s.failAttempt(att)
		return errors.WithMessage(err, "session dial failed")
	}

	if err = s.awaitAck(ctx, conn); err != nil {
		_ = conn.Close()
		s.failAttempt(att)
		return err
	}

	return s.activate(conn, att)
}

// failAttempt rolls the state back to Disconnected after a failed dial. A
// superseded attempt leaves the bookkeeping alone; it belongs to its
// successor now.
func (s *Session) failAttempt(att *connAttempt) {
	s.mux.Lock()
	if s.pending == att && s.state == Connecting {
		s.state = Disconnected
	}
	s.mux.Unlock()
}

// awaitAck waits for the broker's session acknowledgment frame within the
// connect window.
func (s *Session) awaitAck(ctx context.Context, conn Conn) error {
	ackCh := make(chan error, 1)
	go func() {
		for {
			frame, err := conn.ReadMessage()
			if err != nil {
				ackCh <- errors.WithMessage(
					err, "socket closed before acknowledgment")
				return
			}

			kind, _, err := events.Unmarshal(frame)
			if err != nil {
				jww.WARN.Printf("Dropping bad frame during handshake: %+v",
					err)
				continue
			}

			switch kind {
			case events.Connected, events.Reconnected:
				ackCh <- nil
				return
			case events.ConnectError:
				ackCh <- errors.New("broker rejected the session")
				return
			default:
				// Frames before the ack are not part of the session.
				jww.TRACE.Printf("Dropping pre-ack %s frame.", kind)
			}
		}
	}()

	timer := time.NewTimer(s.params.ConnectTimeout)
	defer timer.Stop()

	select {
	case err := <-ackCh:
		return err
	case <-timer.C:
		return ErrConnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activate installs an acknowledged socket as the live session, replays room
// intent, and starts the reader and heartbeat routines. Only the attempt the
// session still owns may activate; anything else closes its socket and backs
// off, so a Disconnect/Connect cycle during a slow dial can never end with
// two live sockets.
func (s *Session) activate(conn Conn, att *connAttempt) error {
	s.mux.Lock()
	if s.pending != att || s.manual {
		s.mux.Unlock()
		_ = conn.Close()
		return ErrSessionClosed
	}

	reconnected := s.attempt > 0
	s.conn = conn
	s.state = Connected
	s.gen++
	gen := s.gen
	s.attempt = 0
	s.bo.Reset()
	s.everConnected = true

	s.hbStop = stoppable.NewSingle("session heartbeat")
	go s.heartbeat(conn, s.hbStop)
	go s.readLoop(conn, gen)

	// Replay room intent while still holding the lock so that no room
	// operation queued behind this connect can be processed ahead of the
	// replay.
	s.rooms.Do(func(item interface{}) {
		s.emitTo(conn, events.JoinConversationKind,
			events.JoinConversation{ConversationID: item.(int64)})
	})
	s.mux.Unlock()

	jww.INFO.Printf("Session established (reconnected: %t).", reconnected)
	s.fireConnected(reconnected)

	return nil
}

// Disconnect tears the session down deterministically: it aborts any in-
// flight connection attempt, cancels any pending reconnection timer, stops
// the heartbeat, closes the socket, and clears room intent. No automatic
// reconnection fires afterward.
func (s *Session) Disconnect() {
	s.mux.Lock()
	s.manual = true
	s.gen++
	s.state = Disconnected
	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
	}
	if s.reconTimer != nil {
		s.reconTimer.Stop()
		s.reconTimer = nil
	}
	if s.hbStop != nil {
		_ = s.hbStop.Close()
		s.hbStop = nil
	}
	conn := s.conn
	s.conn = nil
	s.rooms = set.New()
	s.attempt = 0
	s.bo.Reset()
	s.mux.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	jww.INFO.Print("Session disconnected by request.")
}

// JoinRoom records intent to receive events for the given conversation and
// subscribes immediately when connected. While disconnected the intent is
// still recorded and replayed on the next successful connection.
func (s *Session) JoinRoom(conversationID int64) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.rooms.Has(conversationID) {
		return
	}
	s.rooms.Insert(conversationID)

	if s.state == Connected {
		s.emitTo(s.conn, events.JoinConversationKind,
			events.JoinConversation{ConversationID: conversationID})
	} else {
		jww.TRACE.Printf(
			"Recorded join intent for conversation %d while %s.",
			conversationID, s.state)
	}
}

// LeaveRoom removes the conversation from room intent and unsubscribes
// immediately when connected.
func (s *Session) LeaveRoom(conversationID int64) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if !s.rooms.Has(conversationID) {
		return
	}
	s.rooms.Remove(conversationID)

	if s.state == Connected {
		s.emitTo(s.conn, events.LeaveConversationKind,
			events.JoinConversation{ConversationID: conversationID})
	}
}

// Rooms returns the current room-membership intent, sorted by conversation
// ID.
func (s *Session) Rooms() []int64 {
	s.mux.Lock()
	out := make([]int64, 0, s.rooms.Len())
	s.rooms.Do(func(item interface{}) {
		out = append(out, item.(int64))
	})
	s.mux.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SendTyping emits a typing start or stop notice for the conversation. It is
// fire-and-forget: no acknowledgment is awaited and the notice is dropped
// silently while disconnected.
func (s *Session) SendTyping(conversationID int64, isTyping bool) {
	kind := events.TypingStopKind
	if isTyping {
		kind = events.TypingStartKind
	}

	s.mux.Lock()
	conn, connected := s.conn, s.state == Connected
	s.mux.Unlock()

	if !connected {
		jww.TRACE.Printf("Dropping %s for conversation %d while offline.",
			kind, conversationID)
		return
	}

	s.emitTo(conn, kind, events.TypingNotice{ConversationID: conversationID})
}

// MarkRead reports the conversation read up to the given message. Like
// SendTyping it is fire-and-forget.
func (s *Session) MarkRead(conversationID, messageID int64) {
	s.mux.Lock()
	conn, connected := s.conn, s.state == Connected
	s.mux.Unlock()

	if !connected {
		jww.TRACE.Printf(
			"Dropping mark_as_read for conversation %d while offline.",
			conversationID)
		return
	}

	s.emitTo(conn, events.MarkAsReadKind, events.MarkAsRead{
		ConversationID: conversationID,
		MessageID:      messageID,
	})
}

// emitTo frames and writes one emission. Writes are serialized on their own
// lock so emissions under the session lock and emissions outside it cannot
// interleave mid-frame.
func (s *Session) emitTo(conn Conn, kind events.Kind, payload interface{}) {
	frame, err := events.Marshal(kind, payload)
	if err != nil {
		jww.ERROR.Printf("Failed to frame %s emission: %+v", kind, err)
		return
	}

	s.writeMux.Lock()
	err = conn.WriteMessage(frame)
	s.writeMux.Unlock()
	if err != nil {
		jww.WARN.Printf("Failed to emit %s: %+v", kind, err)
	}
}

// readLoop pumps frames off the socket until it dies. Its lifetime is bound
// to one connection generation.
func (s *Session) readLoop(conn Conn, gen uint64) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			s.handleDrop(gen, err)
			return
		}
		s.dispatch(frame)
	}
}

// handleDrop reacts to an unplanned socket death: it tears down the session
// state and kicks off the reconnection policy. Drops belonging to a
// superseded generation are ignored.
func (s *Session) handleDrop(gen uint64, err error) {
	s.mux.Lock()
	if s.gen != gen || s.state != Connected {
		s.mux.Unlock()
		return
	}

	s.conn = nil
	s.state = Disconnected
	if s.hbStop != nil {
		_ = s.hbStop.Close()
		s.hbStop = nil
	}
	s.mux.Unlock()

	jww.WARN.Printf("Session dropped: %+v", err)
	s.fireDisconnected(err)
	s.scheduleReconnect()
}

// heartbeat pings the broker on a fixed interval while connected. A failed
// ping closes the socket, which surfaces through the read loop as a drop.
func (s *Session) heartbeat(conn Conn, stop *stoppable.Single) {
	ticker := time.NewTicker(s.params.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop.Quit():
			stop.ToStopped()
			return
		case <-ticker.C:
			deadline := netTime.Now().Add(s.params.PongTimeout)
			if err := conn.Ping(deadline); err != nil {
				jww.WARN.Printf(
					"Heartbeat ping failed, closing socket: %+v", err)
				_ = conn.Close()
			}
		}
	}
}

// scheduleReconnect arms the next reconnection attempt under the exponential
// backoff policy, or surfaces ErrReconnectBudget once the attempt cap is
// exceeded.
func (s *Session) scheduleReconnect() {
	s.mux.Lock()
	if s.manual || s.state != Disconnected {
		s.mux.Unlock()
		return
	}

	if s.attempt >= s.params.MaxReconnectAttempts {
		s.state = Errored
		s.mux.Unlock()
		jww.ERROR.Printf("Giving up on reconnection after %d attempts.",
			s.params.MaxReconnectAttempts)
		s.fireError(ErrReconnectBudget)
		return
	}

	s.attempt++
	attempt := s.attempt
	delay := s.bo.NextBackOff()
	if delay == backoff.Stop {
		delay = s.params.ReconnectMaxDelay
	}
	s.reconTimer = time.AfterFunc(delay, s.reconnect)
	s.mux.Unlock()

	jww.INFO.Printf("Reconnect attempt %d scheduled in %s.", attempt, delay)
}

// reconnect is the reconnection timer body.
func (s *Session) reconnect() {
	s.mux.Lock()
	s.reconTimer = nil
	if s.manual || s.state != Disconnected {
		s.mux.Unlock()
		return
	}
	attempt := s.attempt
	s.mux.Unlock()

	err := s.connect(context.Background(), false)
	if err == nil {
		return
	}

	if errors.Is(err, ErrNoCredential) || errors.Is(err, ErrSessionClosed) {
		jww.WARN.Printf("Abandoning reconnection: %+v", err)
		return
	}

	jww.WARN.Printf("Reconnect attempt %d failed: %+v", attempt, err)
	s.scheduleReconnect()
}

// dispatch decodes one incoming frame and routes it to the registered
// callback. Unknown kinds are dropped, not fatal.
func (s *Session) dispatch(frame []byte) {
	kind, data, err := events.Unmarshal(frame)
	if err != nil {
		jww.WARN.Printf("Dropping undecodable frame: %+v", err)
		return
	}

	s.cbMux.RLock()
	cbs := s.cbs
	s.cbMux.RUnlock()

	switch kind {
	case events.NewMessageKind:
		var msg events.NewMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			jww.WARN.Printf("Dropping bad new_message payload: %+v", err)
			return
		}
		if cbs.MessageReceived != nil {
			cbs.MessageReceived(msg)
		}

	case events.UserTypingKind:
		var typing events.UserTyping
		if err = json.Unmarshal(data, &typing); err != nil {
			jww.WARN.Printf("Dropping bad user_typing payload: %+v", err)
			return
		}
		if cbs.UserTyping != nil {
			cbs.UserTyping(typing)
		}

	case events.MessageStatusKind:
		var status events.MessageStatus
		if err = json.Unmarshal(data, &status); err != nil {
			jww.WARN.Printf(
				"Dropping bad message_status_update payload: %+v", err)
			return
		}
		if cbs.MessageStatus != nil {
			cbs.MessageStatus(status)
		}

	case events.ConversationUpdatedKind:
		var conv convo.Conversation
		if err = json.Unmarshal(data, &conv); err != nil {
			jww.WARN.Printf(
				"Dropping bad conversation_updated payload: %+v", err)
			return
		}
		if cbs.ConversationUpdated != nil {
			cbs.ConversationUpdated(conv)
		}

	case events.Disconnected:
		jww.INFO.Print("Broker requested disconnect; closing socket.")
		s.mux.Lock()
		conn := s.conn
		s.mux.Unlock()
		if conn != nil {
			// The read loop surfaces the resulting drop.
			_ = conn.Close()
		}

	default:
		jww.TRACE.Printf("Dropping unhandled %s frame.", kind)
	}
}
