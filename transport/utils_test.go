////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"gitlab.com/tradebridge/client/creds"
	"gitlab.com/tradebridge/client/events"
)

// testParams returns session parameters scaled down for tests.
func testParams() Params {
	p := GetDefaultParams()
	p.URL = "ws://broker.test/realtime"
	p.ConnectTimeout = 250 * time.Millisecond
	p.HeartbeatInterval = 25 * time.Millisecond
	p.PongTimeout = 25 * time.Millisecond
	p.ReconnectBaseDelay = 5 * time.Millisecond
	p.ReconnectMaxDelay = 25 * time.Millisecond
	p.MaxReconnectAttempts = 3
	return p
}

// mockConn is a scriptable Conn. Incoming frames are queued on in; outgoing
// frames land on writes.
type mockConn struct {
	in     chan []byte
	writes chan []byte
	closed chan struct{}
	once   sync.Once

	pingErr error
	mux     sync.Mutex
}

func newMockConn() *mockConn {
	return &mockConn{
		in:     make(chan []byte, 16),
		writes: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *mockConn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *mockConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.writes <- data
	return nil
}

func (c *mockConn) Ping(time.Time) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.pingErr
}

func (c *mockConn) setPingErr(err error) {
	c.mux.Lock()
	c.pingErr = err
	c.mux.Unlock()
}

func (c *mockConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *mockConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// push frames an event and feeds it to the session's read loop.
func (c *mockConn) push(t *testing.T, kind events.Kind, payload interface{}) {
	frame, err := events.Marshal(kind, payload)
	require.NoError(t, err)
	c.in <- frame
}

// nextWrite returns the kind and payload of the next outgoing frame, failing
// the test if none arrives in time.
func (c *mockConn) nextWrite(t *testing.T) (events.Kind, json.RawMessage) {
	select {
	case frame := <-c.writes:
		kind, data, err := events.Unmarshal(frame)
		require.NoError(t, err)
		return kind, data
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for an outgoing frame.")
		return events.Unknown, nil
	}
}

// expectNoWrite fails the test if an outgoing frame arrives within the window.
func (c *mockConn) expectNoWrite(t *testing.T, window time.Duration) {
	select {
	case frame := <-c.writes:
		kind, _, _ := events.Unmarshal(frame)
		t.Fatalf("Unexpected outgoing %s frame.", kind)
	case <-time.After(window):
	}
}

// mockDialer scripts connection attempts. The first failDials calls are
// refused; from failFrom onward (when non-zero) every call is refused. Each
// successful dial produces a fresh mockConn with the session acknowledgment
// already queued and publishes it on conns.
type mockDialer struct {
	failDials int
	failFrom  int
	noAck     bool
	dials     int
	conns     chan *mockConn
	mux       sync.Mutex
}

func newMockDialer(failDials int) *mockDialer {
	return &mockDialer{
		failDials: failDials,
		conns:     make(chan *mockConn, 8),
	}
}

func (d *mockDialer) Dial(context.Context, string, string) (Conn, error) {
	d.mux.Lock()
	d.dials++
	dials := d.dials
	refused := dials <= d.failDials ||
		(d.failFrom > 0 && dials >= d.failFrom)
	noAck := d.noAck
	d.mux.Unlock()

	if refused {
		return nil, errors.Errorf("dial %d refused", dials)
	}

	conn := newMockConn()
	if !noAck {
		ack, err := events.Marshal(events.Connected, nil)
		if err != nil {
			return nil, err
		}
		conn.in <- ack
	}
	d.conns <- conn
	return conn, nil
}

func (d *mockDialer) dialCount() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.dials
}

func (d *mockDialer) setFailFrom(n int) {
	d.mux.Lock()
	d.failFrom = n
	d.mux.Unlock()
}

// waitConn returns the next live connection the dialer produced.
func (d *mockDialer) waitConn(t *testing.T) *mockConn {
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a connection.")
		return nil
	}
}

// blockingDialer holds every dial open until released, ignoring the context,
// to model the slowest possible dial. Successful dials deliver acknowledged
// conns on conns.
type blockingDialer struct {
	release chan struct{}
	conns   chan *mockConn
	dials   int
	mux     sync.Mutex
}

func newBlockingDialer() *blockingDialer {
	return &blockingDialer{
		release: make(chan struct{}),
		conns:   make(chan *mockConn, 8),
	}
}

func (d *blockingDialer) Dial(context.Context, string, string) (Conn, error) {
	d.mux.Lock()
	d.dials++
	d.mux.Unlock()

	<-d.release

	conn := newMockConn()
	ack, err := events.Marshal(events.Connected, nil)
	if err != nil {
		return nil, err
	}
	conn.in <- ack
	d.conns <- conn
	return conn, nil
}

// awaitDial waits until n dials have been started.
func (d *blockingDialer) awaitDial(t *testing.T, n int) {
	require.Eventually(t, func() bool {
		d.mux.Lock()
		defer d.mux.Unlock()
		return d.dials >= n
	}, time.Second, time.Millisecond)
}

func (d *blockingDialer) releaseAll() {
	close(d.release)
}

func (d *blockingDialer) waitConn(t *testing.T) *mockConn {
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a connection.")
		return nil
	}
}

// newTestSession builds a session over a fresh mock dialer with a credential
// in place.
func newTestSession(failDials int) (*Session, *mockDialer) {
	dialer := newMockDialer(failDials)
	store := creds.NewMemStore("token")
	return NewSession(testParams(), store, dialer), dialer
}
