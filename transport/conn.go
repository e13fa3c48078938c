////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gitlab.com/xx_network/primitives/netTime"
)

// Conn is one live socket. The session reads frames from a single goroutine
// and serializes writes itself.
type Conn interface {
	// ReadMessage blocks until the next frame or a connection error.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one frame.
	WriteMessage(data []byte) error

	// Ping sends a ping control frame; the transport treats missed pongs as
	// a dead connection.
	Ping(deadline time.Time) error

	// Close tears down the socket, unblocking any pending read.
	Close() error
}

// Dialer opens an authenticated Conn to the broker.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// WebsocketDialer is the production Dialer over gorilla/websocket.
type WebsocketDialer struct {
	// PongTimeout mirrors Params.PongTimeout; the read deadline is pushed
	// this far on every received pong.
	PongTimeout time.Duration
}

// Dial implements Dialer. The credential is carried as a bearer header on the
// upgrade request.
func (d *WebsocketDialer) Dial(ctx context.Context, url, token string) (
	Conn, error) {

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to dial %s", url)
	}

	pongTimeout := d.PongTimeout
	if pongTimeout == 0 {
		pongTimeout = GetDefaultParams().PongTimeout
	}

	_ = ws.SetReadDeadline(netTime.Now().Add(pongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(netTime.Now().Add(pongTimeout))
	})

	return &wsConn{ws: ws}, nil
}

// wsConn adapts *websocket.Conn to the Conn interface.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Ping(deadline time.Time) error {
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
