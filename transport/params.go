////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package transport

import (
	"encoding/json"
	"time"
)

// Params configures the realtime session.
type Params struct {
	// URL is the websocket endpoint of the messaging broker.
	URL string

	// ConnectTimeout bounds how long Connect waits for the broker to
	// acknowledge the session before failing with ErrConnectTimeout.
	ConnectTimeout time.Duration

	// HeartbeatInterval is the period between pings while connected. Missed
	// pongs close the socket, which feeds the reconnection path.
	HeartbeatInterval time.Duration

	// PongTimeout is how long the socket may go without a pong before the
	// read side gives up.
	PongTimeout time.Duration

	// ReconnectBaseDelay is the delay before the first reconnection attempt.
	ReconnectBaseDelay time.Duration

	// ReconnectGrowthFactor multiplies the delay after each failed attempt.
	ReconnectGrowthFactor float64

	// ReconnectMaxDelay caps the delay between attempts.
	ReconnectMaxDelay time.Duration

	// MaxReconnectAttempts bounds automatic reconnection; past it the
	// session goes to the Errored state and waits for an explicit Connect.
	MaxReconnectAttempts uint32
}

// GetDefaultParams returns a usable set of default session parameters.
func GetDefaultParams() Params {
	return Params{
		ConnectTimeout:        12 * time.Second,
		HeartbeatInterval:     25 * time.Second,
		PongTimeout:           10 * time.Second,
		ReconnectBaseDelay:    time.Second,
		ReconnectGrowthFactor: 2,
		ReconnectMaxDelay:     30 * time.Second,
		MaxReconnectAttempts:  10,
	}
}

// GetParameters returns the default Params, or override with the given
// parameters, if set.
func GetParameters(params string) (Params, error) {
	p := GetDefaultParams()
	if len(params) > 0 {
		err := json.Unmarshal([]byte(params), &p)
		if err != nil {
			return Params{}, err
		}
	}
	return p, nil
}
