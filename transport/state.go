////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package transport

import "strconv"

// State is the lifecycle state of the realtime session.
type State uint32

const (
	// Disconnected means no socket exists and no attempt is in flight. A
	// reconnection timer may still be pending.
	Disconnected State = 0

	// Connecting means a connection attempt is in flight. Further Connect
	// calls join the attempt instead of dialing a second socket.
	Connecting State = 1

	// Connected means the socket is live and acknowledged.
	Connected State = 2

	// Errored means the reconnection budget was exhausted; only an explicit
	// Connect leaves this state.
	Errored State = 3
)

// String returns a human-readable version of [State], used for debugging and
// logging. This function adheres to the [fmt.Stringer] interface.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Errored:
		return "error"
	default:
		return "Invalid State: " + strconv.Itoa(int(s))
	}
}
