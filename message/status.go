////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package message

import "strconv"

// Status represents the current delivery state of a locally originated
// message.
type Status uint8

const (
	// Sending is the status of a message from the moment it becomes visible
	// locally until the send request settles.
	Sending Status = 0

	// Sent is the status of a message once the broker has confirmed it and
	// assigned its server identity.
	Sent Status = 1

	// Errored is the status of a message whose send request failed. The entry
	// stays in the list awaiting an automatic retry or explicit user action.
	Errored Status = 2
)

// String returns a human-readable version of [Status], used for debugging and
// logging. This function adheres to the [fmt.Stringer] interface.
func (s Status) String() string {
	switch s {
	case Sending:
		return "sending"
	case Sent:
		return "sent"
	case Errored:
		return "error"
	default:
		return "Invalid Status: " + strconv.Itoa(int(s))
	}
}
