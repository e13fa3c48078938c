////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package stoppable provides a uniform way of tearing down long-running
// goroutines. Every background routine owned by the client (socket reader,
// heartbeat, presence reaper) holds exactly one Stoppable and exits when its
// quit channel fires.
package stoppable

import "strconv"

// Stoppable is implemented by anything that can stop a running goroutine.
type Stoppable interface {
	// Name returns the name given to the Stoppable at construction.
	Name() string

	// GetStatus returns the current status of the Stoppable.
	GetStatus() Status

	// IsRunning returns true while the routine has not been told to quit.
	IsRunning() bool

	// Close signals the routine to quit. It is safe to call more than once;
	// subsequent calls are no-ops.
	Close() error
}

// Status holds the lifecycle state of a Stoppable.
type Status uint32

const (
	// Running is the starting state; the routine is live.
	Running Status = 0

	// Stopping means Close has been called but the routine has not yet
	// acknowledged the quit signal.
	Stopping Status = 1

	// Stopped means the routine has exited.
	Stopped Status = 2
)

// String adheres to the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "invalid status: " + strconv.Itoa(int(s))
	}
}
