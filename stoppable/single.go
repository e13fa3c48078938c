////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Single stops one goroutine through a quit channel. It adheres to the
// Stoppable interface.
type Single struct {
	name   string
	quit   chan struct{}
	status Status
	once   sync.Once
}

// NewSingle returns a new Single in the Running state.
func NewSingle(name string) *Single {
	return &Single{
		name:   name,
		quit:   make(chan struct{}, 1),
		status: Running,
	}
}

// Name returns the name of the Single.
func (s *Single) Name() string {
	return s.name
}

// GetStatus returns the status of the Single.
func (s *Single) GetStatus() Status {
	return Status(atomic.LoadUint32((*uint32)(&s.status)))
}

// IsRunning returns true if the Single is marked as running.
func (s *Single) IsRunning() bool {
	return s.GetStatus() == Running
}

// Quit returns a receive-only channel that fires when Close is called. The
// owning goroutine must call ToStopped once it has finished cleaning up.
func (s *Single) Quit() <-chan struct{} {
	return s.quit
}

// ToStopped transitions the Single from stopping to stopped. Panics if Close
// was never called, which means the routine quit without being told to.
func (s *Single) ToStopped() {
	if !atomic.CompareAndSwapUint32(
		(*uint32)(&s.status), uint32(Stopping), uint32(Stopped)) {
		jww.FATAL.Panicf("Cannot mark stoppable %q stopped from status %s.",
			s.name, s.GetStatus())
	}

	jww.TRACE.Printf("Stoppable %q switched from %s to %s.",
		s.name, Stopping, Stopped)
}

// Close signals the goroutine to quit. Returns an error if the Single is not
// running; repeated calls after the first are no-ops.
func (s *Single) Close() error {
	var err error

	s.once.Do(func() {
		if !atomic.CompareAndSwapUint32(
			(*uint32)(&s.status), uint32(Running), uint32(Stopping)) {
			err = errors.Errorf("cannot stop stoppable %q with status %s",
				s.name, s.GetStatus())
			return
		}

		s.quit <- struct{}{}
	})

	if err != nil {
		jww.ERROR.Print(err.Error())
	}

	return err
}
