////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tests the full lifecycle: running, close signals the quit channel, and the
// routine acknowledges with ToStopped.
func TestSingle(t *testing.T) {
	s := NewSingle("test")
	require.Equal(t, "test", s.Name())
	require.True(t, s.IsRunning())
	require.Equal(t, Running, s.GetStatus())

	stopped := make(chan struct{})
	go func() {
		<-s.Quit()
		s.ToStopped()
		close(stopped)
	}()

	require.NoError(t, s.Close())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Routine never acknowledged the quit signal.")
	}
	require.Equal(t, Stopped, s.GetStatus())
	require.False(t, s.IsRunning())

	// Repeated closes are no-ops.
	require.NoError(t, s.Close())
}
