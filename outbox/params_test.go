////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tests that the backoff delay doubles per retry and clamps at MaxDelay,
// including on shift overflow.
func TestParams_RetryDelay(t *testing.T) {
	p := GetDefaultParams()

	require.Equal(t, 2*time.Second, p.retryDelay(0))
	require.Equal(t, 4*time.Second, p.retryDelay(1))
	require.Equal(t, 8*time.Second, p.retryDelay(2))
	require.Equal(t, 16*time.Second, p.retryDelay(3))
	require.Equal(t, 30*time.Second, p.retryDelay(4))
	require.Equal(t, 30*time.Second, p.retryDelay(64))
}

// Tests the JSON override path of GetParameters.
func TestGetParameters(t *testing.T) {
	p, err := GetParameters(`{"MaxRetries":5}`)
	require.NoError(t, err)
	require.EqualValues(t, 5, p.MaxRetries)
	require.Equal(t, GetDefaultParams().BaseDelay, p.BaseDelay)

	_, err = GetParameters(`{`)
	require.Error(t, err)
}
