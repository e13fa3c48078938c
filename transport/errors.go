////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package transport

import "github.com/pkg/errors"

var (
	// ErrNoCredential is returned by Connect when the credential store holds
	// no token. This is fatal to the attempt; it is never retried
	// automatically.
	ErrNoCredential = errors.New(
		"no credential available to authenticate the session")

	// ErrConnectTimeout is returned by Connect when the broker does not
	// acknowledge the session within the configured window. The reconnection
	// policy retries it.
	ErrConnectTimeout = errors.New(
		"timed out waiting for session acknowledgment")

	// ErrReconnectBudget is surfaced to the error callback once the maximum
	// reconnection attempt count is exceeded. The session stays down until an
	// explicit Connect.
	ErrReconnectBudget = errors.New(
		"reconnection attempt budget exhausted")

	// ErrSessionClosed is returned when a connection attempt is aborted by a
	// concurrent Disconnect.
	ErrSessionClosed = errors.New("session closed during connection attempt")
)
