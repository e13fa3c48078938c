////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package outbox

import "github.com/pkg/errors"

var (
	// ErrEmptyMessage is returned synchronously by Send when the content
	// trims to nothing. Empty sends never enter the queue.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrClosed is returned by operations on a tracker that has been torn
	// down.
	ErrClosed = errors.New("outbox tracker is closed")
)
