////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package outbox

import (
	"encoding/json"
	"time"
)

// Params configures the per-conversation send pipeline.
type Params struct {
	// BaseDelay is the delay before the first automatic retry. Each further
	// retry doubles it: delay = BaseDelay * 2^retryCount.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// MaxRetries bounds automatic retries per entry. Once a send has failed
	// MaxRetries times the entry stays errored until the user retries or
	// discards it.
	MaxRetries uint
}

// GetDefaultParams returns a usable set of default outbox parameters.
func GetDefaultParams() Params {
	return Params{
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		MaxRetries: 3,
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

// retryDelay computes the backoff delay for the given retry count.
func (p Params) retryDelay(retryCount uint) time.Duration {
	delay := p.BaseDelay << retryCount
	if delay > p.MaxDelay || delay < p.BaseDelay {
		delay = p.MaxDelay
	}
	return delay
}
