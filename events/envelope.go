////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package events

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the framing of every socket message: a wire event name plus an
// opaque payload decoded by the handler for that Kind.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Marshal frames the given payload under the wire name of the Kind.
func Marshal(kind Kind, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, errors.WithMessagef(err,
				"failed to marshal %s payload", kind)
		}
	}

	return json.Marshal(Envelope{Event: kind.String(), Data: data})
}

// Unmarshal decodes a socket frame into its Kind and raw payload. Frames with
// an unrecognized event name come back as Unknown with no error so that
// vocabulary additions on the broker do not break older clients.
func Unmarshal(frame []byte) (Kind, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Unknown, nil, errors.WithMessage(err,
			"failed to unmarshal event envelope")
	}

	return ParseKind(env.Event), env.Data, nil
}
