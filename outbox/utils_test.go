////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gitlab.com/tradebridge/client/message"
)

// testParams returns outbox parameters scaled down for tests.
func testParams() Params {
	return Params{
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   25 * time.Millisecond,
		MaxRetries: 3,
	}
}

// response is one scripted outcome of the message POST endpoint.
type response struct {
	msg message.Message
	err error
}

// mockRequestor scripts the send endpoint. Do blocks until a response has
// been queued, which doubles as in-flight control for the race tests.
type mockRequestor struct {
	responses chan response
	calls     int
	mux       sync.Mutex
}

func newMockRequestor() *mockRequestor {
	return &mockRequestor{responses: make(chan response, 16)}
}

func (r *mockRequestor) Do(_ context.Context, _, _ string,
	_ interface{}) (json.RawMessage, error) {

	r.mux.Lock()
	r.calls++
	r.mux.Unlock()

	resp := <-r.responses
	if resp.err != nil {
		return nil, resp.err
	}
	return json.Marshal(resp.msg)
}

// respond queues the next outcome of the send endpoint.
func (r *mockRequestor) respond(msg message.Message, err error) {
	r.responses <- response{msg: msg, err: err}
}

func (r *mockRequestor) callCount() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.calls
}

// captureModel is an EventModel streaming every change to channels so tests
// can wait on asynchronous retries.
type captureModel struct {
	adds    chan message.Entry
	updates chan message.Entry
	removes chan string
}

func newCaptureModel() *captureModel {
	return &captureModel{
		adds:    make(chan message.Entry, 32),
		updates: make(chan message.Entry, 32),
		removes: make(chan string, 32),
	}
}

func (m *captureModel) EntryAdded(e message.Entry)   { m.adds <- e }
func (m *captureModel) EntryUpdated(e message.Entry) { m.updates <- e }
func (m *captureModel) EntryRemoved(key string)      { m.removes <- key }

func (m *captureModel) nextAdded(t *testing.T) message.Entry {
	select {
	case e := <-m.adds:
		return e
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for EntryAdded.")
		return message.Entry{}
	}
}

func (m *captureModel) nextUpdated(t *testing.T) message.Entry {
	select {
	case e := <-m.updates:
		return e
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for EntryUpdated.")
		return message.Entry{}
	}
}

func (m *captureModel) nextRemoved(t *testing.T) string {
	select {
	case key := <-m.removes:
		return key
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for EntryRemoved.")
		return ""
	}
}

func (m *captureModel) expectNoUpdate(t *testing.T, window time.Duration) {
	select {
	case e := <-m.updates:
		t.Fatalf("Unexpected EntryUpdated for %s.", e.Key())
	case <-time.After(window):
	}
}
