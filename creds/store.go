////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package creds holds the session credential used to authenticate both the
// request layer and the realtime socket.
package creds

import "sync"

// Store gives synchronous access to the bearer credential. The transport
// reads the token once per connection attempt; it is never cached across
// attempts.
type Store interface {
	// Token returns the current credential, or the empty string when logged
	// out.
	Token() string

	// SetToken replaces the current credential.
	SetToken(token string)

	// Clear drops the credential.
	Clear()
}

// MemStore is an in-memory Store.
type MemStore struct {
	token string
	mux   sync.RWMutex
}

// NewMemStore returns a MemStore holding the given token.
func NewMemStore(token string) *MemStore {
	return &MemStore{token: token}
}

// Token implements Store.
func (m *MemStore) Token() string {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.token
}

// SetToken implements Store.
func (m *MemStore) SetToken(token string) {
	m.mux.Lock()
	m.token = token
	m.mux.Unlock()
}

// Clear implements Store.
func (m *MemStore) Clear() {
	m.SetToken("")
}
