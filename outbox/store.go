////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package outbox

import (
	"sync"

	"gitlab.com/tradebridge/client/convo"
	"gitlab.com/tradebridge/client/message"
	"gitlab.com/tradebridge/client/request"
)

// Store hands out one Tracker per conversation, created lazily. All trackers
// share the request layer, the event model, and the parameters.
type Store struct {
	trackers map[int64]*Tracker

	net     request.Requestor
	em      EventModel
	params  Params
	me      int64
	convos  *convo.Collection

	mux sync.Mutex
}

// NewStore builds a Store. convos may be nil when no conversation collection
// is wired; closed-conversation reconciliations then go unlogged.
func NewStore(net request.Requestor, em EventModel, params Params,
	localUser int64, convos *convo.Collection) *Store {

	return &Store{
		trackers: make(map[int64]*Tracker),
		net:      net,
		em:       em,
		params:   params,
		me:       localUser,
		convos:   convos,
	}
}

// Get returns the Tracker for the conversation, creating it on first use.
func (s *Store) Get(conversationID int64) *Tracker {
	s.mux.Lock()
	defer s.mux.Unlock()

	tracker, exists := s.trackers[conversationID]
	if !exists {
		tracker = NewTracker(conversationID, s.me, s.net, s.em, s.params,
			s.closedCheck(conversationID))
		s.trackers[conversationID] = tracker
	}
	return tracker
}

// AddRemote routes a broker-pushed message to its conversation's tracker.
func (s *Store) AddRemote(msg message.Message) {
	s.Get(msg.ConversationID).AddRemote(msg)
}

// SetRemoteStatus applies a status update to whichever tracker owns the
// message. Status updates do not carry a conversation ID on the wire.
func (s *Store) SetRemoteStatus(messageID int64, status string) bool {
	s.mux.Lock()
	trackers := make([]*Tracker, 0, len(s.trackers))
	for _, tracker := range s.trackers {
		trackers = append(trackers, tracker)
	}
	s.mux.Unlock()

	for _, tracker := range trackers {
		if tracker.SetRemoteStatus(messageID, status) {
			return true
		}
	}
	return false
}

// Close tears down every tracker, cancelling all pending backoff timers.
func (s *Store) Close() {
	s.mux.Lock()
	trackers := make([]*Tracker, 0, len(s.trackers))
	for _, tracker := range s.trackers {
		trackers = append(trackers, tracker)
	}
	s.mux.Unlock()

	for _, tracker := range trackers {
		tracker.Close()
	}
}

func (s *Store) closedCheck(conversationID int64) func() bool {
	if s.convos == nil {
		return nil
	}
	return func() bool {
		conv, exists := s.convos.Get(conversationID)
		return exists && conv.Status == convo.Closed
	}
}
