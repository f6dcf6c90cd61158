/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package session implements the session/secure-channel glue of Part 4:
the session activation state machine, the authentication-token ->
session lookup every other service gates on, channel configuration
lookup, and the bounded discovery-before-channel request queue.

Table is the single owner of the live session dictionary, per the "no
hidden module-level state" design note — a field of server.Core, never a
package global, mirroring subscription.Engine and addrspace.Space.
*/
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
)

// State is one of the session activation states of Part 4's diagram.
type State uint8

// States, per Part 4:
// Closed -CreateSession-> Creating -create-response-> Created
// -ActivateSession-> Activating -activate-response-> Activated
// -(channel loss)-> Orphaned -ActivateSession(other channel)-> Activating
// -ActivateSession-response-> Activated -CloseSession-> Closing
// -close-response-> Closed.
const (
	StateClosed State = iota
	StateCreating
	StateCreated
	StateActivating
	StateActivated
	StateOrphaned
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateCreating:
		return "Creating"
	case StateCreated:
		return "Created"
	case StateActivating:
		return "Activating"
	case StateActivated:
		return "Activated"
	case StateOrphaned:
		return "Orphaned"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// sessionIDOffset is added to an authentication token's numeric id to
// derive the session's NodeId. Strictly a convention, not a security
// feature.
const sessionIDOffset = 1_000_000

// Session is a client-authenticated context above a secure channel, per
// Part 3.
type Session struct {
	mu sync.Mutex

	ID               ua.NodeID
	AuthenticationToken ua.NodeID
	ServerNonce      []byte
	State            State
	UserIdentity     any
	ChannelID        uint32
	SubscriptionID   *uint32
	Timeout          time.Duration
}

// Table owns every live session, keyed by authentication token (any
// reference to an unknown session id is BadSessionIdInvalid).
type Table struct {
	mu       sync.Mutex
	byToken  map[ua.NodeIDKey]*Session
	nextToken uint32

	lim limits.Limits
}

// NewTable builds an empty Table bound to lim.
func NewTable(lim limits.Limits) *Table {
	return &Table{byToken: make(map[ua.NodeIDKey]*Session), lim: lim}
}

// nextAuthToken hands out a fresh numeric authentication token. Not
// cryptographically unguessable by itself — the real unguessable
// component is the ServerNonce exchanged during ActivateSession, the
// same split the published OPC UA session model uses.
func (t *Table) nextAuthToken() ua.NodeID {
	n := atomic.AddUint32(&t.nextToken, 1)
	return ua.NewNumericNodeID(0, n)
}

// Create implements CreateSession, per Part 4: a freshly created
// session starts in state Created (its Creating state is the brief
// window before the caller returns the response, which this
// single-threaded core never observes as a separate tick).
func (t *Table) Create(requestedTimeout float64, channelID uint32) *Session {
	token := t.nextAuthToken()
	sessionID := ua.NewNumericNodeID(token.NS, token.Numeric+sessionIDOffset)

	timeout := time.Duration(requestedTimeout) * time.Millisecond
	if timeout < t.lim.MinSessionTimeout {
		timeout = t.lim.MinSessionTimeout
	}
	if timeout > t.lim.MaxSessionTimeout {
		timeout = t.lim.MaxSessionTimeout
	}

	sess := &Session{
		ID:                  sessionID,
		AuthenticationToken: token,
		State:               StateCreated,
		ChannelID:           channelID,
		Timeout:             timeout,
	}

	t.mu.Lock()
	t.byToken[token.Key()] = sess
	t.mu.Unlock()
	return sess
}

// Lookup resolves an authentication token to its session, or
// BadSessionIdInvalid if unknown, per Part 4.
func (t *Table) Lookup(token ua.NodeID) (*Session, ua.StatusCode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.byToken[token.Key()]
	if !ok {
		return nil, ua.BadSessionIdInvalid
	}
	return sess, ua.Ok
}

// RequireActivated resolves token and checks it names an Activated
// session: any service other than Create/Activate/Close on a session
// not in Activated gets BadSessionNotActivated.
func (t *Table) RequireActivated(token ua.NodeID) (*Session, ua.StatusCode) {
	sess, status := t.Lookup(token)
	if status != ua.Ok {
		return nil, status
	}
	sess.mu.Lock()
	state := sess.State
	sess.mu.Unlock()
	if state != StateActivated {
		return nil, ua.BadSessionNotActivated
	}
	return sess, ua.Ok
}

// Activate implements ActivateSession, per Part 4. It accepts both the
// first activation (Created -> Activating -> Activated) and
// reactivation on a new channel after the owning channel was lost
// (Orphaned -> Activating -> Activated).
func (t *Table) Activate(token ua.NodeID, channelID uint32, userIdentity any, nonce []byte) (*Session, ua.StatusCode) {
	sess, status := t.Lookup(token)
	if status != ua.Ok {
		return nil, status
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.State != StateCreated && sess.State != StateOrphaned {
		return nil, ua.BadSessionNotActivated
	}
	sess.State = StateActivating
	sess.ChannelID = channelID
	sess.UserIdentity = userIdentity
	sess.ServerNonce = nonce
	sess.State = StateActivated
	return sess, ua.Ok
}

// Len reports the number of live sessions, for the MaxSessions gate.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byToken)
}

// AttachSubscription records subID as the session's single
// subscription. Attaching a second subscription
// replaces the pointer; the subscription engine owns the old one's
// teardown.
func (s *Session) AttachSubscription(subID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := subID
	s.SubscriptionID = &id
}

// Subscription returns the session's subscription id, if it has one.
func (s *Session) Subscription() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscriptionID == nil {
		return 0, false
	}
	return *s.SubscriptionID, true
}

// DetachSubscription clears any session's pointer to subID, used when
// the subscription engine deletes a subscription whose lifetime expired.
func (t *Table) DetachSubscription(subID uint32) {
	t.mu.Lock()
	sessions := make([]*Session, 0, len(t.byToken))
	for _, s := range t.byToken {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()
	for _, s := range sessions {
		s.mu.Lock()
		if s.SubscriptionID != nil && *s.SubscriptionID == subID {
			s.SubscriptionID = nil
		}
		s.mu.Unlock()
	}
}

// Orphan marks sess as Orphaned, the "session may outlive its secure
// channel briefly" path of Part 3, triggered by a channel-loss event.
func (t *Table) Orphan(channelID uint32) {
	t.mu.Lock()
	sessions := make([]*Session, 0, len(t.byToken))
	for _, s := range t.byToken {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()
	for _, s := range sessions {
		s.mu.Lock()
		if s.ChannelID == channelID && s.State == StateActivated {
			s.State = StateOrphaned
		}
		s.mu.Unlock()
	}
}

// Close implements CloseSession, per Part 4. deleteSubscriptions is
// reported back to the caller so server.Core can route it to
// subscription.Engine.DeleteAllForSession — Table itself never imports
// package subscription, keeping the dependency direction the same as
// addrspace and subscription (both leaves server.Core composes).
func (t *Table) Close(token ua.NodeID) (sessionID ua.NodeID, status ua.StatusCode) {
	sess, status := t.Lookup(token)
	if status != ua.Ok {
		return ua.NodeID{}, status
	}
	sess.mu.Lock()
	sess.State = StateClosing
	id := sess.ID
	sess.State = StateClosed
	sess.mu.Unlock()

	t.mu.Lock()
	delete(t.byToken, token.Key())
	t.mu.Unlock()
	return id, ua.Ok
}
