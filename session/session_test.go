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

package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
)

func TestCreateThenRequireActivatedFails(t *testing.T) {
	table := NewTable(limits.Default())
	sess := table.Create(0, 1)
	require.Equal(t, StateCreated, sess.State)

	_, status := table.RequireActivated(sess.AuthenticationToken)
	require.Equal(t, ua.BadSessionNotActivated, status)
}

func TestActivateThenRequireActivatedSucceeds(t *testing.T) {
	table := NewTable(limits.Default())
	sess := table.Create(0, 1)

	_, status := table.Activate(sess.AuthenticationToken, 1, "anonymous", []byte("nonce"))
	require.Equal(t, ua.Ok, status)

	got, status := table.RequireActivated(sess.AuthenticationToken)
	require.Equal(t, ua.Ok, status)
	require.Equal(t, sess.ID, got.ID)
}

func TestLookupUnknownToken(t *testing.T) {
	table := NewTable(limits.Default())
	_, status := table.Lookup(ua.NewNumericNodeID(0, 999))
	require.Equal(t, ua.BadSessionIdInvalid, status)
}

func TestOrphanThenReactivateOnNewChannel(t *testing.T) {
	table := NewTable(limits.Default())
	sess := table.Create(0, 1)
	_, status := table.Activate(sess.AuthenticationToken, 1, nil, nil)
	require.Equal(t, ua.Ok, status)

	table.Orphan(1)
	sess.mu.Lock()
	state := sess.State
	sess.mu.Unlock()
	require.Equal(t, StateOrphaned, state)

	_, status = table.Activate(sess.AuthenticationToken, 2, nil, nil)
	require.Equal(t, ua.Ok, status)
	got, status := table.RequireActivated(sess.AuthenticationToken)
	require.Equal(t, ua.Ok, status)
	require.Equal(t, uint32(2), got.ChannelID)
}

func TestCloseRemovesSession(t *testing.T) {
	table := NewTable(limits.Default())
	sess := table.Create(0, 1)
	_, status := table.Close(sess.AuthenticationToken)
	require.Equal(t, ua.Ok, status)

	_, status = table.Lookup(sess.AuthenticationToken)
	require.Equal(t, ua.BadSessionIdInvalid, status)
}

func TestDiscoveryQueueBound(t *testing.T) {
	q := NewDiscoveryQueue(2)
	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	require.ErrorIs(t, q.Enqueue("c"), ErrDiscoveryQueueFull)

	drained := q.Drain()
	require.Equal(t, []any{"a", "b"}, drained)
	require.Empty(t, q.Drain())
}

func TestClientChannelDrainsOnConnect(t *testing.T) {
	var events []Event
	ch := NewClientChannel(7, 5, func(e Event) { events = append(events, e) })

	ch.Open()
	require.NoError(t, ch.EnqueueDiscovery("get-endpoints-1"))
	require.NoError(t, ch.EnqueueDiscovery("get-endpoints-2"))
	ch.Connected()

	require.Len(t, events, 3)
	require.Equal(t, EventSCConnect, events[0].Kind)
	require.Equal(t, EventSendDiscoveryRequest, events[1].Kind)
	require.Equal(t, "get-endpoints-1", events[1].DiscoveryRequest)
	require.Equal(t, "get-endpoints-2", events[2].DiscoveryRequest)
}

func TestClientChannelFailsPendingOnFinalFailure(t *testing.T) {
	var events []Event
	ch := NewClientChannel(7, 5, func(e Event) { events = append(events, e) })

	require.NoError(t, ch.EnqueueDiscovery("get-endpoints"))
	ch.Failed()

	require.Len(t, events, 2)
	require.Equal(t, EventSendRequestFailed, events[0].Kind)
	require.Equal(t, StatusClosed, events[0].DiscoveryStatus)
	require.Equal(t, EventSCDisconnect, events[1].Kind)
}
