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

package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/addrspace"
	"github.com/facebook/opcua/handlers"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/server/stats"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// chanTransport delivers every sent response on a channel so tests can
// await them.
type chanTransport struct {
	ch chan any
}

func newChanTransport() *chanTransport {
	return &chanTransport{ch: make(chan any, 64)}
}

func (t *chanTransport) Send(channelID uint32, requestContext any, msg any) {
	t.ch <- msg
}

func (t *chanTransport) await(tb testing.TB) any {
	tb.Helper()
	select {
	case msg := <-t.ch:
		return msg
	case <-time.After(2 * time.Second):
		tb.Fatal("timed out waiting for a response")
		return nil
	}
}

func testLimits() Limits {
	lim := limits.Default()
	lim.MinSubscriptionInterval = 20 * time.Millisecond
	return lim
}

func testEndpoint() *EndpointConfig {
	return &EndpointConfig{
		URL: "opc.tcp://localhost:4840",
		App: uaservices.ApplicationDescription{ApplicationURI: "urn:test:server"},
		Policies: []handlers.SecurityPolicyConfig{
			{
				PolicyURI: "http://opcfoundation.org/UA/SecurityPolicy#None",
				Modes:     map[uaservices.SecurityMode]bool{uaservices.SecurityModeNone: true},
			},
		},
	}
}

// startCore builds a Core over a one-variable address space and runs its
// dispatch loop until the test ends.
func startCore(t *testing.T, lim Limits) (*Core, *chanTransport, ua.NodeID) {
	t.Helper()
	tr := newChanTransport()
	core := NewCore(lim, testEndpoint(), tr, stats.NewJSONStats())

	vi := ua.NewStringNodeID(2, "Vi")
	node := addrspace.NewVariableNode(vi, ua.QualifiedName{NS: 2, Name: "Vi"},
		ua.LocalizedText{LocalizedTextEntry: ua.LocalizedTextEntry{Text: "Vi"}},
		ua.NewNumericNodeID(0, 6), -1, ua.AccessLevelCurrentRead|ua.AccessLevelCurrentWrite)
	node.Value = ua.Variant{TypeID: ua.TypeInt32, Value: int32(7)}
	require.NoError(t, core.Space.Configure([]*addrspace.Node{node}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Run(ctx)
	return core, tr, vi
}

func reqHeader(token ua.NodeID, handle uint32) uaservices.RequestHeader {
	return uaservices.RequestHeader{
		AuthenticationToken: token,
		Timestamp:           time.Now(),
		RequestHandle:       handle,
	}
}

// openSession drives CreateSession + ActivateSession and returns the
// authentication token.
func openSession(t *testing.T, core *Core, tr *chanTransport) ua.NodeID {
	t.Helper()
	core.PostRequest(1, nil, &uaservices.CreateSessionRequest{
		Header:                  reqHeader(ua.NodeID{}, 1),
		RequestedSessionTimeout: 60_000,
	})
	created, ok := tr.await(t).(*uaservices.CreateSessionResponse)
	require.True(t, ok, "expected CreateSessionResponse")
	require.NotEmpty(t, created.ServerNonce)
	require.NotEmpty(t, created.ServerEndpoints)

	token := created.AuthenticationToken
	core.PostRequest(1, nil, &uaservices.ActivateSessionRequest{Header: reqHeader(token, 2)})
	activated, ok := tr.await(t).(*uaservices.ActivateSessionResponse)
	require.True(t, ok, "expected ActivateSessionResponse")
	require.NotEmpty(t, activated.ServerNonce)
	return token
}

func TestServiceBeforeActivationFaults(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())

	core.PostRequest(1, nil, &uaservices.CreateSessionRequest{
		Header:                  reqHeader(ua.NodeID{}, 1),
		RequestedSessionTimeout: 60_000,
	})
	created := tr.await(t).(*uaservices.CreateSessionResponse)

	core.PostRequest(1, nil, &uaservices.ReadRequest{
		Header:      reqHeader(created.AuthenticationToken, 2),
		NodesToRead: []uaservices.ReadValueID{{NodeID: vi, AttributeID: ua.AttrValue}},
	})
	fault, ok := tr.await(t).(*uaservices.ServiceFault)
	require.True(t, ok, "expected ServiceFault")
	require.Equal(t, ua.BadSessionNotActivated, fault.Header.ServiceResult)
}

func TestUnknownSessionFaults(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())
	core.PostRequest(1, nil, &uaservices.ReadRequest{
		Header:      reqHeader(ua.NewNumericNodeID(0, 424242), 1),
		NodesToRead: []uaservices.ReadValueID{{NodeID: vi, AttributeID: ua.AttrValue}},
	})
	fault := tr.await(t).(*uaservices.ServiceFault)
	require.Equal(t, ua.BadSessionIdInvalid, fault.Header.ServiceResult)
}

func TestTooManySessions(t *testing.T) {
	lim := testLimits()
	lim.MaxSessions = 1
	core, tr, _ := startCore(t, lim)

	openSession(t, core, tr)
	core.PostRequest(1, nil, &uaservices.CreateSessionRequest{
		Header:                  reqHeader(ua.NodeID{}, 9),
		RequestedSessionTimeout: 60_000,
	})
	fault := tr.await(t).(*uaservices.ServiceFault)
	require.Equal(t, ua.BadTooManySessions, fault.Header.ServiceResult)
}

func TestWriteThenRead(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())
	token := openSession(t, core, tr)

	core.PostRequest(1, nil, &uaservices.WriteRequest{
		Header: reqHeader(token, 3),
		NodesToWrite: []ua.WriteValue{
			{NodeID: vi, AttributeID: ua.AttrValue, Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(42)}}},
		},
	})
	wresp := tr.await(t).(*uaservices.WriteResponse)
	require.Equal(t, []ua.StatusCode{ua.Ok}, wresp.Results)

	core.PostRequest(1, nil, &uaservices.ReadRequest{
		Header:             reqHeader(token, 4),
		TimestampsToReturn: ua.TimestampsNeither,
		NodesToRead:        []uaservices.ReadValueID{{NodeID: vi, AttributeID: ua.AttrValue}},
	})
	rresp := tr.await(t).(*uaservices.ReadResponse)
	require.Equal(t, int32(42), rresp.Results[0].Value.Value)
}

func TestGetEndpointsWithoutSession(t *testing.T) {
	core, tr, _ := startCore(t, testLimits())
	core.PostRequest(1, nil, &uaservices.GetEndpointsRequest{Header: reqHeader(ua.NodeID{}, 1)})
	resp := tr.await(t).(*uaservices.GetEndpointsResponse)
	require.Len(t, resp.Endpoints, 1)
}

func TestPublishWithoutSubscriptionFaults(t *testing.T) {
	core, tr, _ := startCore(t, testLimits())
	token := openSession(t, core, tr)

	core.PostRequest(1, nil, &uaservices.PublishRequest{Header: reqHeader(token, 5)})
	fault := tr.await(t).(*uaservices.ServiceFault)
	require.Equal(t, ua.BadNoSubscription, fault.Header.ServiceResult)
}

// createSubscription drives CreateSubscription + CreateMonitoredItems
// for the test variable and returns the subscription id.
func createSubscription(t *testing.T, core *Core, tr *chanTransport, token, vi ua.NodeID) uint32 {
	t.Helper()
	core.PostRequest(1, nil, &uaservices.CreateSubscriptionRequest{
		Header:                      reqHeader(token, 10),
		RequestedPublishingInterval: 20,
		RequestedLifetimeCount:      30000,
		RequestedMaxKeepAliveCount:  10000,
		PublishingEnabled:           true,
	})
	sub := tr.await(t).(*uaservices.CreateSubscriptionResponse)

	core.PostRequest(1, nil, &uaservices.CreateMonitoredItemsRequest{
		Header:         reqHeader(token, 11),
		SubscriptionID: sub.SubscriptionID,
		ItemsToCreate: []uaservices.MonitoredItemCreateRequest{
			{
				NodeID:         vi,
				AttributeID:    ua.AttrValue,
				MonitoringMode: uaservices.MonitoringModeReporting,
				ClientHandle:   77,
				QueueSize:      10,
			},
		},
	})
	items := tr.await(t).(*uaservices.CreateMonitoredItemsResponse)
	require.Equal(t, ua.Ok, items.Results[0].Status)
	return sub.SubscriptionID
}

func TestWriteNotificationReachesPublish(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())
	token := openSession(t, core, tr)
	subID := createSubscription(t, core, tr, token, vi)

	core.PostRequest(1, nil, &uaservices.WriteRequest{
		Header: reqHeader(token, 20),
		NodesToWrite: []ua.WriteValue{
			{NodeID: vi, AttributeID: ua.AttrValue, Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(42)}}},
		},
	})
	wresp := tr.await(t).(*uaservices.WriteResponse)
	require.Equal(t, []ua.StatusCode{ua.Ok}, wresp.Results)

	core.PostRequest(1, nil, &uaservices.PublishRequest{Header: reqHeader(token, 21)})
	resp := tr.await(t).(*uaservices.PublishResponse)
	require.Equal(t, subID, resp.SubscriptionID)
	require.Len(t, resp.NotificationMessage.Notifications, 1)
	n := resp.NotificationMessage.Notifications[0]
	require.Equal(t, uint32(77), n.ClientHandle)
	require.Equal(t, int32(42), n.Value.Value.Value)
	require.NotZero(t, resp.NotificationMessage.SequenceNumber)
	require.Contains(t, resp.AvailableSequenceNumbers, resp.NotificationMessage.SequenceNumber)
}

func TestTwoOutstandingPublishRequestsEachGetOneResponse(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())
	token := openSession(t, core, tr)
	createSubscription(t, core, tr, token, vi)

	// The standard client pattern: keep two PublishRequests outstanding.
	// Neither carries a timeout; each must be answered exactly once, in
	// FIFO order, by the publish cycle that pops it.
	core.PostRequest(1, nil, &uaservices.PublishRequest{Header: reqHeader(token, 100)})
	core.PostRequest(1, nil, &uaservices.PublishRequest{Header: reqHeader(token, 101)})

	core.PostRequest(1, nil, &uaservices.WriteRequest{
		Header: reqHeader(token, 102),
		NodesToWrite: []ua.WriteValue{
			{NodeID: vi, AttributeID: ua.AttrValue, Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(42)}}},
		},
	})
	_ = tr.await(t).(*uaservices.WriteResponse)

	first, ok := tr.await(t).(*uaservices.PublishResponse)
	require.True(t, ok, "expected first PublishResponse")
	require.Equal(t, uint32(100), first.Header.RequestHandle)
	require.Equal(t, int32(42), first.NotificationMessage.Notifications[0].Value.Value.Value)

	core.PostRequest(1, nil, &uaservices.WriteRequest{
		Header: reqHeader(token, 103),
		NodesToWrite: []ua.WriteValue{
			{NodeID: vi, AttributeID: ua.AttrValue, Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(43)}}},
		},
	})
	_ = tr.await(t).(*uaservices.WriteResponse)

	second, ok := tr.await(t).(*uaservices.PublishResponse)
	require.True(t, ok, "expected second PublishResponse")
	require.Equal(t, uint32(101), second.Header.RequestHandle)
	require.Equal(t, int32(43), second.NotificationMessage.Notifications[0].Value.Value.Value)
}

func TestPublishTimeout(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())
	token := openSession(t, core, tr)
	createSubscription(t, core, tr, token, vi)

	// No pending notifications and a keep-alive horizon far away: the
	// only way out for this Publish is its 100ms deadline.
	core.PostRequest(1, nil, &uaservices.PublishRequest{
		Header: uaservices.RequestHeader{
			AuthenticationToken: token,
			Timestamp:           time.Now(),
			RequestHandle:       30,
			TimeoutHint:         100,
		},
	})
	start := time.Now()
	fault, ok := tr.await(t).(*uaservices.ServiceFault)
	require.True(t, ok, "expected ServiceFault")
	require.Equal(t, ua.BadTimeout, fault.Header.ServiceResult)
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestCloseSessionFailsPendingPublish(t *testing.T) {
	core, tr, vi := startCore(t, testLimits())
	token := openSession(t, core, tr)
	createSubscription(t, core, tr, token, vi)

	core.PostRequest(1, nil, &uaservices.PublishRequest{
		Header: uaservices.RequestHeader{
			AuthenticationToken: token,
			Timestamp:           time.Now(),
			RequestHandle:       40,
			TimeoutHint:         60_000,
		},
	})
	core.PostRequest(1, nil, &uaservices.CloseSessionRequest{
		Header:              reqHeader(token, 41),
		DeleteSubscriptions: true,
	})

	var sawClose, sawSessionClosed bool
	for i := 0; i < 2; i++ {
		switch msg := tr.await(t).(type) {
		case *uaservices.CloseSessionResponse:
			sawClose = true
		case *uaservices.ServiceFault:
			require.Equal(t, ua.BadSessionClosed, msg.Header.ServiceResult)
			sawSessionClosed = true
		default:
			t.Fatalf("unexpected response %T", msg)
		}
	}
	require.True(t, sawClose)
	require.True(t, sawSessionClosed)
}

func TestKeepAliveEmitted(t *testing.T) {
	lim := testLimits()
	core, tr, vi := startCore(t, lim)
	token := openSession(t, core, tr)

	// keep-alive after 2 empty cycles
	core.PostRequest(1, nil, &uaservices.CreateSubscriptionRequest{
		Header:                      reqHeader(token, 50),
		RequestedPublishingInterval: 20,
		RequestedLifetimeCount:      30000,
		RequestedMaxKeepAliveCount:  2,
		PublishingEnabled:           true,
	})
	sub := tr.await(t).(*uaservices.CreateSubscriptionResponse)
	_ = createMonitoredItemless(t, core, tr, token, sub.SubscriptionID, vi)

	core.PostRequest(1, nil, &uaservices.PublishRequest{
		Header: uaservices.RequestHeader{
			AuthenticationToken: token,
			Timestamp:           time.Now(),
			RequestHandle:       51,
			TimeoutHint:         60_000,
		},
	})
	resp, ok := tr.await(t).(*uaservices.PublishResponse)
	require.True(t, ok, "expected keep-alive PublishResponse")
	require.Empty(t, resp.NotificationMessage.Notifications)
	require.NotZero(t, resp.NotificationMessage.SequenceNumber)
}

// createMonitoredItemless registers a monitored item in Sampling mode so
// the subscription has an item but never queues a reporting
// notification, leaving keep-alives as the only traffic.
func createMonitoredItemless(t *testing.T, core *Core, tr *chanTransport, token ua.NodeID, subID uint32, vi ua.NodeID) uint32 {
	t.Helper()
	core.PostRequest(1, nil, &uaservices.CreateMonitoredItemsRequest{
		Header:         reqHeader(token, 52),
		SubscriptionID: subID,
		ItemsToCreate: []uaservices.MonitoredItemCreateRequest{
			{
				NodeID:         vi,
				AttributeID:    ua.AttrValue,
				MonitoringMode: uaservices.MonitoringModeSampling,
				ClientHandle:   5,
				QueueSize:      1,
			},
		},
	})
	items := tr.await(t).(*uaservices.CreateMonitoredItemsResponse)
	require.Equal(t, ua.Ok, items.Results[0].Status)
	return items.Results[0].MonitoredItemID
}
