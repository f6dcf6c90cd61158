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

package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

func TestNextSequenceNumberWraps(t *testing.T) {
	require.Equal(t, uint32(2), NextSequenceNumber(1))
	require.Equal(t, uint32(1), NextSequenceNumber(^uint32(0)))
}

func TestReviseSubscriptionParamsClampsToFloor(t *testing.T) {
	lim := limits.Default()
	interval, lifetime, maxKeepAlive, notifications := ReviseSubscriptionParams(0, 1, 1, 0, lim)
	require.Equal(t, lim.MinSubscriptionInterval, interval)
	require.Equal(t, lim.MinKeepAliveCount, maxKeepAlive)
	require.GreaterOrEqual(t, lifetime, 3*maxKeepAlive)
	require.Equal(t, uint32(0), notifications)
}

func testLimits() limits.Limits {
	lim := limits.Default()
	lim.MinSubscriptionInterval = time.Millisecond
	return lim
}

func TestCreateMonitoredItemsUnknownNode(t *testing.T) {
	e := NewEngine(testLimits())
	sub := e.Create(ua.NullNodeID, 100, 100, 10, 0, true)

	resolve := func(ua.NodeID) bool { return false }
	results, status := e.CreateMonitoredItems(sub.ID, resolve, []uaservices.MonitoredItemCreateRequest{
		{NodeID: ua.NewNumericNodeID(2, 1), AttributeID: ua.AttrValue, MonitoringMode: uaservices.MonitoringModeReporting, QueueSize: 10},
	})
	require.Equal(t, ua.Ok, status)
	require.Len(t, results, 1)
	require.Equal(t, ua.BadNodeIdUnknown, results[0].Status)
}

func TestDataChangedFansOutToMonitoredItem(t *testing.T) {
	e := NewEngine(testLimits())
	sub := e.Create(ua.NullNodeID, 100, 100, 10, 0, true)

	nodeID := ua.NewNumericNodeID(2, 1)
	resolve := func(ua.NodeID) bool { return true }
	results, status := e.CreateMonitoredItems(sub.ID, resolve, []uaservices.MonitoredItemCreateRequest{
		{NodeID: nodeID, AttributeID: ua.AttrValue, MonitoringMode: uaservices.MonitoringModeReporting, QueueSize: 10, ClientHandle: 7},
	})
	require.Equal(t, ua.Ok, status)
	itemID := results[0].MonitoredItemID

	e.DataChanged(
		ua.WriteValue{NodeID: nodeID, AttributeID: ua.AttrValue},
		ua.WriteValue{NodeID: nodeID, AttributeID: ua.AttrValue, Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(42)}}},
	)

	sub.mu.Lock()
	item := sub.items[itemID]
	sub.mu.Unlock()
	require.True(t, item.hasQueued())
}

func TestPublishCycleShipsQueuedNotification(t *testing.T) {
	e := NewEngine(testLimits())
	sub := e.Create(ua.NullNodeID, 100, 100, 10, 0, true)
	sub.timer.Stop() // test drives PublishCycle manually, no need for the real timer

	nodeID := ua.NewNumericNodeID(2, 1)
	resolve := func(ua.NodeID) bool { return true }
	results, _ := e.CreateMonitoredItems(sub.ID, resolve, []uaservices.MonitoredItemCreateRequest{
		{NodeID: nodeID, AttributeID: ua.AttrValue, MonitoringMode: uaservices.MonitoringModeReporting, QueueSize: 10, ClientHandle: 7},
	})
	_ = results

	e.DataChanged(
		ua.WriteValue{NodeID: nodeID, AttributeID: ua.AttrValue},
		ua.WriteValue{NodeID: nodeID, AttributeID: ua.AttrValue, Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(1)}}},
	)

	now := time.Now()
	require.Equal(t, ua.Ok, e.EnqueuePublishRequest(sub.ID, 99, now.Add(time.Hour)))

	outcomes := e.PublishCycle(sub.ID, now)
	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Notification)
	require.Equal(t, uint32(1), outcomes[0].Notification.SequenceNumber)
	require.Len(t, outcomes[0].Notification.Notifications, 1)
	require.Equal(t, uint32(7), outcomes[0].Notification.Notifications[0].ClientHandle)
}

func TestPublishCycleTimesOutExpiredRequest(t *testing.T) {
	e := NewEngine(testLimits())
	sub := e.Create(ua.NullNodeID, 100, 100, 10, 0, true)
	sub.timer.Stop()

	now := time.Now()
	require.Equal(t, ua.Ok, e.EnqueuePublishRequest(sub.ID, 5, now.Add(-time.Millisecond)))

	outcomes := e.PublishCycle(sub.ID, now)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Timeout)
	require.Equal(t, uint32(5), outcomes[0].RequestHandle)
}

func TestPublishCycleKeepsZeroDeadlineRequest(t *testing.T) {
	e := NewEngine(testLimits())
	sub := e.Create(ua.NullNodeID, 100, 100, 10, 0, true)
	sub.timer.Stop()

	// zero deadline = no timeout; the request survives arbitrarily many
	// cycles until a notification or keep-alive consumes it
	require.Equal(t, ua.Ok, e.EnqueuePublishRequest(sub.ID, 6, time.Time{}))

	outcomes := e.PublishCycle(sub.ID, time.Now().Add(time.Hour))
	for _, o := range outcomes {
		require.False(t, o.Timeout)
	}
	sub.mu.Lock()
	pending := len(sub.pending)
	sub.mu.Unlock()
	require.Equal(t, 1, pending)
}

func TestAcknowledgeUnknownSequenceNumber(t *testing.T) {
	e := NewEngine(testLimits())
	sub := e.Create(ua.NullNodeID, 100, 100, 10, 0, true)

	results := e.Acknowledge([]uaservices.SubscriptionAcknowledgement{{SubscriptionID: sub.ID, SequenceNumber: 1}})
	require.Equal(t, []ua.StatusCode{ua.BadSequenceNumberUnknown}, results)
}
