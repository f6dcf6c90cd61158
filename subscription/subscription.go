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
Package subscription implements the subscription/monitored-item
lifecycle of Part 4: Create/Modify bounds revision, the publish cycle
(notification dispatch, keep-alive, lifetime expiry), publish-request
queueing and expiration, acknowledgements, sequence numbering, and
monitored-item write fan-out.

Engine is the single owner of the subscription dictionary and the
node-to-monitored-item auxiliary map, per the "no hidden module-level
state" design note — it is a field of server.Core, never a package
global, the same way addrspace.Space is.
*/
package subscription

import (
	"sync"
	"time"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// NextSequenceNumber implements Part 4's generator: u32 sequence
// numbers wrap from MaxUint32 to 1, never emitting 0 (0 is reserved).
func NextSequenceNumber(prev uint32) uint32 {
	if prev == ^uint32(0) {
		return 1
	}
	return prev + 1
}

// MonitoredItem is a subscription-scoped watch on one node attribute,
// per Part 3.
type MonitoredItem struct {
	ID              uint32
	SubscriptionID  uint32
	NodeID          ua.NodeID
	AttributeID     ua.AttributeID
	IndexRange      string
	Mode            uaservices.MonitoringMode
	ClientHandle    uint32
	SamplingInterval float64
	QueueSize       uint32

	mu    sync.Mutex
	queue []ua.DataValue
}

// push appends a sampled value to the item's notification queue,
// dropping the oldest entry once QueueSize is reached (the OPC UA
// discard-oldest default queue policy).
func (m *MonitoredItem) push(v ua.DataValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := int(m.QueueSize)
	if max < 1 {
		max = 1
	}
	m.queue = append(m.queue, v)
	if len(m.queue) > max {
		m.queue = m.queue[len(m.queue)-max:]
	}
}

// drain removes and returns every queued value, in order.
func (m *MonitoredItem) drain() []ua.DataValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.queue
	m.queue = nil
	return out
}

func (m *MonitoredItem) hasQueued() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) > 0
}

// pendingPublish is one not-yet-answered PublishRequest, holding just
// enough to build or fail its response later (Part 4).
type pendingPublish struct {
	requestHandle uint32
	deadline      time.Time
}

// Subscription is a server-side subscription, per Part 3.
type Subscription struct {
	mu sync.Mutex

	ID                         uint32
	SessionID                  ua.NodeID
	RevisedPublishingInterval  time.Duration
	RevisedLifetimeCount       uint32
	RevisedMaxKeepAliveCount   uint32
	RevisedMaxNotifications    uint32
	PublishingEnabled          bool

	items map[uint32]*MonitoredItem

	pending  []pendingPublish
	retained map[uint32]uaservices.NotificationMessage
	order    []uint32

	nextSeq          uint32
	keepAliveCounter uint32
	lifetimeCounter  uint32

	timer *time.Timer
}

// ReviseSubscriptionParams computes the revised bounds for a
// Create/ModifySubscription request, per Part 4's total ordering of
// constraints. The same formula serves both services (Modify simply
// re-applies it and swaps the timer period).
func ReviseSubscriptionParams(requestedInterval float64, requestedLifetime, requestedMaxKeepAlive, maxNotifications uint32, lim limits.Limits) (interval time.Duration, lifetime, maxKeepAlive, notifications uint32) {
	requested := time.Duration(requestedInterval * float64(time.Millisecond))
	interval = clampDuration(requested, lim.MinSubscriptionInterval, lim.MaxSubscriptionInterval)

	maxKeepAlive = clampU32(requestedMaxKeepAlive, lim.MinKeepAliveCount, lim.MaxKeepAliveCount)

	lifetime = requestedLifetime
	if floor := 3 * maxKeepAlive; lifetime < floor {
		lifetime = floor
	}
	lifetime = clampU32(lifetime, lim.MinLifetimeCount, lim.MaxLifetimeCount)

	notifications = maxNotifications
	if notifications != 0 && notifications > lim.MaxOperationsPerMessage {
		notifications = lim.MaxOperationsPerMessage
	}
	return interval, lifetime, maxKeepAlive, notifications
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
