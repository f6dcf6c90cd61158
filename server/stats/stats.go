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
Package stats implements statistics collection and reporting.
It is used by server to report internal statistics, such as number of
requests and responses per service, live sessions and subscriptions,
and publish-cycle activity.
*/
package stats

import (
	"sync"
	"sync/atomic"

	"github.com/facebook/opcua/uaservices"
)

// Stats is a metric collection interface
type Stats interface {
	// Start starts a stat reporter
	// Use this for passive reporters
	Start(monitoringport int)

	// Snapshot the values so they can be reported atomically
	Snapshot()

	// Reset atomically sets all the counters to 0
	Reset()

	// IncRequest atomically adds 1 to the received-request counter for t
	IncRequest(t uaservices.TypeID)

	// IncResponse atomically adds 1 to the sent-response counter for t
	IncResponse(t uaservices.TypeID)

	// IncServiceFault atomically adds 1 to the fault counter
	IncServiceFault()

	// IncSession atomically adds 1 to the live-session gauge
	IncSession()

	// DecSession atomically removes 1 from the live-session gauge
	DecSession()

	// IncSubscription atomically adds 1 to the live-subscription gauge
	IncSubscription()

	// DecSubscription atomically removes 1 from the live-subscription gauge
	DecSubscription()

	// IncNotification atomically adds 1 to the shipped-notification counter
	IncNotification()

	// IncKeepAlive atomically adds 1 to the keep-alive counter
	IncKeepAlive()

	// IncPublishTimeout atomically adds 1 to the expired-publish counter
	IncPublishTimeout()

	// SetPublishQueue records the current pending-publish depth
	SetPublishQueue(depth int64)

	// IncDataChange atomically adds 1 to the data-change event counter
	IncDataChange()
}

// counterMap is an int64 counter per service type with a mutex.
type counterMap struct {
	sync.Mutex
	m map[uaservices.TypeID]int64
}

func (c *counterMap) init() {
	c.Lock()
	c.m = make(map[uaservices.TypeID]int64)
	c.Unlock()
}

func (c *counterMap) inc(t uaservices.TypeID) {
	c.Lock()
	c.m[t]++
	c.Unlock()
}

func (c *counterMap) copy(dst *counterMap) {
	c.Lock()
	defer c.Unlock()
	dst.Lock()
	defer dst.Unlock()
	dst.m = make(map[uaservices.TypeID]int64, len(c.m))
	for k, v := range c.m {
		dst.m[k] = v
	}
}

func (c *counterMap) reset() {
	c.init()
}

// counters is the full raw counter set shared by every Stats
// implementation in this package.
type counters struct {
	rx counterMap
	tx counterMap

	faults          int64
	sessions        int64
	subscriptions   int64
	notifications   int64
	keepAlives      int64
	publishTimeouts int64
	publishQueue    int64
	dataChanges     int64
}

func (c *counters) init() {
	c.rx.init()
	c.tx.init()
}

func (c *counters) reset() {
	c.rx.reset()
	c.tx.reset()
	atomic.StoreInt64(&c.faults, 0)
	atomic.StoreInt64(&c.sessions, 0)
	atomic.StoreInt64(&c.subscriptions, 0)
	atomic.StoreInt64(&c.notifications, 0)
	atomic.StoreInt64(&c.keepAlives, 0)
	atomic.StoreInt64(&c.publishTimeouts, 0)
	atomic.StoreInt64(&c.publishQueue, 0)
	atomic.StoreInt64(&c.dataChanges, 0)
}

// toMap flattens the counter set into "prefix.suffix" report keys, one
// per metric.
func (c *counters) toMap() map[string]int64 {
	out := make(map[string]int64)
	c.rx.Lock()
	for t, v := range c.rx.m {
		out["rx."+t.String()] = v
	}
	c.rx.Unlock()
	c.tx.Lock()
	for t, v := range c.tx.m {
		out["tx."+t.String()] = v
	}
	c.tx.Unlock()
	out["servicefaults"] = atomic.LoadInt64(&c.faults)
	out["sessions"] = atomic.LoadInt64(&c.sessions)
	out["subscriptions"] = atomic.LoadInt64(&c.subscriptions)
	out["notifications"] = atomic.LoadInt64(&c.notifications)
	out["keepalives"] = atomic.LoadInt64(&c.keepAlives)
	out["publish.timeouts"] = atomic.LoadInt64(&c.publishTimeouts)
	out["publish.queue"] = atomic.LoadInt64(&c.publishQueue)
	out["datachanges"] = atomic.LoadInt64(&c.dataChanges)
	return out
}
