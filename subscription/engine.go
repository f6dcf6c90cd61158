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
	"sync"
	"time"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// Engine owns every live Subscription and the node -> monitored-items
// fan-out map. Engine.OnPublishCycle is invoked (from the
// per-subscription timer's own goroutine, never from the service
// dispatch goroutine) purely to post a publish-cycle event back onto
// server.Core's event queue. The timer is a re-armed one-shot rather
// than a ticker because the revised publishing interval can change
// under ModifySubscription.
type Engine struct {
	mu   sync.Mutex
	subs map[uint32]*Subscription

	// byNode maps a node to the monitored items watching it, the
	// auxiliary structure Part 4's write fan-out depends on.
	byNode map[ua.NodeIDKey][]*MonitoredItem

	nextSubID  uint32
	nextItemID uint32

	lim limits.Limits

	// OnPublishCycle is called with a subscription's id every time its
	// publish timer fires. The engine itself never mutates state from
	// this callback's goroutine; callers post it as an event onto their
	// own single-threaded dispatch loop and call Engine.PublishCycle
	// from there; no locks are held across an event boundary.
	OnPublishCycle func(subscriptionID uint32)
}

// NewEngine builds an empty Engine bound to lim.
func NewEngine(lim limits.Limits) *Engine {
	return &Engine{
		subs:   make(map[uint32]*Subscription),
		byNode: make(map[ua.NodeIDKey][]*MonitoredItem),
		lim:    lim,
	}
}

// Create implements CreateSubscription, per Part 4. The returned
// Subscription's periodic timer is already armed.
func (e *Engine) Create(sessionID ua.NodeID, requestedInterval float64, requestedLifetime, requestedMaxKeepAlive, maxNotifications uint32, publishingEnabled bool) *Subscription {
	interval, lifetime, maxKeepAlive, notifications := ReviseSubscriptionParams(requestedInterval, requestedLifetime, requestedMaxKeepAlive, maxNotifications, e.lim)

	e.mu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.mu.Unlock()

	sub := &Subscription{
		ID:                        id,
		SessionID:                 sessionID,
		RevisedPublishingInterval: interval,
		RevisedLifetimeCount:      lifetime,
		RevisedMaxKeepAliveCount:  maxKeepAlive,
		RevisedMaxNotifications:   notifications,
		PublishingEnabled:         publishingEnabled,
		items:                     make(map[uint32]*MonitoredItem),
		retained:                  make(map[uint32]uaservices.NotificationMessage),
		nextSeq:                   1,
	}

	e.mu.Lock()
	e.subs[id] = sub
	e.mu.Unlock()

	e.armTimer(sub)
	return sub
}

// armTimer (re)starts sub's publish-cycle timer at its current revised
// interval.
func (e *Engine) armTimer(sub *Subscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.timer != nil {
		sub.timer.Stop()
	}
	id := sub.ID
	sub.timer = time.AfterFunc(sub.RevisedPublishingInterval, func() {
		if e.OnPublishCycle != nil {
			e.OnPublishCycle(id)
		}
		e.reArm(id)
	})
}

// reArm re-registers the timer for another cycle once the previous one
// has fired (time.AfterFunc is one-shot).
func (e *Engine) reArm(id uint32) {
	e.mu.Lock()
	sub, ok := e.subs[id]
	e.mu.Unlock()
	if !ok {
		return
	}
	e.armTimer(sub)
}

// Get returns the subscription with id, or false if it doesn't exist.
func (e *Engine) Get(id uint32) (*Subscription, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.subs[id]
	return sub, ok
}

// Modify recomputes a subscription's revised bounds and replaces its
// timer's period, per Part 4. Active Publish requests are not
// cancelled.
func (e *Engine) Modify(id uint32, requestedInterval float64, requestedLifetime, requestedMaxKeepAlive, maxNotifications uint32) (*Subscription, ua.StatusCode) {
	sub, ok := e.Get(id)
	if !ok {
		return nil, ua.BadSubscriptionIdInvalid
	}
	interval, lifetime, maxKeepAlive, notifications := ReviseSubscriptionParams(requestedInterval, requestedLifetime, requestedMaxKeepAlive, maxNotifications, e.lim)

	sub.mu.Lock()
	sub.RevisedPublishingInterval = interval
	sub.RevisedLifetimeCount = lifetime
	sub.RevisedMaxKeepAliveCount = maxKeepAlive
	sub.RevisedMaxNotifications = notifications
	sub.mu.Unlock()

	e.armTimer(sub)
	return sub, ua.Ok
}

// SetPublishingMode enables or disables publishing on each named
// subscription, per Part 4's SetPublishingMode service.
func (e *Engine) SetPublishingMode(ids []uint32, enabled bool) []ua.StatusCode {
	results := make([]ua.StatusCode, len(ids))
	for i, id := range ids {
		sub, ok := e.Get(id)
		if !ok {
			results[i] = ua.BadSubscriptionIdInvalid
			continue
		}
		sub.mu.Lock()
		sub.PublishingEnabled = enabled
		sub.mu.Unlock()
		results[i] = ua.Ok
	}
	return results
}

// Delete removes a subscription and stops its timer: timers are owned
// by the engine and cancelled when their subscription goes away.
func (e *Engine) Delete(id uint32) {
	e.mu.Lock()
	sub, ok := e.subs[id]
	delete(e.subs, id)
	e.mu.Unlock()
	if !ok {
		return
	}
	sub.mu.Lock()
	if sub.timer != nil {
		sub.timer.Stop()
	}
	items := make([]*MonitoredItem, 0, len(sub.items))
	for _, it := range sub.items {
		items = append(items, it)
	}
	sub.mu.Unlock()

	e.mu.Lock()
	for _, it := range items {
		e.removeFromNodeIndex(it)
	}
	e.mu.Unlock()
}

// DeleteAllForSession removes every subscription owned by sessionID, the
// CloseSession(deleteSubscriptions=true) teardown path.
func (e *Engine) DeleteAllForSession(sessionID ua.NodeID) {
	e.mu.Lock()
	var ids []uint32
	for id, sub := range e.subs {
		sub.mu.Lock()
		owner := sub.SessionID
		sub.mu.Unlock()
		if owner.Equal(sessionID) {
			ids = append(ids, id)
		}
	}
	e.mu.Unlock()
	for _, id := range ids {
		e.Delete(id)
	}
}

// CreateMonitoredItems implements Part 4's monitored-item creation:
// resolve the target node (BadNodeIdUnknown if missing), reserve an item
// id, insert it into both the subscription and the node->items index.
func (e *Engine) CreateMonitoredItems(subID uint32, resolve func(ua.NodeID) bool, items []uaservices.MonitoredItemCreateRequest) ([]uaservices.MonitoredItemCreateResult, ua.StatusCode) {
	sub, ok := e.Get(subID)
	if !ok {
		return nil, ua.BadSubscriptionIdInvalid
	}

	results := make([]uaservices.MonitoredItemCreateResult, len(items))
	for i, req := range items {
		if !resolve(req.NodeID) {
			results[i] = uaservices.MonitoredItemCreateResult{Status: ua.BadNodeIdUnknown}
			continue
		}

		e.mu.Lock()
		e.nextItemID++
		itemID := e.nextItemID
		e.mu.Unlock()

		revisedInterval := req.SamplingInterval
		if revisedInterval < 0 {
			revisedInterval = float64(sub.RevisedPublishingInterval / time.Millisecond)
		}
		revisedQueue := req.QueueSize
		if revisedQueue < 1 {
			revisedQueue = 1
		}

		item := &MonitoredItem{
			ID:               itemID,
			SubscriptionID:   subID,
			NodeID:           req.NodeID,
			AttributeID:      req.AttributeID,
			IndexRange:       req.IndexRange,
			Mode:             req.MonitoringMode,
			ClientHandle:     req.ClientHandle,
			SamplingInterval: revisedInterval,
			QueueSize:        revisedQueue,
		}

		sub.mu.Lock()
		sub.items[itemID] = item
		sub.mu.Unlock()

		e.mu.Lock()
		key := req.NodeID.Key()
		e.byNode[key] = append(e.byNode[key], item)
		e.mu.Unlock()

		results[i] = uaservices.MonitoredItemCreateResult{
			Status:                  ua.Ok,
			MonitoredItemID:         itemID,
			RevisedSamplingInterval: revisedInterval,
			RevisedQueueSize:        revisedQueue,
		}
	}
	return results, ua.Ok
}

func (e *Engine) removeFromNodeIndex(item *MonitoredItem) {
	key := item.NodeID.Key()
	items := e.byNode[key]
	for i, it := range items {
		if it.ID == item.ID {
			e.byNode[key] = append(items[:i], items[i+1:]...)
			break
		}
	}
	if len(e.byNode[key]) == 0 {
		delete(e.byNode, key)
	}
}

// DataChanged fans a Write handler's data-change event out to every
// monitored item watching old.NodeID whose attribute/index-range
// matches.
func (e *Engine) DataChanged(old, newVal ua.WriteValue) {
	e.mu.Lock()
	items := append([]*MonitoredItem(nil), e.byNode[old.NodeID.Key()]...)
	e.mu.Unlock()

	for _, item := range items {
		if item.AttributeID != old.AttributeID || item.IndexRange != old.IndexRange {
			continue
		}
		if item.Mode == uaservices.MonitoringModeDisabled {
			continue
		}
		item.push(newVal.Value)
	}
}

// queueableSub reports whether sub has at least one Reporting
// monitored item with queued samples.
func (sub *Subscription) queueableSub() bool {
	sub.mu.Lock()
	items := make([]*MonitoredItem, 0, len(sub.items))
	for _, it := range sub.items {
		items = append(items, it)
	}
	sub.mu.Unlock()
	for _, it := range items {
		if it.Mode == uaservices.MonitoringModeReporting && it.hasQueued() {
			return true
		}
	}
	return false
}

func (sub *Subscription) collectNotifications() []uaservices.MonitoredItemNotification {
	sub.mu.Lock()
	items := make([]*MonitoredItem, 0, len(sub.items))
	for _, it := range sub.items {
		items = append(items, it)
	}
	sub.mu.Unlock()

	var out []uaservices.MonitoredItemNotification
	for _, it := range items {
		if it.Mode != uaservices.MonitoringModeReporting {
			continue
		}
		for _, v := range it.drain() {
			out = append(out, uaservices.MonitoredItemNotification{ClientHandle: it.ClientHandle, Value: v})
		}
	}
	return out
}

// EnqueuePublishRequest records a pending PublishRequest awaiting either
// a notification or expiry, with a deadline derived from the header
// timestamp + timeout hint, adjusted for elapsed transit time. A zero
// deadline means the request never expires. Queued requests are only
// ever consumed by PublishCycle, in FIFO order; every pop is reported
// with its requestHandle so the caller can route the response to the
// request that was actually answered.
func (e *Engine) EnqueuePublishRequest(subID uint32, requestHandle uint32, deadline time.Time) ua.StatusCode {
	sub, ok := e.Get(subID)
	if !ok {
		return ua.BadSubscriptionIdInvalid
	}
	sub.mu.Lock()
	sub.pending = append(sub.pending, pendingPublish{requestHandle: requestHandle, deadline: deadline})
	sub.mu.Unlock()
	return ua.Ok
}

// PublishOutcome is the result of one publish-cycle tick for one
// subscription: exactly one response is emitted per pending request.
// Timeout and NoSubscription come without a Notification; a keep-alive
// sets KeepAlive and carries an empty Notification; a SubscriptionDeleted
// outcome names no request and comes without a Notification.
type PublishOutcome struct {
	RequestHandle uint32
	Notification  *uaservices.NotificationMessage
	KeepAlive     bool
	Timeout       bool
	NoSubscription bool
	SubscriptionDeleted bool
}

// PublishCycle runs one publish-cycle tick for subscription id. It
// first drops any pending requests whose deadline has already
// passed (BadTimeout). Then: if publishing is enabled and a notification
// is ready, it pops the next pending request and ships the notification,
// resetting the keep-alive counter. Otherwise, if a request is waiting,
// it increments the keep-alive counter and ships an empty keep-alive
// once MaxKeepAlive is reached. Independently, the lifetime counter
// increments on every cycle that fails to ship a message; reaching
// RevisedLifetimeCount deletes the subscription.
func (e *Engine) PublishCycle(id uint32, now time.Time) []PublishOutcome {
	sub, ok := e.Get(id)
	if !ok {
		return nil
	}

	var outcomes []PublishOutcome

	sub.mu.Lock()
	var stillPending []pendingPublish
	for _, p := range sub.pending {
		if !p.deadline.IsZero() && now.After(p.deadline) {
			outcomes = append(outcomes, PublishOutcome{RequestHandle: p.requestHandle, Timeout: true})
			continue
		}
		stillPending = append(stillPending, p)
	}
	sub.pending = stillPending
	sub.mu.Unlock()

	shipped := false
	if sub.PublishingEnabled && sub.queueableSub() {
		sub.mu.Lock()
		if len(sub.pending) > 0 {
			p := sub.pending[0]
			sub.pending = sub.pending[1:]
			sub.mu.Unlock()

			notifications := sub.collectNotifications()
			sub.mu.Lock()
			seq := sub.nextSeq
			sub.nextSeq = NextSequenceNumber(seq)
			msg := uaservices.NotificationMessage{SequenceNumber: seq, PublishTime: now, Notifications: notifications}
			sub.retained[seq] = msg
			sub.order = append(sub.order, seq)
			sub.keepAliveCounter = 0
			sub.lifetimeCounter = 0
			sub.mu.Unlock()

			outcomes = append(outcomes, PublishOutcome{RequestHandle: p.requestHandle, Notification: &msg})
			shipped = true
		} else {
			sub.mu.Unlock()
		}
	} else {
		sub.mu.Lock()
		hasPending := len(sub.pending) > 0
		sub.mu.Unlock()
		if hasPending {
			sub.mu.Lock()
			sub.keepAliveCounter++
			reached := sub.keepAliveCounter >= sub.RevisedMaxKeepAliveCount
			var p pendingPublish
			if reached {
				p = sub.pending[0]
				sub.pending = sub.pending[1:]
				sub.keepAliveCounter = 0
				sub.lifetimeCounter = 0
			}
			sub.mu.Unlock()
			if reached {
				sub.mu.Lock()
				seq := sub.nextSeq
				sub.nextSeq = NextSequenceNumber(seq)
				msg := uaservices.NotificationMessage{SequenceNumber: seq, PublishTime: now}
				sub.retained[seq] = msg
				sub.order = append(sub.order, seq)
				sub.mu.Unlock()
				outcomes = append(outcomes, PublishOutcome{RequestHandle: p.requestHandle, KeepAlive: true, Notification: &msg})
				shipped = true
			}
		}
	}

	if !shipped {
		sub.mu.Lock()
		sub.lifetimeCounter++
		expired := sub.lifetimeCounter >= sub.RevisedLifetimeCount
		var leftover []pendingPublish
		if expired {
			leftover = sub.pending
			sub.pending = nil
		}
		sub.mu.Unlock()
		if expired {
			for _, p := range leftover {
				outcomes = append(outcomes, PublishOutcome{RequestHandle: p.requestHandle, NoSubscription: true})
			}
			outcomes = append(outcomes, PublishOutcome{SubscriptionDeleted: true})
			e.Delete(id)
		}
	}

	return outcomes
}

// AvailableSequenceNumbers returns the still-retained sequence numbers
// for sub, for a Publish response's parallel array, per Part 4.
func (sub *Subscription) AvailableSequenceNumbers() []uint32 {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	out := make([]uint32, 0, len(sub.retained))
	for _, seq := range sub.order {
		if _, ok := sub.retained[seq]; ok {
			out = append(out, seq)
		}
	}
	return out
}

// Acknowledge drops each retained notification named by acks. Each
// acknowledgement names its own subscription id (a Publish
// request may acknowledge notifications from any of the session's
// subscriptions, not only the one it ends up harvesting a notification
// from); unknown sequence numbers report BadSequenceNumberUnknown.
func (e *Engine) Acknowledge(acks []uaservices.SubscriptionAcknowledgement) []ua.StatusCode {
	results := make([]ua.StatusCode, len(acks))
	for i, ack := range acks {
		sub, ok := e.Get(ack.SubscriptionID)
		if !ok {
			results[i] = ua.BadSubscriptionIdInvalid
			continue
		}
		sub.mu.Lock()
		if _, found := sub.retained[ack.SequenceNumber]; found {
			delete(sub.retained, ack.SequenceNumber)
			results[i] = ua.Ok
		} else {
			results[i] = ua.BadSequenceNumberUnknown
		}
		sub.mu.Unlock()
	}
	return results
}
