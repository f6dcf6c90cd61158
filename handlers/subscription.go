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

package handlers

import (
	"time"

	"github.com/facebook/opcua/addrspace"
	"github.com/facebook/opcua/decode"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/subscription"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// CreateSubscription executes the CreateSubscription service, per Part 4.
func CreateSubscription(engine *subscription.Engine, sessionID ua.NodeID, req *uaservices.CreateSubscriptionRequest) *uaservices.CreateSubscriptionResponse {
	sub := engine.Create(sessionID, req.RequestedPublishingInterval, req.RequestedLifetimeCount, req.RequestedMaxKeepAliveCount, req.MaxNotificationsPerPublish, req.PublishingEnabled)
	return &uaservices.CreateSubscriptionResponse{
		Header:                    uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		SubscriptionID:            sub.ID,
		RevisedPublishingInterval: float64(sub.RevisedPublishingInterval / time.Millisecond),
		RevisedLifetimeCount:      sub.RevisedLifetimeCount,
		RevisedMaxKeepAliveCount:  sub.RevisedMaxKeepAliveCount,
	}
}

// ModifySubscription executes the ModifySubscription service.
func ModifySubscription(engine *subscription.Engine, req *uaservices.ModifySubscriptionRequest) (*uaservices.ModifySubscriptionResponse, ua.StatusCode) {
	sub, status := engine.Modify(req.SubscriptionID, req.RequestedPublishingInterval, req.RequestedLifetimeCount, req.RequestedMaxKeepAliveCount, req.MaxNotificationsPerPublish)
	if status != ua.Ok {
		return nil, status
	}
	return &uaservices.ModifySubscriptionResponse{
		Header:                    uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		RevisedPublishingInterval: float64(sub.RevisedPublishingInterval / time.Millisecond),
		RevisedLifetimeCount:      sub.RevisedLifetimeCount,
		RevisedMaxKeepAliveCount:  sub.RevisedMaxKeepAliveCount,
	}, ua.Ok
}

// SetPublishingMode executes the SetPublishingMode service.
func SetPublishingMode(engine *subscription.Engine, req *uaservices.SetPublishingModeRequest, lim limits.Limits) (*uaservices.SetPublishingModeResponse, ua.StatusCode) {
	if status := checkOperationCountPublic(len(req.SubscriptionIDs), lim); status != ua.Ok {
		return nil, status
	}
	results := engine.SetPublishingMode(req.SubscriptionIDs, req.PublishingEnabled)
	return &uaservices.SetPublishingModeResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		Results: results,
	}, ua.Ok
}

// checkOperationCountPublic re-derives decode's BadNothingToDo /
// BadTooManyOperations rule for the one case (SetPublishingMode) that
// needs it without a full per-item decoder.
func checkOperationCountPublic(n int, lim limits.Limits) ua.StatusCode {
	if n <= 0 {
		return ua.BadNothingToDo
	}
	if uint32(n) > lim.MaxOperationsPerMessage {
		return ua.BadTooManyOperations
	}
	return ua.Ok
}

// CreateMonitoredItems executes the CreateMonitoredItems service, per
// Part 4.
func CreateMonitoredItems(space *addrspace.Space, engine *subscription.Engine, req *uaservices.CreateMonitoredItemsRequest, lim limits.Limits) (*uaservices.CreateMonitoredItemsResponse, ua.StatusCode) {
	d, status := decode.NewCreateMonitoredItemsDecoder(req, lim)
	if status != ua.Ok {
		return nil, status
	}
	if d.TimestampsToReturn() == ua.TimestampsInvalid {
		return nil, ua.BadTimestampsToReturnInvalid
	}

	items := make([]uaservices.MonitoredItemCreateRequest, d.Len())
	for i := 1; i <= d.Len(); i++ {
		items[i-1] = uaservices.MonitoredItemCreateRequest{
			NodeID:           d.NodeID(i),
			AttributeID:      d.AttributeID(i),
			IndexRange:       d.IndexRange(i),
			MonitoringMode:   d.MonitoringMode(i),
			ClientHandle:     d.ClientHandle(i),
			SamplingInterval: d.SamplingInterval(i),
			QueueSize:        d.QueueSize(i),
		}
	}

	resolve := func(id ua.NodeID) bool {
		_, ok := space.Read(id)
		return ok
	}
	results, status := engine.CreateMonitoredItems(d.SubscriptionID(), resolve, items)
	if status != ua.Ok {
		return nil, status
	}
	return &uaservices.CreateMonitoredItemsResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		Results: results,
	}, ua.Ok
}

// Publish executes the Publish service, per Part 4. Acknowledgements
// are processed immediately; the request itself is always queued
// against the named subscription with a deadline derived from the
// header's timestamp and timeout hint (a zero TimeoutHint means the
// request never expires). Responses are only ever produced by the
// timer-driven publish cycle, which pops the queue in FIFO order and
// reports each popped request's handle back through its PublishOutcome.
// Answering the arriving request synchronously here would race that
// FIFO: with two requests outstanding, the cycle could pop the earlier
// queued request while this one stole its notification, stranding the
// earlier request without a response.
func Publish(engine *subscription.Engine, req *uaservices.PublishRequest, subscriptionID uint32, now time.Time) (ackResults []ua.StatusCode, status ua.StatusCode) {
	ackResults = engine.Acknowledge(req.SubscriptionAcknowledgements)

	if _, ok := engine.Get(subscriptionID); !ok {
		return ackResults, ua.BadNoSubscription
	}

	var deadline time.Time
	if req.Header.TimeoutHint > 0 {
		elapsed := now.Sub(req.Header.Timestamp)
		remaining := time.Duration(req.Header.TimeoutHint)*time.Millisecond - elapsed
		deadline = now.Add(remaining)
	}
	engine.EnqueuePublishRequest(subscriptionID, req.Header.RequestHandle, deadline)
	return ackResults, ua.Ok
}
