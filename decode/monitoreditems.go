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

package decode

import (
	"math"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// CreateMonitoredItemsDecoder validates and exposes a
// CreateMonitoredItemsRequest, per Part 4. An invalid
// TimestampsToReturn yields the indet sentinel here; the handler is the
// one that turns that into BadTimestampsToReturnInvalid.
type CreateMonitoredItemsDecoder struct {
	items          []uaservices.MonitoredItemCreateRequest
	subscriptionID uint32
	ts             ua.TimestampsToReturn
}

// NewCreateMonitoredItemsDecoder validates req and clamps each item's
// queue size to math.MaxInt32.
func NewCreateMonitoredItemsDecoder(req *uaservices.CreateMonitoredItemsRequest, lim limits.Limits) (*CreateMonitoredItemsDecoder, ua.StatusCode) {
	if status := checkOperationCount(len(req.ItemsToCreate), lim); status != ua.Ok {
		return nil, status
	}
	ts := req.TimestampsToReturn
	if ts > ua.TimestampsNeither {
		ts = ua.TimestampsInvalid
	}
	items := make([]uaservices.MonitoredItemCreateRequest, len(req.ItemsToCreate))
	copy(items, req.ItemsToCreate)
	for i := range items {
		if items[i].QueueSize > math.MaxInt32 {
			items[i].QueueSize = math.MaxInt32
		}
	}
	return &CreateMonitoredItemsDecoder{items: items, subscriptionID: req.SubscriptionID, ts: ts}, ua.Ok
}

// Len returns the number of items.
func (d *CreateMonitoredItemsDecoder) Len() int { return len(d.items) }

// SubscriptionID returns the owning subscription id.
func (d *CreateMonitoredItemsDecoder) SubscriptionID() uint32 { return d.subscriptionID }

// TimestampsToReturn returns the request-wide timestamp policy, or
// TimestampsInvalid if the wire value named no known policy.
func (d *CreateMonitoredItemsDecoder) TimestampsToReturn() ua.TimestampsToReturn { return d.ts }

// NodeID returns the 1-based i'th item's target NodeId.
func (d *CreateMonitoredItemsDecoder) NodeID(i int) ua.NodeID { return d.items[i-1].NodeID }

// AttributeID returns the 1-based i'th item's attribute id.
func (d *CreateMonitoredItemsDecoder) AttributeID(i int) ua.AttributeID { return d.items[i-1].AttributeID }

// IndexRange returns the 1-based i'th item's index range.
func (d *CreateMonitoredItemsDecoder) IndexRange(i int) string { return d.items[i-1].IndexRange }

// MonitoringMode returns the 1-based i'th item's requested mode.
func (d *CreateMonitoredItemsDecoder) MonitoringMode(i int) uaservices.MonitoringMode {
	return d.items[i-1].MonitoringMode
}

// ClientHandle returns the 1-based i'th item's opaque client handle.
func (d *CreateMonitoredItemsDecoder) ClientHandle(i int) uint32 { return d.items[i-1].ClientHandle }

// SamplingInterval returns the 1-based i'th item's requested sampling
// interval.
func (d *CreateMonitoredItemsDecoder) SamplingInterval(i int) float64 {
	return d.items[i-1].SamplingInterval
}

// QueueSize returns the 1-based i'th item's requested queue size,
// already clamped to math.MaxInt32.
func (d *CreateMonitoredItemsDecoder) QueueSize(i int) uint32 { return d.items[i-1].QueueSize }
