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
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// WriteDecoder validates and exposes a WriteRequest, per Part 4. Items
// with an unknown AttributeId stay present (their per-item result will
// carry BadAttributeIdInvalid when the handler runs), they are not
// dropped here.
type WriteDecoder struct {
	items []ua.WriteValue
}

// NewWriteDecoder validates req and builds a WriteDecoder.
func NewWriteDecoder(req *uaservices.WriteRequest, lim limits.Limits) (*WriteDecoder, ua.StatusCode) {
	if status := checkOperationCount(len(req.NodesToWrite), lim); status != ua.Ok {
		return nil, status
	}
	return &WriteDecoder{items: req.NodesToWrite}, ua.Ok
}

// Len returns the number of items.
func (d *WriteDecoder) Len() int { return len(d.items) }

// NodeID returns the 1-based i'th item's target NodeId.
func (d *WriteDecoder) NodeID(i int) ua.NodeID { return d.items[i-1].NodeID }

// AttributeID returns the 1-based i'th item's attribute id and whether it
// is one this core supports writing: an unknown id reports
// BadAttributeIdInvalid, and a known attribute other than Value reports
// BadNotWritable.
func (d *WriteDecoder) AttributeID(i int) (ua.AttributeID, ua.StatusCode) {
	a := d.items[i-1].AttributeID
	if a < ua.AttrNodeID || a > ua.AttrExecutable {
		return ua.AttrInvalid, ua.BadAttributeIdInvalid
	}
	if a != ua.AttrValue {
		return a, ua.BadNotWritable
	}
	return a, ua.Ok
}

// IndexRange returns the 1-based i'th item's index range.
func (d *WriteDecoder) IndexRange(i int) string { return d.items[i-1].IndexRange }

// Value returns the 1-based i'th item's new value.
func (d *WriteDecoder) Value(i int) ua.Variant { return d.items[i-1].Value.Value }
