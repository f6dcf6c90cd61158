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

// ReadDecoder validates and exposes a ReadRequest, per Part 4.
type ReadDecoder struct {
	items       []uaservices.ReadValueID
	ts          ua.TimestampsToReturn
	maxAgeValid bool
}

// NewReadDecoder validates req and builds a ReadDecoder. status is Ok
// only if the whole-request checks pass; per-item problems are reported
// through AttributeID, not here.
func NewReadDecoder(req *uaservices.ReadRequest, lim limits.Limits) (*ReadDecoder, ua.StatusCode) {
	if status := checkOperationCount(len(req.NodesToRead), lim); status != ua.Ok {
		return nil, status
	}
	if req.MaxAge < 0 {
		return nil, ua.BadMaxAgeInvalid
	}
	if req.TimestampsToReturn > ua.TimestampsNeither {
		return nil, ua.BadTimestampsToReturnInvalid
	}
	return &ReadDecoder{items: req.NodesToRead, ts: req.TimestampsToReturn, maxAgeValid: true}, ua.Ok
}

// Len returns the number of items, 1..=Len being valid indices.
func (d *ReadDecoder) Len() int { return len(d.items) }

// NodeID returns the 1-based i'th item's target NodeId.
func (d *ReadDecoder) NodeID(i int) ua.NodeID { return d.items[i-1].NodeID }

// AttributeID returns the 1-based i'th item's attribute id, translated
// to the internal enum, or BadAttributeIdInvalid if it names an
// attribute this core does not read.
func (d *ReadDecoder) AttributeID(i int) (ua.AttributeID, ua.StatusCode) {
	a := d.items[i-1].AttributeID
	if a < ua.AttrNodeID || a > ua.AttrExecutable {
		return ua.AttrInvalid, ua.BadAttributeIdInvalid
	}
	return a, ua.Ok
}

// IndexRange returns the 1-based i'th item's index range, possibly empty
// meaning "no range".
func (d *ReadDecoder) IndexRange(i int) string { return d.items[i-1].IndexRange }

// TimestampsToReturn returns the request-wide timestamp policy.
func (d *ReadDecoder) TimestampsToReturn() ua.TimestampsToReturn { return d.ts }

// MaxAgeValid reports whether the request's MaxAge passed validation.
func (d *ReadDecoder) MaxAgeValid() bool { return d.maxAgeValid }
