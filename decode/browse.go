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

// BrowseDecoder validates and exposes a BrowseRequest, per Part 4.
type BrowseDecoder struct {
	items   []uaservices.BrowseDescription
	maxRefs uint32
}

// NewBrowseDecoder validates req and clamps RequestedMaxReferencesPerNode
// into [1, lim.MaxOperationsPerMessage] — 0 means "server decides",
// clamped to the max.
func NewBrowseDecoder(req *uaservices.BrowseRequest, lim limits.Limits) (*BrowseDecoder, ua.StatusCode) {
	if status := checkOperationCount(len(req.NodesToBrowse), lim); status != ua.Ok {
		return nil, status
	}
	max := req.RequestedMaxReferencesPerNode
	if max == 0 || max > lim.MaxOperationsPerMessage {
		max = lim.MaxOperationsPerMessage
	}
	return &BrowseDecoder{items: req.NodesToBrowse, maxRefs: max}, ua.Ok
}

// Len returns the number of items.
func (d *BrowseDecoder) Len() int { return len(d.items) }

// NodeID returns the 1-based i'th item's source NodeId.
func (d *BrowseDecoder) NodeID(i int) ua.NodeID { return d.items[i-1].NodeID }

// Direction returns the 1-based i'th item's browse direction.
func (d *BrowseDecoder) Direction(i int) uaservices.BrowseDirection { return d.items[i-1].Direction }

// ReferenceTypeFilter returns the 1-based i'th item's optional
// reference-type filter and whether one was requested.
func (d *BrowseDecoder) ReferenceTypeFilter(i int) (ua.NodeID, bool) {
	item := d.items[i-1]
	if !item.HasTypeFilter {
		return ua.NodeID{}, false
	}
	return item.ReferenceTypeID, true
}

// IncludeSubtypes reports whether the 1-based i'th item's filter should
// include subtypes of the reference type.
func (d *BrowseDecoder) IncludeSubtypes(i int) bool { return d.items[i-1].IncludeSubtypes }

// RequestedMaxReferencesPerNode returns the clamped request-wide max.
func (d *BrowseDecoder) RequestedMaxReferencesPerNode() uint32 { return d.maxRefs }

// BrowseNextDecoder validates and exposes a BrowseNextRequest.
type BrowseNextDecoder struct {
	points  [][]byte
	release bool
}

// NewBrowseNextDecoder validates req and builds a BrowseNextDecoder.
func NewBrowseNextDecoder(req *uaservices.BrowseNextRequest, lim limits.Limits) (*BrowseNextDecoder, ua.StatusCode) {
	if status := checkOperationCount(len(req.ContinuationPoints), lim); status != ua.Ok {
		return nil, status
	}
	return &BrowseNextDecoder{points: req.ContinuationPoints, release: req.ReleaseContinuationPoints}, ua.Ok
}

// Len returns the number of continuation points.
func (d *BrowseNextDecoder) Len() int { return len(d.points) }

// ContinuationPoint returns the 1-based i'th opaque continuation point.
func (d *BrowseNextDecoder) ContinuationPoint(i int) []byte { return d.points[i-1] }

// ReleaseContinuationPoints reports whether the request asks to release
// rather than continue.
func (d *BrowseNextDecoder) ReleaseContinuationPoints() bool { return d.release }
