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
	"github.com/facebook/opcua/respbuild"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// Write executes the Write service, per Part 4.
func Write(space *addrspace.Space, req *uaservices.WriteRequest, lim limits.Limits, user any, access AccessChecker, sink DataChangeSink, now func() time.Time) (*uaservices.WriteResponse, ua.StatusCode) {
	d, status := decode.NewWriteDecoder(req, lim)
	if status != ua.Ok {
		return nil, status
	}

	b := respbuild.NewStatusArrayBuilder(d.Len())
	for i := 1; i <= d.Len(); i++ {
		nodeID := d.NodeID(i)
		node, ok := space.Read(nodeID)
		if !ok {
			b.SetItem(i, ua.BadNodeIdUnknown)
			continue
		}
		attr, attrStatus := d.AttributeID(i)
		if attrStatus != ua.Ok {
			b.SetItem(i, attrStatus)
			continue
		}
		if !access.CanWrite(user, nodeID, attr) {
			b.SetItem(i, ua.BadUserAccessDenied)
			continue
		}

		indexRange := d.IndexRange(i)
		newValue := d.Value(i)
		var writeStatus ua.StatusCode
		var prev *ua.DataValue
		if indexRange == "" {
			writeStatus, prev = space.WriteValueFull(node, newValue, now())
		} else {
			prev = &ua.DataValue{}
			writeStatus = space.WriteValueIndexed(node, newValue, indexRange, prev, now())
		}
		b.SetItem(i, writeStatus)
		if writeStatus != ua.Ok {
			continue
		}

		oldWV := ua.WriteValue{NodeID: nodeID, AttributeID: attr, IndexRange: indexRange, Value: *prev}
		newWV := ua.WriteValue{NodeID: nodeID, AttributeID: attr, IndexRange: indexRange, Value: ua.DataValue{Value: newValue, Status: ua.Ok, ServerTimestamp: now()}}
		// Go's GC-backed allocation never fails the way a manual heap
		// alloc can, so DataChangedFailed has no reachable trigger here;
		// it exists on the sink interface for completeness and for tests
		// that want to simulate the failure explicitly.
		sink.DataChanged(oldWV, newWV)
	}

	return &uaservices.WriteResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, now()),
		Results: b.Finalize(),
	}, ua.Ok
}
