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

// Read executes the Read service, per Part 4. A non-Ok second return
// value means the whole request failed (the caller builds a
// ServiceFault); per-item failures are embedded in the response's
// Results instead.
func Read(space *addrspace.Space, req *uaservices.ReadRequest, lim limits.Limits, now func() time.Time) (*uaservices.ReadResponse, ua.StatusCode) {
	d, status := decode.NewReadDecoder(req, lim)
	if status != ua.Ok {
		return nil, status
	}

	b := respbuild.NewReadBuilder(d.Len(), d.TimestampsToReturn(), now)
	for i := 1; i <= d.Len(); i++ {
		node, ok := space.Read(d.NodeID(i))
		if !ok {
			b.SetItem(i, ua.NullVariant, ua.BadNodeIdUnknown)
			continue
		}
		attr, attrStatus := d.AttributeID(i)
		if attrStatus != ua.Ok {
			b.SetItem(i, ua.NullVariant, attrStatus)
			continue
		}
		valStatus, value := space.ReadAttribute(node, attr, d.IndexRange(i))
		b.SetItem(i, value, valStatus)
	}

	return &uaservices.ReadResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, now()),
		Results: b.Finalize(),
	}, ua.Ok
}
