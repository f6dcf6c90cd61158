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
	"github.com/facebook/opcua/decode"
	"github.com/facebook/opcua/respbuild"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// Call executes the Call service (method invocation), per Part 4. For
// each MethodsToCall item, the method's NodeId is resolved via mcm; a
// miss produces per-item BadNotImplemented. The callback's output
// argument count is clamped by CallBuilder, which also folds an
// overflow into BadQueryTooComplex.
func Call(mcm MethodCallManager, req *uaservices.CallRequest, lim limits.Limits, userContext any) (*uaservices.CallResponse, ua.StatusCode) {
	d, status := decode.NewCallDecoder(req, lim)
	if status != ua.Ok {
		return nil, status
	}

	b := respbuild.NewCallBuilder(d.Len())
	for i := 1; i <= d.Len(); i++ {
		method, ok := mcm.GetMethod(d.MethodID(i))
		if !ok {
			b.SetItem(i, ua.BadNotImplemented, nil, nil)
			continue
		}
		callStatus, outputArgs := method(d.ObjectID(i), d.InputArguments(i), userContext)
		b.SetItem(i, callStatus, nil, outputArgs)
	}

	return &uaservices.CallResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		Results: b.Finalize(),
	}, ua.Ok
}
