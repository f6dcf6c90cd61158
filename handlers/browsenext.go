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

// BrowseNext executes the BrowseNext service, per Part 4. Each
// continuation point is either released (ReleaseContinuationPoints) or
// consumed and its remaining references delivered in full — this core
// never re-splits a continuation's leftovers across a second
// continuation point, since the whole remainder was retained by Browse.
func BrowseNext(store *ContinuationStore, req *uaservices.BrowseNextRequest, lim limits.Limits) (*uaservices.BrowseNextResponse, ua.StatusCode) {
	d, status := decode.NewBrowseNextDecoder(req, lim)
	if status != ua.Ok {
		return nil, status
	}

	b := respbuild.NewBrowseBuilder(d.Len())
	for i := 1; i <= d.Len(); i++ {
		point := d.ContinuationPoint(i)
		if d.ReleaseContinuationPoints() {
			store.Release(point)
			b.SetItem(i, uaservices.BrowseResult{Status: ua.Ok})
			continue
		}
		refs, ok := store.Take(point)
		if !ok {
			b.SetItem(i, uaservices.BrowseResult{Status: ua.BadContinuationPointInvalid})
			continue
		}
		b.SetItem(i, uaservices.BrowseResult{Status: ua.Ok, References: refs})
	}

	return &uaservices.BrowseNextResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		Results: b.Finalize(),
	}, ua.Ok
}
