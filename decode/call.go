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

// CallDecoder validates and exposes a CallRequest, per Part 4.
type CallDecoder struct {
	items []uaservices.CallMethodRequest
}

// NewCallDecoder validates req's operation count.
func NewCallDecoder(req *uaservices.CallRequest, lim limits.Limits) (*CallDecoder, ua.StatusCode) {
	if status := checkOperationCount(len(req.MethodsToCall), lim); status != ua.Ok {
		return nil, status
	}
	return &CallDecoder{items: req.MethodsToCall}, ua.Ok
}

// Len returns the number of items.
func (d *CallDecoder) Len() int { return len(d.items) }

// ObjectID returns the 1-based i'th item's owning object NodeId.
func (d *CallDecoder) ObjectID(i int) ua.NodeID { return d.items[i-1].ObjectID }

// MethodID returns the 1-based i'th item's method NodeId.
func (d *CallDecoder) MethodID(i int) ua.NodeID { return d.items[i-1].MethodID }

// InputArguments returns the 1-based i'th item's borrowed input
// arguments.
func (d *CallDecoder) InputArguments(i int) []ua.Variant { return d.items[i-1].InputArguments }
