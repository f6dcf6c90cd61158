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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

func tinyLimits() limits.Limits {
	lim := limits.Default()
	lim.MaxOperationsPerMessage = 2
	return lim
}

func TestReadDecoderNothingToDo(t *testing.T) {
	_, status := NewReadDecoder(&uaservices.ReadRequest{}, tinyLimits())
	require.Equal(t, ua.BadNothingToDo, status)
}

func TestReadDecoderTooManyOperations(t *testing.T) {
	req := &uaservices.ReadRequest{NodesToRead: make([]uaservices.ReadValueID, 3)}
	_, status := NewReadDecoder(req, tinyLimits())
	require.Equal(t, ua.BadTooManyOperations, status)
}

func TestReadDecoderMaxAgeInvalid(t *testing.T) {
	req := &uaservices.ReadRequest{
		NodesToRead: []uaservices.ReadValueID{{NodeID: ua.NewNumericNodeID(1, 1)}},
		MaxAge:      -1,
	}
	_, status := NewReadDecoder(req, tinyLimits())
	require.Equal(t, ua.BadMaxAgeInvalid, status)
}

func TestReadDecoderAccessors(t *testing.T) {
	req := &uaservices.ReadRequest{
		NodesToRead: []uaservices.ReadValueID{
			{NodeID: ua.NewNumericNodeID(1, 1), AttributeID: ua.AttrValue, IndexRange: "1:2"},
		},
		TimestampsToReturn: ua.TimestampsBoth,
	}
	d, status := NewReadDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	require.Equal(t, 1, d.Len())
	require.True(t, d.NodeID(1).Equal(ua.NewNumericNodeID(1, 1)))
	attr, status := d.AttributeID(1)
	require.Equal(t, ua.Ok, status)
	require.Equal(t, ua.AttrValue, attr)
	require.Equal(t, "1:2", d.IndexRange(1))
	require.Equal(t, ua.TimestampsBoth, d.TimestampsToReturn())
}

func TestReadDecoderUnknownAttributeID(t *testing.T) {
	req := &uaservices.ReadRequest{
		NodesToRead: []uaservices.ReadValueID{{NodeID: ua.NewNumericNodeID(1, 1), AttributeID: ua.AttributeID(999)}},
	}
	d, status := NewReadDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	_, attrStatus := d.AttributeID(1)
	require.Equal(t, ua.BadAttributeIdInvalid, attrStatus)
}

func TestWriteDecoderAccessors(t *testing.T) {
	req := &uaservices.WriteRequest{
		NodesToWrite: []ua.WriteValue{
			{NodeID: ua.NewNumericNodeID(1, 1), AttributeID: ua.AttrValue, IndexRange: "", Value: ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(7)}}},
		},
	}
	d, status := NewWriteDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	require.Equal(t, 1, d.Len())
	require.Equal(t, int32(7), d.Value(1).Value)
}

func TestBrowseDecoderClampsMaxReferences(t *testing.T) {
	req := &uaservices.BrowseRequest{
		NodesToBrowse:                 []uaservices.BrowseDescription{{NodeID: ua.NewNumericNodeID(1, 1)}},
		RequestedMaxReferencesPerNode: 0,
	}
	d, status := NewBrowseDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	require.Equal(t, tinyLimits().MaxOperationsPerMessage, d.RequestedMaxReferencesPerNode())
}

func TestBrowseDecoderReferenceTypeFilter(t *testing.T) {
	refType := ua.NewNumericNodeID(0, 33)
	req := &uaservices.BrowseRequest{
		NodesToBrowse: []uaservices.BrowseDescription{
			{NodeID: ua.NewNumericNodeID(1, 1), ReferenceTypeID: refType, HasTypeFilter: true, IncludeSubtypes: true},
		},
	}
	d, status := NewBrowseDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	filter, ok := d.ReferenceTypeFilter(1)
	require.True(t, ok)
	require.True(t, filter.Equal(refType))
	require.True(t, d.IncludeSubtypes(1))
}

func TestCreateMonitoredItemsDecoderClampsQueueSize(t *testing.T) {
	req := &uaservices.CreateMonitoredItemsRequest{
		ItemsToCreate: []uaservices.MonitoredItemCreateRequest{
			{NodeID: ua.NewNumericNodeID(1, 1), QueueSize: 1 << 31},
		},
	}
	d, status := NewCreateMonitoredItemsDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	require.Equal(t, uint32(1<<31-1), d.QueueSize(1))
}

func TestCreateMonitoredItemsDecoderInvalidTimestamps(t *testing.T) {
	req := &uaservices.CreateMonitoredItemsRequest{
		ItemsToCreate:      []uaservices.MonitoredItemCreateRequest{{NodeID: ua.NewNumericNodeID(1, 1)}},
		TimestampsToReturn: ua.TimestampsInvalid + 1,
	}
	d, status := NewCreateMonitoredItemsDecoder(req, tinyLimits())
	require.Equal(t, ua.Ok, status)
	require.Equal(t, ua.TimestampsInvalid, d.TimestampsToReturn())
}
