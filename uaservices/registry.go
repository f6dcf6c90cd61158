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

package uaservices

import "fmt"

// TypeID is the wire type id a service message marshals/unmarshals
// under. Values below are assigned densely for this toolkit rather than
// reused from the real OPC UA numeric catalogue, since the actual wire
// encoding is delegated to an external codec and this registry
// only needs to be internally consistent.
type TypeID uint32

// Kind classifies a TypeID as naming a request, a response, or neither.
type Kind uint8

// Kinds, per Part 6.
const (
	KindUnknown Kind = iota
	KindRequest
	KindResponse
)

// Wire type ids, one request/response pair per service plus ServiceFault.
const (
	TypeReadRequest TypeID = 100 + iota
	TypeReadResponse
	TypeWriteRequest
	TypeWriteResponse
	TypeBrowseRequest
	TypeBrowseResponse
	TypeBrowseNextRequest
	TypeBrowseNextResponse
	TypeCreateSubscriptionRequest
	TypeCreateSubscriptionResponse
	TypeModifySubscriptionRequest
	TypeModifySubscriptionResponse
	TypeSetPublishingModeRequest
	TypeSetPublishingModeResponse
	TypeCreateMonitoredItemsRequest
	TypeCreateMonitoredItemsResponse
	TypePublishRequest
	TypePublishResponse
	TypeCallRequest
	TypeCallResponse
	TypeGetEndpointsRequest
	TypeGetEndpointsResponse
	TypeCreateSessionRequest
	TypeCreateSessionResponse
	TypeActivateSessionRequest
	TypeActivateSessionResponse
	TypeCloseSessionRequest
	TypeCloseSessionResponse
	TypeServiceFault
)

// registryEntry binds one TypeID to its Kind and a human-readable name.
type registryEntry struct {
	kind Kind
	name string
}

var registry = map[TypeID]registryEntry{
	TypeReadRequest:                  {KindRequest, "ReadRequest"},
	TypeReadResponse:                 {KindResponse, "ReadResponse"},
	TypeWriteRequest:                 {KindRequest, "WriteRequest"},
	TypeWriteResponse:                {KindResponse, "WriteResponse"},
	TypeBrowseRequest:                {KindRequest, "BrowseRequest"},
	TypeBrowseResponse:               {KindResponse, "BrowseResponse"},
	TypeBrowseNextRequest:            {KindRequest, "BrowseNextRequest"},
	TypeBrowseNextResponse:           {KindResponse, "BrowseNextResponse"},
	TypeCreateSubscriptionRequest:    {KindRequest, "CreateSubscriptionRequest"},
	TypeCreateSubscriptionResponse:   {KindResponse, "CreateSubscriptionResponse"},
	TypeModifySubscriptionRequest:    {KindRequest, "ModifySubscriptionRequest"},
	TypeModifySubscriptionResponse:   {KindResponse, "ModifySubscriptionResponse"},
	TypeSetPublishingModeRequest:     {KindRequest, "SetPublishingModeRequest"},
	TypeSetPublishingModeResponse:    {KindResponse, "SetPublishingModeResponse"},
	TypeCreateMonitoredItemsRequest:  {KindRequest, "CreateMonitoredItemsRequest"},
	TypeCreateMonitoredItemsResponse: {KindResponse, "CreateMonitoredItemsResponse"},
	TypePublishRequest:               {KindRequest, "PublishRequest"},
	TypePublishResponse:              {KindResponse, "PublishResponse"},
	TypeCallRequest:                  {KindRequest, "CallRequest"},
	TypeCallResponse:                 {KindResponse, "CallResponse"},
	TypeGetEndpointsRequest:          {KindRequest, "GetEndpointsRequest"},
	TypeGetEndpointsResponse:         {KindResponse, "GetEndpointsResponse"},
	TypeCreateSessionRequest:         {KindRequest, "CreateSessionRequest"},
	TypeCreateSessionResponse:        {KindResponse, "CreateSessionResponse"},
	TypeActivateSessionRequest:       {KindRequest, "ActivateSessionRequest"},
	TypeActivateSessionResponse:      {KindResponse, "ActivateSessionResponse"},
	TypeCloseSessionRequest:          {KindRequest, "CloseSessionRequest"},
	TypeCloseSessionResponse:         {KindResponse, "CloseSessionResponse"},
	TypeServiceFault:                 {KindResponse, "ServiceFault"},
}

// pairedWith pairs a response TypeID back to its request TypeID, used by
// RequestKindFor. It maps one way only, response to request.
var pairedWith = map[TypeID]TypeID{
	TypeReadResponse:                 TypeReadRequest,
	TypeWriteResponse:                TypeWriteRequest,
	TypeBrowseResponse:               TypeBrowseRequest,
	TypeBrowseNextResponse:           TypeBrowseNextRequest,
	TypeCreateSubscriptionResponse:   TypeCreateSubscriptionRequest,
	TypeModifySubscriptionResponse:   TypeModifySubscriptionRequest,
	TypeSetPublishingModeResponse:    TypeSetPublishingModeRequest,
	TypeCreateMonitoredItemsResponse: TypeCreateMonitoredItemsRequest,
	TypePublishResponse:              TypePublishRequest,
	TypeCallResponse:                 TypeCallRequest,
	TypeGetEndpointsResponse:         TypeGetEndpointsRequest,
	TypeCreateSessionResponse:        TypeCreateSessionRequest,
	TypeActivateSessionResponse:      TypeActivateSessionRequest,
	TypeCloseSessionResponse:         TypeCloseSessionRequest,
}

func (t TypeID) String() string {
	if e, ok := registry[t]; ok {
		return e.name
	}
	return fmt.Sprintf("TypeID(%d)", uint32(t))
}

// Classify is the decoder-facing total function: classify(wire_type_id)
// -> (RequestKind | ResponseKind | Unknown), per Part 6.
func Classify(id TypeID) Kind {
	if e, ok := registry[id]; ok {
		return e.kind
	}
	return KindUnknown
}

// TypeIDOf is the encoder-facing total function mapping a message
// variant to its wire type id. Encoding always overrides a ServiceFault
// body's type id to TypeServiceFault regardless of which response
// variant the caller started building, per Part 6's requirement that a
// fault preserve the header but override the body type id.
func TypeIDOf(msg any) TypeID {
	switch msg.(type) {
	case *ReadRequest, ReadRequest:
		return TypeReadRequest
	case *ReadResponse, ReadResponse:
		return TypeReadResponse
	case *WriteRequest, WriteRequest:
		return TypeWriteRequest
	case *WriteResponse, WriteResponse:
		return TypeWriteResponse
	case *BrowseRequest, BrowseRequest:
		return TypeBrowseRequest
	case *BrowseResponse, BrowseResponse:
		return TypeBrowseResponse
	case *BrowseNextRequest, BrowseNextRequest:
		return TypeBrowseNextRequest
	case *BrowseNextResponse, BrowseNextResponse:
		return TypeBrowseNextResponse
	case *CreateSubscriptionRequest, CreateSubscriptionRequest:
		return TypeCreateSubscriptionRequest
	case *CreateSubscriptionResponse, CreateSubscriptionResponse:
		return TypeCreateSubscriptionResponse
	case *ModifySubscriptionRequest, ModifySubscriptionRequest:
		return TypeModifySubscriptionRequest
	case *ModifySubscriptionResponse, ModifySubscriptionResponse:
		return TypeModifySubscriptionResponse
	case *SetPublishingModeRequest, SetPublishingModeRequest:
		return TypeSetPublishingModeRequest
	case *SetPublishingModeResponse, SetPublishingModeResponse:
		return TypeSetPublishingModeResponse
	case *CreateMonitoredItemsRequest, CreateMonitoredItemsRequest:
		return TypeCreateMonitoredItemsRequest
	case *CreateMonitoredItemsResponse, CreateMonitoredItemsResponse:
		return TypeCreateMonitoredItemsResponse
	case *PublishRequest, PublishRequest:
		return TypePublishRequest
	case *PublishResponse, PublishResponse:
		return TypePublishResponse
	case *CallRequest, CallRequest:
		return TypeCallRequest
	case *CallResponse, CallResponse:
		return TypeCallResponse
	case *GetEndpointsRequest, GetEndpointsRequest:
		return TypeGetEndpointsRequest
	case *GetEndpointsResponse, GetEndpointsResponse:
		return TypeGetEndpointsResponse
	case *CreateSessionRequest, CreateSessionRequest:
		return TypeCreateSessionRequest
	case *CreateSessionResponse, CreateSessionResponse:
		return TypeCreateSessionResponse
	case *ActivateSessionRequest, ActivateSessionRequest:
		return TypeActivateSessionRequest
	case *ActivateSessionResponse, ActivateSessionResponse:
		return TypeActivateSessionResponse
	case *CloseSessionRequest, CloseSessionRequest:
		return TypeCloseSessionRequest
	case *CloseSessionResponse, CloseSessionResponse:
		return TypeCloseSessionResponse
	case *ServiceFault, ServiceFault:
		return TypeServiceFault
	default:
		panic(fmt.Sprintf("uaservices: unknown encodeable type %T", msg))
	}
}

// RequestKindFor returns the request TypeID paired with a response
// TypeID, used by callers that only have the response's identity
// (e.g. when encoding a fault and wanting to log which request it
// answers).
func RequestKindFor(response TypeID) (TypeID, bool) {
	id, ok := pairedWith[response]
	return id, ok
}
