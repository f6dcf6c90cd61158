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

/*
Package uaservices models the request/response message pair for every
service this core dispatches, plus the bidirectional registry between a
typed message variant and its wire type id (Part 6). The on-wire byte
representation itself is delegated to an external codec; this
package only holds the decoded/pre-encode Go values the service layer
reads and writes.
*/
package uaservices

import (
	"time"

	"github.com/facebook/opcua/ua"
)

// RequestHeader is common to every request, per Part 6.
type RequestHeader struct {
	AuthenticationToken ua.NodeID
	Timestamp           time.Time
	RequestHandle       uint32
	TimeoutHint         uint32
}

// ResponseHeader is common to every response, per Part 6.
type ResponseHeader struct {
	Timestamp     time.Time
	RequestHandle uint32
	ServiceResult ua.StatusCode
}

// NewResponseHeader builds a ResponseHeader that answers req with result.
func NewResponseHeader(req RequestHeader, result ua.StatusCode, now time.Time) ResponseHeader {
	return ResponseHeader{Timestamp: now, RequestHandle: req.RequestHandle, ServiceResult: result}
}

// -- Read --------------------------------------------------------------

// ReadValueID is one Read request item.
type ReadValueID struct {
	NodeID      ua.NodeID
	AttributeID ua.AttributeID
	IndexRange  string
}

// ReadRequest is the Read service request.
type ReadRequest struct {
	Header              RequestHeader
	MaxAge              float64
	TimestampsToReturn  ua.TimestampsToReturn
	NodesToRead         []ReadValueID
}

// ReadResponse is the Read service response.
type ReadResponse struct {
	Header  ResponseHeader
	Results []ua.DataValue
}

// -- Write ---------------------------------------------------------------

// WriteRequest is the Write service request.
type WriteRequest struct {
	Header      RequestHeader
	NodesToWrite []ua.WriteValue
}

// WriteResponse is the Write service response.
type WriteResponse struct {
	Header  ResponseHeader
	Results []ua.StatusCode
}

// -- Browse --------------------------------------------------------------

// BrowseDirection selects which references a Browse item follows.
type BrowseDirection uint8

// Directions, per Part 4.
const (
	BrowseDirectionForward BrowseDirection = iota
	BrowseDirectionInverse
	BrowseDirectionBoth
)

// BrowseDescription is one Browse request item.
type BrowseDescription struct {
	NodeID          ua.NodeID
	Direction       BrowseDirection
	ReferenceTypeID ua.NodeID
	IncludeSubtypes bool
	HasTypeFilter   bool
}

// BrowseRequest is the Browse service request.
type BrowseRequest struct {
	Header                      RequestHeader
	RequestedMaxReferencesPerNode uint32
	NodesToBrowse               []BrowseDescription
}

// ReferenceDescription is one reference row in a BrowseResult.
type ReferenceDescription struct {
	ReferenceTypeID ua.NodeID
	IsForward       bool
	TargetID        ua.ExpandedNodeID
	BrowseName      ua.QualifiedName
	DisplayName     ua.LocalizedText
	NodeClass       ua.NodeClass
	TypeDefinition  ua.ExpandedNodeID
}

// BrowseResult is one Browse response item.
type BrowseResult struct {
	Status            ua.StatusCode
	ContinuationPoint []byte
	References        []ReferenceDescription
}

// BrowseResponse is the Browse service response.
type BrowseResponse struct {
	Header  ResponseHeader
	Results []BrowseResult
}

// -- BrowseNext ------------------------------------------------------------

// BrowseNextRequest is the BrowseNext service request.
type BrowseNextRequest struct {
	Header                   RequestHeader
	ReleaseContinuationPoints bool
	ContinuationPoints       [][]byte
}

// BrowseNextResponse is the BrowseNext service response.
type BrowseNextResponse struct {
	Header  ResponseHeader
	Results []BrowseResult
}

// -- CreateSubscription / ModifySubscription -------------------------------

// CreateSubscriptionRequest is the CreateSubscription service request.
type CreateSubscriptionRequest struct {
	Header                         RequestHeader
	RequestedPublishingInterval   float64
	RequestedLifetimeCount        uint32
	RequestedMaxKeepAliveCount    uint32
	MaxNotificationsPerPublish    uint32
	PublishingEnabled             bool
}

// CreateSubscriptionResponse is the CreateSubscription service response.
type CreateSubscriptionResponse struct {
	Header                     ResponseHeader
	SubscriptionID             uint32
	RevisedPublishingInterval float64
	RevisedLifetimeCount      uint32
	RevisedMaxKeepAliveCount  uint32
}

// ModifySubscriptionRequest is the ModifySubscription service request.
type ModifySubscriptionRequest struct {
	Header                       RequestHeader
	SubscriptionID               uint32
	RequestedPublishingInterval float64
	RequestedLifetimeCount      uint32
	RequestedMaxKeepAliveCount  uint32
	MaxNotificationsPerPublish  uint32
}

// ModifySubscriptionResponse is the ModifySubscription service response.
type ModifySubscriptionResponse struct {
	Header                     ResponseHeader
	RevisedPublishingInterval float64
	RevisedLifetimeCount      uint32
	RevisedMaxKeepAliveCount  uint32
}

// SetPublishingModeRequest is the SetPublishingMode service request.
type SetPublishingModeRequest struct {
	Header          RequestHeader
	PublishingEnabled bool
	SubscriptionIDs []uint32
}

// SetPublishingModeResponse is the SetPublishingMode service response.
type SetPublishingModeResponse struct {
	Header  ResponseHeader
	Results []ua.StatusCode
}

// -- CreateMonitoredItems ---------------------------------------------------

// MonitoringMode is the monitored item's reporting state.
type MonitoringMode uint8

// Modes, per Part 3.
const (
	MonitoringModeDisabled MonitoringMode = iota
	MonitoringModeSampling
	MonitoringModeReporting
)

// MonitoredItemCreateRequest is one CreateMonitoredItems request item.
type MonitoredItemCreateRequest struct {
	NodeID             ua.NodeID
	AttributeID        ua.AttributeID
	IndexRange         string
	MonitoringMode     MonitoringMode
	ClientHandle       uint32
	SamplingInterval   float64
	QueueSize          uint32
}

// CreateMonitoredItemsRequest is the CreateMonitoredItems service request.
type CreateMonitoredItemsRequest struct {
	Header              RequestHeader
	SubscriptionID      uint32
	TimestampsToReturn  ua.TimestampsToReturn
	ItemsToCreate       []MonitoredItemCreateRequest
}

// MonitoredItemCreateResult is one CreateMonitoredItems response item.
type MonitoredItemCreateResult struct {
	Status                 ua.StatusCode
	MonitoredItemID        uint32
	RevisedSamplingInterval float64
	RevisedQueueSize       uint32
}

// CreateMonitoredItemsResponse is the CreateMonitoredItems service response.
type CreateMonitoredItemsResponse struct {
	Header  ResponseHeader
	Results []MonitoredItemCreateResult
}

// -- Publish -----------------------------------------------------------------

// SubscriptionAcknowledgement acknowledges one retained notification.
type SubscriptionAcknowledgement struct {
	SubscriptionID uint32
	SequenceNumber uint32
}

// PublishRequest is the Publish service request.
type PublishRequest struct {
	Header                      RequestHeader
	SubscriptionAcknowledgements []SubscriptionAcknowledgement
}

// MonitoredItemNotification is one reported value change.
type MonitoredItemNotification struct {
	ClientHandle uint32
	Value        ua.DataValue
}

// NotificationMessage is the payload of one Publish cycle.
type NotificationMessage struct {
	SequenceNumber uint32
	PublishTime    time.Time
	Notifications  []MonitoredItemNotification
}

// PublishResponse is the Publish service response.
type PublishResponse struct {
	Header                    ResponseHeader
	SubscriptionID            uint32
	AvailableSequenceNumbers []uint32
	MoreNotifications        bool
	NotificationMessage       NotificationMessage
	Results                   []ua.StatusCode
}

// -- Call ---------------------------------------------------------------------

// CallMethodRequest is one Call request item.
type CallMethodRequest struct {
	ObjectID    ua.NodeID
	MethodID    ua.NodeID
	InputArguments []ua.Variant
}

// CallRequest is the Call service request.
type CallRequest struct {
	Header       RequestHeader
	MethodsToCall []CallMethodRequest
}

// CallMethodResult is one Call response item.
type CallMethodResult struct {
	Status          ua.StatusCode
	InputArgumentResults []ua.StatusCode
	OutputArguments []ua.Variant
}

// CallResponse is the Call service response.
type CallResponse struct {
	Header  ResponseHeader
	Results []CallMethodResult
}

// -- GetEndpoints ---------------------------------------------------------------

// SecurityMode is the message security mode an endpoint offers.
type SecurityMode uint8

// Modes, per Part 4.
const (
	SecurityModeNone SecurityMode = iota
	SecurityModeSign
	SecurityModeSignAndEncrypt
)

// UserTokenPolicy describes one accepted identity token kind.
type UserTokenPolicy struct {
	PolicyID  string
	TokenType string
	SecurityPolicyURI string
}

// ApplicationDescription is the server-identifying metadata returned by
// GetEndpoints/CreateSession.
type ApplicationDescription struct {
	ApplicationURI  string
	ProductURI      string
	ApplicationName ua.LocalizedText
	ApplicationType uint32
	DiscoveryURLs   []string
}

// EndpointDescription is one advertised endpoint.
type EndpointDescription struct {
	EndpointURL       string
	Server            ApplicationDescription
	SecurityPolicyURI string
	SecurityMode      SecurityMode
	SecurityLevel     uint8
	UserIdentityTokens []UserTokenPolicy
	TransportProfileURI string
}

// GetEndpointsRequest is the GetEndpoints service request.
type GetEndpointsRequest struct {
	Header                RequestHeader
	EndpointURL           string
	ProfileURIs           []string
}

// GetEndpointsResponse is the GetEndpoints service response.
type GetEndpointsResponse struct {
	Header    ResponseHeader
	Endpoints []EndpointDescription
}

// -- Session lifecycle ----------------------------------------------------------

// CreateSessionRequest is the CreateSession service request.
type CreateSessionRequest struct {
	Header                RequestHeader
	ClientDescription     ApplicationDescription
	EndpointURL           string
	SessionName           string
	RequestedSessionTimeout float64
}

// CreateSessionResponse is the CreateSession service response.
type CreateSessionResponse struct {
	Header                 ResponseHeader
	SessionID              ua.NodeID
	AuthenticationToken    ua.NodeID
	RevisedSessionTimeout  float64
	ServerNonce            []byte
	ServerEndpoints        []EndpointDescription
}

// UserIdentity is the opaque identity token presented to ActivateSession.
type UserIdentity struct {
	Kind     string
	UserName string
	Password []byte
}

// ActivateSessionRequest is the ActivateSession service request.
type ActivateSessionRequest struct {
	Header          RequestHeader
	UserIdentityToken UserIdentity
}

// ActivateSessionResponse is the ActivateSession service response.
type ActivateSessionResponse struct {
	Header      ResponseHeader
	ServerNonce []byte
}

// CloseSessionRequest is the CloseSession service request.
type CloseSessionRequest struct {
	Header             RequestHeader
	DeleteSubscriptions bool
}

// CloseSessionResponse is the CloseSession service response.
type CloseSessionResponse struct {
	Header ResponseHeader
}

// ServiceFault is the dedicated response variant for a failed request
// whose body cannot be constructed (Part 6).
type ServiceFault struct {
	Header ResponseHeader
}
