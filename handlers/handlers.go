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
Package handlers implements the per-item execution loop for each
dispatched service (Part 4): Read, Write, Browse, Call, GetEndpoints.
Handlers are plain functions, never methods on a shared mutable handler
object; server.Core calls them from a type switch over the decoded
request type.

Handlers depend only on narrow interfaces (AccessChecker,
DataChangeSink, MethodCallManager, EndpointSource) rather than on
package server directly, so server can depend on handlers without a
cycle.
*/
package handlers

import (
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// AccessChecker authorizes a write to one node/attribute for a user
// identity.
type AccessChecker interface {
	CanWrite(user any, node ua.NodeID, attribute ua.AttributeID) bool
}

// DataChangeSink receives the Write handler's data-change events, per
// Part 4. A successful write reports DataChanged with the old and new
// WriteValue; a write whose previous-value capture failed to allocate
// reports DataChangedFailed instead (the orphan value is cleared and
// logged by the sink, not by the handler).
type DataChangeSink interface {
	DataChanged(old, new ua.WriteValue)
	DataChangedFailed(old ua.WriteValue)
}

// Method is one callable method registered with a MethodCallManager, per
// Part 4's Call handler: a callback invoked with (object-id,
// input-args, user-context), returning a status and an owned output
// variant array.
type Method func(objectID ua.NodeID, inputArgs []ua.Variant, userContext any) (ua.StatusCode, []ua.Variant)

// MethodCallManager resolves a method NodeId to its callback for one
// endpoint. Overlapping invocations on the same endpoint are a
// programming error; the core's single-threaded dispatch loop is what
// makes that guarantee hold, not a lock here.
type MethodCallManager interface {
	GetMethod(id ua.NodeID) (Method, bool)
}

// EndpointSource supplies the configured endpoint/security-policy data
// GetEndpoints enumerates, per Part 4.
type EndpointSource interface {
	// EndpointURL returns the endpoint's advertised URL.
	EndpointURL() string
	// DiscoveryURLs returns the configured discovery URLs, possibly
	// empty; GetEndpoints falls back to {EndpointURL()} when it is.
	DiscoveryURLs() []string
	// SecurityPolicies returns the endpoint's configured policies, each
	// a policy URI plus the set of SecurityModes it enables.
	SecurityPolicies() []SecurityPolicyConfig
	// UserTokenPolicies returns the endpoint's accepted identity token
	// policies.
	UserTokenPolicies() []uaservices.UserTokenPolicy
	// Application returns the server's application description.
	Application() uaservices.ApplicationDescription
}

// SecurityPolicyConfig is one configured security policy and the modes
// it enables, per Part 4's GetEndpoints enumeration.
type SecurityPolicyConfig struct {
	PolicyURI string
	// Modes enabled for this policy, e.g. {SecurityModeSign: true}.
	Modes map[uaservices.SecurityMode]bool
}

// securityPolicyWeight is the per-policy weight Part 4's SecurityLevel
// formula multiplies by: 2 for Basic256Sha256, 1 for Basic256, 0
// otherwise.
func securityPolicyWeight(policyURI string) uint8 {
	switch policyURI {
	case "http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256":
		return 2
	case "http://opcfoundation.org/UA/SecurityPolicy#Basic256":
		return 1
	default:
		return 0
	}
}
