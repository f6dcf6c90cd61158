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

package server

import (
	"github.com/facebook/opcua/handlers"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// EndpointConfig is the server's advertised endpoint, loaded from the
// endpoint configuration document at startup. It implements
// handlers.EndpointSource for GetEndpoints.
type EndpointConfig struct {
	URL           string
	Discovery     []string
	App           uaservices.ApplicationDescription
	Policies      []handlers.SecurityPolicyConfig
	TokenPolicies []uaservices.UserTokenPolicy
}

// EndpointURL returns the endpoint's advertised URL.
func (e *EndpointConfig) EndpointURL() string { return e.URL }

// DiscoveryURLs returns the configured discovery URLs.
func (e *EndpointConfig) DiscoveryURLs() []string { return e.Discovery }

// SecurityPolicies returns the endpoint's configured policy/mode pairs.
func (e *EndpointConfig) SecurityPolicies() []handlers.SecurityPolicyConfig { return e.Policies }

// UserTokenPolicies returns the endpoint's accepted identity token
// policies.
func (e *EndpointConfig) UserTokenPolicies() []uaservices.UserTokenPolicy { return e.TokenPolicies }

// Application returns the server's application description.
func (e *EndpointConfig) Application() uaservices.ApplicationDescription { return e.App }

// MethodRegistry is the endpoint's MethodCallManager (Part 4):
// application code registers callable methods by NodeId at startup, the
// Call handler resolves them per item.
type MethodRegistry struct {
	methods map[ua.NodeIDKey]handlers.Method
}

// NewMethodRegistry builds an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[ua.NodeIDKey]handlers.Method)}
}

// Register binds m to the method node id. Registration happens before
// Core.Run starts; the map is never mutated afterwards.
func (r *MethodRegistry) Register(id ua.NodeID, m handlers.Method) {
	r.methods[id.Key()] = m
}

// GetMethod resolves a method NodeId to its callback.
func (r *MethodRegistry) GetMethod(id ua.NodeID) (handlers.Method, bool) {
	m, ok := r.methods[id.Key()]
	return m, ok
}

// Authenticator validates an ActivateSession identity token. A
// rejected token reports BadIdentityTokenRejected; the returned
// user value is the opaque identity the access checker sees on Write.
type Authenticator interface {
	Authenticate(token uaservices.UserIdentity) (user any, status ua.StatusCode)
}

// anonymousAuth accepts every identity token as an anonymous user. It is
// the default when no users document is configured.
type anonymousAuth struct{}

func (anonymousAuth) Authenticate(token uaservices.UserIdentity) (any, ua.StatusCode) {
	return token.UserName, ua.Ok
}

// allowAllAccess grants every write. It is the default when no users
// document is configured.
type allowAllAccess struct{}

func (allowAllAccess) CanWrite(user any, node ua.NodeID, attribute ua.AttributeID) bool {
	return true
}
