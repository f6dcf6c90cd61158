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
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

const uaTCPTransportProfileURI = "http://opcfoundation.org/UA-Profile/Transport/uatcp-uasc-uabinary"

// GetEndpoints executes the GetEndpoints service, per Part 4. If
// ProfileURIs is non-empty and does not contain the binary-UA-TCP
// transport profile URI, it returns zero endpoints with Ok rather
// than a fault — the request named profiles this server doesn't support,
// not an error. forCreateSession narrows the nested application
// description to ApplicationUri only, per Part 4's two-context rule.
func GetEndpoints(src EndpointSource, req *uaservices.GetEndpointsRequest, forCreateSession bool) (*uaservices.GetEndpointsResponse, ua.StatusCode) {
	if len(req.ProfileURIs) > 0 && !containsString(req.ProfileURIs, uaTCPTransportProfileURI) {
		return &uaservices.GetEndpointsResponse{
			Header: uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		}, ua.Ok
	}

	app := src.Application()
	if forCreateSession {
		app = uaservices.ApplicationDescription{ApplicationURI: app.ApplicationURI}
	} else if len(app.DiscoveryURLs) == 0 {
		urls := src.DiscoveryURLs()
		if len(urls) == 0 {
			urls = []string{src.EndpointURL()}
		}
		app.DiscoveryURLs = urls
	}

	var endpoints []uaservices.EndpointDescription
	for _, policy := range src.SecurityPolicies() {
		weight := securityPolicyWeight(policy.PolicyURI)
		for _, mode := range []uaservices.SecurityMode{
			uaservices.SecurityModeNone,
			uaservices.SecurityModeSign,
			uaservices.SecurityModeSignAndEncrypt,
		} {
			if !policy.Modes[mode] {
				continue
			}
			var level uint8
			switch mode {
			case uaservices.SecurityModeSignAndEncrypt:
				level = 2 * weight
			case uaservices.SecurityModeSign:
				level = weight
			case uaservices.SecurityModeNone:
				level = 0
			}
			endpoints = append(endpoints, uaservices.EndpointDescription{
				EndpointURL:         src.EndpointURL(),
				Server:              app,
				SecurityPolicyURI:   policy.PolicyURI,
				SecurityMode:        mode,
				SecurityLevel:       level,
				UserIdentityTokens:  src.UserTokenPolicies(),
				TransportProfileURI: uaTCPTransportProfileURI,
			})
		}
	}

	return &uaservices.GetEndpointsResponse{
		Header:    uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		Endpoints: endpoints,
	}, ua.Ok
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
