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
	"fmt"

	"github.com/facebook/opcua/config"
	"github.com/facebook/opcua/handlers"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// EndpointFromConfig converts the first endpoint of a parsed endpoint
// document into the runtime EndpointConfig GetEndpoints serves from.
func EndpointFromConfig(doc *config.EndpointDocument) (*EndpointConfig, error) {
	ep := doc.Endpoints[0]

	var policies []handlers.SecurityPolicyConfig
	for _, p := range ep.SecurityPolicies {
		modes := make(map[uaservices.SecurityMode]bool)
		for _, m := range p.ModeList() {
			switch m {
			case "None":
				modes[uaservices.SecurityModeNone] = true
			case "Sign":
				modes[uaservices.SecurityModeSign] = true
			case "SignAndEncrypt":
				modes[uaservices.SecurityModeSignAndEncrypt] = true
			default:
				return nil, fmt.Errorf("endpoint %s: unknown security mode %q", ep.URL, m)
			}
		}
		policies = append(policies, handlers.SecurityPolicyConfig{PolicyURI: p.URI, Modes: modes})
	}

	var tokens []uaservices.UserTokenPolicy
	if ep.UserPolicies.Anonymous != nil {
		tokens = append(tokens, uaservices.UserTokenPolicy{PolicyID: "anonymous", TokenType: "Anonymous"})
	}
	if ep.UserPolicies.UserName != nil {
		tokens = append(tokens, uaservices.UserTokenPolicy{
			PolicyID:          "username",
			TokenType:         "UserName",
			SecurityPolicyURI: ep.UserPolicies.UserName.SecurityURI,
		})
	}
	if ep.UserPolicies.Certificate != nil {
		tokens = append(tokens, uaservices.UserTokenPolicy{
			PolicyID:          "certificate",
			TokenType:         "Certificate",
			SecurityPolicyURI: ep.UserPolicies.Certificate.SecurityURI,
		})
	}

	return &EndpointConfig{
		URL:       ep.URL,
		Discovery: ep.DiscoveryURLs,
		App: uaservices.ApplicationDescription{
			ApplicationURI: doc.Application.ApplicationURI,
			ProductURI:     doc.Application.ProductURI,
			ApplicationName: ua.LocalizedText{
				LocalizedTextEntry: ua.LocalizedTextEntry{Text: doc.Application.ApplicationName},
			},
		},
		Policies:      policies,
		TokenPolicies: tokens,
	}, nil
}
