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
Package config loads the four XML documents of Part 6 — server endpoint
configuration, client configuration, users, and the UANodeSet address
space — plus the yaml daemon config cmd/opcuad reads. XML types never
cross into the core packages: each document converts to plain Go values
(endpoint config, nodes, an authenticator) before anything else sees it.
*/
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// EndpointDocument is the parsed server endpoint configuration document.
type EndpointDocument struct {
	XMLName     xml.Name               `xml:"ServerConfiguration"`
	Application ApplicationDescription `xml:"ApplicationDescription"`
	PKI         PKIConfig              `xml:"PKI"`
	Endpoints   []EndpointEntry        `xml:"Endpoint"`
}

// ApplicationDescription identifies the application in both the server
// and client documents.
type ApplicationDescription struct {
	ApplicationURI  string `xml:"ApplicationURI,attr"`
	ProductURI      string `xml:"ProductURI,attr"`
	ApplicationName string `xml:"ApplicationName,attr"`
	ApplicationType string `xml:"ApplicationType,attr"`
}

// PKIConfig points at the certificate material the secure-channel layer
// (an external collaborator) consumes. The service core only
// carries the paths through.
type PKIConfig struct {
	ServerCertificatePath string `xml:"ServerCertificatePath,attr"`
	PrivateKeyPath        string `xml:"PrivateKeyPath,attr"`
	TrustedRootsPath      string `xml:"TrustedRootsPath,attr"`
}

// EndpointEntry is one configured endpoint: a URL, its security
// policies with mode bitmasks, and the accepted user token policies.
type EndpointEntry struct {
	URL              string               `xml:"URL,attr"`
	DiscoveryURLs    []string             `xml:"DiscoveryURL"`
	SecurityPolicies []SecurityPolicyItem `xml:"SecurityPolicy"`
	UserPolicies     UserPolicies         `xml:"UserPolicies"`
}

// SecurityPolicyItem is one security policy URI and its enabled modes,
// encoded as a space-separated list ("None Sign SignAndEncrypt").
type SecurityPolicyItem struct {
	URI   string `xml:"URI,attr"`
	Modes string `xml:"Modes,attr"`
}

// ModeList splits the Modes attribute into its entries.
func (s SecurityPolicyItem) ModeList() []string {
	return strings.Fields(s.Modes)
}

// UserPolicies lists the identity token kinds an endpoint accepts.
type UserPolicies struct {
	Anonymous   *struct{}        `xml:"Anonymous"`
	UserName    *UserTokenEntry  `xml:"UserName"`
	Certificate *UserTokenEntry  `xml:"Certificate"`
}

// UserTokenEntry carries the security policy URI protecting a username
// or certificate token on the wire.
type UserTokenEntry struct {
	SecurityURI string `xml:"SecurityURI,attr"`
}

// LoadEndpointDocument parses the server endpoint configuration at path.
func LoadEndpointDocument(path string) (*EndpointDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading endpoint config: %w", err)
	}
	var doc EndpointDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing endpoint config: %w", err)
	}
	if len(doc.Endpoints) == 0 {
		return nil, fmt.Errorf("endpoint config %s declares no endpoints", path)
	}
	for i, ep := range doc.Endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("endpoint %d has no URL", i)
		}
		if len(ep.SecurityPolicies) == 0 {
			return nil, fmt.Errorf("endpoint %s declares no security policies", ep.URL)
		}
	}
	return &doc, nil
}
