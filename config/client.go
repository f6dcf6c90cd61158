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

package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"
)

// ClientDocument is the parsed client configuration document of Part 6.
type ClientDocument struct {
	XMLName          xml.Name               `xml:"ClientConfiguration"`
	PreferredLocales []string               `xml:"PreferredLocale"`
	Application      ApplicationDescription `xml:"ApplicationDescription"`
	PKI              PKIConfig              `xml:"PKI"`
	Connections      []ConnectionEntry      `xml:"Connection"`
}

// ConnectionEntry is one configured server connection.
type ConnectionEntry struct {
	ServerURL          string `xml:"ServerURL,attr"`
	ReverseEndpointURL string `xml:"ReverseEndpointURL,attr"`
	RequestedLifetime  uint32 `xml:"RequestedLifetimeMs,attr"`
	SecurityPolicyURI  string `xml:"SecurityPolicy,attr"`
	SecurityMode       string `xml:"SecurityMode,attr"`
	UserPolicy         string `xml:"UserPolicy,attr"`
}

// Lifetime returns the requested secure-channel lifetime as a Duration.
func (c ConnectionEntry) Lifetime() time.Duration {
	return time.Duration(c.RequestedLifetime) * time.Millisecond
}

// LoadClientDocument parses the client configuration at path.
func LoadClientDocument(path string) (*ClientDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}
	var doc ClientDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if len(doc.Connections) == 0 {
		return nil, fmt.Errorf("client config %s declares no connections", path)
	}
	for i, conn := range doc.Connections {
		if conn.ServerURL == "" {
			return nil, fmt.Errorf("connection %d has no ServerURL", i)
		}
	}
	return &doc, nil
}
