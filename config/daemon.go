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
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/facebook/opcua/server/limits"
)

// DaemonConfig is the yaml file cmd/opcuad reads: paths to the four XML
// documents plus overrides for the operation limits.
type DaemonConfig struct {
	EndpointConfigPath string `yaml:"endpointconfig"`
	NodeSetPath        string `yaml:"nodeset"`
	UsersConfigPath    string `yaml:"users"`
	RetainDBPath       string `yaml:"retaindb"`

	MaxOperationsPerMessage uint32        `yaml:"maxoperationspermessage"`
	MaxSessions             uint32        `yaml:"maxsessions"`
	MaxSecureConnections    uint32        `yaml:"maxsecureconnections"`
	MinSubscriptionInterval time.Duration `yaml:"minsubscriptioninterval"`
	MinSessionTimeout       time.Duration `yaml:"minsessiontimeout"`
	MaxSessionTimeout       time.Duration `yaml:"maxsessiontimeout"`
	DefaultRequestTimeout   time.Duration `yaml:"defaultrequesttimeout"`
}

// ReadDaemonConfig loads and sanity-checks a DaemonConfig.
func ReadDaemonConfig(path string) (*DaemonConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading daemon config: %w", err)
	}
	dc := &DaemonConfig{}
	if err := yaml.Unmarshal(raw, dc); err != nil {
		return nil, fmt.Errorf("parsing daemon config: %w", err)
	}
	if dc.EndpointConfigPath == "" {
		return nil, fmt.Errorf("daemon config %s: endpointconfig is required", path)
	}
	if dc.NodeSetPath == "" {
		return nil, fmt.Errorf("daemon config %s: nodeset is required", path)
	}
	return dc, nil
}

// ApplyLimits overlays the config's non-zero overrides onto lim.
func (dc *DaemonConfig) ApplyLimits(lim limits.Limits) limits.Limits {
	if dc.MaxOperationsPerMessage != 0 {
		lim.MaxOperationsPerMessage = dc.MaxOperationsPerMessage
	}
	if dc.MaxSessions != 0 {
		lim.MaxSessions = dc.MaxSessions
	}
	if dc.MaxSecureConnections != 0 {
		lim.MaxSecureConnections = dc.MaxSecureConnections
	}
	if dc.MinSubscriptionInterval != 0 {
		lim.MinSubscriptionInterval = dc.MinSubscriptionInterval
	}
	if dc.MinSessionTimeout != 0 {
		lim.MinSessionTimeout = dc.MinSessionTimeout
	}
	if dc.MaxSessionTimeout != 0 {
		lim.MaxSessionTimeout = dc.MaxSessionTimeout
	}
	if dc.DefaultRequestTimeout != 0 {
		lim.DefaultRequestTimeout = dc.DefaultRequestTimeout
	}
	return lim
}
