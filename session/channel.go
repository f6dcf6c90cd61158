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

package session

import (
	"sync"
	"time"
)

// ChannelConfig is a secure channel's configuration, borrowed by the
// service layer and immutable over the channel's lifetime.
type ChannelConfig struct {
	EndpointURL         string
	SecurityPolicyURI   string
	SecurityMode        uint8
	ServerCertificate   []byte
	ClientCertificate   []byte
	RequestedLifetime   time.Duration
}

// ChannelTable maps a channel index to its ChannelConfig.
type ChannelTable struct {
	mu      sync.Mutex
	configs map[uint32]ChannelConfig
}

// NewChannelTable builds an empty ChannelTable.
func NewChannelTable() *ChannelTable {
	return &ChannelTable{configs: make(map[uint32]ChannelConfig)}
}

// Set installs or replaces the config for idx.
func (c *ChannelTable) Set(idx uint32, cfg ChannelConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs[idx] = cfg
}

// Get looks up the config for idx.
func (c *ChannelTable) Get(idx uint32) (ChannelConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.configs[idx]
	return cfg, ok
}

// Remove drops idx's config when its secure channel closes.
func (c *ChannelTable) Remove(idx uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.configs, idx)
}
