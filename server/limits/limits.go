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
Package limits holds the server's compile-time tunables as a plain value
type so decoders, builders, handlers and server.Core can all depend on it
without any of them depending on each other. server.Limits is a type
alias onto this package's Limits.
*/
package limits

import "time"

// Limits collects every restart-only tunable named in this repository.
// None of these fields are hot-reloaded mid-session: OPC UA operation
// limits are fixed for the life of the endpoint.
type Limits struct {
	MaxOperationsPerMessage uint32
	MaxSecureConnections    uint32
	MaxSessions             uint32

	MinSubscriptionInterval time.Duration
	MaxSubscriptionInterval time.Duration
	MinKeepAliveCount       uint32
	MaxKeepAliveCount       uint32
	MinLifetimeCount        uint32
	MaxLifetimeCount        uint32

	DefaultRequestTimeout time.Duration
	MinSessionTimeout     time.Duration
	MaxSessionTimeout     time.Duration

	MaxRecursionDepth int

	DiscoveryQueueDepth int
}

// Default returns the repository's documented default bounds, matching
// the published OPC UA reference server's conservative defaults.
func Default() Limits {
	return Limits{
		MaxOperationsPerMessage: 1000,
		MaxSecureConnections:    100,
		MaxSessions:             50,

		MinSubscriptionInterval: 50 * time.Millisecond,
		MaxSubscriptionInterval: 24 * time.Hour,
		MinKeepAliveCount:       1,
		MaxKeepAliveCount:       10000,
		MinLifetimeCount:        3,
		MaxLifetimeCount:        30000,

		DefaultRequestTimeout: 10 * time.Second,
		MinSessionTimeout:     10 * time.Second,
		MaxSessionTimeout:     6 * time.Hour,

		MaxRecursionDepth: 100,

		DiscoveryQueueDepth: 5,
	}
}
