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
Package respbuild allocates and fills per-service response result
arrays: the constructor reserves N slots, SetItem fills slot i
(1-based), and Finalize transfers ownership of the internal arrays into
the response message.
*/
package respbuild

import (
	"time"

	"github.com/facebook/opcua/ua"
)

// ReadBuilder fills a Read response's DataValue array, applying the
// TimestampsToReturn-driven timestamp population rule (Part 4).
type ReadBuilder struct {
	ts      ua.TimestampsToReturn
	now     func() time.Time
	results []ua.DataValue
}

// NewReadBuilder allocates a ReadBuilder for n items under timestamp
// policy ts. now is injected so tests control the clock.
func NewReadBuilder(n int, ts ua.TimestampsToReturn, now func() time.Time) *ReadBuilder {
	return &ReadBuilder{ts: ts, now: now, results: make([]ua.DataValue, n)}
}

// SetItem fills the 1-based i'th result with value/status, stamping
// SourceTimestamp/ServerTimestamp according to ts. A Bad status leaves
// both timestamps zero.
func (b *ReadBuilder) SetItem(i int, value ua.Variant, status ua.StatusCode) {
	dv := ua.DataValue{Value: value, Status: status}
	if status.IsBad() {
		b.results[i-1] = dv
		return
	}
	switch b.ts {
	case ua.TimestampsSource:
		dv.SourceTimestamp = b.now()
	case ua.TimestampsServer:
		dv.ServerTimestamp = b.now()
	case ua.TimestampsBoth:
		now := b.now()
		dv.SourceTimestamp = now
		dv.ServerTimestamp = now
	case ua.TimestampsNeither:
		// both remain zero.
	}
	b.results[i-1] = dv
}

// Finalize transfers ownership of the built array to the caller.
func (b *ReadBuilder) Finalize() []ua.DataValue {
	out := b.results
	b.results = nil
	return out
}
