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

package respbuild

import "github.com/facebook/opcua/uaservices"

// BrowseBuilder fills a Browse/BrowseNext response. It tracks a 2D
// buffer of partially-filled reference-description rows, one per
// BrowseValue index (bvi), each with its own allocated capacity and a
// live-count that advances monotonically as references are appended
// (Part 4). The top-level per-item result (status + continuation
// point + finished reference list) is only committed via SetItem, and
// committing slot i requires slots 1..i-1 already committed.
type BrowseBuilder struct {
	rows      [][]uaservices.ReferenceDescription
	caps      []int
	results   []uaservices.BrowseResult
	committed int
}

// NewBrowseBuilder allocates the top-level result array for n
// BrowseValue items.
func NewBrowseBuilder(n int) *BrowseBuilder {
	return &BrowseBuilder{
		rows:    make([][]uaservices.ReferenceDescription, n),
		caps:    make([]int, n),
		results: make([]uaservices.BrowseResult, n),
	}
}

// AllocateReferences reserves capacity references for the 1-based bvi'th
// item. Returns false (OOM) if capacity is negative.
func (b *BrowseBuilder) AllocateReferences(bvi int, capacity int) bool {
	if capacity < 0 {
		return false
	}
	b.rows[bvi-1] = make([]uaservices.ReferenceDescription, 0, capacity)
	b.caps[bvi-1] = capacity
	return true
}

// AppendReference appends ref to the 1-based bvi'th item's live
// reference row, advancing its live-count. Returns false if the row's
// allocated capacity is already exhausted — the caller must stop adding
// references and instead generate a continuation point.
func (b *BrowseBuilder) AppendReference(bvi int, ref uaservices.ReferenceDescription) bool {
	row := b.rows[bvi-1]
	if len(row) >= b.caps[bvi-1] {
		return false
	}
	b.rows[bvi-1] = append(row, ref)
	return true
}

// ReferenceCount reports the 1-based bvi'th item's current live-count.
func (b *BrowseBuilder) ReferenceCount(bvi int) int { return len(b.rows[bvi-1]) }

// SetItem commits the 1-based i'th top-level result. status and
// continuationPoint are folded in; references are whatever the row
// currently holds (the builder's live-count, possibly less than the
// allocated capacity). i must be the next uncommitted slot: results
// are committed strictly in order.
func (b *BrowseBuilder) SetItem(i int, status uaservices.BrowseResult) {
	if status.References == nil {
		status.References = b.rows[i-1]
	}
	b.results[i-1] = status
	if i > b.committed {
		b.committed = i
	}
}

// Abort drops every half-built row, safely re-entrant: calling it
// twice, or calling it after Finalize, is a no-op and half-built rows
// are dropped exactly once.
func (b *BrowseBuilder) Abort() {
	for i := range b.rows {
		b.rows[i] = nil
	}
	b.results = nil
	b.committed = 0
}

// Finalize transfers ownership of the built result array to the caller.
func (b *BrowseBuilder) Finalize() []uaservices.BrowseResult {
	out := b.results
	b.results = nil
	return out
}
