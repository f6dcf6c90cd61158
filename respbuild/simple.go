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

import "github.com/facebook/opcua/ua"

// StatusArrayBuilder fills a flat per-item ua.StatusCode array, the
// shape shared by Write, SetPublishingMode and Call's
// InputArgumentResults.
type StatusArrayBuilder struct {
	results []ua.StatusCode
}

// NewStatusArrayBuilder allocates a builder for n items.
func NewStatusArrayBuilder(n int) *StatusArrayBuilder {
	return &StatusArrayBuilder{results: make([]ua.StatusCode, n)}
}

// SetItem fills the 1-based i'th result.
func (b *StatusArrayBuilder) SetItem(i int, status ua.StatusCode) {
	b.results[i-1] = status
}

// Finalize transfers ownership of the built array to the caller.
func (b *StatusArrayBuilder) Finalize() []ua.StatusCode {
	out := b.results
	b.results = nil
	return out
}
