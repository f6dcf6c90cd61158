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

import (
	"math"

	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// CallBuilder fills a Call response's per-method results, clamping an
// oversized output-argument array to BadQueryTooComplex per Part 4.
type CallBuilder struct {
	results []uaservices.CallMethodResult
}

// NewCallBuilder allocates a CallBuilder for n method invocations.
func NewCallBuilder(n int) *CallBuilder {
	return &CallBuilder{results: make([]uaservices.CallMethodResult, n)}
}

// SetItem fills the 1-based i'th result. If outputArgs would overflow
// math.MaxInt32, it is truncated and status is replaced with
// BadQueryTooComplex.
func (b *CallBuilder) SetItem(i int, status ua.StatusCode, inputResults []ua.StatusCode, outputArgs []ua.Variant) {
	if len(outputArgs) > math.MaxInt32 {
		outputArgs = outputArgs[:math.MaxInt32]
		status = ua.BadQueryTooComplex
	}
	b.results[i-1] = uaservices.CallMethodResult{
		Status:               status,
		InputArgumentResults: inputResults,
		OutputArguments:      outputArgs,
	}
}

// Finalize transfers ownership of the built array to the caller.
func (b *CallBuilder) Finalize() []uaservices.CallMethodResult {
	out := b.results
	b.results = nil
	return out
}
