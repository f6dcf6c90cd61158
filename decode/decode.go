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
Package decode validates a decoded service request and projects it into
the per-item parameter tuples the handlers in package handlers operate
on. Every decoder takes a server/limits.Limits value rather than reading
a package-level constant, so the same decoder code runs under both
production limits and a deliberately tiny limit in tests.

Item accessors are 1-based throughout, per the formal-model boundary
convention: decoders convert to 0-based Go slice indexing internally and
never leak that detail to callers.
*/
package decode

import (
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
)

// checkOperationCount enforces the BadNothingToDo / BadTooManyOperations
// rule shared by every per-item service decoder (Part 4).
func checkOperationCount(n int, lim limits.Limits) ua.StatusCode {
	if n <= 0 {
		return ua.BadNothingToDo
	}
	if uint32(n) > lim.MaxOperationsPerMessage {
		return ua.BadTooManyOperations
	}
	return ua.Ok
}
