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

package uaservices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyKnownTypes(t *testing.T) {
	tests := []struct {
		id   TypeID
		kind Kind
	}{
		{TypeReadRequest, KindRequest},
		{TypeReadResponse, KindResponse},
		{TypeServiceFault, KindResponse},
	}
	for _, tt := range tests {
		require.Equal(t, tt.kind, Classify(tt.id), tt.id.String())
	}
}

func TestClassifyUnknown(t *testing.T) {
	require.Equal(t, KindUnknown, Classify(TypeID(999999)))
}

func TestTypeIDOfRoundTrip(t *testing.T) {
	require.Equal(t, TypeReadRequest, TypeIDOf(&ReadRequest{}))
	require.Equal(t, TypeReadResponse, TypeIDOf(&ReadResponse{}))
	require.Equal(t, TypeServiceFault, TypeIDOf(&ServiceFault{}))
}

func TestTypeIDOfPanicsOnUnknownType(t *testing.T) {
	require.Panics(t, func() {
		TypeIDOf(struct{}{})
	})
}

func TestRequestKindFor(t *testing.T) {
	req, ok := RequestKindFor(TypeReadResponse)
	require.True(t, ok)
	require.Equal(t, TypeReadRequest, req)

	_, ok = RequestKindFor(TypeServiceFault)
	require.False(t, ok)
}
