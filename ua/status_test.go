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

package ua

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	for code := range statusNames {
		t.Run(code.String(), func(t *testing.T) {
			wire := code.ToWire()
			require.Equal(t, code, FromWire(wire))
		})
	}
}

func TestStatusSeverity(t *testing.T) {
	tests := []struct {
		code StatusCode
		want Severity
	}{
		{Ok, SeverityOk},
		{UncertainGeneric, SeverityUncertain},
		{BadGeneric, SeverityBad},
		{BadNodeIdUnknown, SeverityBad},
		{UncertainInitialValue, SeverityUncertain},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.code.Severity(), tt.code.String())
	}
}

func TestFromWireUnknownCollapses(t *testing.T) {
	tests := []struct {
		wire uint32
		want StatusCode
	}{
		{0xBFFFFFFF, BadGeneric},
		{0x7FFFFFFF, UncertainGeneric},
		{0x3FFFFFFF, Ok},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FromWire(tt.wire))
	}
}

func TestStatusCodeIsError(t *testing.T) {
	var err error = BadNodeIdUnknown
	require.EqualError(t, err, "BadNodeIdUnknown")
}

func TestStatusPredicates(t *testing.T) {
	require.True(t, Ok.IsGood())
	require.True(t, BadNodeIdUnknown.IsBad())
	require.True(t, UncertainGeneric.IsUncertain())
	require.False(t, Ok.IsBad())
}
