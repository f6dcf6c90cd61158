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

package retain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/ua"
)

func TestRetainRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "retain.db"))
	require.NoError(t, err)
	defer s.Close()

	id := ua.NewStringNodeID(2, "plant.temperature")
	err = s.Retain(id, ua.DataValue{
		Value:  ua.Variant{TypeID: ua.TypeDouble, Value: 21.5},
		Status: ua.Ok,
	})
	require.NoError(t, err)

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	dv, ok := loaded[id.String()]
	require.True(t, ok)
	require.Equal(t, ua.TypeDouble, dv.Value.TypeID)
	require.Equal(t, 21.5, dv.Value.Value)
	require.Equal(t, ua.Ok, dv.Status)
}

func TestRetainOverwrite(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "retain.db"))
	require.NoError(t, err)
	defer s.Close()

	id := ua.NewNumericNodeID(2, 42)
	require.NoError(t, s.Retain(id, ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(7)}}))
	require.NoError(t, s.Retain(id, ua.DataValue{Value: ua.Variant{TypeID: ua.TypeInt32, Value: int32(8)}}))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, int32(8), loaded[id.String()].Value.Value)
}

func TestRetainSkipsNonScalar(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "retain.db"))
	require.NoError(t, err)
	defer s.Close()

	id := ua.NewNumericNodeID(2, 1)
	err = s.Retain(id, ua.DataValue{
		Value: ua.Variant{TypeID: ua.TypeInt32, Shape: ua.ShapeArray, Value: []int32{1, 2, 3}},
	})
	require.NoError(t, err)

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestScalarFormats(t *testing.T) {
	tests := []struct {
		name    string
		variant ua.Variant
	}{
		{"bool", ua.Variant{TypeID: ua.TypeBoolean, Value: true}},
		{"sbyte", ua.Variant{TypeID: ua.TypeSByte, Value: int8(-5)}},
		{"byte", ua.Variant{TypeID: ua.TypeByte, Value: uint8(200)}},
		{"int16", ua.Variant{TypeID: ua.TypeInt16, Value: int16(-300)}},
		{"uint16", ua.Variant{TypeID: ua.TypeUInt16, Value: uint16(60000)}},
		{"int32", ua.Variant{TypeID: ua.TypeInt32, Value: int32(-70000)}},
		{"uint32", ua.Variant{TypeID: ua.TypeUInt32, Value: uint32(4000000000)}},
		{"int64", ua.Variant{TypeID: ua.TypeInt64, Value: int64(-1 << 40)}},
		{"uint64", ua.Variant{TypeID: ua.TypeUInt64, Value: uint64(1) << 60}},
		{"float", ua.Variant{TypeID: ua.TypeFloat, Value: float32(1.5)}},
		{"double", ua.Variant{TypeID: ua.TypeDouble, Value: 2.25}},
		{"string", ua.Variant{TypeID: ua.TypeString, Value: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := formatScalar(tt.variant)
			require.True(t, ok)
			parsed, ok := parseScalar(tt.variant.TypeID, s)
			require.True(t, ok)
			require.Equal(t, tt.variant.Value, parsed.Value)
		})
	}
}
