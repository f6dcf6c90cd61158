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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumericRange(t *testing.T) {
	tests := []struct {
		in      string
		want    NumericRange
		wantBad bool
	}{
		{in: "", wantBad: true},
		{in: "1", want: NumericRange{{1, 1}}},
		{in: "1:3", want: NumericRange{{1, 3}}},
		{in: "1,2:4", want: NumericRange{{1, 1}, {2, 4}}},
		{in: "3:1", wantBad: true},
		{in: "4294967295,4294967295", want: NumericRange{{4294967295, 4294967295}, {4294967295, 4294967295}}},
		{in: "4294967296", wantBad: true},
		{in: "abc", wantBad: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("parse(%q)", tt.in), func(t *testing.T) {
			got, status := ParseNumericRange(tt.in)
			if tt.wantBad {
				require.Equal(t, BadIndexRangeInvalid, status)
				return
			}
			require.Equal(t, Ok, status)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNumericRangeStringIsParseInverse(t *testing.T) {
	ranges := []NumericRange{
		{{1, 1}},
		{{1, 3}},
		{{0, 0}, {5, 9}},
	}
	for _, r := range ranges {
		parsed, status := ParseNumericRange(r.String())
		require.Equal(t, Ok, status)
		require.Equal(t, r, parsed)
	}
}

func TestVariantNumericRangeApply(t *testing.T) {
	v := Variant{TypeID: TypeString, Shape: ShapeScalar, Value: "hello"}
	r, status := ParseNumericRange("1:3")
	require.Equal(t, Ok, status)

	sub, status := v.GetRange(r)
	require.Equal(t, Ok, status)
	require.Equal(t, "ell", sub.Value)

	status = v.SetRange(r, Variant{TypeID: TypeString, Shape: ShapeScalar, Value: "XYZ"})
	require.Equal(t, Ok, status)
	require.Equal(t, "hXYZo", v.Value)
}
