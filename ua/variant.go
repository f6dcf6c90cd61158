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

import "fmt"

// BuiltinType identifies the dynamic type carried by a Variant.
type BuiltinType uint8

// Built-in types, per Part 3 (Variant).
const (
	TypeNull BuiltinType = iota
	TypeBoolean
	TypeSByte
	TypeByte
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat
	TypeDouble
	TypeString
	TypeByteString
	TypeXMLElement
	TypeDateTime
	TypeGuid
	TypeNodeID
	TypeExpandedNodeID
	TypeStatusCode
	TypeQualifiedName
	TypeLocalizedText
	TypeExtensionObject
	TypeDataValue
	TypeDiagnosticInfo
)

// ArrayShape discriminates how a Variant's payload is laid out.
type ArrayShape uint8

// Shapes, per Part 3 (Variant).
const (
	ShapeScalar ArrayShape = iota
	ShapeArray
	ShapeMatrix
)

// ExtensionObject is an opaque, type-id-tagged structure the core never
// interprets; decoding it is the external codec's business, it is
// modeled here only so Variant has somewhere to put one.
type ExtensionObject struct {
	TypeID NodeID
	Body   []byte
}

// DiagnosticInfo is a wire-format diagnostic payload; the core never
// inspects its fields, only ferries it; response builders always null
// their diagnostic-info arrays.
type DiagnosticInfo struct {
	SymbolicID          int32
	NamespaceURI        int32
	Locale              int32
	LocalizedText       int32
	AdditionalInfo      string
	InnerStatusCode     StatusCode
	InnerDiagnosticInfo *DiagnosticInfo
}

// Variant is a dynamically typed value: a built-in type id, an array
// shape, and a payload. Value holds the Go-native representation: the
// scalar Go type for ShapeScalar, or a slice of that Go type for
// ShapeArray/ShapeMatrix. Dims holds the per-dimension sizes for
// ShapeMatrix (row-major), consistent with len(Value.([]T)) ==
// product(Dims).
type Variant struct {
	TypeID BuiltinType
	Shape  ArrayShape
	Dims   []uint32
	Value  any
}

// NullVariant is the empty, untyped Variant.
var NullVariant = Variant{}

// IsNull reports whether v carries no value.
func (v Variant) IsNull() bool {
	return v.TypeID == TypeNull
}

// Len returns the flattened element count for Array/Matrix shapes, or 1
// for a non-null Scalar, or 0 for Null.
func (v Variant) Len() int {
	if v.IsNull() {
		return 0
	}
	if v.Shape == ShapeScalar {
		return 1
	}
	rv, ok := v.Value.([]any)
	if ok {
		return len(rv)
	}
	return variantSliceLen(v.Value)
}

// Move transfers ownership of v's payload to the returned Variant and
// clears v in place. Since Go values are garbage collected there is no
// memory to actually transfer, but Move documents and enforces the
// single-owner discipline the message lifecycle requires: a caller that
// calls Move must not read the moved-from variant again.
func (v *Variant) Move() Variant {
	out := *v
	*v = NullVariant
	return out
}

// ShallowCopy borrows v's payload without duplicating it. Slices and
// pointers in Value are shared with v; the caller must not mutate
// through the result.
func (v Variant) ShallowCopy() Variant {
	return v
}

// DeepCopy duplicates v's payload so the result is fully independent of
// v: the returned variant is independently owned.
func (v Variant) DeepCopy() Variant {
	out := Variant{TypeID: v.TypeID, Shape: v.Shape, Dims: append([]uint32(nil), v.Dims...)}
	out.Value = deepCopyValue(v.Value)
	return out
}

func deepCopyValue(val any) any {
	switch t := val.(type) {
	case []byte:
		return append([]byte(nil), t...)
	case []bool:
		return append([]bool(nil), t...)
	case []int8:
		return append([]int8(nil), t...)
	case []int16:
		return append([]int16(nil), t...)
	case []uint16:
		return append([]uint16(nil), t...)
	case []int32:
		return append([]int32(nil), t...)
	case []uint32:
		return append([]uint32(nil), t...)
	case []int64:
		return append([]int64(nil), t...)
	case []uint64:
		return append([]uint64(nil), t...)
	case []float32:
		return append([]float32(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	case []string:
		return append([]string(nil), t...)
	case []NodeID:
		return append([]NodeID(nil), t...)
	default:
		return val
	}
}

func variantSliceLen(val any) int {
	switch t := val.(type) {
	case []byte:
		return len(t)
	case []bool:
		return len(t)
	case []int8:
		return len(t)
	case []int16:
		return len(t)
	case []uint16:
		return len(t)
	case []int32:
		return len(t)
	case []uint32:
		return len(t)
	case []int64:
		return len(t)
	case []uint64:
		return len(t)
	case []float32:
		return len(t)
	case []float64:
		return len(t)
	case []string:
		return len(t)
	case []NodeID:
		return len(t)
	default:
		return 0
	}
}

// GetRange tests if r is valid for v's shape and, if so, extracts the
// sub-variant it selects. Only String, ByteString and single-dimension
// Array variants are supported, the set of types the Read/Write
// index-range machinery actually exercises; other shapes report
// BadIndexRangeNoData.
func (v Variant) GetRange(r NumericRange) (Variant, StatusCode) {
	if len(r) == 0 {
		return v, Ok
	}
	switch {
	case v.TypeID == TypeString:
		s, _ := v.Value.(string)
		if len(r) != 1 {
			return NullVariant, BadIndexRangeNoData
		}
		d := r[0]
		if int(d.Start) >= len(s) {
			return NullVariant, BadIndexRangeNoData
		}
		end := int(d.End)
		if end >= len(s) {
			end = len(s) - 1
		}
		return Variant{TypeID: TypeString, Shape: ShapeScalar, Value: s[d.Start : end+1]}, Ok
	case v.TypeID == TypeByteString:
		b, _ := v.Value.([]byte)
		if len(r) != 1 {
			return NullVariant, BadIndexRangeNoData
		}
		d := r[0]
		if int(d.Start) >= len(b) {
			return NullVariant, BadIndexRangeNoData
		}
		end := int(d.End)
		if end >= len(b) {
			end = len(b) - 1
		}
		out := append([]byte(nil), b[d.Start:end+1]...)
		return Variant{TypeID: TypeByteString, Shape: ShapeScalar, Value: out}, Ok
	case v.Shape == ShapeArray:
		if len(r) != 1 {
			return NullVariant, BadIndexRangeNoData
		}
		n := v.Len()
		d := r[0]
		if int(d.Start) >= n {
			return NullVariant, BadIndexRangeNoData
		}
		end := int(d.End)
		if end >= n {
			end = n - 1
		}
		return sliceRange(v, int(d.Start), end)
	default:
		return NullVariant, BadIndexRangeNoData
	}
}

// SetRange overwrites the sub-range of v selected by r with the contents
// of src, mutating v in place. v must be addressable for the mutation to
// be visible to the caller (callers pass &v).
func (v *Variant) SetRange(r NumericRange, src Variant) StatusCode {
	if len(r) == 0 {
		*v = src.DeepCopy()
		return Ok
	}
	switch {
	case v.TypeID == TypeString:
		s, _ := v.Value.(string)
		repl, _ := src.Value.(string)
		if len(r) != 1 {
			return BadIndexRangeNoData
		}
		d := r[0]
		if int(d.Start) >= len(s) || int(d.End) >= len(s) {
			return BadIndexRangeNoData
		}
		b := []byte(s)
		copy(b[d.Start:d.End+1], repl)
		v.Value = string(b)
		return Ok
	case v.TypeID == TypeByteString:
		b, _ := v.Value.([]byte)
		repl, _ := src.Value.([]byte)
		if len(r) != 1 {
			return BadIndexRangeNoData
		}
		d := r[0]
		if int(d.Start) >= len(b) || int(d.End) >= len(b) {
			return BadIndexRangeNoData
		}
		out := append([]byte(nil), b...)
		copy(out[d.Start:d.End+1], repl)
		v.Value = out
		return Ok
	case v.Shape == ShapeArray:
		if len(r) != 1 {
			return BadIndexRangeNoData
		}
		n := v.Len()
		d := r[0]
		if int(d.Start) >= n || int(d.End) >= n {
			return BadIndexRangeNoData
		}
		return setSliceRange(v, int(d.Start), int(d.End), src)
	default:
		return BadIndexRangeNoData
	}
}

func sliceRange(v Variant, start, end int) (Variant, StatusCode) {
	out := Variant{TypeID: v.TypeID, Shape: ShapeArray}
	switch t := v.Value.(type) {
	case []int32:
		out.Value = append([]int32(nil), t[start:end+1]...)
	case []uint32:
		out.Value = append([]uint32(nil), t[start:end+1]...)
	case []float64:
		out.Value = append([]float64(nil), t[start:end+1]...)
	case []string:
		out.Value = append([]string(nil), t[start:end+1]...)
	case []bool:
		out.Value = append([]bool(nil), t[start:end+1]...)
	default:
		return NullVariant, BadIndexRangeNoData
	}
	return out, Ok
}

func setSliceRange(v *Variant, start, end int, src Variant) StatusCode {
	switch t := v.Value.(type) {
	case []int32:
		repl, ok := src.Value.([]int32)
		if !ok || len(repl) != end-start+1 {
			return BadIndexRangeNoData
		}
		copy(t[start:end+1], repl)
	case []uint32:
		repl, ok := src.Value.([]uint32)
		if !ok || len(repl) != end-start+1 {
			return BadIndexRangeNoData
		}
		copy(t[start:end+1], repl)
	case []float64:
		repl, ok := src.Value.([]float64)
		if !ok || len(repl) != end-start+1 {
			return BadIndexRangeNoData
		}
		copy(t[start:end+1], repl)
	case []string:
		repl, ok := src.Value.([]string)
		if !ok || len(repl) != end-start+1 {
			return BadIndexRangeNoData
		}
		copy(t[start:end+1], repl)
	case []bool:
		repl, ok := src.Value.([]bool)
		if !ok || len(repl) != end-start+1 {
			return BadIndexRangeNoData
		}
		copy(t[start:end+1], repl)
	default:
		return BadIndexRangeNoData
	}
	return Ok
}

func (v Variant) String() string {
	return fmt.Sprintf("Variant(type=%d shape=%d value=%v)", v.TypeID, v.Shape, v.Value)
}
