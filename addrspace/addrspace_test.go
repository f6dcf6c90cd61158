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

package addrspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/ua"
)

func newTestSpace(t *testing.T) *Space {
	t.Helper()
	return NewSpace()
}

func TestConfigureIsOneShot(t *testing.T) {
	s := newTestSpace(t)
	n := NewObjectNode(ua.NewNumericNodeID(1, 1), ua.QualifiedName{NS: 1, Name: "Obj"}, ua.LocalizedText{})
	require.NoError(t, s.Configure([]*Node{n}))
	require.True(t, s.Configured())
	require.ErrorIs(t, s.Configure([]*Node{n}), ErrAlreadyConfigured)
}

func TestReadUnknownNodeReturnsNotFound(t *testing.T) {
	s := newTestSpace(t)
	_, ok := s.Read(ua.NewNumericNodeID(1, 999))
	require.False(t, ok)
}

func TestReadAttributeValueIndependentlyOwned(t *testing.T) {
	s := newTestSpace(t)
	id := ua.NewNumericNodeID(1, 10)
	n := NewVariableNode(id, ua.QualifiedName{NS: 1, Name: "Var"}, ua.LocalizedText{}, ua.NewNumericNodeID(0, 6), -1, ua.AccessLevelCurrentRead|ua.AccessLevelCurrentWrite)
	n.Value = ua.Variant{TypeID: ua.TypeInt32, Shape: ua.ShapeArray, Value: []int32{1, 2, 3}}
	s.AddNode(n)

	status, v := s.ReadAttribute(n, ua.AttrValue, "")
	require.Equal(t, ua.Ok, status)
	require.Equal(t, ua.TypeInt32, v.TypeID)

	arr := v.Value.([]int32)
	arr[0] = 999

	status2, v2 := s.ReadAttribute(n, ua.AttrValue, "")
	require.Equal(t, ua.Ok, status2)
	require.Equal(t, []int32{1, 2, 3}, v2.Value)
}

func TestReadAttributeValueOnNonVariableIsInvalid(t *testing.T) {
	s := newTestSpace(t)
	n := NewObjectNode(ua.NewNumericNodeID(1, 1), ua.QualifiedName{NS: 1, Name: "Obj"}, ua.LocalizedText{})
	s.AddNode(n)

	status, _ := s.ReadAttribute(n, ua.AttrValue, "")
	require.Equal(t, ua.BadAttributeIdInvalid, status)
}

func TestReadAttributeWithIndexRange(t *testing.T) {
	s := newTestSpace(t)
	n := NewVariableNode(ua.NewNumericNodeID(1, 11), ua.QualifiedName{NS: 1, Name: "S"}, ua.LocalizedText{}, ua.NewNumericNodeID(0, 12), -1, ua.AccessLevelCurrentRead)
	n.Value = ua.Variant{TypeID: ua.TypeString, Shape: ua.ShapeScalar, Value: "hello"}
	s.AddNode(n)

	status, v := s.ReadAttribute(n, ua.AttrValue, "1:3")
	require.Equal(t, ua.Ok, status)
	require.Equal(t, "ell", v.Value)
}

func TestWriteValueFullReturnsPreviousValue(t *testing.T) {
	s := newTestSpace(t)
	n := NewVariableNode(ua.NewNumericNodeID(1, 20), ua.QualifiedName{NS: 1, Name: "V"}, ua.LocalizedText{}, ua.NewNumericNodeID(0, 6), -1, ua.AccessLevelCurrentWrite)
	n.Value = ua.Variant{TypeID: ua.TypeInt32, Shape: ua.ShapeScalar, Value: int32(1)}
	s.AddNode(n)

	status, prev := s.WriteValueFull(n, ua.Variant{TypeID: ua.TypeInt32, Shape: ua.ShapeScalar, Value: int32(2)}, time.Unix(0, 0))
	require.Equal(t, ua.Ok, status)
	require.Equal(t, int32(1), prev.Value.Value)

	status2, v := s.ReadAttribute(n, ua.AttrValue, "")
	require.Equal(t, ua.Ok, status2)
	require.Equal(t, int32(2), v.Value)
}

func TestWriteValueIndexedUpdatesSubrangeOnly(t *testing.T) {
	s := newTestSpace(t)
	n := NewVariableNode(ua.NewNumericNodeID(1, 21), ua.QualifiedName{NS: 1, Name: "S"}, ua.LocalizedText{}, ua.NewNumericNodeID(0, 12), -1, ua.AccessLevelCurrentWrite)
	n.Value = ua.Variant{TypeID: ua.TypeString, Shape: ua.ShapeScalar, Value: "hello"}
	s.AddNode(n)

	var prev ua.DataValue
	status := s.WriteValueIndexed(n, ua.Variant{TypeID: ua.TypeString, Shape: ua.ShapeScalar, Value: "XYZ"}, "1:3", &prev, time.Unix(0, 0))
	require.Equal(t, ua.Ok, status)
	require.Equal(t, "hello", prev.Value.Value)

	_, v := s.ReadAttribute(n, ua.AttrValue, "")
	require.Equal(t, "hXYZo", v.Value)
}

func TestTypeDefinitionOf(t *testing.T) {
	s := newTestSpace(t)
	typeID := ua.NewNumericNodeID(0, 63)
	n := NewVariableNode(ua.NewNumericNodeID(1, 30), ua.QualifiedName{NS: 1, Name: "V"}, ua.LocalizedText{}, ua.NewNumericNodeID(0, 6), -1, 0)
	n.AddReference(Reference{ReferenceTypeID: HasTypeDefinitionNodeID, Target: ua.NewExpandedNodeID(typeID)})
	s.AddNode(n)

	target, ok := s.TypeDefinitionOf(n)
	require.True(t, ok)
	got, ok := ua.ExpandedToNodeID(target)
	require.True(t, ok)
	require.True(t, got.Equal(typeID))
}

func TestIsTransitiveSubtypeOfReflexive(t *testing.T) {
	s := newTestSpace(t)
	id := ua.NewNumericNodeID(0, 58)
	require.True(t, s.IsTransitiveSubtypeOf(id, id))
}

func TestIsTransitiveSubtypeOfWalksChain(t *testing.T) {
	s := newTestSpace(t)
	base := ua.NewNumericNodeID(0, 58)
	mid := ua.NewNumericNodeID(0, 63)
	leaf := ua.NewNumericNodeID(0, 69)

	baseNode := NewObjectNode(base, ua.QualifiedName{}, ua.LocalizedText{})
	midNode := NewObjectNode(mid, ua.QualifiedName{}, ua.LocalizedText{})
	midNode.AddReference(Reference{ReferenceTypeID: HasSubtypeNodeID, IsInverse: true, Target: ua.NewExpandedNodeID(base)})
	leafNode := NewObjectNode(leaf, ua.QualifiedName{}, ua.LocalizedText{})
	leafNode.AddReference(Reference{ReferenceTypeID: HasSubtypeNodeID, IsInverse: true, Target: ua.NewExpandedNodeID(mid)})

	s.AddNode(baseNode)
	s.AddNode(midNode)
	s.AddNode(leafNode)

	require.True(t, s.IsTransitiveSubtypeOf(leaf, base))
	require.False(t, s.IsTransitiveSubtypeOf(base, leaf))
}

func TestIsTransitiveSubtypeOfRejectsRemoteTarget(t *testing.T) {
	s := newTestSpace(t)
	leaf := ua.NewNumericNodeID(0, 69)
	remote := ua.ExpandedNodeID{NodeID: ua.NewNumericNodeID(0, 58), NamespaceURI: "urn:other-server"}

	leafNode := NewObjectNode(leaf, ua.QualifiedName{}, ua.LocalizedText{})
	leafNode.AddReference(Reference{ReferenceTypeID: HasSubtypeNodeID, IsInverse: true, Target: remote})
	s.AddNode(leafNode)

	require.False(t, s.IsTransitiveSubtypeOf(leaf, ua.NewNumericNodeID(0, 58)))
}
