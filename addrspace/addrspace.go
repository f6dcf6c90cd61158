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
	"errors"
	"sync"
	"time"

	"github.com/facebook/opcua/ua"
)

// ErrAlreadyConfigured is returned by Configure when called a second
// time: the process-wide "configured" flag transitions once from false
// to true and may not be reversed (Part 3).
var ErrAlreadyConfigured = errors.New("addrspace: already configured")

// MaxRecursionDepth bounds both the nested-variant depth (Variant
// matrices aren't nested in this core, so this only matters for
// IsTransitiveSubtypeOf today) and the IsTransitiveSubtypeOf walk, per
// requirement that the two share one constant.
const MaxRecursionDepth = 100

// Space is the Address Space: a mapping from NodeId to Node, configured
// once at startup then read-heavy with point mutations on Variable
// values (Part 3). Space is a field of server.Core, never a package
// global, per the design notes.
type Space struct {
	mu          sync.RWMutex
	nodes       map[ua.NodeIDKey]*Node
	configured  bool
}

// NewSpace builds an empty, unconfigured Space.
func NewSpace() *Space {
	return &Space{nodes: make(map[ua.NodeIDKey]*Node)}
}

// Configure installs nodes and flips the one-shot configured flag.
// Calling it a second time returns ErrAlreadyConfigured rather than
// panicking: an attempted config reload is an operational mistake, not
// a programming error, even though the node graph itself doesn't merge
// across calls.
func (s *Space) Configure(nodes []*Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured {
		return ErrAlreadyConfigured
	}
	for _, n := range nodes {
		s.nodes[n.NodeID.Key()] = n
	}
	s.configured = true
	return nil
}

// AddNode inserts a single node outside of the initial Configure batch
// (used by tests and by incremental nodeset loading before Configure is
// called).
func (s *Space) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.NodeID.Key()] = n
}

// Configured reports whether Configure has run.
func (s *Space) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configured
}

// Read looks up a node by id, O(1) average via the underlying Go map,
// per Part 3.
func (s *Space) Read(id ua.NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id.Key()]
	return n, ok
}

// ReadAttribute reads one attribute off node, applying index_range if
// present, per Part 3. The returned Variant is newly allocated and
// owned by the caller.
func (s *Space) ReadAttribute(node *Node, attr ua.AttributeID, indexRange string) (ua.StatusCode, ua.Variant) {
	if attr == ua.AttrValue {
		if !node.IsVariableLike() {
			return ua.BadAttributeIdInvalid, ua.NullVariant
		}
		node.mu.RLock()
		v := node.Value.DeepCopy()
		node.mu.RUnlock()

		if indexRange == "" {
			return ua.Ok, v
		}
		r, status := ua.ParseNumericRange(indexRange)
		if status != ua.Ok {
			return status, ua.NullVariant
		}
		sub, status := v.GetRange(r)
		if status != ua.Ok {
			return status, ua.NullVariant
		}
		return ua.Ok, sub
	}

	switch attr {
	case ua.AttrNodeID:
		return ua.Ok, ua.Variant{TypeID: ua.TypeNodeID, Shape: ua.ShapeScalar, Value: node.NodeID}
	case ua.AttrNodeClass:
		return ua.Ok, ua.Variant{TypeID: ua.TypeUInt32, Shape: ua.ShapeScalar, Value: uint32(node.Class)}
	case ua.AttrBrowseName:
		return ua.Ok, ua.Variant{TypeID: ua.TypeQualifiedName, Shape: ua.ShapeScalar, Value: node.BrowseName}
	case ua.AttrDisplayName:
		return ua.Ok, ua.Variant{TypeID: ua.TypeLocalizedText, Shape: ua.ShapeScalar, Value: node.DisplayName}
	case ua.AttrDescription:
		if !node.HasDescription {
			return ua.Ok, ua.NullVariant
		}
		return ua.Ok, ua.Variant{TypeID: ua.TypeLocalizedText, Shape: ua.ShapeScalar, Value: node.Description}
	case ua.AttrDataType:
		if !node.IsVariableLike() {
			return ua.BadAttributeIdInvalid, ua.NullVariant
		}
		return ua.Ok, ua.Variant{TypeID: ua.TypeNodeID, Shape: ua.ShapeScalar, Value: node.DataType}
	case ua.AttrValueRank:
		if !node.IsVariableLike() {
			return ua.BadAttributeIdInvalid, ua.NullVariant
		}
		return ua.Ok, ua.Variant{TypeID: ua.TypeInt32, Shape: ua.ShapeScalar, Value: node.ValueRank}
	case ua.AttrAccessLevel:
		if !node.IsVariableLike() {
			return ua.BadAttributeIdInvalid, ua.NullVariant
		}
		return ua.Ok, ua.Variant{TypeID: ua.TypeByte, Shape: ua.ShapeScalar, Value: uint8(node.AccessLevel)}
	case ua.AttrExecutable:
		if node.Class != ua.NodeClassMethod {
			return ua.BadAttributeIdInvalid, ua.NullVariant
		}
		return ua.Ok, ua.Variant{TypeID: ua.TypeBoolean, Shape: ua.ShapeScalar, Value: node.Executable}
	default:
		return ua.BadAttributeIdInvalid, ua.NullVariant
	}
}

// WriteValueFull overwrites node's entire Value (Part 3). It returns
// the previous value, heap-allocated, for the subscription engine's
// data-change hook.
func (s *Space) WriteValueFull(node *Node, newValue ua.Variant, now time.Time) (ua.StatusCode, *ua.DataValue) {
	node.mu.Lock()
	defer node.mu.Unlock()
	prev := &ua.DataValue{Value: node.Value, Status: node.ValueStatus, ServerTimestamp: now}
	node.Value = newValue.DeepCopy()
	node.ValueStatus = ua.Ok
	return ua.Ok, prev
}

// WriteValueIndexed overwrites the sub-range of node's Value selected by
// indexRange, copying the pre-write value into *previousOut first.
func (s *Space) WriteValueIndexed(node *Node, newValue ua.Variant, indexRange string, previousOut *ua.DataValue, now time.Time) ua.StatusCode {
	r, status := ua.ParseNumericRange(indexRange)
	if status != ua.Ok {
		return status
	}
	node.mu.Lock()
	defer node.mu.Unlock()
	*previousOut = ua.DataValue{Value: node.Value.DeepCopy(), Status: node.ValueStatus, ServerTimestamp: now}
	status = node.Value.SetRange(r, newValue)
	if status != ua.Ok {
		return status
	}
	node.ValueStatus = ua.Ok
	return ua.Ok
}

// TypeDefinitionOf returns the first forward reference off node whose
// reference-type is HasTypeDefinitionNodeID, per Part 3.
func (s *Space) TypeDefinitionOf(node *Node) (ua.ExpandedNodeID, bool) {
	_, refs := node.IterateReferences()
	for _, r := range refs {
		if !r.IsInverse && r.ReferenceTypeID.Equal(HasTypeDefinitionNodeID) {
			return r.Target, true
		}
	}
	return ua.ExpandedNodeID{}, false
}

// IsTransitiveSubtypeOf walks inverse HasSubtype edges from subtype
// until supertype is reached, an out-of-server target is found, or
// MaxRecursionDepth is exceeded (Part 3). Targets with a non-empty
// namespace URI or non-zero server index are skipped; nothing is
// logged, neither here nor by the caller, since this function only
// returns the bool and stays free of a logger dependency. This is the only subtype-check entry point in the
// codebase: handlers and decoders always call this, never a second,
// inconsistent path.
func (s *Space) IsTransitiveSubtypeOf(subtype, supertype ua.NodeID) bool {
	if subtype.Equal(supertype) {
		return true
	}
	return s.walkSubtype(subtype, supertype, 0)
}

func (s *Space) walkSubtype(current, target ua.NodeID, depth int) bool {
	if depth >= MaxRecursionDepth {
		return false
	}
	node, ok := s.Read(current)
	if !ok {
		return false
	}
	_, refs := node.IterateReferences()
	for _, r := range refs {
		if !r.IsInverse || !r.ReferenceTypeID.Equal(HasSubtypeNodeID) {
			continue
		}
		if !r.Target.IsLocal() {
			// non-zero server index or non-empty namespace URI: reject.
			continue
		}
		candidate, ok := ua.ExpandedToNodeID(r.Target)
		if !ok {
			continue
		}
		if candidate.Equal(target) {
			return true
		}
		if s.walkSubtype(candidate, target, depth+1) {
			return true
		}
	}
	return false
}
