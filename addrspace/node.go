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
Package addrspace implements the server's typed graph of nodes: the
address space described in Part 3. Nodes are tagged by NodeClass;
Variable/VariableType nodes additionally carry a Value, and Method nodes
carry an Executable flag. ReadAttribute dispatches on the tag rather
than an ad hoc integer switch, the sum-type-over-memcpy-union
replacement called for in the source's design notes.
*/
package addrspace

import (
	"sync"

	"github.com/facebook/opcua/ua"
)

// HasTypeDefinitionNodeID is the NS0 reference-type NodeId scanned for
// when resolving a node's type definition reference: numeric 40, the
// published catalogue value for HasTypeDefinition.
var HasTypeDefinitionNodeID = ua.NewNumericNodeID(0, 40)

// HasSubtypeNodeID is the NS0 reference-type NodeId walked by
// IsTransitiveSubtypeOf.
var HasSubtypeNodeID = ua.NewNumericNodeID(0, 45)

// Reference is a directed, typed edge from a node to a target
// ExpandedNodeID, per Part 3.
type Reference struct {
	ReferenceTypeID ua.NodeID
	IsInverse       bool
	Target          ua.ExpandedNodeID
}

// Node is the address space's tagged node union. Every node carries the
// common fields; Variable/VariableType-only fields are zero-valued on
// other classes and guarded by NodeClass in ReadAttribute.
type Node struct {
	mu sync.RWMutex

	NodeID      ua.NodeID
	Class       ua.NodeClass
	BrowseName  ua.QualifiedName
	DisplayName ua.LocalizedText
	Description ua.LocalizedText
	HasDescription bool
	References  []Reference

	// Variable / VariableType only.
	Value       ua.Variant
	ValueStatus ua.StatusCode
	DataType    ua.NodeID
	ValueRank   int32
	AccessLevel ua.AccessLevel

	// Method only.
	Executable bool
}

// NewObjectNode builds an Object node.
func NewObjectNode(id ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText) *Node {
	return &Node{NodeID: id, Class: ua.NodeClassObject, BrowseName: browseName, DisplayName: displayName}
}

// NewVariableNode builds a Variable node. Per Part 3, a non-NS0 node's
// initial value-status is UncertainInitialValue; NS0 nodes start Good.
func NewVariableNode(id ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, dataType ua.NodeID, valueRank int32, access ua.AccessLevel) *Node {
	status := ua.UncertainInitialValue
	if id.NS == 0 {
		status = ua.Ok
	}
	return &Node{
		NodeID:      id,
		Class:       ua.NodeClassVariable,
		BrowseName:  browseName,
		DisplayName: displayName,
		DataType:    dataType,
		ValueRank:   valueRank,
		AccessLevel: access,
		ValueStatus: status,
	}
}

// NewMethodNode builds a Method node.
func NewMethodNode(id ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, executable bool) *Node {
	return &Node{NodeID: id, Class: ua.NodeClassMethod, BrowseName: browseName, DisplayName: displayName, Executable: executable}
}

// AddReference appends r to n's reference list. Only called while the
// address space is being configured at startup.
func (n *Node) AddReference(r Reference) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.References = append(n.References, r)
}

// IterateReferences returns the length and a borrowed slice of n's
// references.
func (n *Node) IterateReferences() (int, []Reference) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.References), n.References
}

// ReferenceAt returns the i'th reference (0-based internally; callers at
// the service boundary convert from the wire model's 1-based indexing).
func (n *Node) ReferenceAt(i int) Reference {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.References[i]
}

// IsVariableLike reports whether n's class allows a Value attribute
// read/write: Value is only legal on Variable and VariableType nodes.
func (n *Node) IsVariableLike() bool {
	return n.Class == ua.NodeClassVariable || n.Class == ua.NodeClassVariableType
}
