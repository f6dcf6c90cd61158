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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// IDType discriminates the identifier variant carried by a NodeID.
type IDType uint8

// Identifier variants, as per Part 3 (NodeId).
const (
	IDTypeNumeric IDType = iota
	IDTypeString
	IDTypeGuid
	IDTypeByteString
)

func (t IDType) String() string {
	switch t {
	case IDTypeNumeric:
		return "Numeric"
	case IDTypeString:
		return "String"
	case IDTypeGuid:
		return "Guid"
	case IDTypeByteString:
		return "ByteString"
	default:
		return "Unknown"
	}
}

// Guid is a 128-bit globally unique identifier.
type Guid [16]byte

// NodeID is a tagged identifier: a 16-bit namespace index plus an
// identifier variant. NodeID is not comparable with == because the
// ByteString payload is a slice; use Equal to compare, and Key() for a
// comparable map key.
type NodeID struct {
	NS      uint16
	IDType  IDType
	Numeric uint32
	Str     string
	Guid    Guid
	Bytes   []byte
}

// NullNodeID is the null NodeID: (ns=0, Numeric=0).
var NullNodeID = NodeID{NS: 0, IDType: IDTypeNumeric, Numeric: 0}

// NewNumericNodeID builds a numeric NodeID in the given namespace.
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{NS: ns, IDType: IDTypeNumeric, Numeric: id}
}

// NewStringNodeID builds a string NodeID in the given namespace.
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{NS: ns, IDType: IDTypeString, Str: id}
}

// NewGuidNodeID builds a GUID NodeID in the given namespace.
func NewGuidNodeID(ns uint16, id Guid) NodeID {
	return NodeID{NS: ns, IDType: IDTypeGuid, Guid: id}
}

// NewByteStringNodeID builds an opaque-bytes NodeID in the given namespace.
func NewByteStringNodeID(ns uint16, id []byte) NodeID {
	return NodeID{NS: ns, IDType: IDTypeByteString, Bytes: append([]byte(nil), id...)}
}

// IsNull reports whether n is the null NodeID.
func (n NodeID) IsNull() bool {
	return n.Equal(NullNodeID)
}

// Equal compares namespace and identifier variant payload.
func (n NodeID) Equal(o NodeID) bool {
	if n.NS != o.NS || n.IDType != o.IDType {
		return false
	}
	switch n.IDType {
	case IDTypeNumeric:
		return n.Numeric == o.Numeric
	case IDTypeString:
		return n.Str == o.Str
	case IDTypeGuid:
		return n.Guid == o.Guid
	case IDTypeByteString:
		return string(n.Bytes) == string(o.Bytes)
	default:
		return false
	}
}

// NodeIDKey is a comparable projection of a NodeID suitable for use as a
// Go map key, giving the address space's NodeID -> Node lookup its O(1)
// average behaviour for free via the runtime map implementation; this
// plays the role of Part 3's "canonical hash".
type NodeIDKey struct {
	NS      uint16
	IDType  IDType
	Numeric uint32
	Str     string
	Guid    Guid
}

// Key returns the comparable map key for n. ByteString identifiers are
// folded into Str via a type-tagged conversion since []byte isn't
// comparable; this is safe because IDType is part of the key and a
// ByteString NodeID never collides with a String NodeID of the same
// bytes.
func (n NodeID) Key() NodeIDKey {
	k := NodeIDKey{NS: n.NS, IDType: n.IDType, Numeric: n.Numeric, Str: n.Str, Guid: n.Guid}
	if n.IDType == IDTypeByteString {
		k.Str = string(n.Bytes)
	}
	return k
}

func (n NodeID) String() string {
	switch n.IDType {
	case IDTypeNumeric:
		return fmt.Sprintf("ns=%d;i=%d", n.NS, n.Numeric)
	case IDTypeString:
		return fmt.Sprintf("ns=%d;s=%s", n.NS, n.Str)
	case IDTypeGuid:
		return fmt.Sprintf("ns=%d;g=%x", n.NS, n.Guid)
	case IDTypeByteString:
		return fmt.Sprintf("ns=%d;b=%x", n.NS, n.Bytes)
	default:
		return fmt.Sprintf("ns=%d;?", n.NS)
	}
}

// ParseNodeID parses the canonical string form produced by String,
// "ns=N;i=…" / "ns=N;s=…" / "ns=N;g=…" / "ns=N;b=…". The "ns=N;"
// prefix may be omitted, defaulting to namespace 0, matching the
// shorthand nodeset documents use for NS0 references ("i=40").
func ParseNodeID(s string) (NodeID, bool) {
	ns := uint16(0)
	if strings.HasPrefix(s, "ns=") {
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			return NodeID{}, false
		}
		n, err := strconv.ParseUint(s[3:semi], 10, 16)
		if err != nil {
			return NodeID{}, false
		}
		ns = uint16(n)
		s = s[semi+1:]
	}
	if len(s) < 2 || s[1] != '=' {
		return NodeID{}, false
	}
	body := s[2:]
	switch s[0] {
	case 'i':
		n, err := strconv.ParseUint(body, 10, 32)
		if err != nil {
			return NodeID{}, false
		}
		return NewNumericNodeID(ns, uint32(n)), true
	case 's':
		return NewStringNodeID(ns, body), true
	case 'g':
		raw, err := hex.DecodeString(body)
		if err != nil || len(raw) != 16 {
			return NodeID{}, false
		}
		var g Guid
		copy(g[:], raw)
		return NewGuidNodeID(ns, g), true
	case 'b':
		raw, err := hex.DecodeString(body)
		if err != nil {
			return NodeID{}, false
		}
		return NewByteStringNodeID(ns, raw), true
	default:
		return NodeID{}, false
	}
}

// ExpandedNodeID is a NodeID plus an optional namespace URI and server
// index (0 = this server).
type ExpandedNodeID struct {
	NodeID       NodeID
	NamespaceURI string
	ServerIndex  uint32
}

// NewExpandedNodeID wraps a local NodeID as an ExpandedNodeID denoting
// "this server".
func NewExpandedNodeID(id NodeID) ExpandedNodeID {
	return ExpandedNodeID{NodeID: id}
}

// IsLocal reports whether e denotes a node on this server: server index
// is 0 and namespace URI is empty, per Part 3.
func (e ExpandedNodeID) IsLocal() bool {
	return e.ServerIndex == 0 && e.NamespaceURI == ""
}

// ExpandedToNodeID resolves an ExpandedNodeID to a local NodeID,
// reporting false when the target lives on another server.
func ExpandedToNodeID(e ExpandedNodeID) (NodeID, bool) {
	if !e.IsLocal() {
		return NodeID{}, false
	}
	return e.NodeID, true
}

// QualifiedName is (namespace index, text).
type QualifiedName struct {
	NS   uint16
	Name string
}

// QualifiedNameIndet is the "indet" sentinel a Browse response emits for
// an optional field it chose not to populate (Part 4).
var QualifiedNameIndet = QualifiedName{}

// LocalizedTextEntry is one (locale, text) pair.
type LocalizedTextEntry struct {
	Locale string
	Text   string
}

// LocalizedText is (locale, text) plus optional additional entries.
type LocalizedText struct {
	LocalizedTextEntry
	Additional []LocalizedTextEntry
}

// LocalizedTextIndet is the "indet" sentinel for an unset LocalizedText.
var LocalizedTextIndet = LocalizedText{}
