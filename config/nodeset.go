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

package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/facebook/opcua/addrspace"
	"github.com/facebook/opcua/ua"
)

// maxNodeSetVersion is the newest UANodeSet schema version this loader
// understands. Documents declaring a newer Version are rejected rather
// than silently half-parsed.
const maxNodeSetVersion = "1.04"

// NodeSetDocument is the parsed UANodeSet address-space document of
// Part 6.
type NodeSetDocument struct {
	XMLName      xml.Name    `xml:"UANodeSet"`
	Version      string      `xml:"Version,attr"`
	LastModified string      `xml:"LastModified,attr"`
	Aliases      []Alias     `xml:"Aliases>Alias"`

	Objects        []UANode     `xml:"UAObject"`
	Variables      []UAVariable `xml:"UAVariable"`
	Methods        []UAMethod   `xml:"UAMethod"`
	ObjectTypes    []UANode     `xml:"UAObjectType"`
	VariableTypes  []UAVariable `xml:"UAVariableType"`
	ReferenceTypes []UANode     `xml:"UAReferenceType"`
	DataTypes      []UANode     `xml:"UADataType"`
	Views          []UANode     `xml:"UAView"`
}

// Alias is one `<Alias Alias="…">target</Alias>` shortcut for reference
// and data type node ids.
type Alias struct {
	Alias  string `xml:"Alias,attr"`
	Target string `xml:",chardata"`
}

// UANode holds the attributes and children every nodeset node carries.
type UANode struct {
	NodeID      string        `xml:"NodeId,attr"`
	BrowseName  string        `xml:"BrowseName,attr"`
	DisplayName string        `xml:"DisplayName"`
	Description string        `xml:"Description"`
	References  []UAReference `xml:"References>Reference"`
}

// UAVariable adds the Variable/VariableType-only attributes and Value.
type UAVariable struct {
	UANode
	DataType    string    `xml:"DataType,attr"`
	ValueRank   *int32    `xml:"ValueRank,attr"`
	AccessLevel *uint8    `xml:"AccessLevel,attr"`
	Value       *ValueXML `xml:"Value"`
}

// UAMethod adds the Method-only Executable attribute.
type UAMethod struct {
	UANode
	Executable *bool `xml:"Executable,attr"`
}

// UAReference is one reference edge in a node's References list.
type UAReference struct {
	ReferenceType string `xml:"ReferenceType,attr"`
	IsForward     *bool  `xml:"IsForward,attr"`
	Target        string `xml:",chardata"`
}

// ValueXML captures the single typed child inside a `<Value>` element.
type ValueXML struct {
	Inner valueElement `xml:",any"`
}

// valueElement is the recursive representation of a typed value tag:
// primitives carry text, composites carry children, ListOf… carries one
// child per array element.
type valueElement struct {
	XMLName  xml.Name
	Content  string         `xml:",chardata"`
	Children []valueElement `xml:",any"`
}

// LoadNodeSetDocument parses and version-checks the nodeset at path.
func LoadNodeSetDocument(path string) (*NodeSetDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading nodeset: %w", err)
	}
	var doc NodeSetDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing nodeset: %w", err)
	}
	if doc.Version != "" {
		have, err := goversion.NewVersion(doc.Version)
		if err != nil {
			return nil, fmt.Errorf("nodeset %s: bad Version attribute %q: %w", path, doc.Version, err)
		}
		max := goversion.Must(goversion.NewVersion(maxNodeSetVersion))
		if have.GreaterThan(max) {
			return nil, fmt.Errorf("nodeset %s: schema version %s is newer than supported %s", path, doc.Version, maxNodeSetVersion)
		}
	}
	return &doc, nil
}

// aliasTable resolves `<Alias>` shortcuts plus raw node id strings.
type aliasTable map[string]ua.NodeID

func (d *NodeSetDocument) aliases() (aliasTable, error) {
	t := make(aliasTable, len(d.Aliases))
	for _, a := range d.Aliases {
		id, ok := ua.ParseNodeID(strings.TrimSpace(a.Target))
		if !ok {
			return nil, fmt.Errorf("alias %q: bad target node id %q", a.Alias, a.Target)
		}
		t[a.Alias] = id
	}
	return t, nil
}

// resolve maps an alias or node id string to a NodeID.
func (t aliasTable) resolve(s string) (ua.NodeID, bool) {
	s = strings.TrimSpace(s)
	if id, ok := t[s]; ok {
		return id, true
	}
	return ua.ParseNodeID(s)
}

// wellKnownDataTypes lets a nodeset write DataType="Double" instead of
// the NS0 numeric id, the same shorthand published nodesets use.
var wellKnownDataTypes = map[string]ua.NodeID{
	"Boolean":       ua.NewNumericNodeID(0, 1),
	"SByte":         ua.NewNumericNodeID(0, 2),
	"Byte":          ua.NewNumericNodeID(0, 3),
	"Int16":         ua.NewNumericNodeID(0, 4),
	"UInt16":        ua.NewNumericNodeID(0, 5),
	"Int32":         ua.NewNumericNodeID(0, 6),
	"UInt32":        ua.NewNumericNodeID(0, 7),
	"Int64":         ua.NewNumericNodeID(0, 8),
	"UInt64":        ua.NewNumericNodeID(0, 9),
	"Float":         ua.NewNumericNodeID(0, 10),
	"Double":        ua.NewNumericNodeID(0, 11),
	"String":        ua.NewNumericNodeID(0, 12),
	"DateTime":      ua.NewNumericNodeID(0, 13),
	"Guid":          ua.NewNumericNodeID(0, 14),
	"ByteString":    ua.NewNumericNodeID(0, 15),
	"LocalizedText": ua.NewNumericNodeID(0, 21),
}

// BuildNodes converts the document into address-space nodes. XML types
// stop here: the caller hands the result to addrspace.Space.Configure.
func (d *NodeSetDocument) BuildNodes() ([]*addrspace.Node, error) {
	aliases, err := d.aliases()
	if err != nil {
		return nil, err
	}

	var nodes []*addrspace.Node
	for i := range d.Objects {
		n, err := buildPlainNode(&d.Objects[i], ua.NodeClassObject, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := range d.Variables {
		n, err := buildVariableNode(&d.Variables[i], ua.NodeClassVariable, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := range d.Methods {
		m := &d.Methods[i]
		base, err := buildPlainNode(&m.UANode, ua.NodeClassMethod, aliases)
		if err != nil {
			return nil, err
		}
		base.Executable = m.Executable == nil || *m.Executable
		nodes = append(nodes, base)
	}
	for i := range d.ObjectTypes {
		n, err := buildPlainNode(&d.ObjectTypes[i], ua.NodeClassObjectType, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := range d.VariableTypes {
		n, err := buildVariableNode(&d.VariableTypes[i], ua.NodeClassVariableType, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := range d.ReferenceTypes {
		n, err := buildPlainNode(&d.ReferenceTypes[i], ua.NodeClassReferenceType, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := range d.DataTypes {
		n, err := buildPlainNode(&d.DataTypes[i], ua.NodeClassDataType, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := range d.Views {
		n, err := buildPlainNode(&d.Views[i], ua.NodeClassView, aliases)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseBrowseName(s string) (ua.QualifiedName, error) {
	if colon := strings.IndexByte(s, ':'); colon > 0 {
		ns, err := strconv.ParseUint(s[:colon], 10, 16)
		if err == nil {
			return ua.QualifiedName{NS: uint16(ns), Name: s[colon+1:]}, nil
		}
	}
	return ua.QualifiedName{Name: s}, nil
}

func buildCommon(raw *UANode, aliases aliasTable) (ua.NodeID, ua.QualifiedName, ua.LocalizedText, []addrspace.Reference, error) {
	id, ok := ua.ParseNodeID(raw.NodeID)
	if !ok {
		return ua.NodeID{}, ua.QualifiedName{}, ua.LocalizedText{}, nil, fmt.Errorf("bad NodeId %q", raw.NodeID)
	}
	browse, err := parseBrowseName(raw.BrowseName)
	if err != nil {
		return ua.NodeID{}, ua.QualifiedName{}, ua.LocalizedText{}, nil, err
	}
	display := ua.LocalizedText{LocalizedTextEntry: ua.LocalizedTextEntry{Text: raw.DisplayName}}
	if display.Text == "" {
		display.Text = browse.Name
	}

	var refs []addrspace.Reference
	for _, r := range raw.References {
		refType, ok := aliases.resolve(r.ReferenceType)
		if !ok {
			return ua.NodeID{}, ua.QualifiedName{}, ua.LocalizedText{}, nil, fmt.Errorf("node %s: unknown reference type %q", raw.NodeID, r.ReferenceType)
		}
		target, ok := ua.ParseNodeID(strings.TrimSpace(r.Target))
		if !ok {
			return ua.NodeID{}, ua.QualifiedName{}, ua.LocalizedText{}, nil, fmt.Errorf("node %s: bad reference target %q", raw.NodeID, r.Target)
		}
		refs = append(refs, addrspace.Reference{
			ReferenceTypeID: refType,
			IsInverse:       r.IsForward != nil && !*r.IsForward,
			Target:          ua.NewExpandedNodeID(target),
		})
	}
	return id, browse, display, refs, nil
}

func buildPlainNode(raw *UANode, class ua.NodeClass, aliases aliasTable) (*addrspace.Node, error) {
	id, browse, display, refs, err := buildCommon(raw, aliases)
	if err != nil {
		return nil, err
	}
	n := &addrspace.Node{NodeID: id, Class: class, BrowseName: browse, DisplayName: display}
	if raw.Description != "" {
		n.Description = ua.LocalizedText{LocalizedTextEntry: ua.LocalizedTextEntry{Text: raw.Description}}
		n.HasDescription = true
	}
	for _, r := range refs {
		n.AddReference(r)
	}
	return n, nil
}

func buildVariableNode(raw *UAVariable, class ua.NodeClass, aliases aliasTable) (*addrspace.Node, error) {
	id, browse, display, refs, err := buildCommon(&raw.UANode, aliases)
	if err != nil {
		return nil, err
	}

	dataType := ua.NodeID{}
	if raw.DataType != "" {
		if wk, ok := wellKnownDataTypes[raw.DataType]; ok {
			dataType = wk
		} else if resolved, ok := aliases.resolve(raw.DataType); ok {
			dataType = resolved
		} else {
			return nil, fmt.Errorf("node %s: unknown data type %q", raw.NodeID, raw.DataType)
		}
	}
	valueRank := int32(-1)
	if raw.ValueRank != nil {
		valueRank = *raw.ValueRank
	}
	access := ua.AccessLevelCurrentRead
	if raw.AccessLevel != nil {
		access = ua.AccessLevel(*raw.AccessLevel)
	}

	n := addrspace.NewVariableNode(id, browse, display, dataType, valueRank, access)
	n.Class = class
	if raw.Description != "" {
		n.Description = ua.LocalizedText{LocalizedTextEntry: ua.LocalizedTextEntry{Text: raw.Description}}
		n.HasDescription = true
	}
	if raw.Value != nil {
		v, err := parseValueElement(raw.Value.Inner)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", raw.NodeID, err)
		}
		n.Value = v
	}
	for _, r := range refs {
		n.AddReference(r)
	}
	return n, nil
}

// parseValueElement converts one typed value tag into a Variant.
func parseValueElement(el valueElement) (ua.Variant, error) {
	name := el.XMLName.Local
	if rest, ok := strings.CutPrefix(name, "ListOf"); ok {
		return parseListValue(rest, el.Children)
	}
	return parseScalarValue(name, el)
}

func parseScalarValue(name string, el valueElement) (ua.Variant, error) {
	text := strings.TrimSpace(el.Content)
	switch name {
	case "Boolean":
		b, err := strconv.ParseBool(text)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Boolean %q", text)
		}
		return ua.Variant{TypeID: ua.TypeBoolean, Value: b}, nil
	case "SByte":
		n, err := strconv.ParseInt(text, 10, 8)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad SByte %q", text)
		}
		return ua.Variant{TypeID: ua.TypeSByte, Value: int8(n)}, nil
	case "Byte":
		n, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Byte %q", text)
		}
		return ua.Variant{TypeID: ua.TypeByte, Value: uint8(n)}, nil
	case "Int16":
		n, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Int16 %q", text)
		}
		return ua.Variant{TypeID: ua.TypeInt16, Value: int16(n)}, nil
	case "UInt16":
		n, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad UInt16 %q", text)
		}
		return ua.Variant{TypeID: ua.TypeUInt16, Value: uint16(n)}, nil
	case "Int32":
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Int32 %q", text)
		}
		return ua.Variant{TypeID: ua.TypeInt32, Value: int32(n)}, nil
	case "UInt32":
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad UInt32 %q", text)
		}
		return ua.Variant{TypeID: ua.TypeUInt32, Value: uint32(n)}, nil
	case "Int64":
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Int64 %q", text)
		}
		return ua.Variant{TypeID: ua.TypeInt64, Value: n}, nil
	case "UInt64":
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad UInt64 %q", text)
		}
		return ua.Variant{TypeID: ua.TypeUInt64, Value: n}, nil
	case "Float":
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Float %q", text)
		}
		return ua.Variant{TypeID: ua.TypeFloat, Value: float32(f)}, nil
	case "Double":
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return ua.NullVariant, fmt.Errorf("bad Double %q", text)
		}
		return ua.Variant{TypeID: ua.TypeDouble, Value: f}, nil
	case "String":
		return ua.Variant{TypeID: ua.TypeString, Value: el.Content}, nil
	case "NodeId":
		// composite: <NodeId><Identifier>ns=2;s=x</Identifier></NodeId>
		inner := text
		for _, c := range el.Children {
			if c.XMLName.Local == "Identifier" {
				inner = strings.TrimSpace(c.Content)
			}
		}
		id, ok := ua.ParseNodeID(inner)
		if !ok {
			return ua.NullVariant, fmt.Errorf("bad NodeId value %q", inner)
		}
		return ua.Variant{TypeID: ua.TypeNodeID, Value: id}, nil
	case "LocalizedText":
		var lt ua.LocalizedText
		for _, c := range el.Children {
			switch c.XMLName.Local {
			case "Locale":
				lt.Locale = strings.TrimSpace(c.Content)
			case "Text":
				lt.Text = c.Content
			}
		}
		return ua.Variant{TypeID: ua.TypeLocalizedText, Value: lt}, nil
	case "Guid":
		inner := text
		for _, c := range el.Children {
			if c.XMLName.Local == "String" {
				inner = strings.TrimSpace(c.Content)
			}
		}
		g, err := parseGuid(inner)
		if err != nil {
			return ua.NullVariant, err
		}
		return ua.Variant{TypeID: ua.TypeGuid, Value: g}, nil
	case "ExtensionObject":
		// Opaque to the core; the body is carried through unparsed.
		return ua.Variant{TypeID: ua.TypeExtensionObject, Value: &ua.ExtensionObject{Body: []byte(el.Content)}}, nil
	default:
		return ua.NullVariant, fmt.Errorf("unsupported value tag <%s>", name)
	}
}

func parseListValue(elemName string, children []valueElement) (ua.Variant, error) {
	elems := make([]ua.Variant, 0, len(children))
	for _, c := range children {
		if c.XMLName.Local != elemName {
			return ua.NullVariant, fmt.Errorf("ListOf%s contains <%s>", elemName, c.XMLName.Local)
		}
		v, err := parseScalarValue(elemName, c)
		if err != nil {
			return ua.NullVariant, err
		}
		elems = append(elems, v)
	}
	return packArray(elemName, elems)
}

// packArray folds parsed scalar variants into one array-shaped variant
// holding the Go-native slice type.
func packArray(elemName string, elems []ua.Variant) (ua.Variant, error) {
	switch elemName {
	case "Boolean":
		return typedArray[bool](ua.TypeBoolean, elems), nil
	case "SByte":
		return typedArray[int8](ua.TypeSByte, elems), nil
	case "Byte":
		return typedArray[uint8](ua.TypeByte, elems), nil
	case "Int16":
		return typedArray[int16](ua.TypeInt16, elems), nil
	case "UInt16":
		return typedArray[uint16](ua.TypeUInt16, elems), nil
	case "Int32":
		return typedArray[int32](ua.TypeInt32, elems), nil
	case "UInt32":
		return typedArray[uint32](ua.TypeUInt32, elems), nil
	case "Int64":
		return typedArray[int64](ua.TypeInt64, elems), nil
	case "UInt64":
		return typedArray[uint64](ua.TypeUInt64, elems), nil
	case "Float":
		return typedArray[float32](ua.TypeFloat, elems), nil
	case "Double":
		return typedArray[float64](ua.TypeDouble, elems), nil
	case "String":
		return typedArray[string](ua.TypeString, elems), nil
	case "LocalizedText":
		return typedArray[ua.LocalizedText](ua.TypeLocalizedText, elems), nil
	case "NodeId":
		return typedArray[ua.NodeID](ua.TypeNodeID, elems), nil
	default:
		return ua.NullVariant, fmt.Errorf("unsupported array element <%s>", elemName)
	}
}

func typedArray[T any](t ua.BuiltinType, elems []ua.Variant) ua.Variant {
	out := make([]T, len(elems))
	for i, e := range elems {
		out[i] = e.Value.(T)
	}
	return ua.Variant{TypeID: t, Shape: ua.ShapeArray, Value: out}
}

// parseGuid accepts the canonical 8-4-4-4-12 text form.
func parseGuid(s string) (ua.Guid, error) {
	var g ua.Guid
	clean := strings.ReplaceAll(s, "-", "")
	if len(clean) != 32 {
		return g, fmt.Errorf("bad Guid %q", s)
	}
	for i := 0; i < 16; i++ {
		n, err := strconv.ParseUint(clean[2*i:2*i+2], 16, 8)
		if err != nil {
			return g, fmt.Errorf("bad Guid %q", s)
		}
		g[i] = byte(n)
	}
	return g, nil
}
