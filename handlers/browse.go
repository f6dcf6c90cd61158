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

package handlers

import (
	"sync"

	"github.com/google/uuid"

	"github.com/facebook/opcua/addrspace"
	"github.com/facebook/opcua/decode"
	"github.com/facebook/opcua/respbuild"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// ContinuationStore holds the remaining, not-yet-delivered references
// for a Browse/BrowseNext continuation point. The continuation point
// itself is opaque to the service layer (Part 4); this store is the
// only place that knows what it decodes to. Keys are random UUIDs
// rather than sequential ids so a client cannot guess another session's
// continuation point.
type ContinuationStore struct {
	mu      sync.Mutex
	pending map[string][]uaservices.ReferenceDescription
}

// NewContinuationStore builds an empty store.
func NewContinuationStore() *ContinuationStore {
	return &ContinuationStore{pending: make(map[string][]uaservices.ReferenceDescription)}
}

func (s *ContinuationStore) put(refs []uaservices.ReferenceDescription) []byte {
	id := uuid.New()
	s.mu.Lock()
	s.pending[id.String()] = refs
	s.mu.Unlock()
	return id[:]
}

// Take removes and returns the references stashed under point, per
// BrowseNext's one-shot continuation semantics.
func (s *ContinuationStore) Take(point []byte) ([]uaservices.ReferenceDescription, bool) {
	id, err := uuid.FromBytes(point)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.pending[id.String()]
	if ok {
		delete(s.pending, id.String())
	}
	return refs, ok
}

// Release drops the references stashed under point without returning
// them, the path BrowseNext's ReleaseContinuationPoints flag takes.
func (s *ContinuationStore) Release(point []byte) {
	id, err := uuid.FromBytes(point)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.pending, id.String())
	s.mu.Unlock()
}

func directionMatches(dir uaservices.BrowseDirection, isInverse bool) bool {
	switch dir {
	case uaservices.BrowseDirectionForward:
		return !isInverse
	case uaservices.BrowseDirectionInverse:
		return isInverse
	case uaservices.BrowseDirectionBoth:
		return true
	default:
		return false
	}
}

// Browse executes the Browse service, per Part 4. Each BrowseValue item
// gets a reference row of exactly RequestedMaxReferencesPerNode
// capacity from the builder; matching references are appended
// incrementally until the row's capacity is exhausted, and whatever no
// longer fits goes to the continuation store. An allocation failure
// aborts the whole request through the builder's re-entrant cleanup and
// surfaces as BadOutOfMemory.
func Browse(space *addrspace.Space, store *ContinuationStore, req *uaservices.BrowseRequest, lim limits.Limits) (*uaservices.BrowseResponse, ua.StatusCode) {
	d, status := decode.NewBrowseDecoder(req, lim)
	if status != ua.Ok {
		return nil, status
	}

	b := respbuild.NewBrowseBuilder(d.Len())
	maxRefs := int(d.RequestedMaxReferencesPerNode())
	for i := 1; i <= d.Len(); i++ {
		node, ok := space.Read(d.NodeID(i))
		if !ok {
			b.SetItem(i, uaservices.BrowseResult{Status: ua.BadNodeIdUnknown})
			continue
		}
		if !b.AllocateReferences(i, maxRefs) {
			b.Abort()
			return nil, ua.BadOutOfMemory
		}

		filterType, hasFilter := d.ReferenceTypeFilter(i)
		includeSubtypes := d.IncludeSubtypes(i)
		direction := d.Direction(i)

		var overflow []uaservices.ReferenceDescription
		_, refs := node.IterateReferences()
		for _, ref := range refs {
			if !directionMatches(direction, ref.IsInverse) {
				continue
			}
			if hasFilter {
				if includeSubtypes {
					if !ref.ReferenceTypeID.Equal(filterType) && !space.IsTransitiveSubtypeOf(ref.ReferenceTypeID, filterType) {
						continue
					}
				} else if !ref.ReferenceTypeID.Equal(filterType) {
					continue
				}
			}
			desc := describeReference(space, ref)
			if !b.AppendReference(i, desc) {
				overflow = append(overflow, desc)
			}
		}

		if len(overflow) > 0 {
			point := store.put(overflow)
			b.SetItem(i, uaservices.BrowseResult{Status: ua.Ok, ContinuationPoint: point})
			continue
		}
		b.SetItem(i, uaservices.BrowseResult{Status: ua.Ok})
	}

	return &uaservices.BrowseResponse{
		Header:  uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		Results: b.Finalize(),
	}, ua.Ok
}

// describeReference builds a ReferenceDescription row for ref. Optional
// fields (BrowseName, DisplayName, NodeClass, TypeDefinition) are only
// populated when the target resolves locally, per Part 4; a remote
// target gets the mandatory fields plus the indet sentinels.
func describeReference(space *addrspace.Space, ref addrspace.Reference) uaservices.ReferenceDescription {
	desc := uaservices.ReferenceDescription{
		ReferenceTypeID: ref.ReferenceTypeID,
		IsForward:       !ref.IsInverse,
		TargetID:        ref.Target,
		BrowseName:      ua.QualifiedNameIndet,
		DisplayName:     ua.LocalizedTextIndet,
		NodeClass:       ua.NodeClassUnspecified,
	}
	if !ref.Target.IsLocal() {
		return desc
	}
	targetID, ok := ua.ExpandedToNodeID(ref.Target)
	if !ok {
		return desc
	}
	targetNode, ok := space.Read(targetID)
	if !ok {
		return desc
	}
	desc.BrowseName = targetNode.BrowseName
	desc.DisplayName = targetNode.DisplayName
	desc.NodeClass = targetNode.Class
	if typeDef, ok := space.TypeDefinitionOf(targetNode); ok {
		desc.TypeDefinition = typeDef
	}
	return desc
}
