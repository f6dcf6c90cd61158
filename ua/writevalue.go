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

// WriteValue is one Write request item and, reused, the companion
// structure the Write handler emits into a data-change event carrying
// the previous value.
type WriteValue struct {
	NodeID      NodeID
	AttributeID AttributeID
	IndexRange  string
	Value       DataValue
}

// CopyWriteValue copies src's content into *dst, deep-copying the
// variant payload so the copy owns its value independently of src.
func CopyWriteValue(dst *WriteValue, src WriteValue) {
	dst.NodeID = src.NodeID
	dst.AttributeID = src.AttributeID
	dst.IndexRange = src.IndexRange
	dst.Value = DataValue{
		Value:             src.Value.Value.DeepCopy(),
		Status:            src.Value.Status,
		SourceTimestamp:   src.Value.SourceTimestamp,
		SourcePicoseconds: src.Value.SourcePicoseconds,
		ServerTimestamp:   src.Value.ServerTimestamp,
		ServerPicoseconds: src.Value.ServerPicoseconds,
	}
}
