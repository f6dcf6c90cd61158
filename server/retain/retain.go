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
Package retain persists the latest written value of Variable nodes in a
bbolt database, so an opcuad restart resumes with the values clients
wrote rather than the nodeset document's initial ones. Only scalar
values of the primitive built-in types are retained; array, matrix and
composite values are skipped (they come back from the nodeset document
as configured).
*/
package retain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/facebook/opcua/ua"
)

var valuesBucket = []byte("values")

// Store is a bbolt-backed retained-value store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening retained-value store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(valuesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing retained-value store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// retainedValue is the on-disk representation: the built-in type id, the
// value status, the source timestamp, and the scalar rendered as text.
type retainedValue struct {
	Type    uint8     `json:"type"`
	Status  uint32    `json:"status"`
	Source  time.Time `json:"source"`
	Scalar  string    `json:"scalar"`
}

// Retain persists the value written to nodeID. Non-scalar and composite
// values are skipped without error.
func (s *Store) Retain(nodeID ua.NodeID, value ua.DataValue) error {
	scalar, ok := formatScalar(value.Value)
	if !ok {
		return nil
	}
	rv := retainedValue{
		Type:   uint8(value.Value.TypeID),
		Status: value.Status.ToWire(),
		Source: value.SourceTimestamp,
		Scalar: scalar,
	}
	buf, err := json.Marshal(rv)
	if err != nil {
		return fmt.Errorf("encoding retained value: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(valuesBucket).Put([]byte(nodeID.String()), buf)
	})
}

// Load returns every retained value keyed by the node id's canonical
// string form.
func (s *Store) Load() (map[string]ua.DataValue, error) {
	out := make(map[string]ua.DataValue)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(valuesBucket).ForEach(func(k, v []byte) error {
			var rv retainedValue
			if err := json.Unmarshal(v, &rv); err != nil {
				return fmt.Errorf("decoding retained value for %s: %w", k, err)
			}
			variant, ok := parseScalar(ua.BuiltinType(rv.Type), rv.Scalar)
			if !ok {
				return nil
			}
			out[string(k)] = ua.DataValue{
				Value:           variant,
				Status:          ua.FromWire(rv.Status),
				SourceTimestamp: rv.Source,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// formatScalar renders a scalar primitive variant as text. Composite and
// non-scalar variants report ok=false.
func formatScalar(v ua.Variant) (string, bool) {
	if v.Shape != ua.ShapeScalar {
		return "", false
	}
	switch v.TypeID {
	case ua.TypeBoolean:
		return strconv.FormatBool(v.Value.(bool)), true
	case ua.TypeSByte:
		return strconv.FormatInt(int64(v.Value.(int8)), 10), true
	case ua.TypeByte:
		return strconv.FormatUint(uint64(v.Value.(uint8)), 10), true
	case ua.TypeInt16:
		return strconv.FormatInt(int64(v.Value.(int16)), 10), true
	case ua.TypeUInt16:
		return strconv.FormatUint(uint64(v.Value.(uint16)), 10), true
	case ua.TypeInt32:
		return strconv.FormatInt(int64(v.Value.(int32)), 10), true
	case ua.TypeUInt32:
		return strconv.FormatUint(uint64(v.Value.(uint32)), 10), true
	case ua.TypeInt64:
		return strconv.FormatInt(v.Value.(int64), 10), true
	case ua.TypeUInt64:
		return strconv.FormatUint(v.Value.(uint64), 10), true
	case ua.TypeFloat:
		return strconv.FormatFloat(float64(v.Value.(float32)), 'g', -1, 32), true
	case ua.TypeDouble:
		return strconv.FormatFloat(v.Value.(float64), 'g', -1, 64), true
	case ua.TypeString:
		return v.Value.(string), true
	default:
		return "", false
	}
}

// parseScalar is the inverse of formatScalar.
func parseScalar(t ua.BuiltinType, s string) (ua.Variant, bool) {
	switch t {
	case ua.TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: b}, true
	case ua.TypeSByte:
		n, err := strconv.ParseInt(s, 10, 8)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: int8(n)}, true
	case ua.TypeByte:
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: uint8(n)}, true
	case ua.TypeInt16:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: int16(n)}, true
	case ua.TypeUInt16:
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: uint16(n)}, true
	case ua.TypeInt32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: int32(n)}, true
	case ua.TypeUInt32:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: uint32(n)}, true
	case ua.TypeInt64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: n}, true
	case ua.TypeUInt64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: n}, true
	case ua.TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: float32(f)}, true
	case ua.TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ua.NullVariant, false
		}
		return ua.Variant{TypeID: t, Value: f}, true
	case ua.TypeString:
		return ua.Variant{TypeID: t, Value: s}, true
	default:
		return ua.NullVariant, false
	}
}
