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
Package ua implements the core OPC UA data model used by the service
dispatch layer: NodeId, Variant, NumericRange, DataValue and the
bidirectional status-code taxonomy.
*/
package ua

import "fmt"

// StatusCode is the internal status enum. Severity is carried in the
// value itself (see Severity) rather than as a separate field, mirroring
// the wire code's top two bits.
type StatusCode uint32

// Severity partitions a StatusCode into one of three buckets; the
// reserved top-bit pattern 0b11 reads as SeverityOk.
type Severity uint8

// Severities, ordered by the top two bits of the wire status code.
const (
	SeverityOk Severity = iota
	SeverityUncertain
	SeverityBad
)

// Generic, severity-only codes used when a wire code doesn't match any
// named reason.
const (
	Ok                StatusCode = 0x00000000
	UncertainGeneric  StatusCode = 0x40000000
	BadGeneric        StatusCode = 0x80000000
	UncertainInitialValue StatusCode = 0x40920000
)

// Named reasons. Values are the real OPC UA wire status codes so that
// ToWire/FromWire are identity-like for the common case and a
// reviewer can cross-reference them against the OPC UA status-code
// catalogue directly.
const (
	BadUnexpectedError              StatusCode = 0x80010000
	BadInternalError                StatusCode = 0x80020000
	BadOutOfMemory                  StatusCode = 0x80030000
	BadNotImplemented               StatusCode = 0x80040000
	BadTimeout                      StatusCode = 0x800A0000
	BadInvalidArgument              StatusCode = 0x80AB0000
	BadNotWritable                  StatusCode = 0x803D0000
	BadNotReadable                  StatusCode = 0x803A0000
	BadNodeIdInvalid                StatusCode = 0x80330000
	BadNodeIdUnknown                StatusCode = 0x80340000
	BadAttributeIdInvalid           StatusCode = 0x80350000
	BadIndexRangeInvalid            StatusCode = 0x80360000
	BadIndexRangeNoData             StatusCode = 0x80370000
	BadTypeMismatch                 StatusCode = 0x80380000
	BadUserAccessDenied             StatusCode = 0x801F0000
	BadSecurityChecksFailed         StatusCode = 0x80130000
	BadIdentityTokenInvalid         StatusCode = 0x80200000
	BadIdentityTokenRejected        StatusCode = 0x80210000
	BadSessionIdInvalid             StatusCode = 0x80220000
	BadSessionClosed                StatusCode = 0x80230000
	BadSessionNotActivated          StatusCode = 0x80240000
	BadSubscriptionIdInvalid        StatusCode = 0x80250000
	BadRequestHeaderInvalid         StatusCode = 0x802A0000
	BadTimestampsToReturnInvalid    StatusCode = 0x802B0000
	BadRequestCancelledByClient     StatusCode = 0x802C0000
	BadTooManyOperations            StatusCode = 0x80190000
	BadNothingToDo                  StatusCode = 0x80180000
	BadMaxAgeInvalid                StatusCode = 0x80270000
	BadSequenceNumberUnknown        StatusCode = 0x80D10000
	BadMessageNotAvailable          StatusCode = 0x803B0000
	BadNoSubscription               StatusCode = 0x80D40000
	BadRequestInterrupted           StatusCode = 0x80650000
	BadRequestTimeout               StatusCode = 0x80660000
	BadQueryTooComplex              StatusCode = 0x806B0000
	BadContinuationPointInvalid     StatusCode = 0x804C0000
	BadNoContinuationPoints         StatusCode = 0x804D0000
	BadTooManySessions              StatusCode = 0x80560000
)

// statusNames lists every code FromWire passes through unchanged, with
// its String name. Ok/UncertainGeneric/BadGeneric are listed too: they
// are also the catch-all FromWire produces for any wire code that isn't
// listed here.
var statusNames = map[StatusCode]string{
	Ok:                           "Ok",
	UncertainGeneric:             "UncertainGeneric",
	UncertainInitialValue:        "UncertainInitialValue",
	BadGeneric:                   "BadGeneric",
	BadUnexpectedError:           "BadUnexpectedError",
	BadInternalError:             "BadInternalError",
	BadOutOfMemory:               "BadOutOfMemory",
	BadNotImplemented:            "BadNotImplemented",
	BadTimeout:                   "BadTimeout",
	BadInvalidArgument:           "BadInvalidArgument",
	BadNotWritable:               "BadNotWritable",
	BadNotReadable:               "BadNotReadable",
	BadNodeIdInvalid:             "BadNodeIdInvalid",
	BadNodeIdUnknown:             "BadNodeIdUnknown",
	BadAttributeIdInvalid:        "BadAttributeIdInvalid",
	BadIndexRangeInvalid:         "BadIndexRangeInvalid",
	BadIndexRangeNoData:          "BadIndexRangeNoData",
	BadTypeMismatch:              "BadTypeMismatch",
	BadUserAccessDenied:          "BadUserAccessDenied",
	BadSecurityChecksFailed:      "BadSecurityChecksFailed",
	BadIdentityTokenInvalid:      "BadIdentityTokenInvalid",
	BadIdentityTokenRejected:     "BadIdentityTokenRejected",
	BadSessionIdInvalid:          "BadSessionIdInvalid",
	BadSessionClosed:             "BadSessionClosed",
	BadSessionNotActivated:       "BadSessionNotActivated",
	BadSubscriptionIdInvalid:     "BadSubscriptionIdInvalid",
	BadRequestHeaderInvalid:      "BadRequestHeaderInvalid",
	BadTimestampsToReturnInvalid: "BadTimestampsToReturnInvalid",
	BadRequestCancelledByClient:  "BadRequestCancelledByClient",
	BadTooManyOperations:         "BadTooManyOperations",
	BadNothingToDo:               "BadNothingToDo",
	BadMaxAgeInvalid:             "BadMaxAgeInvalid",
	BadSequenceNumberUnknown:     "BadSequenceNumberUnknown",
	BadMessageNotAvailable:       "BadMessageNotAvailable",
	BadNoSubscription:            "BadNoSubscription",
	BadRequestInterrupted:        "BadRequestInterrupted",
	BadRequestTimeout:            "BadRequestTimeout",
	BadQueryTooComplex:           "BadQueryTooComplex",
	BadContinuationPointInvalid:  "BadContinuationPointInvalid",
	BadNoContinuationPoints:      "BadNoContinuationPoints",
	BadTooManySessions:           "BadTooManySessions",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(0x%08X)", uint32(s))
}

// Error implements the error interface so handlers can treat a non-Ok
// StatusCode as a Go error at the service-handler boundary.
func (s StatusCode) Error() string {
	return s.String()
}

// IsGood reports whether s carries no Bad/Uncertain severity bit.
func (s StatusCode) IsGood() bool {
	return s.Severity() == SeverityOk
}

// IsBad reports whether s is in the Bad severity band.
func (s StatusCode) IsBad() bool {
	return s.Severity() == SeverityBad
}

// IsUncertain reports whether s is in the Uncertain severity band.
func (s StatusCode) IsUncertain() bool {
	return s.Severity() == SeverityUncertain
}

// Severity extracts the severity from the top two bits of the wire code,
// the same encoding used for any wire code this taxonomy doesn't name.
func (s StatusCode) Severity() Severity {
	switch uint32(s) >> 30 {
	case 0b10:
		return SeverityBad
	case 0b01:
		return SeverityUncertain
	default:
		return SeverityOk
	}
}

// ToWire returns the 32-bit wire status code for s. The mapping is
// total: s is already stored in its wire representation, so this is an
// identity function, but it exists as a named, documented boundary so
// callers never rely on StatusCode's underlying representation directly
// (Part 4 requires the mapping be exposed both ways explicitly).
func (s StatusCode) ToWire() uint32 {
	return uint32(s)
}

// FromWire decodes a 32-bit wire status code back into a StatusCode.
// Unrecognised wire codes collapse to BadGeneric/UncertainGeneric/Ok
// according to their top two severity bits, per Part 4. The mapping is
// lossless and total for every named reason: ToWire(FromWire(w)) == w
// whenever w is one of the wire codes tabulated above.
func FromWire(w uint32) StatusCode {
	s := StatusCode(w)
	if _, ok := statusNames[s]; ok {
		return s
	}
	switch s.Severity() {
	case SeverityBad:
		return BadGeneric
	case SeverityUncertain:
		return UncertainGeneric
	default:
		return Ok
	}
}
