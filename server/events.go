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

package server

import (
	"github.com/facebook/opcua/session"
	"github.com/facebook/opcua/ua"
)

// eventKind discriminates the events Core.Run dispatches on.
type eventKind uint8

const (
	// evRequest is a decoded service request arriving from the secure
	// channel layer.
	evRequest eventKind = iota
	// evPublishCycle is a subscription's periodic timer firing
	// (PublishCycleTimeout in Part 4).
	evPublishCycle
	// evDataChange is a successful Write's data-change notification
	// (Part 4), consumed by the subscription engine's fan-out.
	evDataChange
	// evDataChangeFailed reports a write whose data-change event was lost:
	// previous-value capture could not be completed.
	evDataChangeFailed
	// evChannel wraps a session/channel event (SC_CONNECT,
	// SC_DISCONNECT, ... per Part 4).
	evChannel
	// evAsyncPubResp carries an already-built Publish response or fault.
	// It is the only kind ever posted on the priority queue
	// (SE_TO_SE_SERVER_SEND_ASYNC_PUB_RESP_PRIO).
	evAsyncPubResp
)

// Event is one unit of work for the dispatch loop. Only the fields
// relevant to kind are populated.
type Event struct {
	kind eventKind

	channelID      uint32
	requestContext any
	request        any

	subscriptionID uint32

	oldValue ua.WriteValue
	newValue ua.WriteValue

	channelEvent session.Event

	response any
}

// Transport is the secure-channel-facing send contract: Core hands it a
// fully built response message; ownership moves to the transport layer,
// which releases it after serialisation. Implementations must not block
// the dispatch goroutine; a real transport puts a send-worker pool
// behind this interface.
type Transport interface {
	Send(channelID uint32, requestContext any, msg any)
}
