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

package session

// StatusClosed is the status reported with a SE_SND_REQUEST_FAILED
// upcall when a pending discovery request is abandoned because its
// channel never connected, per Part 4.
const StatusClosed = "Closed"

// ClientChannel is the client-side glue for one secure channel being
// established: discovery requests enqueued before the channel is up are
// held in the bounded queue and either drained on connect or failed on
// final connection failure. Events are delivered through emit, normally
// a closure posting onto the owning event loop's queue.
//
// This is the client-role half of the toolkit, consumed by applications
// that embed package session to talk to remote servers (the
// counterpart of config.ClientDocument); the opcuad server daemon never
// constructs one.
type ClientChannel struct {
	ID    uint32
	queue *DiscoveryQueue
	emit  func(Event)
}

// NewClientChannel builds the glue for channel id with a discovery
// queue bounded at queueDepth.
func NewClientChannel(id uint32, queueDepth int, emit func(Event)) *ClientChannel {
	return &ClientChannel{ID: id, queue: NewDiscoveryQueue(queueDepth), emit: emit}
}

// Open posts SC_CONNECT for the channel.
func (c *ClientChannel) Open() {
	c.emit(PrepareOpenSecureChannel(c.ID))
}

// EnqueueDiscovery holds req until the channel connects.
func (c *ClientChannel) EnqueueDiscovery(req any) error {
	return c.queue.Enqueue(req)
}

// Connected drains the queue in FIFO order, dispatching each held
// request via APP_TO_SE_SEND_DISCOVERY_REQUEST.
func (c *ClientChannel) Connected() {
	for _, req := range c.queue.Drain() {
		c.emit(Event{Kind: EventSendDiscoveryRequest, ChannelID: c.ID, DiscoveryRequest: req})
	}
}

// Failed abandons every held request with a SE_SND_REQUEST_FAILED
// upcall carrying status Closed. Ownership of each request message
// passes to the upcall receiver, which is its last holder.
func (c *ClientChannel) Failed() {
	for _, req := range c.queue.FailAll() {
		c.emit(Event{Kind: EventSendRequestFailed, ChannelID: c.ID, DiscoveryRequest: req, DiscoveryStatus: StatusClosed})
	}
	c.emit(FinalizeCloseSecureChannel(c.ID))
}
