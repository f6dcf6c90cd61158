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
Package server ties the core components together: a single Core value
owns the address space, the session table, the subscription engine, the
event queues and the stats sink, and Run is the single-threaded
cooperative dispatch loop. Nothing in this repository keeps
process-wide state outside a Core.
*/
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/facebook/opcua/addrspace"
	"github.com/facebook/opcua/handlers"
	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/server/stats"
	"github.com/facebook/opcua/session"
	"github.com/facebook/opcua/subscription"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// Limits is the restart-only tunable bag shared by decoders, builders,
// handlers and this package.
type Limits = limits.Limits

// ValueRetainer persists the latest written value of a Variable node so
// it can be reloaded into the address space on restart.
type ValueRetainer interface {
	Retain(nodeID ua.NodeID, value ua.DataValue) error
}

// pubContext remembers where a queued Publish request came from so its
// response can be routed back once a publish cycle resolves it.
type pubContext struct {
	channelID      uint32
	requestContext any
	header         uaservices.RequestHeader
	subscriptionID uint32
	ackResults     []ua.StatusCode
}

// Core is the single process-wide server value. All
// mutable service state hangs off it; handlers receive the components
// they use from it, and it is dropped on shutdown.
type Core struct {
	lim Limits

	Space         *addrspace.Space
	Sessions      *session.Table
	Channels      *session.ChannelTable
	Subs          *subscription.Engine
	Continuations *handlers.ContinuationStore
	Endpoint      *EndpointConfig
	Methods       *MethodRegistry

	auth      Authenticator
	access    handlers.AccessChecker
	retainer  ValueRetainer
	st        stats.Stats
	transport Transport
	now       func() time.Time

	events chan Event
	prio   chan Event

	// pendingPublish is only touched from the dispatch goroutine.
	pendingPublish map[uint32]pubContext
}

// NewCore builds a Core with every component wired but not yet running.
func NewCore(lim Limits, endpoint *EndpointConfig, transport Transport, st stats.Stats) *Core {
	c := &Core{
		lim:            lim,
		Space:          addrspace.NewSpace(),
		Sessions:       session.NewTable(lim),
		Channels:       session.NewChannelTable(),
		Subs:           subscription.NewEngine(lim),
		Continuations:  handlers.NewContinuationStore(),
		Endpoint:       endpoint,
		Methods:        NewMethodRegistry(),
		auth:           anonymousAuth{},
		access:         allowAllAccess{},
		st:             st,
		transport:      transport,
		now:            time.Now,
		events:         make(chan Event, 1024),
		prio:           make(chan Event, 256),
		pendingPublish: make(map[uint32]pubContext),
	}
	// The timer callback runs on the timer's goroutine; it only posts an
	// event; handlers never block.
	c.Subs.OnPublishCycle = func(id uint32) {
		c.post(Event{kind: evPublishCycle, subscriptionID: id})
	}
	return c
}

// SetAuthenticator replaces the default accept-anonymous authenticator.
func (c *Core) SetAuthenticator(a Authenticator) { c.auth = a }

// SetAccessChecker replaces the default allow-all write authorizer.
func (c *Core) SetAccessChecker(a handlers.AccessChecker) { c.access = a }

// SetRetainer installs a persistent value store for written values.
func (c *Core) SetRetainer(r ValueRetainer) { c.retainer = r }

// SetClock pins the dispatch loop's clock, for tests.
func (c *Core) SetClock(now func() time.Time) { c.now = now }

// PostRequest enqueues a decoded service request arriving on channelID.
// Called by the secure-channel layer's goroutine; the event queue is the
// multi-producer single-consumer boundary of the service core.
func (c *Core) PostRequest(channelID uint32, requestContext any, request any) {
	c.post(Event{kind: evRequest, channelID: channelID, requestContext: requestContext, request: request})
}

// PostChannelEvent enqueues a secure-channel lifecycle event.
func (c *Core) PostChannelEvent(ev session.Event) {
	c.post(Event{kind: evChannel, channelEvent: ev})
}

func (c *Core) post(e Event) {
	c.events <- e
}

func (c *Core) postPriority(e Event) {
	c.prio <- e
}

// Run consumes events until ctx is cancelled. Priority events
// (SE_TO_SE_SERVER_SEND_ASYNC_PUB_RESP_PRIO) are always drained before
// any normal-priority event already queued.
func (c *Core) Run(ctx context.Context) {
	log.Infof("service core running, endpoint %s", c.Endpoint.URL)
	for {
		select {
		case e := <-c.prio:
			c.handle(e)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			log.Info("service core stopping")
			return
		case e := <-c.prio:
			c.handle(e)
		case e := <-c.events:
			c.handle(e)
		}
	}
}

func (c *Core) handle(e Event) {
	switch e.kind {
	case evRequest:
		c.handleRequest(e)
	case evPublishCycle:
		c.handlePublishCycle(e.subscriptionID)
	case evDataChange:
		c.Subs.DataChanged(e.oldValue, e.newValue)
		c.st.IncDataChange()
		if c.retainer != nil {
			if err := c.retainer.Retain(e.newValue.NodeID, e.newValue.Value); err != nil {
				log.Errorf("failed to retain value for %s: %v", e.newValue.NodeID, err)
			}
		}
	case evDataChangeFailed:
		log.Errorf("dropping data-change event for %s: previous value lost", e.oldValue.NodeID)
	case evChannel:
		c.handleChannelEvent(e.channelEvent)
	case evAsyncPubResp:
		c.send(e.channelID, e.requestContext, e.response)
	default:
		panic(fmt.Sprintf("server: unknown event kind %d", e.kind))
	}
}

// DataChanged implements handlers.DataChangeSink by posting the event
// back onto the queue, so the fan-out runs as its own dispatch tick.
func (c *Core) DataChanged(old, newVal ua.WriteValue) {
	c.post(Event{kind: evDataChange, oldValue: old, newValue: newVal})
}

// DataChangedFailed implements handlers.DataChangeSink.
func (c *Core) DataChangedFailed(old ua.WriteValue) {
	c.post(Event{kind: evDataChangeFailed, oldValue: old})
}

func (c *Core) handleChannelEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventSCConnect:
		log.Debugf("secure channel %d connected", ev.ChannelID)
	case session.EventSCDisconnect:
		c.Sessions.Orphan(ev.ChannelID)
		c.Channels.Remove(ev.ChannelID)
		log.Infof("secure channel %d disconnected", ev.ChannelID)
	case session.EventSCServiceSendMsg:
		c.transport.Send(ev.ChannelID, ev.RequestContext, ev.Buffer)
	case session.EventAllDisconnected:
		log.Warning("all secure channels disconnected")
	case session.EventSendDiscoveryRequest, session.EventSendRequestFailed:
		// Client-side events; a server core only logs them.
		log.Debugf("ignoring client-side event kind %d", ev.Kind)
	default:
		panic(fmt.Sprintf("server: unknown channel event kind %d", ev.Kind))
	}
}

// fault builds the ServiceFault response for a failed request: header
// preserved, body collapsed to the dedicated fault variant.
func (c *Core) fault(header uaservices.RequestHeader, status ua.StatusCode) *uaservices.ServiceFault {
	return &uaservices.ServiceFault{Header: uaservices.NewResponseHeader(header, status, c.now())}
}

// send hands a finished response to the transport and counts it.
func (c *Core) send(channelID uint32, requestContext any, msg any) {
	t := uaservices.TypeIDOf(msg)
	c.st.IncResponse(t)
	if t == uaservices.TypeServiceFault {
		c.st.IncServiceFault()
	}
	c.transport.Send(channelID, requestContext, msg)
}

func (c *Core) nonce() []byte {
	id := uuid.New()
	return id[:]
}

func (c *Core) handleRequest(e Event) {
	c.st.IncRequest(uaservices.TypeIDOf(e.request))

	switch req := e.request.(type) {
	case *uaservices.GetEndpointsRequest:
		resp, status := handlers.GetEndpoints(c.Endpoint, req, false)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.CreateSessionRequest:
		if uint32(c.Sessions.Len()) >= c.lim.MaxSessions {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, ua.BadTooManySessions))
			return
		}
		resp := handlers.CreateSession(c.Sessions, req, e.channelID)
		resp.ServerNonce = c.nonce()
		epReq := &uaservices.GetEndpointsRequest{Header: req.Header}
		if epResp, status := handlers.GetEndpoints(c.Endpoint, epReq, true); status == ua.Ok {
			resp.ServerEndpoints = epResp.Endpoints
		}
		c.st.IncSession()
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.ActivateSessionRequest:
		user, status := c.auth.Authenticate(req.UserIdentityToken)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.ActivateSession(c.Sessions, req, e.channelID, c.nonce())
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		if sess, st := c.Sessions.Lookup(req.Header.AuthenticationToken); st == ua.Ok {
			sess.UserIdentity = user
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.CloseSessionRequest:
		sess, status := c.Sessions.Lookup(req.Header.AuthenticationToken)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		subID, hadSub := sess.Subscription()
		resp, sessionID, deleteSubs, status := handlers.CloseSession(c.Sessions, req)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		if deleteSubs {
			c.Subs.DeleteAllForSession(sessionID)
			if hadSub {
				c.st.DecSubscription()
			}
		}
		if hadSub {
			c.failPendingPublishes(subID, ua.BadSessionClosed)
		}
		c.st.DecSession()
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.ReadRequest:
		if _, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken); status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.Read(c.Space, req, c.lim, c.now)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.WriteRequest:
		sess, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.Write(c.Space, req, c.lim, sess.UserIdentity, c.access, c, c.now)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.BrowseRequest:
		if _, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken); status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.Browse(c.Space, c.Continuations, req, c.lim)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.BrowseNextRequest:
		if _, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken); status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.BrowseNext(c.Continuations, req, c.lim)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.CallRequest:
		sess, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.Call(c.Methods, req, c.lim, sess.UserIdentity)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.CreateSubscriptionRequest:
		sess, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp := handlers.CreateSubscription(c.Subs, sess.ID, req)
		sess.AttachSubscription(resp.SubscriptionID)
		c.st.IncSubscription()
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.ModifySubscriptionRequest:
		if _, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken); status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.ModifySubscription(c.Subs, req)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.SetPublishingModeRequest:
		if _, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken); status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.SetPublishingMode(c.Subs, req, c.lim)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.CreateMonitoredItemsRequest:
		if _, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken); status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		resp, status := handlers.CreateMonitoredItems(c.Space, c.Subs, req, c.lim)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		c.send(e.channelID, e.requestContext, resp)

	case *uaservices.PublishRequest:
		sess, status := c.Sessions.RequireActivated(req.Header.AuthenticationToken)
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		subID, ok := sess.Subscription()
		if !ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, ua.BadNoSubscription))
			return
		}
		ackResults, status := handlers.Publish(c.Subs, req, subID, c.now())
		if status != ua.Ok {
			c.send(e.channelID, e.requestContext, c.fault(req.Header, status))
			return
		}
		// Every Publish waits in the engine's FIFO; only the publish
		// cycle pops it, and its PublishOutcome.RequestHandle keys the
		// response back to the entry recorded here.
		c.pendingPublish[req.Header.RequestHandle] = pubContext{
			channelID:      e.channelID,
			requestContext: e.requestContext,
			header:         req.Header,
			subscriptionID: subID,
			ackResults:     ackResults,
		}
		c.st.SetPublishQueue(int64(len(c.pendingPublish)))

	default:
		// An unknown encodeable type reaching the dispatcher is a fatal
		// programming error; TypeIDOf already panicked above for
		// non-messages, so this is a registered type with no handler.
		panic(fmt.Sprintf("server: no handler for request type %T", e.request))
	}
}

// handlePublishCycle runs one subscription's publish tick and routes
// every resulting response through the priority queue
// (SE_TO_SE_SERVER_SEND_ASYNC_PUB_RESP_PRIO).
func (c *Core) handlePublishCycle(subID uint32) {
	outcomes := c.Subs.PublishCycle(subID, c.now())
	for _, o := range outcomes {
		if o.SubscriptionDeleted {
			c.Sessions.DetachSubscription(subID)
			c.st.DecSubscription()
			log.Infof("subscription %d deleted: lifetime expired", subID)
			continue
		}
		ctx, ok := c.pendingPublish[o.RequestHandle]
		if !ok {
			// Already answered by the CloseSession cascade; the engine's
			// copy of the request was popped after the fact.
			continue
		}
		delete(c.pendingPublish, o.RequestHandle)

		var resp any
		switch {
		case o.Timeout:
			c.st.IncPublishTimeout()
			resp = c.fault(ctx.header, ua.BadTimeout)
		case o.NoSubscription:
			resp = c.fault(ctx.header, ua.BadNoSubscription)
		case o.Notification != nil:
			if o.KeepAlive {
				c.st.IncKeepAlive()
			} else {
				c.st.IncNotification()
			}
			var avail []uint32
			if sub, ok := c.Subs.Get(subID); ok {
				avail = sub.AvailableSequenceNumbers()
			}
			resp = &uaservices.PublishResponse{
				Header:                   uaservices.NewResponseHeader(ctx.header, ua.Ok, c.now()),
				SubscriptionID:           subID,
				AvailableSequenceNumbers: avail,
				NotificationMessage:      *o.Notification,
				Results:                  ctx.ackResults,
			}
		default:
			continue
		}
		c.postPriority(Event{
			kind:           evAsyncPubResp,
			channelID:      ctx.channelID,
			requestContext: ctx.requestContext,
			response:       resp,
		})
	}
	c.st.SetPublishQueue(int64(len(c.pendingPublish)))
}

// failPendingPublishes answers every queued Publish request bound to
// subID with status, the CloseSession cascade.
func (c *Core) failPendingPublishes(subID uint32, status ua.StatusCode) {
	for handle, ctx := range c.pendingPublish {
		if ctx.subscriptionID != subID {
			continue
		}
		delete(c.pendingPublish, handle)
		c.postPriority(Event{
			kind:           evAsyncPubResp,
			channelID:      ctx.channelID,
			requestContext: ctx.requestContext,
			response:       c.fault(ctx.header, status),
		})
	}
	c.st.SetPublishQueue(int64(len(c.pendingPublish)))
}
