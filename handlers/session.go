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
	"github.com/facebook/opcua/session"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// CreateSession executes the CreateSession service, per Part 4. The
// returned AuthenticationToken must accompany every subsequent request
// on this session.
func CreateSession(table *session.Table, req *uaservices.CreateSessionRequest, channelID uint32) *uaservices.CreateSessionResponse {
	sess := table.Create(req.RequestedSessionTimeout, channelID)
	return &uaservices.CreateSessionResponse{
		Header:                uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		SessionID:             sess.ID,
		AuthenticationToken:   sess.AuthenticationToken,
		RevisedSessionTimeout: float64(sess.Timeout.Milliseconds()),
	}
}

// ActivateSession executes the ActivateSession service, per Part 4. It
// accepts reactivation on a new channel for a session left Orphaned by a
// prior channel loss, not just the first activation out of Created.
func ActivateSession(table *session.Table, req *uaservices.ActivateSessionRequest, channelID uint32, serverNonce []byte) (*uaservices.ActivateSessionResponse, ua.StatusCode) {
	sess, status := table.Activate(req.Header.AuthenticationToken, channelID, req.UserIdentityToken, serverNonce)
	if status != ua.Ok {
		return nil, status
	}
	return &uaservices.ActivateSessionResponse{
		Header:      uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
		ServerNonce: sess.ServerNonce,
	}, ua.Ok
}

// CloseSession executes the CloseSession service, per Part 4.
// deleteSubscriptions reports the request's DeleteSubscriptions flag
// back to the caller so server.Core can route subscription teardown to
// subscription.Engine.DeleteAllForSession — this package never imports
// subscription to keep that dependency one-directional.
func CloseSession(table *session.Table, req *uaservices.CloseSessionRequest) (resp *uaservices.CloseSessionResponse, sessionID ua.NodeID, deleteSubscriptions bool, status ua.StatusCode) {
	sessionID, status = table.Close(req.Header.AuthenticationToken)
	if status != ua.Ok {
		return nil, ua.NodeID{}, false, status
	}
	return &uaservices.CloseSessionResponse{
		Header: uaservices.NewResponseHeader(req.Header, ua.Ok, req.Header.Timestamp),
	}, sessionID, req.DeleteSubscriptions, ua.Ok
}
