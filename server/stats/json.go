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

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/opcua/uaservices"
)

// JSONStats is what we want to report as stats via http
type JSONStats struct {
	report counters

	counters
}

// NewJSONStats returns a new JSONStats
func NewJSONStats() *JSONStats {
	s := &JSONStats{}

	s.init()
	s.report.init()

	return s
}

// Start runs http server and initializes maps
func (s *JSONStats) Start(monitoringport int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	addr := fmt.Sprintf(":%d", monitoringport)
	log.Infof("Starting http json server on %s", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
}

// Snapshot the values so they can be reported atomically
func (s *JSONStats) Snapshot() {
	s.rx.copy(&s.report.rx)
	s.tx.copy(&s.report.tx)
	atomic.StoreInt64(&s.report.faults, atomic.LoadInt64(&s.faults))
	atomic.StoreInt64(&s.report.sessions, atomic.LoadInt64(&s.sessions))
	atomic.StoreInt64(&s.report.subscriptions, atomic.LoadInt64(&s.subscriptions))
	atomic.StoreInt64(&s.report.notifications, atomic.LoadInt64(&s.notifications))
	atomic.StoreInt64(&s.report.keepAlives, atomic.LoadInt64(&s.keepAlives))
	atomic.StoreInt64(&s.report.publishTimeouts, atomic.LoadInt64(&s.publishTimeouts))
	atomic.StoreInt64(&s.report.publishQueue, atomic.LoadInt64(&s.publishQueue))
	atomic.StoreInt64(&s.report.dataChanges, atomic.LoadInt64(&s.dataChanges))
}

// handleRequest is a handler used for all http monitoring requests
func (s *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.report.toMap())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// Reset atomically sets all the counters to 0
func (s *JSONStats) Reset() {
	s.reset()
}

// IncRequest atomically adds 1 to the received-request counter for t
func (s *JSONStats) IncRequest(t uaservices.TypeID) {
	s.rx.inc(t)
}

// IncResponse atomically adds 1 to the sent-response counter for t
func (s *JSONStats) IncResponse(t uaservices.TypeID) {
	s.tx.inc(t)
}

// IncServiceFault atomically adds 1 to the fault counter
func (s *JSONStats) IncServiceFault() {
	atomic.AddInt64(&s.faults, 1)
}

// IncSession atomically adds 1 to the live-session gauge
func (s *JSONStats) IncSession() {
	atomic.AddInt64(&s.sessions, 1)
}

// DecSession atomically removes 1 from the live-session gauge
func (s *JSONStats) DecSession() {
	atomic.AddInt64(&s.sessions, -1)
}

// IncSubscription atomically adds 1 to the live-subscription gauge
func (s *JSONStats) IncSubscription() {
	atomic.AddInt64(&s.subscriptions, 1)
}

// DecSubscription atomically removes 1 from the live-subscription gauge
func (s *JSONStats) DecSubscription() {
	atomic.AddInt64(&s.subscriptions, -1)
}

// IncNotification atomically adds 1 to the shipped-notification counter
func (s *JSONStats) IncNotification() {
	atomic.AddInt64(&s.notifications, 1)
}

// IncKeepAlive atomically adds 1 to the keep-alive counter
func (s *JSONStats) IncKeepAlive() {
	atomic.AddInt64(&s.keepAlives, 1)
}

// IncPublishTimeout atomically adds 1 to the expired-publish counter
func (s *JSONStats) IncPublishTimeout() {
	atomic.AddInt64(&s.publishTimeouts, 1)
}

// SetPublishQueue records the current pending-publish depth
func (s *JSONStats) SetPublishQueue(depth int64) {
	atomic.StoreInt64(&s.publishQueue, depth)
}

// IncDataChange atomically adds 1 to the data-change event counter
func (s *JSONStats) IncDataChange() {
	atomic.AddInt64(&s.dataChanges, 1)
}
