// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package registry tracks live stream connections by connection id, per
// spec §4.1. It knows nothing about envelopes, devices, or durability —
// only which connection ids currently have an open stream, and which
// client connection a device's in-flight response is pending against.
package registry

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
)

// Stream is anything a registered connection can push frames through.
// Both the device websocket and the client websocket implement it.
type Stream interface {
	// ConnectionID returns the id this stream was registered under.
	ConnectionID() string
	// Send writes a single frame. Implementations must be safe to call
	// without holding the registry's lock.
	Send(frame []byte) error
	// Close terminates the underlying connection with the given close
	// code and reason, matching routes/wss.py's close semantics.
	Close(code int, reason string) error
}

// Registry is a connection_id -> Stream map plus a device_id ->
// connection_id pending-response table. The mutex guards only map
// mutation; Send/Close are always called outside the lock so a slow or
// blocked peer never stalls registration of another connection.
type Registry struct {
	mu      sync.Mutex
	conns   map[string]Stream
	pending map[string]string // device_id -> waiting client connection id
	logger  *zap.Logger
}

// New constructs an empty Registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		conns:   make(map[string]Stream),
		pending: make(map[string]string),
		logger:  logger,
	}
}

// Register installs stream under connID. If a connection already holds
// that id, the prior stream is evicted (last-writer-wins, per spec
// §4.1) and returned so the caller can close it outside the lock.
func (r *Registry) Register(connID string, stream Stream) (evicted Stream, hadPrevious bool) {
	r.mu.Lock()
	evicted, hadPrevious = r.conns[connID]
	r.conns[connID] = stream
	r.mu.Unlock()

	if hadPrevious {
		r.logger.Info("connection replaced", zap.String("connection_id", connID))
	}
	return evicted, hadPrevious
}

// Deregister removes connID and purges any pending-response entry that
// was waiting on it, so a future DeliverResponse doesn't target a dead
// connection.
func (r *Registry) Deregister(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	for deviceID, waiting := range r.pending {
		if waiting == connID {
			delete(r.pending, deviceID)
		}
	}
	r.mu.Unlock()
}

// Get returns the stream registered under connID, if any.
func (r *Registry) Get(connID string) (Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.conns[connID]
	return s, ok
}

// IsPresent reports whether connID currently has a live stream.
func (r *Registry) IsPresent(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[connID]
	return ok
}

// PresentIDs returns a snapshot of every registered connection id.
// Taking a snapshot under the lock (rather than returning the live map)
// keeps the caller from racing with concurrent Register/Deregister
// calls, mirroring device/manager.go's use of maps.Keys for reporting.
func (r *Registry) PresentIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Keys(r.conns)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// AwaitResponse records that deviceID's next response should be routed
// to clientConnID. At most one entry exists per device; a second call
// overwrites the first; rather than queueing, the earlier waiter simply
// stops being targeted (spec §4.2's pending-response table).
func (r *Registry) AwaitResponse(deviceID, clientConnID string) {
	r.mu.Lock()
	r.pending[deviceID] = clientConnID
	r.mu.Unlock()
}

// ResponseTarget returns the connection id currently awaiting deviceID's
// response, if any, and clears the entry so a second response with no
// new command in between has nothing left to target.
func (r *Registry) ResponseTarget(deviceID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connID, ok := r.pending[deviceID]
	if ok {
		delete(r.pending, deviceID)
	}
	return connID, ok
}
