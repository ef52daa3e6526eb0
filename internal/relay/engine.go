// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the blind relay's core: per-target delivery,
// request/response correlation, and the presence side effects that
// ingress produces. Nothing in this package inspects payload bytes —
// every frame it handles is an opaque []byte already validated by its
// caller against internal/wire.
package relay

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/registry"
	"github.com/xmidt-org/wakelink/internal/store"
)

const clientConnectionPrefix = "client_"

// Engine is the relay core described in §4.2: it owns no storage of
// its own beyond the registry and store it's handed, and performs no
// durable persistence on the caller's behalf — Deliver and
// DeliverResponse report whether a live send succeeded; persisting the
// envelope when it didn't is the ingress surface's job, matching the
// asymmetry in the component design (deliver_response explicitly
// leaves durability "so the caller can persist"; deliver is held to
// the same contract here rather than silently queuing twice when a
// caller has already written a durable row itself).
type Engine struct {
	registry *registry.Registry
	store    *store.Store
	metrics  *Metrics
	logger   *zap.Logger
}

// NewEngine builds an Engine over the given registry and store.
func NewEngine(reg *registry.Registry, st *store.Store, metrics *Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: reg, store: st, metrics: metrics, logger: logger}
}

// Deliver attempts to route frame to targetID's live stream. If
// senderID is a client connection (prefixed "client_"), the
// pending-response table is updated first so a reply from targetID
// routes back here, per §4.2 step 1 — this happens even if the send
// itself later fails, since the correlation is about the next reply,
// not this specific send's outcome.
func (e *Engine) Deliver(ctx context.Context, targetID string, frame []byte, senderID string) bool {
	if strings.HasPrefix(senderID, clientConnectionPrefix) {
		e.registry.AwaitResponse(targetID, senderID)
	}

	stream, ok := e.registry.Get(targetID)
	if !ok {
		e.recordOutcome("to_device", OutcomeQueued)
		return false
	}

	if err := stream.Send(frame); err != nil {
		e.logger.Info("live send failed, falling back to queue",
			zap.String("target_id", targetID), zap.Error(err))
		e.recordOutcome("to_device", OutcomeQueued)
		return false
	}

	e.recordOutcome("to_device", OutcomeDeliveredLive)
	return true
}

// DeliverResponse forwards a device's reply to whichever client
// connection is currently awaiting it, per §4.2's deliver_response.
// The pending-response entry is consumed regardless of whether the
// subsequent send succeeds — a dead client cannot be retried via the
// in-memory path, only via the durable queue the caller falls back to.
func (e *Engine) DeliverResponse(ctx context.Context, deviceID string, frame []byte) bool {
	connID, ok := e.registry.ResponseTarget(deviceID)
	if !ok {
		e.recordOutcome("to_client", OutcomeQueued)
		return false
	}

	stream, ok := e.registry.Get(connID)
	if !ok {
		e.recordOutcome("to_client", OutcomeQueued)
		return false
	}

	if err := stream.Send(frame); err != nil {
		e.logger.Info("response forward failed, falling back to queue",
			zap.String("device_id", deviceID), zap.String("connection_id", connID), zap.Error(err))
		e.recordOutcome("to_client", OutcomeQueued)
		return false
	}

	e.recordOutcome("to_client", OutcomeForwarded)
	return true
}

// EnqueueDurable appends an envelope to the persistent store for
// (deviceID, direction), the fallback path consumed by HTTP pull.
func (e *Engine) EnqueueDurable(ctx context.Context, direction, deviceID, deviceToken, messageType, messageData, signature string) error {
	return e.store.InsertMessage(ctx, store.Message{
		DeviceToken: deviceToken,
		DeviceID:    deviceID,
		MessageType: messageType,
		MessageData: messageData,
		Signature:   signature,
		Direction:   direction,
	})
}

// RecordActivity applies the presence side effects of §4.2: last_seen
// advances to now, and the stored request counter advances to counter
// if it is not nil and not behind the stored value (TouchDevice is
// itself the monotonic guard, so a stale counter is silently ignored
// here rather than treated as an error).
func (e *Engine) RecordActivity(ctx context.Context, deviceID string, counter *int64) error {
	return e.store.TouchDevice(ctx, deviceID, time.Now(), counter)
}

// Registry exposes the underlying connection registry so transport
// handlers can register/deregister streams directly.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Store exposes the underlying entity store for transport handlers
// that need direct reads (device lookups, queue drains) the engine
// itself doesn't wrap.
func (e *Engine) Store() *store.Store { return e.store }

func (e *Engine) recordOutcome(direction, outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.Envelopes.WithLabelValues(direction, outcome).Inc()
}

// RefreshLiveConnections sets the live-connection gauge to the
// registry's current count; the stream handlers call it after every
// register and every deregister.
func (e *Engine) RefreshLiveConnections() {
	if e.metrics == nil {
		return
	}
	e.metrics.LiveConnections.Set(float64(e.registry.Count()))
}
