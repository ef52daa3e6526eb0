// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/authn"
	"github.com/xmidt-org/wakelink/internal/wire"
)

// handleDeviceStream implements /ws/{device_id}: a firmware endpoint
// connects here, authenticating via an Authorization header presented
// at the upgrade handshake, per §4.4.
func (s *Server) handleDeviceStream(w http.ResponseWriter, r *http.Request) {
	deviceID := pathVar(r, "device_id")

	token, hasToken := authn.TokenFromRequest(r)

	ws, err := s.upgrade(w, r)
	if err != nil {
		s.logger().Info("device stream upgrade failed", zap.Error(err))
		return
	}
	conn := newStreamConn(deviceID, ws)

	if !hasToken {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.AuthRequired, "Authorization header with Bearer token is required"))
		_ = conn.Close(websocket.ClosePolicyViolation, "missing Authorization header")
		return
	}

	ctx := r.Context()
	user, err := s.Resolver.Authenticate(ctx, token)
	if err != nil {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.InvalidAPIToken, "Invalid API token"))
		_ = conn.Close(websocket.ClosePolicyViolation, "invalid API token")
		return
	}

	device, err := s.Resolver.Owns(ctx, user, deviceID)
	if err != nil {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.DeviceNotFound, "Device not found or not owned by user"))
		_ = conn.Close(websocket.ClosePolicyViolation, "device not found")
		return
	}

	if err := s.Engine.RecordActivity(ctx, deviceID, nil); err != nil {
		s.logger().Warn("failed to record device connect activity", zap.Error(err))
	}

	if evicted, had := s.Engine.Registry().Register(deviceID, conn); had {
		_ = evicted.Close(websocket.CloseNormalClosure, "replaced by newer connection")
	}
	s.Engine.RefreshLiveConnections()
	defer func() {
		s.Engine.Registry().Deregister(deviceID)
		s.Engine.RefreshLiveConnections()
	}()

	if err := conn.sendJSON(wire.NewDeviceWelcome(deviceID)); err != nil {
		s.logger().Info("failed to send device welcome", zap.Error(err))
		return
	}
	s.logger().Info("device connected",
		zap.String("device_id", deviceID), zap.String("user", user.Username), zap.String("connection_nonce", uuid.NewString()))

	if _, err := s.Engine.DrainQueued(ctx, deviceID, deviceID, string(wire.ToDevice)); err != nil {
		s.logger().Warn("failed to drain queued commands on connect", zap.String("device_id", deviceID), zap.Error(err))
	}

	s.deviceLoop(ctx, conn, deviceID, device.DeviceToken)
}

// deviceLoop processes every frame the device sends after the welcome,
// each one treated as a response to forward back to whichever client is
// awaiting it, per §4.4's "Device -> server frames" rule.
func (s *Server) deviceLoop(ctx context.Context, conn *streamConn, deviceID, deviceToken string) {
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			s.logger().Debug("device stream closed", zap.String("device_id", deviceID), zap.Error(err))
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			_ = conn.sendJSON(wire.NewErrorFrame(wire.InvalidJSON, "Failed to parse JSON"))
			continue
		}

		if err := env.Validate(); err != nil {
			if errors.Is(err, wire.ErrUnsupportedVersion) {
				_ = conn.sendJSON(wire.NewErrorFrame(wire.UnsupportedVersion, "Protocol version must be 1.0"))
			} else {
				_ = conn.sendJSON(wire.NewErrorFrame(wire.InvalidPacket, "Missing required fields"))
			}
			continue
		}

		if err := s.Engine.RecordActivity(ctx, env.DeviceID, env.RequestCounter); err != nil {
			s.logger().Warn("failed to record device response activity", zap.Error(err))
		}

		frame, _ := json.Marshal(env)
		if forwarded := s.Engine.DeliverResponse(ctx, env.DeviceID, frame); forwarded {
			s.logger().Info("response forwarded to client", zap.String("device_id", env.DeviceID))
			continue
		}

		if err := s.Engine.EnqueueDurable(ctx, string(wire.ToClient), env.DeviceID, deviceToken, string(wire.Response), env.Payload, env.Signature); err != nil {
			s.logger().Error("failed to persist unforwarded response", zap.Error(err))
		}
	}
}
