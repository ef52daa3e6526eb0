// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/authn"
	"github.com/xmidt-org/wakelink/internal/store"
	"github.com/xmidt-org/wakelink/internal/wire"
)

const clientConnectionPrefix = "client_"

// handleClientStream implements /ws/client/{client_id}: an operator or
// application connects here and authenticates with an in-band
// {"type":"auth","token":...} message within authMessageDeadline, or
// falls back to header-bearer auth (legacy path) if its first frame is
// data rather than an auth message, per §4.4.
func (s *Server) handleClientStream(w http.ResponseWriter, r *http.Request) {
	clientID := pathVar(r, "client_id")
	connID := clientConnectionPrefix + clientID

	headerToken, hasHeaderToken := authn.TokenFromRequest(r)

	ws, err := s.upgrade(w, r)
	if err != nil {
		s.logger().Info("client stream upgrade failed", zap.Error(err))
		return
	}
	conn := newStreamConn(connID, ws)

	token, firstData, ok := s.resolveClientAuth(conn, headerToken, hasHeaderToken)
	if !ok {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.AuthRequired, `Authentication required. Send: {"type": "auth", "token": "<api_token>"}`))
		_ = conn.Close(websocket.ClosePolicyViolation, "authentication required")
		return
	}

	ctx := r.Context()
	user, err := s.Resolver.Authenticate(ctx, token)
	if err != nil {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.InvalidToken, "Invalid API token"))
		_ = conn.Close(websocket.ClosePolicyViolation, "invalid API token")
		return
	}

	if evicted, had := s.Engine.Registry().Register(connID, conn); had {
		_ = evicted.Close(websocket.CloseNormalClosure, "replaced by newer connection")
	}
	s.Engine.RefreshLiveConnections()
	defer func() {
		s.Engine.Registry().Deregister(connID)
		s.Engine.RefreshLiveConnections()
	}()

	if err := conn.sendJSON(wire.NewClientWelcome(clientID)); err != nil {
		s.logger().Info("failed to send client welcome", zap.Error(err))
		return
	}
	s.logger().Info("client connected", zap.String("client_id", clientID), zap.String("user", user.Username))

	if len(firstData) > 0 {
		s.handleClientFrame(ctx, conn, user, connID, firstData)
	}

	s.clientLoop(ctx, conn, user, connID)
}

// resolveClientAuth waits up to authMessageDeadline for the client's
// first frame. A {"type":"auth",...} message takes priority over a
// header-presented token, per routes/wss.py's _authenticate_websocket;
// any other first frame is returned as firstData so it can be replayed
// as the connection's first real command once authenticated via the
// header fallback.
func (s *Server) resolveClientAuth(conn *streamConn, headerToken string, hasHeaderToken bool) (token string, firstData []byte, ok bool) {
	_ = conn.ws.SetReadDeadline(time.Now().Add(authMessageDeadline))
	_, raw, err := conn.ws.ReadMessage()
	_ = conn.ws.SetReadDeadline(time.Time{})

	if err != nil {
		if hasHeaderToken {
			return headerToken, nil, true
		}
		return "", nil, false
	}

	if auth, isAuth := wire.IsAuthMessage(raw); isAuth {
		return auth.Token, nil, true
	}

	if hasHeaderToken {
		return headerToken, raw, true
	}

	return "", nil, false
}

func (s *Server) clientLoop(ctx context.Context, conn *streamConn, user store.User, connID string) {
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			s.logger().Debug("client stream closed", zap.String("connection_id", connID), zap.Error(err))
			return
		}

		s.handleClientFrame(ctx, conn, user, connID, raw)
	}
}

// handleClientFrame processes one command frame from a client,
// treating it per §4.4's "Client -> server frames" rule: validate,
// resolve device ownership, deliver-or-queue, then ACK.
func (s *Server) handleClientFrame(ctx context.Context, conn *streamConn, user store.User, connID string, raw []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.InvalidJSON, "Failed to parse JSON"))
		return
	}

	if err := env.Validate(); err != nil {
		if errors.Is(err, wire.ErrUnsupportedVersion) {
			_ = conn.sendJSON(wire.NewErrorFrame(wire.UnsupportedVersion, "Protocol version must be 1.0"))
		} else {
			_ = conn.sendJSON(wire.NewErrorFrame(wire.InvalidPacket, "Missing required fields"))
		}
		return
	}

	device, err := s.Resolver.Owns(ctx, user, env.DeviceID)
	if err != nil {
		_ = conn.sendJSON(wire.NewErrorFrame(wire.DeviceNotFound, "Device not found or not owned by user"))
		_ = conn.Close(websocket.ClosePolicyViolation, "device not found")
		return
	}

	if err := s.Engine.RecordActivity(ctx, env.DeviceID, nil); err != nil {
		s.logger().Warn("failed to record client command activity", zap.Error(err))
	}

	frame, _ := json.Marshal(env)
	delivered := s.Engine.Deliver(ctx, env.DeviceID, frame, connID)

	if !delivered {
		if err := s.Engine.EnqueueDurable(ctx, string(wire.ToDevice), env.DeviceID, device.DeviceToken, string(wire.Command), env.Payload, env.Signature); err != nil {
			s.logger().Error("failed to persist undelivered command", zap.Error(err))
		}
	}

	_ = conn.sendJSON(wire.NewAckFrame(env.DeviceID, delivered))
	s.logger().Debug("client command routed",
		zap.String("client_id", connID), zap.String("device_id", env.DeviceID), zap.Bool("delivered", delivered))
}
