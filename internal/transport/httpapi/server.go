// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/authn"
	"github.com/xmidt-org/wakelink/internal/relay"
	"github.com/xmidt-org/wakelink/internal/store"
	"github.com/xmidt-org/wakelink/internal/wire"
)

const presenceWindow = 5 * time.Minute

// Server is a configurable set of http.Handlers over the relay engine,
// shaped after device/handlers.go's MessageHandler: a small struct
// holding the collaborators a handler needs plus an optional Logger
// that falls back to sallust.Default() when unset.
type Server struct {
	Engine   *relay.Engine
	Resolver *authn.Resolver
	Logger   *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return sallust.Default()
}

// Router builds the gorilla/mux router exposing §6.1's endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/push", s.handlePush).Methods(http.MethodPost)
	r.HandleFunc("/api/pull", s.handlePull).Methods(http.MethodPost)
	r.HandleFunc("/api/register_device", s.handleRegisterDevice).Methods(http.MethodPost)
	r.HandleFunc("/api/delete_device", s.handleDeleteDevice).Methods(http.MethodPost)
	r.HandleFunc("/api/devices", s.handleDevices).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	return r
}

func (s *Server) authenticate(r *http.Request) (store.User, bool, string, int) {
	token, ok := authn.TokenFromRequest(r)
	if !ok {
		return store.User{}, false, KindAuthRequired, http.StatusUnauthorized
	}

	user, err := s.Resolver.Authenticate(r.Context(), token)
	if err != nil {
		return store.User{}, false, KindInvalidAPIToken, http.StatusUnauthorized
	}

	return user, true, "", 0
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	user, ok, kind, status := s.authenticate(r)
	if !ok {
		writeError(w, status, kind)
		return
	}

	var msg PushMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, KindInvalidPacket)
		return
	}
	if msg.Direction == "" {
		msg.Direction = string(wire.ToDevice)
	}
	if msg.Version == "" {
		msg.Version = wire.ProtocolVersion
	}

	env := wire.Envelope{DeviceID: msg.DeviceID, Payload: msg.Payload, Signature: msg.Signature, Version: msg.Version}
	if err := env.Validate(); err != nil {
		if errors.Is(err, wire.ErrUnsupportedVersion) {
			writeError(w, http.StatusBadRequest, KindUnsupportedVersion)
		} else {
			writeError(w, http.StatusBadRequest, KindInvalidPacket)
		}
		return
	}

	device, err := s.Resolver.Owns(r.Context(), user, msg.DeviceID)
	if err != nil {
		writeError(w, http.StatusNotFound, KindDeviceNotFound)
		return
	}

	ctx := r.Context()
	if err := s.Engine.RecordActivity(ctx, device.DeviceID, nil); err != nil {
		s.logger().Warn("failed to record push activity", zap.Error(err))
	}

	// §4.3: the durable row is written unconditionally, before the
	// delivery attempt, per the documented at-least-once design — a
	// successful live delivery leaves the row in place rather than
	// racing to delete it, and the endpoint protocol's request_counter
	// is how peers tolerate the resulting duplicate.
	frameBody, _ := json.Marshal(env)
	if err := s.Engine.EnqueueDurable(ctx, msg.Direction, msg.DeviceID, device.DeviceToken, string(wire.TypeForDirection(wire.Direction(msg.Direction))), msg.Payload, msg.Signature); err != nil {
		s.logger().Error("failed to persist pushed envelope", zap.Error(err))
	}

	delivered := s.Engine.Deliver(ctx, msg.DeviceID, frameBody, "")

	writeJSON(w, http.StatusOK, MessageResponse{
		Status:         "ok",
		DeviceID:       msg.DeviceID,
		DeliveredViaWS: delivered,
	})
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	user, ok, kind, status := s.authenticate(r)
	if !ok {
		writeError(w, status, kind)
		return
	}

	var req PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, KindInvalidPacket)
		return
	}
	if req.Direction == "" {
		req.Direction = string(wire.ToClient)
	}

	device, err := s.Resolver.Owns(r.Context(), user, req.DeviceID)
	if err != nil {
		writeError(w, http.StatusNotFound, KindDeviceNotFound)
		return
	}

	ctx := r.Context()
	if err := s.Engine.RecordActivity(ctx, device.DeviceID, nil); err != nil {
		s.logger().Warn("failed to record pull activity", zap.Error(err))
	}

	wait := req.Wait
	if wait < 0 {
		wait = 0
	}
	if wait > 30 {
		wait = 30
	}

	deadline := time.Now().Add(time.Duration(wait) * time.Second)
	messages, err := s.Engine.Store().MessagesFor(ctx, req.DeviceID, req.Direction)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	for len(messages) == 0 && wait > 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		messages, err = s.Engine.Store().MessagesFor(ctx, req.DeviceID, req.Direction)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	var ids []int64
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	if len(ids) > 0 {
		if err := s.Engine.Store().DeleteMessages(ctx, ids); err != nil {
			s.logger().Error("failed to delete pulled envelopes", zap.Error(err))
		}
		// poll_count counts only polls that actually returned something,
		// per §4.3's "heartbeat polls do not count".
		if err := s.Engine.Store().IncrementPollCount(ctx, req.DeviceID); err != nil {
			s.logger().Warn("failed to increment poll_count", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Status:   "ok",
		DeviceID: req.DeviceID,
		Messages: wire.EncodePulled(wire.Direction(req.Direction), messages),
		Count:    len(messages),
	})
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	user, ok, kind, status := s.authenticate(r)
	if !ok {
		writeError(w, status, kind)
		return
	}

	var req DeviceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, KindInvalidPacket)
		return
	}

	token := authn.GenerateToken()
	device, err := s.Engine.Store().UpsertDevice(r.Context(), user.ID, req.DeviceID, token, time.Now())
	if errors.Is(err, store.ErrLimitExceeded) {
		writeError(w, http.StatusForbidden, KindLimitExceeded)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, DeviceRegisteredResponse{
		Status:      "registered",
		DeviceID:    device.DeviceID,
		DeviceToken: device.DeviceToken,
		Mode:        "cloud",
	})
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	user, ok, kind, status := s.authenticate(r)
	if !ok {
		writeError(w, status, kind)
		return
	}

	var req DeleteDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, KindInvalidPacket)
		return
	}

	if err := s.Engine.Store().DeleteDevice(r.Context(), user.ID, req.DeviceID); err != nil {
		writeError(w, http.StatusNotFound, KindDeviceNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "device_id": req.DeviceID})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	user, ok, kind, status := s.authenticate(r)
	if !ok {
		writeError(w, status, kind)
		return
	}

	devices, err := s.Engine.Store().DevicesForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	infos := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		present := s.Engine.Registry().IsPresent(d.DeviceID)
		infos = append(infos, DeviceInfo{
			DeviceID:  d.DeviceID,
			Cloud:     d.Cloud,
			Online:    d.Online(now, present),
			LastSeen:  timeOrNil(d.LastSeen),
			PollCount: d.PollCount,
			Added:     timeOrNil(d.Added),
		})
	}

	writeJSON(w, http.StatusOK, UserDevicesResponse{
		User:         user.Username,
		Plan:         user.Plan,
		DevicesLimit: user.DevicesLimit,
		DevicesCount: len(infos),
		Devices:      infos,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Engine.Store().LoadStats(r.Context(), time.Now().Add(-presenceWindow))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		OnlineDevices:        stats.OnlineDevices,
		TotalDevices:         stats.TotalDevices,
		TotalUsers:           stats.TotalUsers,
		QueuesToDevice:       stats.QueuesToDevice,
		QueuesToClient:       stats.QueuesToClient,
		TotalQueues:          stats.QueuesToDevice + stats.QueuesToClient,
		WebsocketConnections: s.Engine.Registry().Count(),
		ServerTime:           time.Now().Format(time.RFC3339),
		Status:               "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Service:    "WakeLink Cloud Relay",
		Timestamp:  time.Now().Format(time.RFC3339),
		Websockets: s.Engine.Registry().Count(),
	})
}

func timeOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}
