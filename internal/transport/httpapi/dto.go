// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package httpapi implements the HTTP push/pull surface of §4.3 and
// §6.1: REST endpoints that write into and read from the relay engine.
package httpapi

import "github.com/xmidt-org/wakelink/internal/wire"

// PushMessage is the decoded body of POST /api/push.
type PushMessage struct {
	DeviceID  string `json:"device_id"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	Version   string `json:"version"`
	Direction string `json:"direction"`
}

// PullRequest is the decoded body of POST /api/pull.
type PullRequest struct {
	DeviceID  string `json:"device_id"`
	Version   string `json:"version"`
	Direction string `json:"direction"`
	Wait      int    `json:"wait"`
}

// MessageResponse is the shared response envelope for push and pull,
// matching core/schemas.py's MessageResponse.
type MessageResponse struct {
	Status        string             `json:"status"`
	DeviceID      string             `json:"device_id"`
	DeliveredViaWS bool              `json:"delivered_via_ws,omitempty"`
	Messages      []wire.QueuedMessage `json:"messages,omitempty"`
	Count         int                `json:"count"`
}

// DeviceCreateRequest is the decoded body of POST /api/register_device.
type DeviceCreateRequest struct {
	DeviceID string `json:"device_id"`
}

// DeviceRegisteredResponse mirrors core/schemas.py's
// DeviceRegisteredResponse, restored per the supplemented-features note
// on full registration response shape.
type DeviceRegisteredResponse struct {
	Status      string `json:"status"`
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
	Mode        string `json:"mode"`
}

// DeleteDeviceRequest is the decoded body of POST /api/delete_device.
type DeleteDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// DeviceInfo is one entry of UserDevicesResponse.devices.
type DeviceInfo struct {
	DeviceID  string  `json:"device_id"`
	Cloud     bool    `json:"cloud"`
	Online    bool    `json:"online"`
	LastSeen  *string `json:"last_seen"`
	PollCount int     `json:"poll_count"`
	Added     *string `json:"added"`
}

// UserDevicesResponse is the full GET /api/devices body, restored from
// core/schemas.py's UserDevicesResponse per the supplemented-features
// note (the distilled spec only required "list devices with presence").
type UserDevicesResponse struct {
	User         string       `json:"user"`
	Plan         string       `json:"plan"`
	DevicesLimit int          `json:"devices_limit"`
	DevicesCount int          `json:"devices_count"`
	Devices      []DeviceInfo `json:"devices"`
}

// StatsResponse is the GET /api/stats body.
type StatsResponse struct {
	OnlineDevices         int    `json:"online_devices"`
	TotalDevices          int    `json:"total_devices"`
	TotalUsers            int    `json:"total_users"`
	QueuesToDevice        int    `json:"queues_to_device"`
	QueuesToClient        int    `json:"queues_to_client"`
	TotalQueues           int    `json:"total_queues"`
	WebsocketConnections  int    `json:"websocket_connections"`
	ServerTime            string `json:"server_time"`
	Status                string `json:"status"`
}

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Timestamp   string `json:"timestamp"`
	Websockets  int    `json:"websockets"`
}
