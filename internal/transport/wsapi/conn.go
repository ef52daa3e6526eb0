// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package wsapi implements the push-stream surface of §4.4: the device
// and client websocket endpoints and the INIT -> AUTHENTICATED ->
// ACTIVE -> CLOSED handshake state machine shared by both.
package wsapi

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single frame write; grounded on
// device/connection.go's updateWriteDeadline, which applies a deadline
// per-write rather than once at connect time.
const writeTimeout = 10 * time.Second

// streamConn adapts a *websocket.Conn to registry.Stream. gorilla's
// Conn permits at most one concurrent writer, so Send serializes
// through a mutex the way device/connection.go serializes Write calls
// by contract (that package instead documents "not safe for concurrent
// invocation"; here concurrent Send calls are expected — the engine and
// the connection's own read loop can both originate a send — so the
// mutex is explicit rather than left to the caller).
type streamConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func newStreamConn(id string, ws *websocket.Conn) *streamConn {
	return &streamConn{id: id, ws: ws}
}

func (c *streamConn) ConnectionID() string { return c.id }

func (c *streamConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *streamConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return c.ws.Close()
}

func (c *streamConn) sendJSON(v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(frame)
}
