// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package wsapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/authn"
	"github.com/xmidt-org/wakelink/internal/relay"
)

// authMessageDeadline bounds how long a client stream waits for its
// in-band auth message before falling back to header auth, per §4.4
// and §5's "client-stream auth deadline = 10 s".
const authMessageDeadline = 10 * time.Second

// Server wires the device and client push-stream endpoints onto a
// gorilla/websocket.Upgrader, grounded on
// device/connection.go's connectionFactory — upgrader configuration
// lives on one struct, separate from the per-connection state.
type Server struct {
	Engine   *relay.Engine
	Resolver *authn.Resolver
	Logger   *zap.Logger

	upgrader websocket.Upgrader
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return sallust.Default()
}

// Router builds the gorilla/mux router exposing §6.2's endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/client/{client_id}", s.handleClientStream)
	r.HandleFunc("/ws/{device_id}", s.handleDeviceStream)
	return r
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return s.upgrader.Upgrade(w, r, nil)
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
