package wsapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/authn"
	"github.com/xmidt-org/wakelink/internal/registry"
	"github.com/xmidt-org/wakelink/internal/relay"
	"github.com/xmidt-org/wakelink/internal/store"
	"github.com/xmidt-org/wakelink/internal/wire"
)

type testEnv struct {
	server *httptest.Server
	wsURL  string
	store  *store.Store
	user   store.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(t.TempDir()+"/wakelink_test.db", zap.NewNop(), "http://localhost:9009")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	u, err := st.CreateUser(context.Background(), store.User{
		Username: "alice", PasswordHash: "h", APIToken: "tok-alice", Plan: "basic", DevicesLimit: 5,
	})
	require.NoError(t, err)

	reg := registry.New(zap.NewNop())
	engine := relay.NewEngine(reg, st, relay.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	s := &Server{Engine: engine, Resolver: authn.NewResolver(st), Logger: zap.NewNop()}

	httpServer := httptest.NewServer(s.Router())
	parsed, err := url.Parse(httpServer.URL)
	require.NoError(t, err)
	parsed.Scheme = "ws"

	return &testEnv{server: httpServer, wsURL: parsed.String(), store: st, user: u}
}

func (e *testEnv) close() { e.server.Close() }

func dialDevice(t *testing.T, env *testEnv, deviceID, token string) *websocket.Conn {
	t.Helper()
	header := map[string][]string{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL+"/ws/"+deviceID, header)
	require.NoError(t, err)
	return conn
}

func dialClient(t *testing.T, env *testEnv, clientID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL+"/ws/client/"+clientID, nil)
	require.NoError(t, err)
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestDeviceStreamHotPath(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()
	ctx := context.Background()

	_, err := env.store.UpsertDevice(ctx, env.user.ID, "D1", "dtok", time.Now())
	require.NoError(t, err)

	dconn := dialDevice(t, env, "D1", env.user.APIToken)
	defer dconn.Close()

	var welcome wire.WelcomeFrame
	readJSON(t, dconn, &welcome)
	assert.Equal(t, "connected", welcome.Status)
	assert.Equal(t, "D1", welcome.DeviceID)

	cconn := dialClient(t, env, "c1")
	defer cconn.Close()

	require.NoError(t, cconn.WriteJSON(wire.AuthMessage{Type: "auth", Token: env.user.APIToken}))

	var clientWelcome wire.WelcomeFrame
	readJSON(t, cconn, &clientWelcome)
	assert.Equal(t, "connected", clientWelcome.Status)

	require.NoError(t, cconn.WriteJSON(wire.Envelope{DeviceID: "D1", Payload: "p1", Signature: "s1", Version: "1.0"}))

	var ack wire.AckFrame
	readJSON(t, cconn, &ack)
	assert.True(t, ack.Delivered)
	assert.False(t, ack.Queued)

	var received wire.Envelope
	readJSON(t, dconn, &received)
	assert.Equal(t, "p1", received.Payload)

	require.NoError(t, dconn.WriteJSON(wire.Envelope{DeviceID: "D1", Payload: "r1", Signature: "s2", Version: "1.0"}))

	var reply wire.Envelope
	readJSON(t, cconn, &reply)
	assert.Equal(t, "r1", reply.Payload)

	remaining, err := env.store.MessagesFor(ctx, "D1", "to_device")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDeviceStreamAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL+"/ws/D1", nil)
	require.NoError(t, err)
	defer conn.Close()

	var errFrame wire.ErrorFrame
	readJSON(t, conn, &errFrame)
	assert.Equal(t, wire.AuthRequired, errFrame.Error)
}

func TestClientCommandQueuesWhenDeviceOffline(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()
	ctx := context.Background()

	_, err := env.store.UpsertDevice(ctx, env.user.ID, "D1", "dtok", time.Now())
	require.NoError(t, err)

	cconn := dialClient(t, env, "c1")
	defer cconn.Close()
	require.NoError(t, cconn.WriteJSON(wire.AuthMessage{Type: "auth", Token: env.user.APIToken}))

	var welcome wire.WelcomeFrame
	readJSON(t, cconn, &welcome)

	require.NoError(t, cconn.WriteJSON(wire.Envelope{DeviceID: "D1", Payload: "p1", Signature: "s1", Version: "1.0"}))

	var ack wire.AckFrame
	readJSON(t, cconn, &ack)
	assert.False(t, ack.Delivered)
	assert.True(t, ack.Queued)

	queued, err := env.store.MessagesFor(ctx, "D1", "to_device")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "p1", queued[0].MessageData)
}

func TestDeviceStreamVersionRejected(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()
	ctx := context.Background()

	_, err := env.store.UpsertDevice(ctx, env.user.ID, "D1", "dtok", time.Now())
	require.NoError(t, err)

	dconn := dialDevice(t, env, "D1", env.user.APIToken)
	defer dconn.Close()

	var welcome wire.WelcomeFrame
	readJSON(t, dconn, &welcome)

	require.NoError(t, dconn.WriteJSON(map[string]string{
		"device_id": "D1", "payload": "p", "signature": "s", "version": "0.9",
	}))

	var errFrame wire.ErrorFrame
	readJSON(t, dconn, &errFrame)
	assert.Equal(t, wire.UnsupportedVersion, errFrame.Error)

	remaining, err := env.store.MessagesFor(ctx, "D1", "to_client")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
