package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/registry"
	"github.com/xmidt-org/wakelink/internal/store"
)

type recordingStream struct {
	id     string
	sent   [][]byte
	failOn int
	calls  int
}

func (s *recordingStream) ConnectionID() string { return s.id }
func (s *recordingStream) Send(frame []byte) error {
	s.calls++
	if s.failOn != 0 && s.calls >= s.failOn {
		return errors.New("write: broken pipe")
	}
	s.sent = append(s.sent, frame)
	return nil
}
func (s *recordingStream) Close(code int, reason string) error { return nil }

func newTestEngine(t *testing.T) (*Engine, *registry.Registry, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir()+"/wakelink_test.db", zap.NewNop(), "http://localhost:9009")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := registry.New(zap.NewNop())
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewEngine(reg, st, metrics, zap.NewNop()), reg, st
}

func TestDeliverLiveSuccess(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	s := &recordingStream{id: "D1"}
	reg.Register("D1", s)

	delivered := e.Deliver(context.Background(), "D1", []byte(`{"device_id":"D1"}`), "client_c1")
	assert.True(t, delivered)
	assert.Len(t, s.sent, 1)

	target, ok := reg.ResponseTarget("D1")
	require.True(t, ok)
	assert.Equal(t, "client_c1", target)
}

func TestDeliverNoStreamFallsThrough(t *testing.T) {
	e, _, _ := newTestEngine(t)
	delivered := e.Deliver(context.Background(), "D1", []byte(`{}`), "")
	assert.False(t, delivered)
}

func TestDeliverSendErrorFallsThrough(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	s := &recordingStream{id: "D1", failOn: 1}
	reg.Register("D1", s)

	delivered := e.Deliver(context.Background(), "D1", []byte(`{}`), "")
	assert.False(t, delivered)
}

func TestDeliverResponseForwardsToPendingClient(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	client := &recordingStream{id: "client_c1"}
	reg.Register("client_c1", client)
	reg.AwaitResponse("D1", "client_c1")

	forwarded := e.DeliverResponse(context.Background(), "D1", []byte(`{"device_id":"D1"}`))
	assert.True(t, forwarded)
	assert.Len(t, client.sent, 1)

	// Pending entry consumed; a second response has nowhere to go.
	forwarded = e.DeliverResponse(context.Background(), "D1", []byte(`{}`))
	assert.False(t, forwarded)
}

func TestDeliverResponseNoPendingTarget(t *testing.T) {
	e, _, _ := newTestEngine(t)
	forwarded := e.DeliverResponse(context.Background(), "D1", []byte(`{}`))
	assert.False(t, forwarded)
}

func TestDrainQueuedStopsOnFirstFailure(t *testing.T) {
	e, reg, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, st.InsertMessage(ctx, store.Message{DeviceID: "D1", MessageType: "command", MessageData: "a", Direction: "to_device"}))
	require.NoError(t, st.InsertMessage(ctx, store.Message{DeviceID: "D1", MessageType: "command", MessageData: "b", Direction: "to_device"}))

	s := &recordingStream{id: "D1", failOn: 2}
	reg.Register("D1", s)

	sent, err := e.DrainQueued(ctx, "D1", "D1", "to_device")
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	remaining, err := st.MessagesFor(ctx, "D1", "to_device")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].MessageData)
}

func TestRecordActivity(t *testing.T) {
	e, _, st := newTestEngine(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, store.User{Username: "alice", PasswordHash: "h", APIToken: "tok", Plan: "basic", DevicesLimit: 5})
	require.NoError(t, err)
	_, err = st.UpsertDevice(ctx, u.ID, "D1", "dtok", time.Now())
	require.NoError(t, err)

	counter := int64(5)
	require.NoError(t, e.RecordActivity(ctx, "D1", &counter))

	d, err := st.DeviceByID(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.LastRequestCounter)
}
