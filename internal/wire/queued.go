// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"

	"github.com/xmidt-org/wakelink/internal/store"
)

// EncodeQueued reconstructs the outer envelope frame for a row pulled
// back out of the durable queue, carrying device_id, payload, signature
// and version the way a live frame does. The durable row does not store
// request_counter, so a drained frame never carries one even when the
// original Envelope did. The relay never decorates stored rows with
// anything beyond what the original Envelope carried.
func EncodeQueued(m store.Message) ([]byte, error) {
	return json.Marshal(Envelope{
		DeviceID:  m.DeviceID,
		Payload:   m.MessageData,
		Signature: m.Signature,
		Version:   ProtocolVersion,
	})
}

// EncodePulled renders a batch of queued rows into the shape
// PullResponse.messages reports over HTTP (§6.1).
func EncodePulled(direction Direction, msgs []store.Message) []QueuedMessage {
	out := make([]QueuedMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, QueuedMessage{
			DeviceID:    m.DeviceID,
			MessageType: MessageType(m.MessageType),
			Packet:      m.MessageData,
			Payload:     m.MessageData,
			Signature:   m.Signature,
			Direction:   direction,
			Timestamp:   m.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return out
}
