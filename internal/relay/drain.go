// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/wire"
)

// DrainQueued sends every durably queued envelope for (deviceID,
// direction) over connID's live stream, in FIFO order, per §4.1's
// register-time drain. It stops at the first send failure — per the
// mutex-discipline note in §5, remaining items are left queued rather
// than retried here, since the connection that just failed a send is
// unlikely to succeed on the next one either.
func (e *Engine) DrainQueued(ctx context.Context, connID, deviceID, direction string) (sent int, err error) {
	stream, ok := e.registry.Get(connID)
	if !ok {
		return 0, nil
	}

	pending, err := e.store.MessagesFor(ctx, deviceID, direction)
	if err != nil {
		return 0, err
	}

	var delivered []int64
	for _, m := range pending {
		frame, encodeErr := wire.EncodeQueued(m)
		if encodeErr != nil {
			e.logger.Warn("dropping malformed queued envelope",
				zap.Int64("id", m.ID), zap.Error(encodeErr))
			delivered = append(delivered, m.ID)
			e.recordOutcome(direction, OutcomeDropped)
			continue
		}

		if sendErr := stream.Send(frame); sendErr != nil {
			e.logger.Info("drain halted on send failure",
				zap.String("connection_id", connID), zap.Error(sendErr))
			break
		}

		delivered = append(delivered, m.ID)
		sent++
		e.recordOutcome(direction, OutcomeDeliveredLive)
	}

	if len(delivered) > 0 {
		if delErr := e.store.DeleteMessages(ctx, delivered); delErr != nil {
			return sent, delErr
		}
	}

	return sent, nil
}
