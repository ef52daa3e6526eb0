// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package retention runs the background sweep that deletes envelopes
// older than the configured retention window, per spec §4.5.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/store"
)

// Interval is how often the sweeper wakes up. Fixed at one minute per
// spec §5's "sweeper wakeup = 60 s".
const Interval = time.Minute

// Sweeper periodically deletes envelopes older than Retention.
type Sweeper struct {
	store     *store.Store
	retention time.Duration
	logger    *zap.Logger
}

// New constructs a Sweeper that deletes envelopes older than retention
// on each tick.
func New(s *store.Store, retention time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: s, retention: retention, logger: logger}
}

// Run blocks, sweeping every Interval until ctx is canceled. A failed
// sweep is logged and never terminates the loop, matching
// core/cleanup.py's try/except-around-one-iteration shape.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("retention sweep removed stale envelopes", zap.Int64("count", n))
	}
}
