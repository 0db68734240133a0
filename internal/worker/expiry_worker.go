package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/service"
)

// ExpiryWorker periodically settles in-progress attempts whose deadline has
// passed. Attempts are never expired by timers held per attempt; this sweep
// plus the on-read checks in the orchestrator keep the store consistent.
type ExpiryWorker struct {
	attempts service.AttemptStore
	rdb      *redis.Client
	interval time.Duration
	log      zerolog.Logger
}

func NewExpiryWorker(attempts service.AttemptStore, rdb *redis.Client, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpiryWorker{
		attempts: attempts,
		rdb:      rdb,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one expiry pass. A short Redis lease keeps multiple replicas
// from sweeping simultaneously; losing the lease skips the round.
func (w *ExpiryWorker) sweep(ctx context.Context) {
	acquired, err := w.rdb.SetNX(ctx, config.CacheKey.ExpirySweepLeaseKey(), "1", w.interval).Result()
	if err != nil {
		w.log.Warn().Err(err).Msg("Sweep lease check failed")
		return
	}
	if !acquired {
		return
	}

	swept, err := w.attempts.ExpireOverdue(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("Expiry sweep failed")
		return
	}
	if swept > 0 {
		w.log.Info().Int64("attempts", swept).Msg("Expired overdue attempts")
	}
}
