package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/repository"
	"github.com/examflow/examflow-backend/internal/service"
)

const (
	SettlementBatchTimeout = 2 * time.Second
	SettlementPollTimeout  = 1 * time.Second
)

// SettlementWorker drains settlement events off the Redis queue and folds
// them into the per-session aggregate counters. Aggregation is asynchronous:
// student-facing operations only enqueue and never wait for it.
type SettlementWorker struct {
	rdb       *redis.Client
	stats     *repository.StatsStore
	batchSize int
	log       zerolog.Logger
}

func NewSettlementWorker(rdb *redis.Client, stats *repository.StatsStore, batchSize int, log zerolog.Logger) *SettlementWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SettlementWorker{
		rdb:       rdb,
		stats:     stats,
		batchSize: batchSize,
		log:       log.With().Str("component", "settlement_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *SettlementWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SettlementWorker started")

	batch := make([]service.SettlementEvent, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= SettlementBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SettlementPollTimeout, config.WorkerKey.SettlementQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var e service.SettlementEvent
			if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, e)
		}
	}
}

// flushSafe applies the batch and requeues it when the write fails, so
// counters are eventually folded in even across Redis hiccups.
func (w *SettlementWorker) flushSafe(ctx context.Context, batch []service.SettlementEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.stats.ApplyBatch(ctx, batch); err != nil {
		w.log.Error().Err(err).Int("events", len(batch)).Msg("Stats batch failed — requeueing")
		for _, e := range batch {
			raw, _ := json.Marshal(e)
			w.rdb.RPush(ctx, config.WorkerKey.SettlementQueue, raw)
		}
		return
	}

	w.log.Debug().Int("events", len(batch)).Msg("Settlement batch applied")
}
