package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/service"
)

// SettlementQueue publishes settlement events onto the Redis list consumed by
// the settlement worker.
type SettlementQueue struct {
	rdb *redis.Client
}

// NewSettlementQueue creates a new SettlementQueue.
func NewSettlementQueue(rdb *redis.Client) *SettlementQueue {
	return &SettlementQueue{rdb: rdb}
}

// PublishSettlement appends one event to the queue.
func (q *SettlementQueue) PublishSettlement(ctx context.Context, e service.SettlementEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.SettlementQueue, payload).Err()
}
