package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/service"
)

// StatsStore keeps per-session settlement aggregates in a Redis hash. The
// settlement worker folds events in; the authority stats endpoint reads out.
type StatsStore struct {
	rdb *redis.Client
}

// NewStatsStore creates a new StatsStore.
func NewStatsStore(rdb *redis.Client) *StatsStore {
	return &StatsStore{rdb: rdb}
}

// GetSessionStats reads the aggregate counters for a session. A session with
// no settled attempts yet yields zero counters.
func (s *StatsStore) GetSessionStats(ctx context.Context, sessionID uuid.UUID) (*service.SessionStats, error) {
	fields, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionStatsKey(sessionID.String())).Result()
	if err != nil {
		return nil, err
	}

	stats := &service.SessionStats{}
	if v, ok := fields["completed"]; ok {
		stats.Completed, _ = strconv.Atoi(v)
	}
	if v, ok := fields["expired"]; ok {
		stats.Expired, _ = strconv.Atoi(v)
	}
	if v, ok := fields["score_sum"]; ok {
		stats.ScoreSum, _ = strconv.ParseFloat(v, 64)
	}
	return stats, nil
}

// ApplyBatch folds a batch of settlement events into the per-session hashes
// with one pipeline round trip.
func (s *StatsStore) ApplyBatch(ctx context.Context, events []service.SettlementEvent) error {
	pipe := s.rdb.Pipeline()
	for _, e := range events {
		key := config.CacheKey.SessionStatsKey(e.SessionID)
		switch e.Status {
		case model.AttemptStatusCompleted:
			pipe.HIncrBy(ctx, key, "completed", 1)
			if e.Score != nil {
				pipe.HIncrByFloat(ctx, key, "score_sum", *e.Score)
			}
		case model.AttemptStatusExpired:
			pipe.HIncrBy(ctx, key, "expired", 1)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
