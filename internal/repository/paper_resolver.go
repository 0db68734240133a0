package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/model"
)

// PaperResolver resolves an opaque paper reference into its ordered question
// key set. Resolved sets are cached in Redis so grading and progress reads do
// not hit PostgreSQL on every call.
type PaperResolver struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewPaperResolver creates a new PaperResolver.
func NewPaperResolver(pool *pgxpool.Pool, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *PaperResolver {
	return &PaperResolver{
		pool: pool,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "paper_resolver").Logger(),
	}
}

// ResolveQuestionSet returns the paper's question keys in order, from cache
// when warm and from PostgreSQL otherwise.
func (r *PaperResolver) ResolveQuestionSet(ctx context.Context, paperRef string) ([]model.QuestionKey, error) {
	cacheKey := config.CacheKey.PaperQuestionSetKey(paperRef)

	data, err := r.rdb.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var key []model.QuestionKey
		if err := json.Unmarshal(data, &key); err == nil {
			return key, nil
		}
		// Corrupt cache entry; fall through to the database.
		r.log.Warn().Str("paper_ref", paperRef).Msg("Dropping unreadable cached question set")
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn().Err(err).Str("paper_ref", paperRef).Msg("Question set cache read failed")
	}

	key, err := r.loadFromDB(ctx, paperRef)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(key); err == nil {
		if err := r.rdb.Set(ctx, cacheKey, payload, r.ttl).Err(); err != nil {
			r.log.Warn().Err(err).Str("paper_ref", paperRef).Msg("Question set cache write failed")
		}
	}
	return key, nil
}

// Invalidate drops the cached question set for a paper. Called when an
// authority edits the paper content.
func (r *PaperResolver) Invalidate(ctx context.Context, paperRef string) error {
	return r.rdb.Del(ctx, config.CacheKey.PaperQuestionSetKey(paperRef)).Err()
}

func (r *PaperResolver) loadFromDB(ctx context.Context, paperRef string) ([]model.QuestionKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, question_type, answer_key, points, order_num
		 FROM paper_questions
		 WHERE paper_ref = $1
		 ORDER BY order_num ASC`, paperRef)
	if err != nil {
		return nil, fmt.Errorf("query paper questions: %w", err)
	}
	defer rows.Close()

	var key []model.QuestionKey
	for rows.Next() {
		var q model.QuestionKey
		if err := rows.Scan(&q.QuestionID, &q.Type, &q.AnswerKey, &q.Points, &q.OrderNum); err != nil {
			return nil, fmt.Errorf("scan paper question: %w", err)
		}
		key = append(key, q)
	}
	return key, rows.Err()
}
