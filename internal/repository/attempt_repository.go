package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/service"
)

// AttemptRepository handles attempt record data access. All status writes are
// guarded compare-and-swap updates keyed on the current status, so duplicate
// concurrent operations for the same record collapse to one winner.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, session_id, student_id, attempt_number, status, started_at,
	deadline, submitted_at, answers, result, created_at, updated_at`

func scanAttempt(row pgx.Row) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	err := row.Scan(&a.ID, &a.SessionID, &a.StudentID, &a.AttemptNumber, &a.Status,
		&a.StartedAt, &a.Deadline, &a.SubmittedAt, &a.Answers, &a.Result,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Answers == nil {
		a.Answers = map[string][]string{}
	}
	return a, nil
}

func (r *AttemptRepository) getByID(ctx context.Context, id uuid.UUID) (*model.AttemptRecord, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempt_records WHERE id = $1`, id))
}

// GetLatestAttempt returns the record with the highest attempt number for the
// (session, student) pair.
func (r *AttemptRepository) GetLatestAttempt(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempt_records
		 WHERE session_id = $1 AND student_id = $2
		 ORDER BY attempt_number DESC
		 LIMIT 1`, sessionID, studentID))
}

// CountAttempts returns total and settled attempt counts for the pair.
func (r *AttemptRepository) CountAttempts(ctx context.Context, sessionID uuid.UUID, studentID int) (int, int, error) {
	var total, settled int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status IN ('completed', 'expired'))
		 FROM attempt_records
		 WHERE session_id = $1 AND student_id = $2`, sessionID, studentID,
	).Scan(&total, &settled)
	return total, settled, err
}

// CreateAttempt inserts a new record. The unique index on
// (session_id, student_id, attempt_number) makes the insert idempotent: a
// losing concurrent join refetches and receives the winner's record.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, rec *model.AttemptRecord) (*model.AttemptRecord, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO attempt_records (id, session_id, student_id, attempt_number, status, answers)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, student_id, attempt_number) DO NOTHING
		 RETURNING `+attemptColumns,
		rec.ID, rec.SessionID, rec.StudentID, rec.AttemptNumber, rec.Status, rec.Answers)

	created, err := scanAttempt(row)
	if errors.Is(err, service.ErrNotFound) {
		// Lost the insert race; return the stored record.
		return scanAttempt(r.pool.QueryRow(ctx,
			`SELECT `+attemptColumns+`
			 FROM attempt_records
			 WHERE session_id = $1 AND student_id = $2 AND attempt_number = $3`,
			rec.SessionID, rec.StudentID, rec.AttemptNumber))
	}
	return created, err
}

// StartAttempt moves not_started → in_progress, stamping startedAt and the
// deadline. A losing call still returns the current record so the caller can
// observe the winner's state.
func (r *AttemptRepository) StartAttempt(ctx context.Context, id uuid.UUID, startedAt, deadline time.Time) (*model.AttemptRecord, bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempt_records
		 SET status = $1, started_at = $2, deadline = $3, updated_at = now()
		 WHERE id = $4 AND status = $5`,
		model.AttemptStatusInProgress, startedAt, deadline, id, model.AttemptStatusNotStarted)
	if err != nil {
		return nil, false, err
	}

	rec, err := r.getByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return rec, tag.RowsAffected() > 0, nil
}

// UpsertAnswer writes one answer into the answers document while the record
// is in_progress. Last write per question wins.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, id uuid.UUID, questionID string, answer []string) (bool, error) {
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return false, fmt.Errorf("marshal answer: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE attempt_records
		 SET answers = jsonb_set(COALESCE(answers, '{}'::jsonb), ARRAY[$1], $2::jsonb, true),
		     updated_at = now()
		 WHERE id = $3 AND status = $4`,
		questionID, answerJSON, id, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SettleAttempt moves in_progress → submitted|expired exactly once.
func (r *AttemptRepository) SettleAttempt(ctx context.Context, id uuid.UUID, to model.AttemptStatus, submittedAt *time.Time) (*model.AttemptRecord, bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempt_records
		 SET status = $1, submitted_at = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		to, submittedAt, id, model.AttemptStatusInProgress)
	if err != nil {
		return nil, false, err
	}

	rec, err := r.getByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return rec, tag.RowsAffected() > 0, nil
}

// CompleteAttempt moves submitted → completed, attaching the graded result.
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, id uuid.UUID, result *model.AttemptResult) (*model.AttemptRecord, bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempt_records
		 SET status = $1, result = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		model.AttemptStatusCompleted, result, id, model.AttemptStatusSubmitted)
	if err != nil {
		return nil, false, err
	}

	rec, err := r.getByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return rec, tag.RowsAffected() > 0, nil
}

// HasAttempts reports whether any attempt record references the session.
func (r *AttemptRepository) HasAttempts(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attempt_records WHERE session_id = $1)`, sessionID,
	).Scan(&exists)
	return exists, err
}

// ExpireOverdue settles every in_progress record whose deadline has passed.
func (r *AttemptRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempt_records
		 SET status = $1, updated_at = now()
		 WHERE status = $2 AND deadline < $3`,
		model.AttemptStatusExpired, model.AttemptStatusInProgress, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListAttemptsBySession returns all attempt records for a session, newest first.
func (r *AttemptRepository) ListAttemptsBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]model.AttemptRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempt_records WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempt_records
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []model.AttemptRecord
	for rows.Next() {
		var a model.AttemptRecord
		if err := rows.Scan(&a.ID, &a.SessionID, &a.StudentID, &a.AttemptNumber, &a.Status,
			&a.StartedAt, &a.Deadline, &a.SubmittedAt, &a.Answers, &a.Result,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if a.Answers == nil {
			a.Answers = map[string][]string{}
		}
		records = append(records, a)
	}
	return records, total, rows.Err()
}
