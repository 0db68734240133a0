package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/service"
)

// SessionRepository handles exam session definition data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, title, authority_id, scheduling_type, window_start, window_end,
	available_from, available_until, duration_minutes, paper_ref, policy, status,
	created_at, updated_at`

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(&s.ID, &s.Title, &s.AuthorityID, &s.SchedulingType,
		&s.WindowStart, &s.WindowEnd, &s.AvailableFrom, &s.AvailableUntil,
		&s.DurationMinutes, &s.PaperRef, &s.Policy, &s.Status,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession retrieves a session definition by its UUID.
func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// CreateSession inserts a new session definition.
func (r *SessionRepository) CreateSession(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, title, authority_id, scheduling_type, window_start,
		        window_end, available_from, available_until, duration_minutes, paper_ref,
		        policy, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		s.ID, s.Title, s.AuthorityID, s.SchedulingType, s.WindowStart, s.WindowEnd,
		s.AvailableFrom, s.AvailableUntil, s.DurationMinutes, s.PaperRef, s.Policy, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// UpdateSessionStatus swaps the status only when the stored one is in `from`,
// so concurrent authority actions collapse to a single winner.
func (r *SessionRepository) UpdateSessionStatus(ctx context.Context, id uuid.UUID, from []model.SessionStatus, to model.SessionStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, updated_at = now()
		 WHERE id = $2 AND status = ANY($3)`,
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateSessionWindow persists the session's time bounds.
func (r *SessionRepository) UpdateSessionWindow(ctx context.Context, s *model.ExamSession) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET window_start = $1, window_end = $2, available_from = $3,
		     available_until = $4, updated_at = now()
		 WHERE id = $5`,
		s.WindowStart, s.WindowEnd, s.AvailableFrom, s.AvailableUntil, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session definition.
func (r *SessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exam_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// ListSessionsByAuthority retrieves session definitions for one authority with pagination.
func (r *SessionRepository) ListSessionsByAuthority(ctx context.Context, authorityID, limit, offset int) ([]model.ExamSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE authority_id = $1`, authorityID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE authority_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.Title, &s.AuthorityID, &s.SchedulingType,
			&s.WindowStart, &s.WindowEnd, &s.AvailableFrom, &s.AvailableUntil,
			&s.DurationMinutes, &s.PaperRef, &s.Policy, &s.Status,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}
