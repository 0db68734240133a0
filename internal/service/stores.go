package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/examflow/examflow-backend/internal/model"
)

// SessionStore is the persistence contract for exam session definitions.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	CreateSession(ctx context.Context, s *model.ExamSession) error
	// UpdateSessionStatus performs a compare-and-swap: the status changes to
	// `to` only if the stored status is one of `from`. Returns false when the
	// swap lost (stored status was not in `from`).
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, from []model.SessionStatus, to model.SessionStatus) (bool, error)
	UpdateSessionWindow(ctx context.Context, s *model.ExamSession) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	// ListSessionsByAuthority returns one authority's sessions newest first,
	// plus the total count for pagination.
	ListSessionsByAuthority(ctx context.Context, authorityID, limit, offset int) ([]model.ExamSession, int, error)
}

// AttemptStore is the persistence contract for attempt records. Every
// status-changing method is a compare-and-swap keyed on the current status
// so concurrent duplicate operations collapse to a single winner.
type AttemptStore interface {
	// GetLatestAttempt returns the record with the highest attempt number
	// for the pair, or ErrNotFound.
	GetLatestAttempt(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error)
	// CountAttempts returns (total, settled) attempt counts for the pair.
	CountAttempts(ctx context.Context, sessionID uuid.UUID, studentID int) (total, settled int, err error)
	// CreateAttempt inserts the record idempotently: on a conflict for
	// (session, student, attempt_number) the already-stored record is
	// returned instead.
	CreateAttempt(ctx context.Context, rec *model.AttemptRecord) (*model.AttemptRecord, error)
	// StartAttempt moves not_started → in_progress, stamping startedAt and
	// deadline. Returns the current record and whether this call won the
	// swap; a losing call still returns the winner's record.
	StartAttempt(ctx context.Context, id uuid.UUID, startedAt, deadline time.Time) (*model.AttemptRecord, bool, error)
	// UpsertAnswer writes one answer (last write per question wins) while
	// the record is in_progress. Returns false if the record left
	// in_progress concurrently.
	UpsertAnswer(ctx context.Context, id uuid.UUID, questionID string, answer []string) (bool, error)
	// SettleAttempt moves in_progress → submitted|expired exactly once.
	SettleAttempt(ctx context.Context, id uuid.UUID, to model.AttemptStatus, submittedAt *time.Time) (*model.AttemptRecord, bool, error)
	// CompleteAttempt moves submitted → completed, attaching the graded
	// result.
	CompleteAttempt(ctx context.Context, id uuid.UUID, result *model.AttemptResult) (*model.AttemptRecord, bool, error)
	// HasAttempts reports whether any attempt references the session.
	HasAttempts(ctx context.Context, sessionID uuid.UUID) (bool, error)
	// ExpireOverdue transitions every in_progress record whose deadline has
	// passed into expired and returns how many were swept.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	// ListAttemptsBySession returns a session's attempt records newest first,
	// plus the total count for pagination.
	ListAttemptsBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]model.AttemptRecord, int, error)
}

// PaperResolver resolves an opaque paper reference into the ordered question
// key set. Implementations must be idempotent; the engine never mutates the
// returned data.
type PaperResolver interface {
	ResolveQuestionSet(ctx context.Context, paperRef string) ([]model.QuestionKey, error)
}

// SettlementEvent announces a settled attempt for asynchronous aggregation.
type SettlementEvent struct {
	SessionID string              `json:"session_id"`
	StudentID int                 `json:"student_id"`
	AttemptID string              `json:"attempt_id"`
	Status    model.AttemptStatus `json:"status"`
	Score     *float64            `json:"score,omitempty"`
}

// EventQueue publishes settlement events. Publishing is best effort: the
// orchestrator logs failures and never blocks a student operation on it.
type EventQueue interface {
	PublishSettlement(ctx context.Context, e SettlementEvent) error
}

// SessionStats is the aggregate view maintained by the settlement worker.
type SessionStats struct {
	Completed int     `json:"completed"`
	Expired   int     `json:"expired"`
	ScoreSum  float64 `json:"score_sum"`
}

// StatsStore reads the per-session aggregates.
type StatsStore interface {
	GetSessionStats(ctx context.Context, sessionID uuid.UUID) (*SessionStats, error)
}
