package service

import (
	"context"
	"fmt"
	"time"

	"github.com/examflow/examflow-backend/internal/lifecycle"
	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/schedule"
)

// AttemptLedger tracks attempt counts per (session, student) pair and
// enforces the attempt-limit invariant. It never creates records itself;
// the orchestrator does that after the ledger approves.
type AttemptLedger struct {
	attempts AttemptStore
}

// NewAttemptLedger creates a new AttemptLedger.
func NewAttemptLedger(attempts AttemptStore) *AttemptLedger {
	return &AttemptLedger{attempts: attempts}
}

// CanStartNewAttempt decides whether the student may open a fresh attempt
// at now. It returns the existing open record (not_started or in_progress)
// when one exists — callers must reuse it instead of creating a duplicate.
// A (nil, 0, nil) return means a new record may be created; the int is the
// attempt number to assign to it.
func (l *AttemptLedger) CanStartNewAttempt(ctx context.Context, session *model.ExamSession, studentID int, now time.Time) (*model.AttemptRecord, int, error) {
	if !lifecycle.Joinable(schedule.EffectiveStatus(session, now)) || !schedule.IsWithinWindow(session, now) {
		return nil, 0, ErrSessionNotJoinable
	}

	latest, err := l.attempts.GetLatestAttempt(ctx, session.ID, studentID)
	if err != nil && !errIsNotFound(err) {
		return nil, 0, fmt.Errorf("get latest attempt: %w", err)
	}
	if latest != nil && !latest.Settled() {
		return latest, 0, nil
	}

	total, settled, err := l.attempts.CountAttempts(ctx, session.ID, studentID)
	if err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}
	if settled >= session.Policy.MaxAttempts {
		return nil, 0, ErrAttemptLimitExceeded
	}
	return nil, total + 1, nil
}

// RecordOutcome settles an in-progress attempt exactly once. A second call
// for an already-settled record is a no-op that returns the settled record,
// so client retries of submit/expire are tolerated.
func (l *AttemptLedger) RecordOutcome(ctx context.Context, rec *model.AttemptRecord, outcome model.AttemptStatus, submittedAt *time.Time) (*model.AttemptRecord, error) {
	if rec.Settled() || rec.Status == model.AttemptStatusSubmitted {
		return rec, nil
	}
	if !lifecycle.CanTransitionAttempt(rec.Status, outcome) {
		return nil, ErrAttemptNotActive
	}

	settled, won, err := l.attempts.SettleAttempt(ctx, rec.ID, outcome, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("settle attempt: %w", err)
	}
	_ = won // losing the swap still yields the settled record
	return settled, nil
}
