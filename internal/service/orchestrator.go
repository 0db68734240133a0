package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/grading"
	"github.com/examflow/examflow-backend/internal/lifecycle"
	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/schedule"
)

// Orchestrator is the student-facing façade over the exam lifecycle:
// join, start, submit-answer, finish and the live progress read. Every
// operation re-evaluates the clock at call time and relies on the store's
// compare-and-swap semantics so concurrent duplicates for the same
// (session, student) pair collapse to one winner.
type Orchestrator struct {
	sessions SessionStore
	attempts AttemptStore
	ledger   *AttemptLedger
	resolver PaperResolver
	events   EventQueue
	log      zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	sessions SessionStore,
	attempts AttemptStore,
	resolver PaperResolver,
	events EventQueue,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		attempts: attempts,
		ledger:   NewAttemptLedger(attempts),
		resolver: resolver,
		events:   events,
		log:      log.With().Str("component", "orchestrator").Logger(),
		now:      time.Now,
	}
}

// Join validates eligibility and returns the student's open attempt record,
// creating one at not_started when none exists. Idempotent: calling join
// twice returns the same record.
func (o *Orchestrator) Join(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	open, attemptNumber, err := o.ledger.CanStartNewAttempt(ctx, session, studentID, o.now())
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}

	rec := &model.AttemptRecord{
		ID:            uuid.New(),
		SessionID:     sessionID,
		StudentID:     studentID,
		AttemptNumber: attemptNumber,
		Status:        model.AttemptStatusNotStarted,
		Answers:       map[string][]string{},
	}

	// CreateAttempt is idempotent on (session, student, attempt_number):
	// a concurrent join loses the insert and receives the winner's record.
	created, err := o.attempts.CreateAttempt(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return created, nil
}

// Start transitions a joined record from not_started to in_progress,
// stamping startedAt and the effective deadline. Idempotent: an already
// in-progress record is returned unchanged, and a losing concurrent start
// observes the winner's record.
func (o *Orchestrator) Start(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec, err := o.attempts.GetLatestAttempt(ctx, sessionID, studentID)
	if errIsNotFound(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}

	switch rec.Status {
	case model.AttemptStatusInProgress:
		return rec, nil
	case model.AttemptStatusNotStarted:
		// fall through to the transition below
	default:
		// The latest attempt is settled or awaiting grading; the ledger
		// decides whether the real problem is the attempt limit.
		if _, _, err := o.ledger.CanStartNewAttempt(ctx, session, studentID, o.now()); err != nil {
			return nil, err
		}
		return nil, ErrRecordNotFound
	}

	// Re-validate status and window at call time: the clock has moved since
	// join.
	now := o.now()
	effective := schedule.EffectiveStatus(session, now)
	if effective == model.SessionStatusEnded {
		return nil, ErrAttemptExpiredBeforeStart
	}
	if !lifecycle.Joinable(effective) {
		return nil, ErrSessionNotJoinable
	}
	if !schedule.IsWithinWindow(session, now) {
		return nil, ErrSessionNotJoinable
	}

	deadline := schedule.EffectiveDeadline(session, now)
	started, won, err := o.attempts.StartAttempt(ctx, rec.ID, now, deadline)
	if err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}
	if !won && started.Status != model.AttemptStatusInProgress {
		// The record left not_started but is not running — expired by a
		// concurrent sweep.
		return nil, ErrAttemptExpiredBeforeStart
	}
	return started, nil
}

// SubmitAnswer upserts one answer into the in-progress attempt. Last write
// per question wins; submitting the same question twice overwrites rather
// than duplicates.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, studentID int, questionID string, answer []string) (*model.AttemptRecord, error) {
	rec, err := o.activeAttempt(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}

	// An authority cancel or end must be visible immediately: the running
	// attempt is not force-terminated, but no further writes land.
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if lifecycle.SessionTerminal(schedule.EffectiveStatus(session, o.now())) {
		return nil, ErrSessionNotJoinable
	}

	ok, err := o.attempts.UpsertAnswer(ctx, rec.ID, questionID, answer)
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	if !ok {
		// Status changed between the deadline check and the write.
		return nil, ErrAttemptExpired
	}

	rec, err = o.attempts.GetLatestAttempt(ctx, sessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	return rec, nil
}

// Finish settles the attempt: in_progress → submitted, then → completed
// once grading ran (when the session auto-grades). Retried calls on an
// already submitted or completed record converge on the same outcome.
func (o *Orchestrator) Finish(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec, err := o.attempts.GetLatestAttempt(ctx, sessionID, studentID)
	if errIsNotFound(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}

	switch rec.Status {
	case model.AttemptStatusCompleted:
		return rec, nil
	case model.AttemptStatusSubmitted:
		// A prior finish stopped before grading completed; resume it.
		return o.gradeSubmitted(ctx, session, rec)
	case model.AttemptStatusExpired:
		return nil, ErrAttemptExpired
	case model.AttemptStatusNotStarted:
		return nil, ErrAttemptNotActive
	}

	now := o.now()
	if rec.Deadline != nil && now.After(*rec.Deadline) {
		o.expire(ctx, rec)
		return nil, ErrAttemptExpired
	}

	submittedAt := now
	settled, err := o.ledger.RecordOutcome(ctx, rec, model.AttemptStatusSubmitted, &submittedAt)
	if err != nil {
		return nil, err
	}

	switch settled.Status {
	case model.AttemptStatusExpired:
		// A concurrent sweep settled it first.
		return nil, ErrAttemptExpired
	case model.AttemptStatusCompleted:
		return settled, nil
	}

	return o.gradeSubmitted(ctx, session, settled)
}

// gradeSubmitted runs the grading engine over a submitted attempt and moves
// it to completed. When the session defers grading the record stays
// submitted pending manual review.
func (o *Orchestrator) gradeSubmitted(ctx context.Context, session *model.ExamSession, rec *model.AttemptRecord) (*model.AttemptRecord, error) {
	if !session.Policy.AutoGrade {
		return rec, nil
	}

	// The question key is fetched once per finish call, never held across
	// suspension points.
	key, err := o.resolver.ResolveQuestionSet(ctx, session.PaperRef)
	if err != nil {
		return nil, fmt.Errorf("resolve question set: %w", err)
	}

	result := grading.Grade(rec.Answers, key, session.Policy.PassingScore)
	completed, won, err := o.attempts.CompleteAttempt(ctx, rec.ID, &result)
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if won {
		o.publishSettlement(ctx, completed, &result.Score)
	}
	return completed, nil
}

// GetProgress returns the live attempt view. The remaining time is computed
// from the deadline at call time; an overdue in-progress record is expired
// on read so the view never shows a running attempt past its deadline.
func (o *Orchestrator) GetProgress(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.Progress, error) {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec, err := o.attempts.GetLatestAttempt(ctx, sessionID, studentID)
	if errIsNotFound(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}

	now := o.now()
	if rec.Status == model.AttemptStatusInProgress && rec.Deadline != nil && now.After(*rec.Deadline) {
		rec = o.expire(ctx, rec)
	}

	var remaining int64
	if rec.Status == model.AttemptStatusInProgress && rec.Deadline != nil {
		remaining = int64(rec.Deadline.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}

	total := 0
	if key, err := o.resolver.ResolveQuestionSet(ctx, session.PaperRef); err == nil {
		total = len(key)
	} else {
		o.log.Warn().Err(err).Str("paper_ref", session.PaperRef).Msg("Resolve question set failed")
	}

	return &model.Progress{
		Status:           rec.Status,
		RemainingSeconds: remaining,
		AnsweredCount:    len(rec.Answers),
		TotalQuestions:   total,
	}, nil
}

// activeAttempt loads the pair's latest record and verifies it is running
// and inside its deadline, expiring it passively when overdue.
func (o *Orchestrator) activeAttempt(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	rec, err := o.attempts.GetLatestAttempt(ctx, sessionID, studentID)
	if errIsNotFound(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}

	switch rec.Status {
	case model.AttemptStatusInProgress:
	case model.AttemptStatusExpired:
		return nil, ErrAttemptExpired
	default:
		return nil, ErrAttemptNotActive
	}

	if rec.Deadline != nil && o.now().After(*rec.Deadline) {
		o.expire(ctx, rec)
		return nil, ErrAttemptExpired
	}
	return rec, nil
}

// expire settles an overdue in-progress record. Best effort: a failure is
// logged and the sweep worker will retry.
func (o *Orchestrator) expire(ctx context.Context, rec *model.AttemptRecord) *model.AttemptRecord {
	settled, err := o.ledger.RecordOutcome(ctx, rec, model.AttemptStatusExpired, nil)
	if err != nil {
		o.log.Error().Err(err).Str("attempt_id", rec.ID.String()).Msg("Passive expiry failed")
		return rec
	}
	o.publishSettlement(ctx, settled, nil)
	return settled
}

// publishSettlement announces a settled attempt on the event queue.
// Failures are logged only; student operations never block on the queue.
func (o *Orchestrator) publishSettlement(ctx context.Context, rec *model.AttemptRecord, score *float64) {
	if o.events == nil {
		return
	}
	e := SettlementEvent{
		SessionID: rec.SessionID.String(),
		StudentID: rec.StudentID,
		AttemptID: rec.ID.String(),
		Status:    rec.Status,
		Score:     score,
	}
	if err := o.events.PublishSettlement(ctx, e); err != nil {
		o.log.Warn().Err(err).Str("attempt_id", rec.ID.String()).Msg("Settlement publish failed")
	}
}
