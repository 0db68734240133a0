package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/lifecycle"
	"github.com/examflow/examflow-backend/internal/model"
)

// SessionService handles the authority side of the lifecycle: defining
// sessions and driving their status transitions.
type SessionService struct {
	sessions SessionStore
	attempts AttemptStore
	stats    StatsStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions SessionStore, attempts AttemptStore, stats StatsStore, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		attempts: attempts,
		stats:    stats,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
	}
}

// defaultPolicy applies when the authority omits the policy block.
var defaultPolicy = model.AttemptPolicy{
	MaxAttempts:  1,
	PassingScore: 60,
	AutoGrade:    true,
}

// Create validates and stores a new session as draft.
func (s *SessionService) Create(ctx context.Context, authorityID int, req *model.CreateSessionRequest) (*model.ExamSession, error) {
	policy := defaultPolicy
	if req.Policy != nil {
		policy = *req.Policy
	}

	session := &model.ExamSession{
		ID:              uuid.New(),
		Title:           req.Title,
		AuthorityID:     authorityID,
		SchedulingType:  req.SchedulingType,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		AvailableFrom:   req.AvailableFrom,
		AvailableUntil:  req.AvailableUntil,
		DurationMinutes: req.DurationMinutes,
		PaperRef:        req.PaperRef,
		Policy:          policy,
		Status:          model.SessionStatusDraft,
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().Str("session_id", session.ID.String()).Msg("Session created")
	return session, nil
}

// Get returns a session definition.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return s.sessions.GetSession(ctx, id)
}

// List returns one authority's sessions with pagination.
func (s *SessionService) List(ctx context.Context, authorityID, page, perPage int) ([]model.ExamSession, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.sessions.ListSessionsByAuthority(ctx, authorityID, perPage, (page-1)*perPage)
}

// ListAttempts returns a session's attempt records for authority review.
func (s *SessionService) ListAttempts(ctx context.Context, id uuid.UUID, page, perPage int) ([]model.AttemptRecord, int, error) {
	if _, err := s.sessions.GetSession(ctx, id); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.attempts.ListAttemptsBySession(ctx, id, perPage, (page-1)*perPage)
}

// Publish moves a draft session to published.
func (s *SessionService) Publish(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, model.SessionStatusPublished)
}

// Activate explicitly opens a published session.
func (s *SessionService) Activate(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, model.SessionStatusActive)
}

// End closes a session. For scheduled sessions the ended state is also
// derived from the clock; the explicit transition exists for on-demand
// sessions and early closes.
func (s *SessionService) End(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, model.SessionStatusEnded)
}

// Cancel moves any non-terminal session to cancelled. The transition is
// visible to student operations immediately; in-flight attempts are not
// force-terminated but no new join/start/submit succeeds afterwards.
func (s *SessionService) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, model.SessionStatusCancelled)
}

// transition applies one authority status change under the lifecycle table,
// using a compare-and-swap on the stored status.
func (s *SessionService) transition(ctx context.Context, id uuid.UUID, to model.SessionStatus) error {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !lifecycle.CanTransitionSession(session.Status, to) {
		return ErrInvalidTransition
	}

	ok, err := s.sessions.UpdateSessionStatus(ctx, id, []model.SessionStatus{session.Status}, to)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if !ok {
		// Lost a race against another authority action; re-read to decide.
		current, err := s.sessions.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == to {
			return nil
		}
		return ErrInvalidTransition
	}

	s.log.Info().
		Str("session_id", id.String()).
		Str("from", string(session.Status)).
		Str("to", string(to)).
		Msg("Session status changed")
	return nil
}

// UpdateWindow edits the session's time bounds. Allowed only while the
// session is draft or published and no attempt record references it yet.
func (s *SessionService) UpdateWindow(ctx context.Context, id uuid.UUID, req *model.UpdateWindowRequest) (*model.ExamSession, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusDraft && session.Status != model.SessionStatusPublished {
		return nil, ErrWindowLocked
	}

	referenced, err := s.attempts.HasAttempts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check attempts: %w", err)
	}
	if referenced {
		return nil, ErrWindowLocked
	}

	if req.WindowStart != nil {
		session.WindowStart = req.WindowStart
	}
	if req.WindowEnd != nil {
		session.WindowEnd = req.WindowEnd
	}
	if req.AvailableFrom != nil {
		session.AvailableFrom = req.AvailableFrom
	}
	if req.AvailableUntil != nil {
		session.AvailableUntil = req.AvailableUntil
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateSessionWindow(ctx, session); err != nil {
		return nil, fmt.Errorf("update window: %w", err)
	}
	return session, nil
}

// Delete removes a session definition. Refused while attempt records still
// reference it so attempt history is never orphaned.
func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sessions.GetSession(ctx, id); err != nil {
		return err
	}

	referenced, err := s.attempts.HasAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("check attempts: %w", err)
	}
	if referenced {
		return ErrSessionReferenced
	}
	return s.sessions.DeleteSession(ctx, id)
}

// Stats returns the aggregate counters maintained by the settlement worker.
func (s *SessionService) Stats(ctx context.Context, id uuid.UUID) (*SessionStats, error) {
	if _, err := s.sessions.GetSession(ctx, id); err != nil {
		return nil, err
	}
	stats, err := s.stats.GetSessionStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session stats: %w", err)
	}
	return stats, nil
}

// errIsNotFound reports whether err is the storage not-found sentinel.
func errIsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
