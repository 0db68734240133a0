package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examflow/examflow-backend/internal/model"
)

// memStore is an in-memory implementation of SessionStore and AttemptStore
// with the same compare-and-swap semantics as the SQL repositories. Tests
// drive the services against it.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
	attempts map[uuid.UUID]*model.AttemptRecord
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[uuid.UUID]*model.ExamSession{},
		attempts: map[uuid.UUID]*model.AttemptRecord{},
	}
}

func copyAttempt(a *model.AttemptRecord) *model.AttemptRecord {
	cp := *a
	cp.Answers = make(map[string][]string, len(a.Answers))
	for k, v := range a.Answers {
		cp.Answers[k] = append([]string(nil), v...)
	}
	if a.Result != nil {
		r := *a.Result
		cp.Result = &r
	}
	return &cp
}

func copySession(s *model.ExamSession) *model.ExamSession {
	cp := *s
	return &cp
}

// ─── SessionStore ──────────────────────────────────────────────────────────

func (m *memStore) GetSession(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (m *memStore) CreateSession(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *memStore) UpdateSessionStatus(_ context.Context, id uuid.UUID, from []model.SessionStatus, to model.SessionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false, ErrNotFound
	}
	for _, f := range from {
		if s.Status == f {
			s.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateSessionWindow(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	stored.WindowStart = s.WindowStart
	stored.WindowEnd = s.WindowEnd
	stored.AvailableFrom = s.AvailableFrom
	stored.AvailableUntil = s.AvailableUntil
	return nil
}

func (m *memStore) ListSessionsByAuthority(_ context.Context, authorityID, limit, offset int) ([]model.ExamSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamSession
	for _, s := range m.sessions {
		if s.AuthorityID == authorityID {
			out = append(out, *copySession(s))
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// ─── AttemptStore ──────────────────────────────────────────────────────────

func (m *memStore) GetLatestAttempt(_ context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.AttemptRecord
	for _, a := range m.attempts {
		if a.SessionID != sessionID || a.StudentID != studentID {
			continue
		}
		if latest == nil || a.AttemptNumber > latest.AttemptNumber {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyAttempt(latest), nil
}

func (m *memStore) CountAttempts(_ context.Context, sessionID uuid.UUID, studentID int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, settled := 0, 0
	for _, a := range m.attempts {
		if a.SessionID != sessionID || a.StudentID != studentID {
			continue
		}
		total++
		if a.Settled() {
			settled++
		}
	}
	return total, settled, nil
}

func (m *memStore) CreateAttempt(_ context.Context, rec *model.AttemptRecord) (*model.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.SessionID == rec.SessionID && a.StudentID == rec.StudentID && a.AttemptNumber == rec.AttemptNumber {
			return copyAttempt(a), nil
		}
	}
	cp := copyAttempt(rec)
	cp.CreatedAt = time.Now()
	m.attempts[cp.ID] = cp
	return copyAttempt(cp), nil
}

func (m *memStore) StartAttempt(_ context.Context, id uuid.UUID, startedAt, deadline time.Time) (*model.AttemptRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if a.Status != model.AttemptStatusNotStarted {
		return copyAttempt(a), false, nil
	}
	a.Status = model.AttemptStatusInProgress
	a.StartedAt = &startedAt
	a.Deadline = &deadline
	return copyAttempt(a), true, nil
}

func (m *memStore) UpsertAnswer(_ context.Context, id uuid.UUID, questionID string, answer []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	a.Answers[questionID] = append([]string(nil), answer...)
	return true, nil
}

func (m *memStore) SettleAttempt(_ context.Context, id uuid.UUID, to model.AttemptStatus, submittedAt *time.Time) (*model.AttemptRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if a.Status != model.AttemptStatusInProgress {
		return copyAttempt(a), false, nil
	}
	a.Status = to
	a.SubmittedAt = submittedAt
	return copyAttempt(a), true, nil
}

func (m *memStore) CompleteAttempt(_ context.Context, id uuid.UUID, result *model.AttemptResult) (*model.AttemptRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if a.Status != model.AttemptStatusSubmitted {
		return copyAttempt(a), false, nil
	}
	a.Status = model.AttemptStatusCompleted
	r := *result
	a.Result = &r
	return copyAttempt(a), true, nil
}

func (m *memStore) HasAttempts(_ context.Context, sessionID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.attempts {
		if a.Status == model.AttemptStatusInProgress && a.Deadline != nil && now.After(*a.Deadline) {
			a.Status = model.AttemptStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListAttemptsBySession(_ context.Context, sessionID uuid.UUID, limit, offset int) ([]model.AttemptRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttemptRecord
	for _, a := range m.attempts {
		if a.SessionID == sessionID {
			out = append(out, *copyAttempt(a))
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

// ─── Collaborator fakes ────────────────────────────────────────────────────

type fakeResolver struct {
	papers map[string][]model.QuestionKey
	err    error
}

func (f *fakeResolver) ResolveQuestionSet(_ context.Context, paperRef string) ([]model.QuestionKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.papers[paperRef], nil
}

type recordingQueue struct {
	mu     sync.Mutex
	events []SettlementEvent
}

func (q *recordingQueue) PublishSettlement(_ context.Context, e SettlementEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
	return nil
}

type fakeStats struct {
	stats SessionStats
}

func (f *fakeStats) GetSessionStats(_ context.Context, _ uuid.UUID) (*SessionStats, error) {
	s := f.stats
	return &s, nil
}
