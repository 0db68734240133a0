package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/model"
)

var baseT = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memStore
	queue    *recordingQueue
	orch     *Orchestrator
	session  *model.ExamSession
	clock    *time.Time
	resolver *fakeResolver
}

// newFixture builds an orchestrator over the in-memory store with a
// controllable clock and a scheduled session [baseT, baseT+1h], 60 minute
// duration, 1 attempt, auto-graded.
func newFixture(t *testing.T, mutate func(*model.ExamSession)) *fixture {
	t.Helper()

	start := baseT
	end := baseT.Add(time.Hour)
	session := &model.ExamSession{
		ID:              uuid.New(),
		Title:           "Midterm",
		SchedulingType:  model.SchedulingScheduled,
		WindowStart:     &start,
		WindowEnd:       &end,
		DurationMinutes: 60,
		PaperRef:        "paper-1",
		Policy: model.AttemptPolicy{
			MaxAttempts:  1,
			PassingScore: 50,
			AutoGrade:    true,
		},
		Status: model.SessionStatusPublished,
	}
	if mutate != nil {
		mutate(session)
	}

	store := newMemStore()
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	resolver := &fakeResolver{papers: map[string][]model.QuestionKey{
		"paper-1": {
			{QuestionID: "q1", Type: model.QuestionSingleChoice, AnswerKey: []string{"B"}, Points: 50, OrderNum: 1},
			{QuestionID: "q2", Type: model.QuestionSingleChoice, AnswerKey: []string{"C"}, Points: 50, OrderNum: 2},
		},
	}}
	queue := &recordingQueue{}

	orch := NewOrchestrator(store, store, resolver, queue, zerolog.Nop())
	clock := baseT.Add(10 * time.Second)
	orch.now = func() time.Time { return clock }

	return &fixture{store: store, queue: queue, orch: orch, session: session, clock: &clock, resolver: resolver}
}

func (f *fixture) advanceTo(t time.Time) { *f.clock = t }

func TestJoinIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.orch.Join(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := f.orch.Join(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("join not idempotent: ids %s vs %s", first.ID, second.ID)
	}
	if second.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", second.AttemptNumber)
	}
	if total, _, _ := f.store.CountAttempts(ctx, f.session.ID, 7); total != 1 {
		t.Errorf("attempt count = %d, want 1", total)
	}
}

func TestJoinOutsideWindow(t *testing.T) {
	f := newFixture(t, nil)
	f.advanceTo(baseT.Add(-time.Minute))

	if _, err := f.orch.Join(context.Background(), f.session.ID, 7); !errors.Is(err, ErrSessionNotJoinable) {
		t.Errorf("join before window = %v, want ErrSessionNotJoinable", err)
	}
}

func TestJoinNonJoinableStatus(t *testing.T) {
	for _, status := range []model.SessionStatus{model.SessionStatusDraft, model.SessionStatusCancelled, model.SessionStatusEnded} {
		f := newFixture(t, func(s *model.ExamSession) { s.Status = status })
		if _, err := f.orch.Join(context.Background(), f.session.ID, 7); !errors.Is(err, ErrSessionNotJoinable) {
			t.Errorf("join with status %s = %v, want ErrSessionNotJoinable", status, err)
		}
	}
}

func TestStartBeforeJoin(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.orch.Start(context.Background(), f.session.ID, 7); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("start before join = %v, want ErrRecordNotFound", err)
	}
}

func TestStartStampsDeadlineCappedByWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.Join(ctx, f.session.ID, 7); err != nil {
		t.Fatalf("join: %v", err)
	}
	rec, err := f.orch.Start(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if rec.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want in_progress", rec.Status)
	}
	// Started at T+10s with 60m duration: the raw deadline T+3610s must be
	// capped to the window end T+3600s.
	if rec.Deadline == nil || !rec.Deadline.Equal(baseT.Add(3600*time.Second)) {
		t.Errorf("deadline = %v, want window end %s", rec.Deadline, baseT.Add(3600*time.Second))
	}
}

func TestStartIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.Join(ctx, f.session.ID, 7); err != nil {
		t.Fatalf("join: %v", err)
	}
	first, err := f.orch.Start(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.advanceTo(baseT.Add(5 * time.Minute))
	second, err := f.orch.Start(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.ID != second.ID || !second.StartedAt.Equal(*first.StartedAt) {
		t.Error("second start must return the first start's record unchanged")
	}
}

func TestStartConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.Join(ctx, f.session.ID, 7); err != nil {
		t.Fatalf("join: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	records := make([]*model.AttemptRecord, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = f.orch.Start(ctx, f.session.ID, 7)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("start %d: %v", i, errs[i])
		}
		if records[i].ID != records[0].ID {
			t.Fatalf("start %d observed record %s, want %s", i, records[i].ID, records[0].ID)
		}
		if records[i].Status != model.AttemptStatusInProgress {
			t.Fatalf("start %d observed status %s", i, records[i].Status)
		}
	}
	if total, _, _ := f.store.CountAttempts(ctx, f.session.ID, 7); total != 1 {
		t.Errorf("attempt count = %d, want 1", total)
	}
}

func TestStartAfterWindowClosed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.Join(ctx, f.session.ID, 7); err != nil {
		t.Fatalf("join: %v", err)
	}
	f.advanceTo(baseT.Add(2 * time.Hour))

	if _, err := f.orch.Start(ctx, f.session.ID, 7); !errors.Is(err, ErrAttemptExpiredBeforeStart) {
		t.Errorf("start after window = %v, want ErrAttemptExpiredBeforeStart", err)
	}
}

func TestSubmitAnswerUpsert(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)

	if _, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q1", []string{"A"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q1", []string{"B"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	if len(rec.Answers) != 1 {
		t.Errorf("answers len = %d, want 1 (overwrite, not duplicate)", len(rec.Answers))
	}
	if got := rec.Answers["q1"]; len(got) != 1 || got[0] != "B" {
		t.Errorf("answer = %v, want last write [B]", got)
	}
}

func TestSubmitAnswerAfterDeadline(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	f.advanceTo(baseT.Add(3601 * time.Second))

	if _, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q1", []string{"B"}); !errors.Is(err, ErrAttemptExpired) {
		t.Errorf("submit past deadline = %v, want ErrAttemptExpired", err)
	}

	// The passive on-read check must have settled the record.
	rec, err := f.store.GetLatestAttempt(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if rec.Status != model.AttemptStatusExpired {
		t.Errorf("status = %s, want expired", rec.Status)
	}
}

func TestSubmitAnswerAfterCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)

	if _, err := f.store.UpdateSessionStatus(ctx, f.session.ID, []model.SessionStatus{model.SessionStatusPublished}, model.SessionStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q1", []string{"B"}); !errors.Is(err, ErrSessionNotJoinable) {
		t.Errorf("submit after cancel = %v, want ErrSessionNotJoinable", err)
	}
}

func TestFinishGradesAndCompletes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	if _, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q1", []string{"B"}); err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if _, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q2", []string{"D"}); err != nil {
		t.Fatalf("submit q2: %v", err)
	}

	rec, err := f.orch.Finish(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if rec.Status != model.AttemptStatusCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}
	if rec.SubmittedAt == nil {
		t.Error("submittedAt not stamped")
	}
	r := rec.Result
	if r == nil {
		t.Fatal("result missing after auto-graded finish")
	}
	if r.Score != 50 || r.MaxScore != 100 || r.CorrectCount != 1 || r.TotalQuestions != 2 {
		t.Errorf("result = %+v, want score 50/100, 1 of 2 correct", r)
	}
	if !r.IsPassed {
		t.Error("50 >= passing score 50 must pass")
	}

	if len(f.queue.events) != 1 || f.queue.events[0].Status != model.AttemptStatusCompleted {
		t.Errorf("settlement events = %+v, want one completed event", f.queue.events)
	}
}

func TestFinishIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	first, err := f.orch.Finish(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	second, err := f.orch.Finish(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("retried finish: %v", err)
	}
	if first.ID != second.ID || second.Status != model.AttemptStatusCompleted {
		t.Error("retried finish must return the settled record")
	}
	if len(f.queue.events) != 1 {
		t.Errorf("settlement published %d times, want 1", len(f.queue.events))
	}
}

func TestFinishAfterDeadline(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	f.advanceTo(baseT.Add(3601 * time.Second))

	if _, err := f.orch.Finish(ctx, f.session.ID, 7); !errors.Is(err, ErrAttemptExpired) {
		t.Errorf("finish past deadline = %v, want ErrAttemptExpired", err)
	}
	rec, _ := f.store.GetLatestAttempt(ctx, f.session.ID, 7)
	if rec.Status != model.AttemptStatusExpired {
		t.Errorf("status = %s, want expired (forced before rejection)", rec.Status)
	}
}

func TestFinishManualGradingStopsAtSubmitted(t *testing.T) {
	f := newFixture(t, func(s *model.ExamSession) { s.Policy.AutoGrade = false })
	ctx := context.Background()

	mustStart(t, f, 7)
	rec, err := f.orch.Finish(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if rec.Status != model.AttemptStatusSubmitted {
		t.Errorf("status = %s, want submitted pending manual review", rec.Status)
	}
	if rec.Result != nil {
		t.Error("result must stay absent when grading is deferred")
	}
}

func TestAttemptLimitAfterExpiry(t *testing.T) {
	// The scheduled-window scenario: maxAttempts=1, the only attempt
	// expires, and every later start reports the limit, not a missing
	// record.
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	f.advanceTo(baseT.Add(3601 * time.Second))

	if _, err := f.store.ExpireOverdue(ctx, f.orch.now()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	rec, _ := f.store.GetLatestAttempt(ctx, f.session.ID, 7)
	if rec.Status != model.AttemptStatusExpired {
		t.Fatalf("status after sweep = %s, want expired", rec.Status)
	}

	// The window also closed here, so re-enter an open-window scenario by
	// extending the window; the limit must still block.
	newEnd := baseT.Add(4 * time.Hour)
	f.session.WindowEnd = &newEnd
	if err := f.store.UpdateSessionWindow(ctx, f.session); err != nil {
		t.Fatalf("extend window: %v", err)
	}

	if _, err := f.orch.Start(ctx, f.session.ID, 7); !errors.Is(err, ErrAttemptLimitExceeded) {
		t.Errorf("start after expired attempt = %v, want ErrAttemptLimitExceeded", err)
	}
	if _, err := f.orch.Join(ctx, f.session.ID, 7); !errors.Is(err, ErrAttemptLimitExceeded) {
		t.Errorf("join after expired attempt = %v, want ErrAttemptLimitExceeded", err)
	}
}

func TestSecondAttemptAllowedUnderLimit(t *testing.T) {
	f := newFixture(t, func(s *model.ExamSession) { s.Policy.MaxAttempts = 2 })
	ctx := context.Background()

	mustStart(t, f, 7)
	if _, err := f.orch.Finish(ctx, f.session.ID, 7); err != nil {
		t.Fatalf("finish: %v", err)
	}

	rec, err := f.orch.Join(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if rec.AttemptNumber != 2 {
		t.Errorf("attempt number = %d, want 2", rec.AttemptNumber)
	}
	if rec.Status != model.AttemptStatusNotStarted {
		t.Errorf("status = %s, want not_started", rec.Status)
	}
}

func TestOnDemandDeadlineUncapped(t *testing.T) {
	f := newFixture(t, func(s *model.ExamSession) {
		s.SchedulingType = model.SchedulingOnDemand
		s.WindowStart = nil
		s.WindowEnd = nil
		s.DurationMinutes = 45
	})
	ctx := context.Background()

	// Any time works for an on-demand session without bounds.
	f.advanceTo(baseT.Add(700 * time.Hour))
	mustStart(t, f, 7)

	rec, _ := f.store.GetLatestAttempt(ctx, f.session.ID, 7)
	want := f.orch.now().Add(45 * time.Minute)
	if rec.Deadline == nil || !rec.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want uncapped %s", rec.Deadline, want)
	}
}

func TestGetProgress(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	if _, err := f.orch.SubmitAnswer(ctx, f.session.ID, 7, "q1", []string{"B"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.advanceTo(baseT.Add(600 * time.Second))
	p, err := f.orch.GetProgress(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}

	if p.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want in_progress", p.Status)
	}
	if p.RemainingSeconds != 3000 {
		t.Errorf("remaining = %d, want 3000", p.RemainingSeconds)
	}
	if p.AnsweredCount != 1 || p.TotalQuestions != 2 {
		t.Errorf("answered %d/%d, want 1/2", p.AnsweredCount, p.TotalQuestions)
	}
}

func TestGetProgressExpiresOverdueOnRead(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	mustStart(t, f, 7)
	f.advanceTo(baseT.Add(2 * time.Hour))

	p, err := f.orch.GetProgress(ctx, f.session.ID, 7)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != model.AttemptStatusExpired {
		t.Errorf("status = %s, want expired on read", p.Status)
	}
	if p.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, want 0", p.RemainingSeconds)
	}
}

func mustStart(t *testing.T, f *fixture, studentID int) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.orch.Join(ctx, f.session.ID, studentID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.orch.Start(ctx, f.session.ID, studentID); err != nil {
		t.Fatalf("start: %v", err)
	}
}
