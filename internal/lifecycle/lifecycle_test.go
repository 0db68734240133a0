package lifecycle

import (
	"testing"

	"github.com/examflow/examflow-backend/internal/model"
)

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		from, to model.SessionStatus
		want     bool
	}{
		{model.SessionStatusDraft, model.SessionStatusPublished, true},
		{model.SessionStatusDraft, model.SessionStatusActive, false},
		{model.SessionStatusPublished, model.SessionStatusActive, true},
		{model.SessionStatusPublished, model.SessionStatusEnded, true},
		{model.SessionStatusActive, model.SessionStatusEnded, true},
		{model.SessionStatusActive, model.SessionStatusPublished, false},
		{model.SessionStatusEnded, model.SessionStatusActive, false},
		{model.SessionStatusEnded, model.SessionStatusCancelled, false},
		{model.SessionStatusCancelled, model.SessionStatusPublished, false},
		// cancelled reachable from every non-terminal state
		{model.SessionStatusDraft, model.SessionStatusCancelled, true},
		{model.SessionStatusPublished, model.SessionStatusCancelled, true},
		{model.SessionStatusActive, model.SessionStatusCancelled, true},
	}
	for _, tt := range tests {
		if got := CanTransitionSession(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionSession(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAttemptTransitions(t *testing.T) {
	tests := []struct {
		from, to model.AttemptStatus
		want     bool
	}{
		{model.AttemptStatusNotStarted, model.AttemptStatusInProgress, true},
		{model.AttemptStatusNotStarted, model.AttemptStatusSubmitted, false},
		{model.AttemptStatusInProgress, model.AttemptStatusSubmitted, true},
		{model.AttemptStatusInProgress, model.AttemptStatusExpired, true},
		{model.AttemptStatusInProgress, model.AttemptStatusCompleted, false},
		{model.AttemptStatusSubmitted, model.AttemptStatusCompleted, true},
		{model.AttemptStatusSubmitted, model.AttemptStatusExpired, false},
		{model.AttemptStatusCompleted, model.AttemptStatusInProgress, false},
		{model.AttemptStatusExpired, model.AttemptStatusInProgress, false},
	}
	for _, tt := range tests {
		if got := CanTransitionAttempt(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionAttempt(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestJoinable(t *testing.T) {
	joinable := []model.SessionStatus{model.SessionStatusPublished, model.SessionStatusActive}
	notJoinable := []model.SessionStatus{model.SessionStatusDraft, model.SessionStatusEnded, model.SessionStatusCancelled}

	for _, s := range joinable {
		if !Joinable(s) {
			t.Errorf("Joinable(%s) = false, want true", s)
		}
	}
	for _, s := range notJoinable {
		if Joinable(s) {
			t.Errorf("Joinable(%s) = true, want false", s)
		}
	}
}

func TestAttemptSettled(t *testing.T) {
	if !AttemptSettled(model.AttemptStatusCompleted) || !AttemptSettled(model.AttemptStatusExpired) {
		t.Error("completed and expired must both count as settled")
	}
	if AttemptSettled(model.AttemptStatusInProgress) || AttemptSettled(model.AttemptStatusSubmitted) {
		t.Error("in_progress and submitted must not count as settled")
	}
}
