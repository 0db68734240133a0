// Package lifecycle defines the legal state transitions for exam sessions
// and attempt records. The transition tables are the single source of truth;
// services consult them instead of scattering status comparisons.
package lifecycle

import "github.com/examflow/examflow-backend/internal/model"

// sessionTransitions maps each session status to the statuses an authority
// may move it to. Derived transitions (published→active→ended on the clock
// for scheduled sessions) are handled by schedule.EffectiveStatus and do not
// need entries here beyond the explicit authority actions.
var sessionTransitions = map[model.SessionStatus][]model.SessionStatus{
	model.SessionStatusDraft:     {model.SessionStatusPublished, model.SessionStatusCancelled},
	model.SessionStatusPublished: {model.SessionStatusActive, model.SessionStatusEnded, model.SessionStatusCancelled},
	model.SessionStatusActive:    {model.SessionStatusEnded, model.SessionStatusCancelled},
	model.SessionStatusEnded:     nil,
	model.SessionStatusCancelled: nil,
}

var attemptTransitions = map[model.AttemptStatus][]model.AttemptStatus{
	model.AttemptStatusNotStarted: {model.AttemptStatusInProgress},
	model.AttemptStatusInProgress: {model.AttemptStatusSubmitted, model.AttemptStatusExpired},
	model.AttemptStatusSubmitted:  {model.AttemptStatusCompleted},
	model.AttemptStatusCompleted:  nil,
	model.AttemptStatusExpired:    nil,
}

// CanTransitionSession reports whether an authority may move a session from
// one status to another.
func CanTransitionSession(from, to model.SessionStatus) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionAttempt reports whether an attempt may move between statuses.
func CanTransitionAttempt(from, to model.AttemptStatus) bool {
	for _, next := range attemptTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SessionTerminal reports whether a session status admits no further
// transitions.
func SessionTerminal(s model.SessionStatus) bool {
	return s == model.SessionStatusEnded || s == model.SessionStatusCancelled
}

// Joinable reports whether students may join or start attempts while the
// session carries this (effective) status. Time-window eligibility is
// checked separately by the schedule package.
func Joinable(s model.SessionStatus) bool {
	return s == model.SessionStatusPublished || s == model.SessionStatusActive
}

// AttemptSettled reports whether an attempt status counts against the
// per-student attempt limit.
func AttemptSettled(s model.AttemptStatus) bool {
	return s == model.AttemptStatusCompleted || s == model.AttemptStatusExpired
}
