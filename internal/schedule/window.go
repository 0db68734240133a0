// Package schedule holds the time-window policy for exam sessions: whether
// "now" falls inside a session's permitted window and where an attempt's
// deadline lands. All functions are pure so the boundary rules live in
// exactly one place.
package schedule

import (
	"time"

	"github.com/examflow/examflow-backend/internal/model"
)

// IsWithinWindow reports whether an attempt may be joined or started at now.
// Boundaries are inclusive on both ends: now == WindowStart and
// now == WindowEnd are both permitted.
func IsWithinWindow(s *model.ExamSession, now time.Time) bool {
	switch s.SchedulingType {
	case model.SchedulingScheduled:
		if s.WindowStart == nil || s.WindowEnd == nil {
			return false
		}
		return !now.Before(*s.WindowStart) && !now.After(*s.WindowEnd)
	case model.SchedulingOnDemand:
		if s.AvailableFrom != nil && now.Before(*s.AvailableFrom) {
			return false
		}
		if s.AvailableUntil != nil && now.After(*s.AvailableUntil) {
			return false
		}
		return true
	default:
		return false
	}
}

// EffectiveDeadline computes the deadline for an attempt started at
// startedAt: the per-attempt duration, capped by the window end for
// scheduled sessions and by AvailableUntil (when set) for on-demand ones.
func EffectiveDeadline(s *model.ExamSession, startedAt time.Time) time.Time {
	deadline := startedAt.Add(time.Duration(s.DurationMinutes) * time.Minute)

	switch s.SchedulingType {
	case model.SchedulingScheduled:
		if s.WindowEnd != nil && deadline.After(*s.WindowEnd) {
			deadline = *s.WindowEnd
		}
	case model.SchedulingOnDemand:
		if s.AvailableUntil != nil && deadline.After(*s.AvailableUntil) {
			deadline = *s.AvailableUntil
		}
	}
	return deadline
}

// EffectiveStatus derives the session status as of now. Scheduled sessions
// flip to active once the window opens and to ended once it closes without
// requiring an explicit authority transition, so a stale stored status never
// gates eligibility. On-demand sessions keep their stored status; ending
// them is an explicit authority action.
func EffectiveStatus(s *model.ExamSession, now time.Time) model.SessionStatus {
	if s.SchedulingType != model.SchedulingScheduled {
		return s.Status
	}

	switch s.Status {
	case model.SessionStatusPublished:
		if s.WindowEnd != nil && now.After(*s.WindowEnd) {
			return model.SessionStatusEnded
		}
		if s.WindowStart != nil && !now.Before(*s.WindowStart) {
			return model.SessionStatusActive
		}
	case model.SessionStatusActive:
		if s.WindowEnd != nil && now.After(*s.WindowEnd) {
			return model.SessionStatusEnded
		}
	}
	return s.Status
}
