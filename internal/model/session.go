package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SchedulingType selects how a session's availability window is interpreted.
type SchedulingType string

const (
	// SchedulingScheduled means a fixed shared window: joinable only between
	// WindowStart and WindowEnd (inclusive on both ends).
	SchedulingScheduled SchedulingType = "scheduled"
	// SchedulingOnDemand means open availability: joinable whenever "now"
	// falls inside the optional AvailableFrom/AvailableUntil bounds.
	SchedulingOnDemand SchedulingType = "on_demand"
)

// SessionStatus enumerates the authority-controlled session states.
type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusPublished SessionStatus = "published"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusEnded     SessionStatus = "ended"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// AttemptPolicy bundles the per-session attempt rules.
type AttemptPolicy struct {
	MaxAttempts      int  `json:"max_attempts"`
	AllowReview      bool `json:"allow_review"`
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
	PassingScore     int  `json:"passing_score"`
	AutoGrade        bool `json:"auto_grade"`
}

// ExamSession is the authority-defined definition of one examination
// instance. PaperRef is an opaque reference resolved by the paper
// collaborator; the session never holds a copy of the questions.
type ExamSession struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	AuthorityID     int            `json:"authority_id"`
	SchedulingType  SchedulingType `json:"scheduling_type"`
	WindowStart     *time.Time     `json:"window_start,omitempty"`
	WindowEnd       *time.Time     `json:"window_end,omitempty"`
	AvailableFrom   *time.Time     `json:"available_from,omitempty"`
	AvailableUntil  *time.Time     `json:"available_until,omitempty"`
	DurationMinutes int            `json:"duration_minutes"`
	PaperRef        string         `json:"paper_ref"`
	Policy          AttemptPolicy  `json:"policy"`
	Status          SessionStatus  `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validation errors for session definitions.
var (
	ErrWindowInverted    = errors.New("window start must be before window end")
	ErrWindowRequired    = errors.New("scheduled sessions require both window bounds")
	ErrMaxAttemptsTooLow = errors.New("max attempts must be at least 1")
	ErrBadSchedulingType = errors.New("unknown scheduling type")
	ErrBadPassingScore   = errors.New("passing score must be between 0 and 100")
)

// Validate checks the structural invariants of a session definition.
func (s *ExamSession) Validate() error {
	switch s.SchedulingType {
	case SchedulingScheduled:
		if s.WindowStart == nil || s.WindowEnd == nil {
			return ErrWindowRequired
		}
		if !s.WindowStart.Before(*s.WindowEnd) {
			return ErrWindowInverted
		}
	case SchedulingOnDemand:
		if s.AvailableFrom != nil && s.AvailableUntil != nil &&
			!s.AvailableFrom.Before(*s.AvailableUntil) {
			return ErrWindowInverted
		}
	default:
		return ErrBadSchedulingType
	}

	if s.Policy.MaxAttempts < 1 {
		return ErrMaxAttemptsTooLow
	}
	if s.Policy.PassingScore < 0 || s.Policy.PassingScore > 100 {
		return ErrBadPassingScore
	}
	return nil
}

// CreateSessionRequest is the payload for defining a new exam session.
type CreateSessionRequest struct {
	Title           string         `json:"title" binding:"required,min=3,max=255"`
	SchedulingType  SchedulingType `json:"scheduling_type" binding:"required,oneof=scheduled on_demand"`
	WindowStart     *time.Time     `json:"window_start" binding:"omitempty"`
	WindowEnd       *time.Time     `json:"window_end" binding:"omitempty,gtfield=WindowStart"`
	AvailableFrom   *time.Time     `json:"available_from" binding:"omitempty"`
	AvailableUntil  *time.Time     `json:"available_until" binding:"omitempty"`
	DurationMinutes int            `json:"duration_minutes" binding:"required,min=1,max=480"`
	PaperRef        string         `json:"paper_ref" binding:"required"`
	Policy          *AttemptPolicy `json:"policy" binding:"omitempty"`
}

// UpdateWindowRequest is the payload for editing a session's time window.
type UpdateWindowRequest struct {
	WindowStart    *time.Time `json:"window_start" binding:"omitempty"`
	WindowEnd      *time.Time `json:"window_end" binding:"omitempty,gtfield=WindowStart"`
	AvailableFrom  *time.Time `json:"available_from" binding:"omitempty"`
	AvailableUntil *time.Time `json:"available_until" binding:"omitempty"`
}
