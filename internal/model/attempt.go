package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the per-student attempt states.
type AttemptStatus string

const (
	AttemptStatusNotStarted AttemptStatus = "not_started"
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusExpired    AttemptStatus = "expired"
)

// AttemptResult is the graded outcome of a finished attempt. Anomalies lists
// question ids that were answered but missing from the resolved paper; they
// are excluded from scoring rather than failing the grading pass.
type AttemptResult struct {
	Score          float64  `json:"score"`
	MaxScore       float64  `json:"max_score"`
	CorrectCount   int      `json:"correct_count"`
	TotalQuestions int      `json:"total_questions"`
	IsPassed       bool     `json:"is_passed"`
	Anomalies      []string `json:"anomalies,omitempty"`
}

// AttemptRecord is one student's single attempt against a session.
// Created on join; all later transitions are driven by the orchestrator.
type AttemptRecord struct {
	ID            uuid.UUID           `json:"id"`
	SessionID     uuid.UUID           `json:"session_id"`
	StudentID     int                 `json:"student_id"`
	AttemptNumber int                 `json:"attempt_number"`
	Status        AttemptStatus       `json:"status"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	Deadline      *time.Time          `json:"deadline,omitempty"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	Answers       map[string][]string `json:"answers"`
	Result        *AttemptResult      `json:"result,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Settled reports whether the attempt counts against the attempt limit.
func (a *AttemptRecord) Settled() bool {
	return a.Status == AttemptStatusCompleted || a.Status == AttemptStatusExpired
}

// Progress is the live view returned by the read-only progress operation.
// RemainingSeconds is computed from the deadline at call time, never stored.
type Progress struct {
	Status           AttemptStatus `json:"status"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	AnsweredCount    int           `json:"answered_count"`
	TotalQuestions   int           `json:"total_questions"`
}

// SubmitAnswerRequest is the payload for upserting one answer.
// Single-choice questions carry one value; multi-select carries several.
type SubmitAnswerRequest struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Answer     []string `json:"answer" binding:"required,min=1"`
}
