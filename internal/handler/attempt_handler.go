package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examflow/examflow-backend/internal/middleware"
	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/response"
	"github.com/examflow/examflow-backend/internal/service"
	"github.com/examflow/examflow-backend/internal/validator"
)

// AttemptHandler handles student-facing attempt endpoints: join, start,
// answer submission, finish, and the live progress read.
type AttemptHandler struct {
	orchestrator *service.Orchestrator
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(orchestrator *service.Orchestrator) *AttemptHandler {
	return &AttemptHandler{orchestrator: orchestrator}
}

// Join godoc
// POST /api/v1/student/sessions/:session_id/join
// Registers the student into the session (idempotent).
func (h *AttemptHandler) Join(c *gin.Context) {
	claims, sessionID, ok := h.studentRequest(c)
	if !ok {
		return
	}

	rec, err := h.orchestrator.Join(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": rec})
}

// Start godoc
// POST /api/v1/student/sessions/:session_id/start
// Starts the countdown on the joined attempt (idempotent).
func (h *AttemptHandler) Start(c *gin.Context) {
	claims, sessionID, ok := h.studentRequest(c)
	if !ok {
		return
	}

	rec, err := h.orchestrator.Start(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": rec})
}

// SubmitAnswer godoc
// PUT /api/v1/student/sessions/:session_id/answers
// Upserts one answer; resubmitting a question overwrites the previous value.
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	claims, sessionID, ok := h.studentRequest(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.orchestrator.SubmitAnswer(c.Request.Context(), sessionID, claims.UserID, req.QuestionID, req.Answer)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": rec})
}

// Finish godoc
// POST /api/v1/student/sessions/:session_id/finish
// Settles the attempt and returns the graded result when auto-grading is on.
func (h *AttemptHandler) Finish(c *gin.Context) {
	claims, sessionID, ok := h.studentRequest(c)
	if !ok {
		return
	}

	rec, err := h.orchestrator.Finish(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": rec})
}

// GetProgress godoc
// GET /api/v1/student/sessions/:session_id/progress
// Returns the live attempt view with the remaining seconds.
func (h *AttemptHandler) GetProgress(c *gin.Context) {
	claims, sessionID, ok := h.studentRequest(c)
	if !ok {
		return
	}

	progress, err := h.orchestrator.GetProgress(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": progress})
}

// studentRequest extracts the authenticated claims and the session ID path
// param, failing the request on either.
func (h *AttemptHandler) studentRequest(c *gin.Context) (*middleware.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, sessionID, true
}

// failAttemptError maps lifecycle errors onto stable API error codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrRecordNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrSessionNotJoinable):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotJoinable)
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		response.Fail(c, http.StatusConflict, response.ErrAttemptLimitExceeded)
	case errors.Is(err, service.ErrAttemptExpiredBeforeStart):
		response.Fail(c, http.StatusConflict, response.ErrAttemptExpiredNoStart)
	case errors.Is(err, service.ErrAttemptExpired):
		response.Fail(c, http.StatusConflict, response.ErrAttemptExpired)
	case errors.Is(err, service.ErrAttemptNotActive):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
