package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examflow/examflow-backend/internal/middleware"
	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/response"
	"github.com/examflow/examflow-backend/internal/service"
	"github.com/examflow/examflow-backend/internal/validator"
)

// SessionHandler handles authority-facing session management endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Create godoc
// POST /api/v1/authority/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// List godoc
// GET /api/v1/authority/sessions
func (h *SessionHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := parsePagination(c)

	sessions, total, err := h.sessionService.List(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, buildPagination(page, perPage, total))
}

// Get godoc
// GET /api/v1/authority/sessions/:session_id
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Publish godoc
// POST /api/v1/authority/sessions/:session_id/publish
func (h *SessionHandler) Publish(c *gin.Context) {
	h.doTransition(c, h.sessionService.Publish)
}

// Activate godoc
// POST /api/v1/authority/sessions/:session_id/activate
func (h *SessionHandler) Activate(c *gin.Context) {
	h.doTransition(c, h.sessionService.Activate)
}

// End godoc
// POST /api/v1/authority/sessions/:session_id/end
func (h *SessionHandler) End(c *gin.Context) {
	h.doTransition(c, h.sessionService.End)
}

// Cancel godoc
// POST /api/v1/authority/sessions/:session_id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	h.doTransition(c, h.sessionService.Cancel)
}

// UpdateWindow godoc
// PUT /api/v1/authority/sessions/:session_id/window
func (h *SessionHandler) UpdateWindow(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req model.UpdateWindowRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.UpdateWindow(c.Request.Context(), sessionID, &req)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Delete godoc
// DELETE /api/v1/authority/sessions/:session_id
func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	if err := h.sessionService.Delete(c.Request.Context(), sessionID); err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListAttempts godoc
// GET /api/v1/authority/sessions/:session_id/attempts
func (h *SessionHandler) ListAttempts(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	page, perPage := parsePagination(c)

	attempts, total, err := h.sessionService.ListAttempts(c.Request.Context(), sessionID, page, perPage)
	if err != nil {
		failSessionError(c, err)
		return
	}
	if attempts == nil {
		attempts = []model.AttemptRecord{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, buildPagination(page, perPage, total))
}

// Stats godoc
// GET /api/v1/authority/sessions/:session_id/stats
func (h *SessionHandler) Stats(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	stats, err := h.sessionService.Stats(c.Request.Context(), sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

func (h *SessionHandler) doTransition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), sessionID); err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return sessionID, true
}

// parsePagination reads and clamps the page/per_page query params. Invalid or
// out-of-range values fall back to defaults so a hostile per_page can never
// reach buildPagination as zero.
func parsePagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func buildPagination(page, perPage, total int) *response.Pagination {
	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// failSessionError maps session management errors onto stable API error codes.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrWindowLocked):
		response.Fail(c, http.StatusConflict, response.ErrWindowLocked)
	case errors.Is(err, service.ErrSessionReferenced):
		response.Fail(c, http.StatusConflict, response.ErrSessionHasAttempts)
	case errors.Is(err, model.ErrWindowInverted),
		errors.Is(err, model.ErrWindowRequired),
		errors.Is(err, model.ErrMaxAttemptsTooLow),
		errors.Is(err, model.ErrBadSchedulingType),
		errors.Is(err, model.ErrBadPassingScore):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"detail": err.Error()})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
