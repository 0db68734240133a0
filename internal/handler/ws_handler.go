package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examflow/examflow-backend/internal/middleware"
	"github.com/examflow/examflow-backend/internal/service"
	ws "github.com/examflow/examflow-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an in-progress attempt over WebSocket: live answer
// writes, progress reads, and finish with the graded outcome pushed back.
type WSHandler struct {
	orchestrator *service.Orchestrator
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(orchestrator *service.Orchestrator, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		orchestrator: orchestrator,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Upgrades to WebSocket for low-latency answer writes during an attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	// The stream only serves a running attempt.
	if _, err := h.orchestrator.GetProgress(c.Request.Context(), sessionID, studentID); err != nil {
		ws.WriteError(conn, "no attempt for this session")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		ctx := c.Request.Context()
		switch msg.Action {
		case ws.ActionAnswer:
			if msg.QID == "" || len(msg.Answer) == 0 {
				ws.WriteError(conn, "q_id and ans are required")
				continue
			}
			rec, err := h.orchestrator.SubmitAnswer(ctx, sessionID, studentID, msg.QID, msg.Answer)
			if err != nil {
				ws.WriteError(conn, attemptStreamError(err))
				continue
			}
			ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, AnsweredCount: len(rec.Answers)})

		case ws.ActionFinish:
			rec, err := h.orchestrator.Finish(ctx, sessionID, studentID)
			if err != nil {
				ws.WriteError(conn, attemptStreamError(err))
				continue
			}
			resp := ws.GradedResponse{Event: ws.EventGraded, Status: string(rec.Status)}
			if rec.Result != nil {
				resp.Score = &rec.Result.Score
				resp.IsPassed = &rec.Result.IsPassed
			}
			ws.WriteTyped(conn, resp)

		case ws.ActionProgress:
			p, err := h.orchestrator.GetProgress(ctx, sessionID, studentID)
			if err != nil {
				ws.WriteError(conn, attemptStreamError(err))
				continue
			}
			ws.WriteTyped(conn, ws.ProgressResponse{
				Event:            ws.EventProgress,
				Status:           string(p.Status),
				RemainingSeconds: p.RemainingSeconds,
				AnsweredCount:    p.AnsweredCount,
				TotalQuestions:   p.TotalQuestions,
			})

		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// attemptStreamError maps lifecycle errors to short stream error strings.
func attemptStreamError(err error) string {
	switch {
	case errors.Is(err, service.ErrAttemptExpired):
		return "attempt expired"
	case errors.Is(err, service.ErrAttemptNotActive):
		return "attempt not active"
	case errors.Is(err, service.ErrSessionNotJoinable):
		return "session closed"
	case errors.Is(err, service.ErrRecordNotFound), errors.Is(err, service.ErrNotFound):
		return "attempt not found"
	default:
		return "operation failed"
	}
}
