package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionFinish   Action = "finish"
	ActionProgress Action = "progress"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client message; unused fields stay empty for
// actions that do not need them.
type RequestPayload struct {
	Action Action   `json:"action"`
	QID    string   `json:"q_id,omitempty"`
	Answer []string `json:"ans,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSaved    Event = "saved"
	EventGraded   Event = "graded"
	EventProgress Event = "progress"
	EventPong     Event = "pong"
)

type SavedResponse struct {
	Event         Event `json:"event"`
	AnsweredCount int   `json:"answered_count"`
}

type GradedResponse struct {
	Event    Event    `json:"event"`
	Status   string   `json:"status"`
	Score    *float64 `json:"score,omitempty"`
	IsPassed *bool    `json:"is_passed,omitempty"`
}

type ProgressResponse struct {
	Event            Event  `json:"event"`
	Status           string `json:"status"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	AnsweredCount    int    `json:"answered_count"`
	TotalQuestions   int    `json:"total_questions"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
