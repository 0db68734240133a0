package model

// QuestionType selects the comparison semantics used during grading.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiSelect  QuestionType = "multi_select"
)

// QuestionKey is one entry of a resolved paper: the authoritative correct
// answer and point value for a question. Owned by the paper collaborator;
// the lifecycle engine only reads it.
type QuestionKey struct {
	QuestionID string       `json:"question_id"`
	Type       QuestionType `json:"type"`
	AnswerKey  []string     `json:"answer_key"`
	Points     float64      `json:"points"`
	OrderNum   int          `json:"order_num"`
}
