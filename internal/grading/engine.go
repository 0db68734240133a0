// Package grading scores a finished attempt against the authoritative
// question key resolved from the paper collaborator.
package grading

import (
	"sort"

	"github.com/examflow/examflow-backend/internal/model"
)

// Grade compares submitted answers to the question key and produces the
// attempt result. Unanswered questions still contribute their points to
// MaxScore but earn nothing. Answers referencing a question id absent from
// the key are recorded as anomalies and excluded from scoring — the paper
// is owned by an external collaborator and may have drifted since the
// attempt started.
func Grade(answers map[string][]string, key []model.QuestionKey, passingScore int) model.AttemptResult {
	result := model.AttemptResult{
		TotalQuestions: len(key),
	}

	known := make(map[string]struct{}, len(key))
	for _, q := range key {
		known[q.QuestionID] = struct{}{}
		result.MaxScore += q.Points

		submitted, ok := answers[q.QuestionID]
		if !ok || len(submitted) == 0 {
			continue
		}
		if correct(q, submitted) {
			result.Score += q.Points
			result.CorrectCount++
		}
	}

	for qid := range answers {
		if _, ok := known[qid]; !ok {
			result.Anomalies = append(result.Anomalies, qid)
		}
	}
	// Map iteration order is random; keep anomaly lists stable for clients.
	sort.Strings(result.Anomalies)

	if result.MaxScore > 0 {
		result.IsPassed = result.Score/result.MaxScore*100 >= float64(passingScore)
	}
	return result
}

// correct applies the question's comparison semantics: exact match for
// single choice, set equality for multi-select.
func correct(q model.QuestionKey, submitted []string) bool {
	switch q.Type {
	case model.QuestionSingleChoice:
		return len(submitted) == 1 && len(q.AnswerKey) == 1 && submitted[0] == q.AnswerKey[0]
	case model.QuestionMultiSelect:
		return setEqual(submitted, q.AnswerKey)
	default:
		return false
	}
}

func setEqual(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	if len(set) != len(b) {
		return false
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}
