package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examflow/examflow-backend/internal/config"
	"github.com/examflow/examflow-backend/internal/database"
	"github.com/examflow/examflow-backend/internal/logger"
	"github.com/examflow/examflow-backend/internal/model"
	"github.com/examflow/examflow-backend/internal/repository"
)

// Seeds a demo paper plus a published scheduled session so a fresh install
// has something to exercise the student flow against.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	const paperRef = "demo-paper-1"

	fmt.Println("=== Seeding demo paper ===")

	questions := []model.QuestionKey{
		{QuestionID: uuid.NewString(), Type: model.QuestionSingleChoice, AnswerKey: []string{"B"}, Points: 25, OrderNum: 1},
		{QuestionID: uuid.NewString(), Type: model.QuestionSingleChoice, AnswerKey: []string{"A"}, Points: 25, OrderNum: 2},
		{QuestionID: uuid.NewString(), Type: model.QuestionMultiSelect, AnswerKey: []string{"A", "C"}, Points: 25, OrderNum: 3},
		{QuestionID: uuid.NewString(), Type: model.QuestionMultiSelect, AnswerKey: []string{"B", "D"}, Points: 25, OrderNum: 4},
	}

	for _, q := range questions {
		_, err := pool.Exec(ctx,
			`INSERT INTO paper_questions (paper_ref, question_id, question_type, answer_key, points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (paper_ref, question_id) DO NOTHING`,
			paperRef, q.QuestionID, q.Type, q.AnswerKey, q.Points, q.OrderNum)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed paper question")
		}
	}
	fmt.Printf("Seeded %d questions into %s\n", len(questions), paperRef)

	fmt.Println("=== Seeding demo session ===")

	sessions := repository.NewSessionRepository(pool)
	start := time.Now().Truncate(time.Minute)
	end := start.Add(2 * time.Hour)
	session := &model.ExamSession{
		ID:              uuid.New(),
		Title:           "Demo Midterm",
		AuthorityID:     1,
		SchedulingType:  model.SchedulingScheduled,
		WindowStart:     &start,
		WindowEnd:       &end,
		DurationMinutes: 60,
		PaperRef:        paperRef,
		Policy: model.AttemptPolicy{
			MaxAttempts:  2,
			PassingScore: 60,
			AutoGrade:    true,
		},
		Status: model.SessionStatusPublished,
	}
	if err := session.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Demo session invalid")
	}
	if err := sessions.CreateSession(ctx, session); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed session")
	}

	fmt.Printf("Seeded session %s (window %s - %s)\n", session.ID, start.Format(time.RFC3339), end.Format(time.RFC3339))
}
