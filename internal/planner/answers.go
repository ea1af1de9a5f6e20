package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/internal/spaced_repetition"
	"github.com/example/vocabplan/pkg/models"
)

// AnswerSubmission is a graded answer coming back from the student app
type AnswerSubmission struct {
	StudentID    int64
	WordID       int64
	QuestionType models.QuestionType
	Correct      bool
	AnsweredAt   time.Time // zero means now
}

// AnswerResult is the updated plan after an answer
type AnswerResult struct {
	Plan          models.StudentWord
	TaskCompleted bool // a pending task for the answer's day was closed
}

// SubmitAnswer records an answer, reclassifies the word and schedules its
// next review. The answer row, the plan update and the task completion are
// written in one transaction: either all of them land or none does.
func (g *Generator) SubmitAnswer(ctx context.Context, sub AnswerSubmission) (*AnswerResult, error) {
	word, err := g.stores.Words.GetByID(ctx, sub.WordID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load word %d: %w", sub.WordID, err)
	}

	at := sub.AnsweredAt
	if at.IsZero() {
		at = g.clock.Now()
	}
	window := g.classifier.AccuracyWindow
	if window <= 0 {
		window = spaced_repetition.DefaultAccuracyWindow
	}

	var result AnswerResult
	err = g.stores.atomically(ctx, func(tx Stores) error {
		plan, err := loadPlan(ctx, tx, sub.StudentID, sub.WordID)
		if err != nil {
			return err
		}

		record := &models.AnswerRecord{
			StudentID:    sub.StudentID,
			WordID:       sub.WordID,
			QuestionType: sub.QuestionType,
			Correct:      sub.Correct,
			AnsweredAt:   at,
		}
		if err := tx.Answers.Create(ctx, record); err != nil {
			return fmt.Errorf("record answer: %w", err)
		}

		recent, err := tx.Answers.RecentOutcomes(ctx, sub.StudentID, sub.WordID, window)
		if err != nil {
			return fmt.Errorf("load recent answers: %w", err)
		}

		g.classifier.Apply(plan, record.Outcome(), recent, word.Difficulty, g.policy)
		if err := tx.Plans.Update(ctx, plan); err != nil {
			return fmt.Errorf("update study plan: %w", err)
		}

		completed, err := tx.Tasks.Complete(ctx, sub.StudentID, sub.WordID, g.clock.StartOfDay(at), at)
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}

		result = AnswerResult{Plan: *plan, TaskCompleted: completed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Debug("answer applied",
		zap.Int64("student_id", sub.StudentID),
		zap.Int64("word_id", sub.WordID),
		zap.Bool("correct", sub.Correct),
		zap.String("status", string(result.Plan.Status)),
		zap.Time("next_review_at", result.Plan.NextReviewAt),
	)
	return &result, nil
}

// MarkInterrupted records that a study session for the word went stale
// without an answer. Only ACTIVE plans change; it reports whether one did.
func (g *Generator) MarkInterrupted(ctx context.Context, studentID, wordID int64) (bool, error) {
	changed := false
	err := g.stores.atomically(ctx, func(tx Stores) error {
		plan, err := loadPlan(ctx, tx, studentID, wordID)
		if err != nil {
			return err
		}
		if !spaced_repetition.Interrupt(plan) {
			return nil
		}
		if err := tx.Plans.Update(ctx, plan); err != nil {
			return fmt.Errorf("update study plan: %w", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

func loadPlan(ctx context.Context, s Stores, studentID, wordID int64) (*models.StudentWord, error) {
	plan, err := s.Plans.GetByStudentAndWord(ctx, studentID, wordID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load study plan: %w", err)
	}
	return plan, nil
}
