package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/vocabplan/pkg/models"
)

// BuildDailyBatch returns today's task batch for a student, creating it on
// the first call of the day. limit <= 0 uses the student's words-per-day.
// Words that are due are ranked by priority before the cut, then assigned
// question types.
func (g *Generator) BuildDailyBatch(ctx context.Context, studentID int64, limit int) (*models.DailyTaskBatch, error) {
	today := g.clock.Today()

	existing, err := g.stores.Tasks.ListForDay(ctx, studentID, today)
	if err != nil {
		return nil, fmt.Errorf("load today's tasks: %w", err)
	}
	if len(existing) > 0 {
		return batchFromTasks(studentID, today, existing), nil
	}

	if limit <= 0 {
		student, err := g.stores.Students.GetByID(ctx, studentID)
		if err != nil {
			return nil, fmt.Errorf("load student %d: %w", studentID, err)
		}
		limit = student.WordsPerDay
		if limit <= 0 {
			limit = g.dailyLimit
		}
	}

	states, err := g.stores.Plans.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load study plans: %w", err)
	}

	due := g.classifier.RankDue(g.clock, states, today, limit)
	if len(due) == 0 {
		return &models.DailyTaskBatch{StudentID: studentID, Date: today}, nil
	}

	wordIDs := make([]int64, len(due))
	for i, d := range due {
		wordIDs[i] = d.State.WordID
	}
	types := g.alloc.Allocate(wordIDs)

	batchID := uuid.NewString()
	tasks := make([]models.DailyTask, len(wordIDs))
	for i, id := range wordIDs {
		tasks[i] = models.DailyTask{
			BatchID:      batchID,
			StudentID:    studentID,
			WordID:       id,
			TaskDate:     today,
			QuestionType: types[id],
			Status:       models.TaskPending,
		}
	}

	inserted, err := g.stores.Tasks.CreateBatch(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("store daily batch: %w", err)
	}

	// Another request may have won the race; what is stored is authoritative.
	stored, err := g.stores.Tasks.ListForDay(ctx, studentID, today)
	if err != nil {
		return nil, fmt.Errorf("reload today's tasks: %w", err)
	}

	g.logger.Info("daily batch created",
		zap.Int64("student_id", studentID),
		zap.String("batch_id", batchID),
		zap.Int("due", len(due)),
		zap.Int("inserted", inserted),
	)
	return batchFromTasks(studentID, today, stored), nil
}

func batchFromTasks(studentID int64, day time.Time, tasks []models.DailyTask) *models.DailyTaskBatch {
	batch := &models.DailyTaskBatch{StudentID: studentID, Date: day, Tasks: tasks}
	if len(tasks) > 0 {
		batch.ID = tasks[0].BatchID
	}
	return batch
}
