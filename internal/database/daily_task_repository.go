package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

const dailyTaskColumns = `id, batch_id, student_id, word_id, task_date, question_type, status, completed_at, created_at`

// DailyTaskRepository handles database operations for daily task batches
type DailyTaskRepository struct {
	db Queryer
}

// NewDailyTaskRepository creates a new repository instance
func NewDailyTaskRepository(db Queryer) *DailyTaskRepository {
	return &DailyTaskRepository{db: db}
}

// ListForDay returns a student's tasks for the day starting at day
func (r *DailyTaskRepository) ListForDay(ctx context.Context, studentID int64, day time.Time) ([]models.DailyTask, error) {
	var tasks []models.DailyTask
	query := r.db.Rebind("SELECT " + dailyTaskColumns + " FROM daily_tasks WHERE student_id = ? AND task_date = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &tasks, query, studentID, utc(day)); err != nil {
		return nil, errors.Wrap(err, "failed to get daily tasks")
	}
	return tasks, nil
}

// CreateBatch stores a student's batch for one day in a single transaction.
// All tasks must share the batch id, student and day of the first one. A day
// holds at most one batch: when another batch already claimed it, nothing is
// inserted and 0 is returned. Otherwise the number of tasks inserted is returned.
func (r *DailyTaskRepository) CreateBatch(ctx context.Context, tasks []models.DailyTask) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	head := tasks[0]
	for _, t := range tasks[1:] {
		if t.BatchID != head.BatchID || t.StudentID != head.StudentID || !t.TaskDate.Equal(head.TaskDate) {
			return 0, errors.Errorf("task for word %d does not belong to batch %s", t.WordID, head.BatchID)
		}
	}

	inserted := 0
	err := inTx(ctx, r.db, func(q Queryer) error {
		now := time.Now().UTC()

		res, err := q.ExecContext(ctx, q.Rebind(`
			INSERT INTO daily_batches (batch_id, student_id, batch_date, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (student_id, batch_date) DO NOTHING
		`), head.BatchID, head.StudentID, utc(head.TaskDate), now)
		if err != nil {
			return errors.Wrap(err, "failed to claim batch day")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "failed to get rows affected")
		} else if n == 0 {
			return nil
		}

		stmt, err := q.PreparexContext(ctx, q.Rebind(`
			INSERT INTO daily_tasks (batch_id, student_id, word_id, task_date, question_type, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (student_id, word_id, task_date) DO NOTHING
		`))
		if err != nil {
			return errors.Wrap(err, "failed to prepare task insert")
		}
		defer stmt.Close()

		for _, t := range tasks {
			status := t.Status
			if status == "" {
				status = models.TaskPending
			}
			res, err := stmt.ExecContext(ctx, t.BatchID, t.StudentID, t.WordID, utc(t.TaskDate), t.QuestionType, status, now)
			if err != nil {
				return errors.Wrapf(err, "failed to create task for word %d", t.WordID)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Complete marks a student's task for a word on a day as answered.
// It reports whether a pending task was found.
func (r *DailyTaskRepository) Complete(ctx context.Context, studentID, wordID int64, day, at time.Time) (bool, error) {
	query := r.db.Rebind(`
		UPDATE daily_tasks SET status = ?, completed_at = ?
		WHERE student_id = ? AND word_id = ? AND task_date = ? AND status = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		models.TaskCompleted,
		sql.NullTime{Time: utc(at), Valid: true},
		studentID,
		wordID,
		utc(day),
		models.TaskPending,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to complete task")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return n > 0, nil
}
