package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

// StatisticsRepository aggregates progress figures
type StatisticsRepository struct {
	db Queryer
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db Queryer) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// GetStudentStats returns a student's totals. Words whose next review is
// before dueBefore and that are not completed count as due.
func (r *StatisticsRepository) GetStudentStats(ctx context.Context, studentID int64, dueBefore time.Time) (*models.StudentStats, error) {
	stats := &models.StudentStats{StudentID: studentID}

	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_words,
			COALESCE(SUM(CASE WHEN is_mastered THEN 1 ELSE 0 END), 0) AS mastered_words,
			COALESCE(SUM(CASE WHEN is_difficult THEN 1 ELSE 0 END), 0) AS difficult_words,
			COALESCE(SUM(CASE WHEN status <> ? AND next_review_at < ? THEN 1 ELSE 0 END), 0) AS due_today
		FROM student_words
		WHERE student_id = ?
	`)
	row := r.db.QueryRowxContext(ctx, query, models.PlanCompleted, utc(dueBefore), studentID)
	if err := row.Scan(&stats.TotalWords, &stats.MasteredWords, &stats.DifficultWords, &stats.DueToday); err != nil {
		return nil, errors.Wrap(err, "failed to get word statistics")
	}

	query = r.db.Rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN correct THEN 1 ELSE 0 END), 0)
		FROM answers
		WHERE student_id = ?
	`)
	if err := r.db.QueryRowxContext(ctx, query, studentID).Scan(&stats.TotalAnswers, &stats.CorrectAnswers); err != nil {
		return nil, errors.Wrap(err, "failed to get answer statistics")
	}

	return stats, nil
}

// ClassSummary is a per-class progress rollup
type ClassSummary struct {
	ClassID        int64  `db:"class_id"`
	ClassName      string `db:"class_name"`
	Students       int    `db:"students"`
	PlannedWords   int    `db:"planned_words"`
	MasteredWords  int    `db:"mastered_words"`
	DifficultWords int    `db:"difficult_words"`
}

// GetClassSummaries returns progress totals for every class
func (r *StatisticsRepository) GetClassSummaries(ctx context.Context) ([]ClassSummary, error) {
	var summaries []ClassSummary
	query := r.db.Rebind(`
		SELECT
			c.id AS class_id,
			c.name AS class_name,
			COUNT(DISTINCT s.id) AS students,
			COUNT(sw.id) AS planned_words,
			COALESCE(SUM(CASE WHEN sw.is_mastered THEN 1 ELSE 0 END), 0) AS mastered_words,
			COALESCE(SUM(CASE WHEN sw.is_difficult THEN 1 ELSE 0 END), 0) AS difficult_words
		FROM classes c
		LEFT JOIN students s ON s.class_id = c.id AND s.is_active = ?
		LEFT JOIN student_words sw ON sw.student_id = s.id
		GROUP BY c.id, c.name
		ORDER BY c.name
	`)
	if err := r.db.SelectContext(ctx, &summaries, query, true); err != nil {
		return nil, errors.Wrap(err, "failed to get class summaries")
	}
	return summaries, nil
}
