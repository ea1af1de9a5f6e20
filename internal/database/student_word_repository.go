package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

const studentWordColumns = `id, student_id, word_id, review_count, consecutive_correct, total_wrong_count,
	is_mastered, is_difficult, next_review_at, last_review_at, status, created_at, updated_at`

// StudentWordRepository handles database operations for per-word study plans
type StudentWordRepository struct {
	db Queryer
}

// NewStudentWordRepository creates a new repository instance
func NewStudentWordRepository(db Queryer) *StudentWordRepository {
	return &StudentWordRepository{db: db}
}

// GetByStudentAndWord returns the plan for a specific student and word
func (r *StudentWordRepository) GetByStudentAndWord(ctx context.Context, studentID, wordID int64) (*models.StudentWord, error) {
	var plan models.StudentWord
	query := r.db.Rebind("SELECT " + studentWordColumns + " FROM student_words WHERE student_id = ? AND word_id = ?")
	if err := r.db.GetContext(ctx, &plan, query, studentID, wordID); err != nil {
		return nil, notFound(err, "failed to get student word")
	}
	return &plan, nil
}

// ListByStudent returns every plan of a student ordered by word ID
func (r *StudentWordRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentWord, error) {
	var plans []models.StudentWord
	query := r.db.Rebind("SELECT " + studentWordColumns + " FROM student_words WHERE student_id = ? ORDER BY word_id")
	if err := r.db.SelectContext(ctx, &plans, query, studentID); err != nil {
		return nil, errors.Wrap(err, "failed to get student words")
	}
	return plans, nil
}

// CreateIfAbsent inserts the plan unless the (student, word) pair already
// exists. An existing pair is left untouched and reported as not created.
func (r *StudentWordRepository) CreateIfAbsent(ctx context.Context, plan *models.StudentWord) (bool, error) {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO student_words (
			student_id, word_id, review_count, consecutive_correct, total_wrong_count,
			is_mastered, is_difficult, next_review_at, last_review_at, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, word_id) DO NOTHING
		RETURNING id
	`)
	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		plan.StudentID,
		plan.WordID,
		plan.ReviewCount,
		plan.ConsecutiveCorrect,
		plan.TotalWrongCount,
		plan.IsMastered,
		plan.IsDifficult,
		utc(plan.NextReviewAt),
		utcNull(plan.LastReviewAt),
		plan.Status,
		now,
		now,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to create plan for student %d word %d", plan.StudentID, plan.WordID)
	}

	plan.ID = id
	plan.CreatedAt = now
	plan.UpdatedAt = now
	return true, nil
}

// Update writes back the scheduling fields of a plan
func (r *StudentWordRepository) Update(ctx context.Context, plan *models.StudentWord) error {
	plan.UpdatedAt = time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE student_words SET
			review_count = ?,
			consecutive_correct = ?,
			total_wrong_count = ?,
			is_mastered = ?,
			is_difficult = ?,
			next_review_at = ?,
			last_review_at = ?,
			status = ?,
			updated_at = ?
		WHERE student_id = ? AND word_id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		plan.ReviewCount,
		plan.ConsecutiveCorrect,
		plan.TotalWrongCount,
		plan.IsMastered,
		plan.IsDifficult,
		utc(plan.NextReviewAt),
		utcNull(plan.LastReviewAt),
		plan.Status,
		plan.UpdatedAt,
		plan.StudentID,
		plan.WordID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update student word")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
