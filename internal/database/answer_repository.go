package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

// AnswerRepository handles database operations for answer history
type AnswerRepository struct {
	db Queryer
}

// NewAnswerRepository creates a new repository instance
func NewAnswerRepository(db Queryer) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// Create records an answer
func (r *AnswerRepository) Create(ctx context.Context, a *models.AnswerRecord) error {
	query := r.db.Rebind(`
		INSERT INTO answers (student_id, word_id, question_type, correct, answered_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		a.StudentID,
		a.WordID,
		a.QuestionType,
		a.Correct,
		utc(a.AnsweredAt),
	).Scan(&a.ID)
	if err != nil {
		return errors.Wrap(err, "failed to save answer")
	}
	return nil
}

// RecentOutcomes returns up to limit outcomes for a word, most recent first
func (r *AnswerRepository) RecentOutcomes(ctx context.Context, studentID, wordID int64, limit int) ([]bool, error) {
	var outcomes []bool
	query := r.db.Rebind(`
		SELECT correct FROM answers
		WHERE student_id = ? AND word_id = ?
		ORDER BY answered_at DESC, id DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &outcomes, query, studentID, wordID, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get recent answers")
	}
	return outcomes, nil
}

// ListByStudent returns a student's answer history, newest first
func (r *AnswerRepository) ListByStudent(ctx context.Context, studentID int64, limit int) ([]models.AnswerRecord, error) {
	var answers []models.AnswerRecord
	query := r.db.Rebind(`
		SELECT id, student_id, word_id, question_type, correct, answered_at
		FROM answers
		WHERE student_id = ?
		ORDER BY answered_at DESC, id DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &answers, query, studentID, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get answers")
	}
	return answers, nil
}
