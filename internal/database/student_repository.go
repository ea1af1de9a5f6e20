package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

const studentColumns = `id, class_id, student_number, name, telegram_chat_id, words_per_day,
	notification_hour, is_active, created_at, updated_at`

// StudentRepository handles database operations for students
type StudentRepository struct {
	db Queryer
}

// NewStudentRepository creates a new repository instance
func NewStudentRepository(db Queryer) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByID returns a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE id = ?")
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, notFound(err, "failed to get student by ID")
	}
	return &student, nil
}

// GetByIDs returns the students with the given IDs, ordered by ID
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+studentColumns+" FROM students WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build student query")
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to get students")
	}
	return students, nil
}

// GetByStudentNumber returns a student by the school-issued number
func (r *StudentRepository) GetByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	var student models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE student_number = ?")
	if err := r.db.GetContext(ctx, &student, query, number); err != nil {
		return nil, notFound(err, "failed to get student by number")
	}
	return &student, nil
}

// GetByTelegramChatID returns the student linked to a chat
func (r *StudentRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*models.Student, error) {
	var student models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE telegram_chat_id = ?")
	if err := r.db.GetContext(ctx, &student, query, chatID); err != nil {
		return nil, notFound(err, "failed to get student by chat")
	}
	return &student, nil
}

// ListActiveByClass returns the active students of a class
func (r *StudentRepository) ListActiveByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	var students []models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE class_id = ? AND is_active = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &students, query, classID, true); err != nil {
		return nil, errors.Wrap(err, "failed to get students of class")
	}
	return students, nil
}

// ListActive returns every active student
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE is_active = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &students, query, true); err != nil {
		return nil, errors.Wrap(err, "failed to get active students")
	}
	return students, nil
}

// Create inserts a new student
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	query := r.db.Rebind(`
		INSERT INTO students (class_id, student_number, name, telegram_chat_id, words_per_day, notification_hour, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	err := r.db.QueryRowxContext(ctx, query,
		s.ClassID,
		s.StudentNumber,
		s.Name,
		s.TelegramChatID,
		s.WordsPerDay,
		s.NotificationHour,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return errors.Wrap(err, "failed to create student")
	}
	return nil
}

// Update modifies an existing student
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	query := r.db.Rebind(`
		UPDATE students SET
			class_id = ?,
			name = ?,
			telegram_chat_id = ?,
			words_per_day = ?,
			notification_hour = ?,
			is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		s.ClassID,
		s.Name,
		s.TelegramChatID,
		s.WordsPerDay,
		s.NotificationHour,
		s.IsActive,
		s.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkTelegram attaches a chat to a student
func (r *StudentRepository) LinkTelegram(ctx context.Context, studentID, chatID int64) error {
	query := r.db.Rebind("UPDATE students SET telegram_chat_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, chatID, studentID)
	if err != nil {
		return errors.Wrap(err, "failed to link telegram chat")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive deactivates a student; progress rows are kept
func (r *StudentRepository) Archive(ctx context.Context, studentID int64) error {
	query := r.db.Rebind("UPDATE students SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, false, studentID); err != nil {
		return errors.Wrap(err, "failed to archive student")
	}
	return nil
}
