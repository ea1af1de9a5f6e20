package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

const wordColumns = `id, english_word, translation, example, audio_url, image_url, difficulty, created_at, updated_at`

// WordRepository handles database operations for words
type WordRepository struct {
	db Queryer
}

// NewWordRepository creates a new repository instance
func NewWordRepository(db Queryer) *WordRepository {
	return &WordRepository{db: db}
}

// GetAll returns the whole catalog ordered by ID
func (r *WordRepository) GetAll(ctx context.Context) ([]models.Word, error) {
	var words []models.Word
	if err := r.db.SelectContext(ctx, &words, "SELECT "+wordColumns+" FROM words ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "failed to get words")
	}
	return words, nil
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	var word models.Word
	if err := r.db.GetContext(ctx, &word, r.db.Rebind("SELECT "+wordColumns+" FROM words WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "failed to get word by ID")
	}
	return &word, nil
}

// GetByIDs returns the words with the given IDs, ordered by ID
func (r *WordRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+wordColumns+" FROM words WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build word query")
	}
	var words []models.Word
	if err := r.db.SelectContext(ctx, &words, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to get words by IDs")
	}
	return words, nil
}

// GetByEnglish returns a word by its spelling, ignoring case
func (r *WordRepository) GetByEnglish(ctx context.Context, english string) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind("SELECT " + wordColumns + " FROM words WHERE LOWER(english_word) = LOWER(?)")
	if err := r.db.GetContext(ctx, &word, query, strings.TrimSpace(english)); err != nil {
		return nil, notFound(err, "failed to get word")
	}
	return &word, nil
}

// Create inserts a new word
func (r *WordRepository) Create(ctx context.Context, w *models.Word) error {
	query := r.db.Rebind(`
		INSERT INTO words (english_word, translation, example, audio_url, image_url, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	err := r.db.QueryRowxContext(ctx, query,
		w.EnglishWord,
		w.Translation,
		w.Example,
		w.AudioURL,
		w.ImageURL,
		w.Difficulty,
		w.CreatedAt,
		w.UpdatedAt,
	).Scan(&w.ID)
	if err != nil {
		return errors.Wrap(err, "failed to create word")
	}
	return nil
}

// Update modifies an existing word
func (r *WordRepository) Update(ctx context.Context, w *models.Word) error {
	query := r.db.Rebind(`
		UPDATE words SET
			english_word = ?,
			translation = ?,
			example = ?,
			audio_url = ?,
			image_url = ?,
			difficulty = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		w.EnglishWord,
		w.Translation,
		w.Example,
		w.AudioURL,
		w.ImageURL,
		w.Difficulty,
		w.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update word")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetExample stores a generated example sentence
func (r *WordRepository) SetExample(ctx context.Context, wordID int64, example string) error {
	query := r.db.Rebind("UPDATE words SET example = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, example, wordID); err != nil {
		return errors.Wrap(err, "failed to store example")
	}
	return nil
}
