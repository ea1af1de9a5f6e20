package database

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/example/vocabplan/pkg/models"
)

// ClassRepository handles database operations for classes
type ClassRepository struct {
	db Queryer
}

// NewClassRepository creates a new repository instance
func NewClassRepository(db Queryer) *ClassRepository {
	return &ClassRepository{db: db}
}

// GetAll returns all classes
func (r *ClassRepository) GetAll(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, "SELECT id, name, created_at FROM classes ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "failed to get classes")
	}
	return classes, nil
}

// GetByID returns a class by ID
func (r *ClassRepository) GetByID(ctx context.Context, id int64) (*models.Class, error) {
	var class models.Class
	err := r.db.GetContext(ctx, &class, r.db.Rebind("SELECT id, name, created_at FROM classes WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err, "failed to get class by ID")
	}
	return &class, nil
}

// GetByName returns a class by its name, ignoring case
func (r *ClassRepository) GetByName(ctx context.Context, name string) (*models.Class, error) {
	var class models.Class
	query := r.db.Rebind("SELECT id, name, created_at FROM classes WHERE LOWER(name) = LOWER(?)")
	if err := r.db.GetContext(ctx, &class, query, strings.TrimSpace(name)); err != nil {
		return nil, notFound(err, "failed to get class by name")
	}
	return &class, nil
}

// Create inserts a new class
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	class.CreatedAt = time.Now().UTC()
	query := r.db.Rebind("INSERT INTO classes (name, created_at) VALUES (?, ?) RETURNING id")
	if err := r.db.QueryRowxContext(ctx, query, strings.TrimSpace(class.Name), class.CreatedAt).Scan(&class.ID); err != nil {
		return errors.Wrap(err, "failed to create class")
	}
	return nil
}

// GetOrCreate returns the class with the given name, creating it if needed
func (r *ClassRepository) GetOrCreate(ctx context.Context, name string) (*models.Class, error) {
	class, err := r.GetByName(ctx, name)
	if err == nil {
		return class, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	class = &models.Class{Name: name}
	if err := r.Create(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}
