package planner

import (
	"context"
	"time"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/pkg/models"
)

// StudentStore resolves the students a batch targets
type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Student, error)
	ListActiveByClass(ctx context.Context, classID int64) ([]models.Student, error)
}

// WordStore reads the word catalog
type WordStore interface {
	GetAll(ctx context.Context) ([]models.Word, error)
	GetByID(ctx context.Context, id int64) (*models.Word, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error)
}

// PlanStore persists per-word study state. CreateIfAbsent must treat an
// existing pair as a no-op rather than an error.
type PlanStore interface {
	CreateIfAbsent(ctx context.Context, plan *models.StudentWord) (bool, error)
	GetByStudentAndWord(ctx context.Context, studentID, wordID int64) (*models.StudentWord, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentWord, error)
	Update(ctx context.Context, plan *models.StudentWord) error
}

// TaskStore persists daily task batches
type TaskStore interface {
	ListForDay(ctx context.Context, studentID int64, day time.Time) ([]models.DailyTask, error)
	CreateBatch(ctx context.Context, tasks []models.DailyTask) (int, error)
	Complete(ctx context.Context, studentID, wordID int64, day, at time.Time) (bool, error)
}

// AnswerStore records answer history
type AnswerStore interface {
	Create(ctx context.Context, a *models.AnswerRecord) error
	RecentOutcomes(ctx context.Context, studentID, wordID int64, limit int) ([]bool, error)
}

// Stores groups the collaborators the generator needs
type Stores struct {
	Students StudentStore
	Words    WordStore
	Plans    PlanStore
	Tasks    TaskStore
	Answers  AnswerStore

	// InTx runs fn against stores bound to one transaction. Nil runs fn on
	// the stores themselves without atomicity.
	InTx func(ctx context.Context, fn func(Stores) error) error
}

// NewStores adapts the SQL repositories
func NewStores(r *database.Repositories) Stores {
	s := storesFrom(r)
	s.InTx = func(ctx context.Context, fn func(Stores) error) error {
		return r.WithinTx(ctx, func(tx *database.Repositories) error {
			return fn(storesFrom(tx))
		})
	}
	return s
}

func storesFrom(r *database.Repositories) Stores {
	return Stores{
		Students: r.Students,
		Words:    r.Words,
		Plans:    r.Plans,
		Tasks:    r.Tasks,
		Answers:  r.Answers,
	}
}

func (s Stores) atomically(ctx context.Context, fn func(Stores) error) error {
	if s.InTx == nil {
		return fn(s)
	}
	return s.InTx(ctx, fn)
}
