// Package planner turns the scheduling rules into stored study plans, daily
// task batches and answer updates.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/internal/quiz"
	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/internal/spaced_repetition"
	"github.com/example/vocabplan/pkg/models"
)

// ErrPlanNotFound is returned when a student has no plan for a word
var ErrPlanNotFound = errors.New("planner: no study plan for student and word")

const (
	defaultWorkers    = 4
	defaultDailyLimit = 20
)

// Options configures a Generator. Zero values get defaults.
type Options struct {
	Clock             reviewclock.Clock
	Policy            spaced_repetition.Policy
	Classifier        spaced_repetition.Classifier
	Allocator         *quiz.Allocator
	Workers           int // concurrent students during plan generation
	DefaultDailyLimit int // used when a student has no words-per-day setting
	Logger            *zap.Logger
}

// Generator orchestrates plan creation, daily batches and answer updates
type Generator struct {
	stores     Stores
	clock      reviewclock.Clock
	policy     spaced_repetition.Policy
	classifier spaced_repetition.Classifier
	alloc      *quiz.Allocator
	workers    int
	dailyLimit int
	logger     *zap.Logger
}

// NewGenerator creates a generator over the given stores
func NewGenerator(stores Stores, opts Options) *Generator {
	g := &Generator{
		stores:     stores,
		clock:      opts.Clock,
		policy:     opts.Policy,
		classifier: opts.Classifier,
		alloc:      opts.Allocator,
		workers:    opts.Workers,
		dailyLimit: opts.DefaultDailyLimit,
		logger:     opts.Logger,
	}
	if len(g.policy.BaseIntervals) == 0 {
		g.policy = spaced_repetition.NewPolicy(g.clock)
	}
	if g.alloc == nil {
		g.alloc = quiz.NewAllocator(nil)
	}
	if g.workers <= 0 {
		g.workers = defaultWorkers
	}
	if g.dailyLimit <= 0 {
		g.dailyLimit = defaultDailyLimit
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// BatchRequest selects the students and words to plan. Explicit StudentIDs
// win over ClassID; an empty WordIDs means the whole catalog.
type BatchRequest struct {
	StudentIDs []int64
	ClassID    int64
	WordIDs    []int64
}

// BatchFailure describes one pair that could not be planned
type BatchFailure struct {
	StudentID int64  `json:"student_id"`
	WordID    int64  `json:"word_id"`
	Reason    string `json:"reason"`
}

// BatchResult reports what a generation run did
type BatchResult struct {
	StudentsCount int            `json:"students_count"`
	WordsCount    int            `json:"words_count"`
	PlansCreated  int            `json:"plans_created"`
	Skipped       int            `json:"skipped"`
	Failed        []BatchFailure `json:"failed"`
}

// GenerateBatch creates a study plan for every (student, word) pair that does
// not have one yet. Existing plans are never touched, so re-running is safe.
// A failing pair is reported in Failed and does not stop the others. Failing
// to resolve the target sets, or losing the store mid-run, is returned as an
// error instead.
func (g *Generator) GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	result := &BatchResult{}

	students, err := g.resolveStudents(ctx, req, result)
	if err != nil {
		return nil, err
	}
	words, err := g.resolveWords(ctx, req, result)
	if err != nil {
		return nil, err
	}

	result.StudentsCount = len(students)
	result.WordsCount = len(words)
	if len(students) == 0 || len(words) == 0 {
		sortFailures(result.Failed)
		return result, nil
	}

	today := g.clock.Today()
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, student := range students {
		student := student
		eg.Go(func() error {
			for _, word := range words {
				if err := egCtx.Err(); err != nil {
					return err
				}

				plan := &models.StudentWord{
					StudentID:    student.ID,
					WordID:       word.ID,
					NextReviewAt: g.policy.NextReview(today, 0, 1.0, word.Difficulty),
					Status:       models.PlanPending,
				}
				created, err := g.stores.Plans.CreateIfAbsent(egCtx, plan)
				if database.IsUnavailable(err) {
					return fmt.Errorf("create plan for student %d word %d: %w", student.ID, word.ID, err)
				}

				mu.Lock()
				switch {
				case err != nil:
					result.Failed = append(result.Failed, BatchFailure{StudentID: student.ID, WordID: word.ID, Reason: err.Error()})
				case created:
					result.PlansCreated++
				default:
					result.Skipped++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sortFailures(result.Failed)
	g.logger.Info("study plans generated",
		zap.Int("students", result.StudentsCount),
		zap.Int("words", result.WordsCount),
		zap.Int("created", result.PlansCreated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (g *Generator) resolveStudents(ctx context.Context, req BatchRequest, result *BatchResult) ([]models.Student, error) {
	if len(req.StudentIDs) == 0 {
		if req.ClassID == 0 {
			return nil, nil
		}
		students, err := g.stores.Students.ListActiveByClass(ctx, req.ClassID)
		if err != nil {
			return nil, fmt.Errorf("resolve students of class %d: %w", req.ClassID, err)
		}
		return students, nil
	}

	ids := uniqueIDs(req.StudentIDs)
	students, err := g.stores.Students.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve students: %w", err)
	}

	found := make(map[int64]bool, len(students))
	for _, s := range students {
		found[s.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			result.Failed = append(result.Failed, BatchFailure{StudentID: id, Reason: "student not found"})
		}
	}
	return students, nil
}

func (g *Generator) resolveWords(ctx context.Context, req BatchRequest, result *BatchResult) ([]models.Word, error) {
	if len(req.WordIDs) == 0 {
		words, err := g.stores.Words.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve catalog words: %w", err)
		}
		return words, nil
	}

	ids := uniqueIDs(req.WordIDs)
	words, err := g.stores.Words.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve words: %w", err)
	}

	found := make(map[int64]bool, len(words))
	for _, w := range words {
		found[w.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			result.Failed = append(result.Failed, BatchFailure{WordID: id, Reason: "word not found"})
		}
	}
	return words, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sortFailures(f []BatchFailure) {
	sort.Slice(f, func(i, j int) bool {
		if f[i].StudentID != f[j].StudentID {
			return f[i].StudentID < f[j].StudentID
		}
		return f[i].WordID < f[j].WordID
	})
}
