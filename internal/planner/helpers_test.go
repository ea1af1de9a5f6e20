package planner

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/internal/quiz"
	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/internal/spaced_repetition"
	"github.com/example/vocabplan/pkg/models"
)

var day0 = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	repos    *database.Repositories
	class    *models.Class
	students []*models.Student
	words    []*models.Word
}

func newTestEnv(t *testing.T, students, words int) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{repos: database.NewRepositories(db)}
	env.class, err = env.repos.Classes.GetOrCreate(ctx, "Class 1")
	require.NoError(t, err)

	for i := 0; i < students; i++ {
		s := &models.Student{
			ClassID:       env.class.ID,
			StudentNumber: fmt.Sprintf("S%03d", i+1),
			Name:          fmt.Sprintf("Student %d", i+1),
			IsActive:      true,
		}
		require.NoError(t, env.repos.Students.Create(ctx, s))
		env.students = append(env.students, s)
	}
	for i := 0; i < words; i++ {
		w := &models.Word{
			EnglishWord: fmt.Sprintf("word%02d", i+1),
			Translation: fmt.Sprintf("t%02d", i+1),
			Difficulty:  models.DifficultyMedium,
		}
		require.NoError(t, env.repos.Words.Create(ctx, w))
		env.words = append(env.words, w)
	}
	return env
}

func (e *testEnv) generator(now time.Time) *Generator {
	return e.generatorWith(NewStores(e.repos), now)
}

func (e *testEnv) generatorWith(stores Stores, now time.Time) *Generator {
	clock := reviewclock.NewWithNow(time.UTC, func() time.Time { return now })
	return NewGenerator(stores, Options{
		Clock:      clock,
		Policy:     spaced_repetition.NewPolicy(clock),
		Classifier: spaced_repetition.NewClassifier(),
		Allocator:  quiz.NewAllocator(rand.NewSource(7)),
		Workers:    2,
	})
}

func (e *testEnv) studentIDs() []int64 {
	ids := make([]int64, len(e.students))
	for i, s := range e.students {
		ids[i] = s.ID
	}
	return ids
}

func (e *testEnv) wordIDs() []int64 {
	ids := make([]int64, len(e.words))
	for i, w := range e.words {
		ids[i] = w.ID
	}
	return ids
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
