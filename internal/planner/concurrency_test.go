package planner

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabplan/pkg/models"
)

func TestGenerateBatch_OverlappingRunsCreateEachPairOnce(t *testing.T) {
	env := newTestEnv(t, 4, 6)
	ctx := context.Background()
	students, words := env.studentIDs(), env.wordIDs()

	// Every request shares at least one student and one word with another.
	requests := []BatchRequest{
		{StudentIDs: students[:3], WordIDs: words[:4]},
		{StudentIDs: students[1:], WordIDs: words[2:]},
		{StudentIDs: students, WordIDs: words},
		{ClassID: env.class.ID, WordIDs: words[1:5]},
		{StudentIDs: students[:2]},
		{StudentIDs: students[2:], WordIDs: words[:3]},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for round := 0; round < 3; round++ {
		for _, req := range requests {
			wg.Add(1)
			go func(req BatchRequest) {
				defer wg.Done()
				res, err := env.generator(day0).GenerateBatch(ctx, req)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				assert.Empty(t, res.Failed)
				created += res.PlansCreated
			}(req)
		}
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, len(students)*len(words), created)

	for _, id := range students {
		plans, err := env.repos.Plans.ListByStudent(ctx, id)
		require.NoError(t, err)
		assert.Len(t, plans, len(words))
	}
}

func TestBuildDailyBatch_ConcurrentCallersShareOneBatch(t *testing.T) {
	env := plannedEnv(t, 10)
	ctx := context.Background()
	studentID := env.students[0].ID

	const callers = 8
	batches := make([]*models.DailyTaskBatch, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each caller has its own generator, as separate requests would.
			batches[i], errs[i] = env.generator(day1).BuildDailyBatch(ctx, studentID, 0)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	want := taskKeys(batches[0])
	require.Len(t, want, 10)
	require.NotEmpty(t, batches[0].ID)
	for _, b := range batches[1:] {
		assert.Equal(t, batches[0].ID, b.ID)
		assert.Equal(t, want, taskKeys(b))
	}

	stored, err := env.repos.Tasks.ListForDay(ctx, studentID, date(2024, 1, 2))
	require.NoError(t, err)
	require.Len(t, stored, 10)
	fill := 0
	for _, task := range stored {
		assert.Equal(t, batches[0].ID, task.BatchID)
		if task.QuestionType == models.FillInBlank {
			fill++
		}
	}
	assert.Equal(t, 2, fill)
}

type taskKey struct {
	WordID int64
	Type   models.QuestionType
}

func taskKeys(b *models.DailyTaskBatch) []taskKey {
	keys := make([]taskKey, len(b.Tasks))
	for i, task := range b.Tasks {
		keys[i] = taskKey{WordID: task.WordID, Type: task.QuestionType}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].WordID < keys[j].WordID })
	return keys
}
