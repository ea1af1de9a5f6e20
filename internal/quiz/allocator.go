package quiz

import (
	"math/rand"
	"sync"
	"time"

	"github.com/example/vocabplan/pkg/models"
)

// FillInBlankShare is the exact share of a batch asked as fill-in-blank
const FillInBlankShare = 0.2

// Allocator assigns question types to a day's words
type Allocator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAllocator creates an allocator drawing from src.
// A nil source falls back to a time-seeded one.
func NewAllocator(src rand.Source) *Allocator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Allocator{rnd: rand.New(src)}
}

// Allocate maps every word to a question type. Exactly floor(n*0.2) words get
// FILL_IN_BLANK; each of the others gets a choice sub-type drawn uniformly.
// Duplicate ids are counted once.
func (a *Allocator) Allocate(wordIDs []int64) map[int64]models.QuestionType {
	ids := dedupe(wordIDs)
	allocation := make(map[int64]models.QuestionType, len(ids))
	if len(ids) == 0 {
		return allocation
	}

	// n/5 is floor(n*0.2) without float error.
	fillCount := len(ids) / 5

	a.mu.Lock()
	defer a.mu.Unlock()

	a.rnd.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	for i, id := range ids {
		if i < fillCount {
			allocation[id] = models.FillInBlank
			continue
		}
		allocation[id] = models.ChoiceTypes[a.rnd.Intn(len(models.ChoiceTypes))]
	}
	return allocation
}

// AllocationStats summarises an allocation for monitoring
type AllocationStats struct {
	Total                 int
	Counts                map[models.QuestionType]int
	ChoicePercentage      float64
	FillInBlankPercentage float64
}

// Stats counts an allocation per type
func Stats(allocation map[int64]models.QuestionType) AllocationStats {
	stats := AllocationStats{
		Total:  len(allocation),
		Counts: make(map[models.QuestionType]int, 4),
	}
	for _, qt := range allocation {
		stats.Counts[qt]++
	}
	if stats.Total == 0 {
		return stats
	}
	fill := stats.Counts[models.FillInBlank]
	stats.FillInBlankPercentage = float64(fill) / float64(stats.Total) * 100
	stats.ChoicePercentage = float64(stats.Total-fill) / float64(stats.Total) * 100
	return stats
}

// SelectQuestionForWord prefers a question of the target type and otherwise
// falls back to any available one. It only fails when nothing is available.
func (a *Allocator) SelectQuestionForWord(available []Question, target models.QuestionType) (Question, bool) {
	if len(available) == 0 {
		return Question{}, false
	}

	var matching []Question
	for _, q := range available {
		if q.Type == target {
			matching = append(matching, q)
		}
	}
	if len(matching) == 0 {
		matching = available
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return matching[a.rnd.Intn(len(matching))], true
}

// shuffleStrings shuffles options under the allocator's lock
func (a *Allocator) shuffleStrings(s []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rnd.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
