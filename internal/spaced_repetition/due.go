package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/pkg/models"
)

// DueItem is a word due for review together with its urgency
type DueItem struct {
	State       models.StudentWord
	DaysOverdue int
	Priority    int
}

// RankDue returns the words due on today, most urgent first, truncated to limit.
// Completed words are never scheduled. Equal priorities keep their input order.
func (c Classifier) RankDue(clock reviewclock.Clock, states []models.StudentWord, today time.Time, limit int) []DueItem {
	var due []DueItem
	for _, s := range states {
		if s.Status == models.PlanCompleted || !clock.IsDue(s.NextReviewAt, today) {
			continue
		}
		overdue := clock.DaysBetween(s.NextReviewAt, today)
		due = append(due, DueItem{
			State:       s,
			DaysOverdue: overdue,
			Priority:    c.Priority(s.IsDifficult, overdue, s.ReviewCount),
		})
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Priority > due[j].Priority
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
