package spaced_repetition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/pkg/models"
)

func TestRankDue(t *testing.T) {
	c := NewClassifier()
	clock := reviewclock.New(nil)
	today := date(2024, 4, 10)

	states := []models.StudentWord{
		{WordID: 1, ReviewCount: 5, NextReviewAt: date(2024, 4, 10), Status: models.PlanActive},                   // 0
		{WordID: 2, ReviewCount: 5, NextReviewAt: date(2024, 4, 7), Status: models.PlanActive},                    // 30
		{WordID: 3, ReviewCount: 0, NextReviewAt: date(2024, 4, 11), Status: models.PlanPending},                  // not due
		{WordID: 4, ReviewCount: 4, NextReviewAt: date(2024, 4, 9), Status: models.PlanActive, IsDifficult: true}, // 115
		{WordID: 5, ReviewCount: 1, NextReviewAt: date(2024, 4, 1), Status: models.PlanCompleted},                 // excluded
		{WordID: 6, ReviewCount: 2, NextReviewAt: date(2024, 4, 9), Status: models.PlanInterrupted},               // 25
	}

	due := c.RankDue(clock, states, today, 0)

	require.Len(t, due, 4)
	ids := make([]int64, len(due))
	for i, d := range due {
		ids[i] = d.State.WordID
	}
	assert.Equal(t, []int64{4, 2, 6, 1}, ids)
	assert.Equal(t, 115, due[0].Priority)
	assert.Equal(t, 3, due[1].DaysOverdue)
}

func TestRankDue_TiesKeepInputOrder(t *testing.T) {
	c := NewClassifier()
	clock := reviewclock.New(nil)
	today := date(2024, 4, 10)

	var states []models.StudentWord
	for id := int64(1); id <= 6; id++ {
		states = append(states, models.StudentWord{WordID: id, NextReviewAt: today, Status: models.PlanPending})
	}

	due := c.RankDue(clock, states, today, 4)

	require.Len(t, due, 4)
	for i, d := range due {
		assert.Equal(t, int64(i+1), d.State.WordID)
	}
}

func TestRankDue_Empty(t *testing.T) {
	c := NewClassifier()

	assert.Empty(t, c.RankDue(reviewclock.New(nil), nil, date(2024, 1, 1), 10))
}
