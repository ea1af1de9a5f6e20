package spaced_repetition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/vocabplan/pkg/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name               string
		consecutiveCorrect int
		totalWrong         int
		want               Classification
	}{
		{"streak reaches threshold", 3, 0, Classification{IsMastered: true}},
		{"wrong count reaches threshold", 0, 3, Classification{IsDifficult: true}},
		{"below both thresholds", 2, 2, Classification{}},
		{"both flags", 4, 7, Classification{IsMastered: true, IsDifficult: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.consecutiveCorrect, tt.totalWrong))
		})
	}
}

func TestClassify_ZeroValueUsesDefaults(t *testing.T) {
	var c Classifier

	assert.True(t, c.IsMastered(3))
	assert.False(t, c.IsDifficult(2))
}

func TestAccuracy(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, 0.0, c.Accuracy(nil))
	assert.Equal(t, 0.0, c.Accuracy([]bool{}))
	assert.InDelta(t, 2.0/3.0, c.Accuracy([]bool{true, true, false}), 1e-12)
	assert.Equal(t, 1.0, c.Accuracy([]bool{true}))
}

func TestRecentAccuracy_UsesWindow(t *testing.T) {
	c := Classifier{AccuracyWindow: 2}

	assert.Equal(t, 1.0, c.RecentAccuracy(nil))
	assert.Equal(t, 0.5, c.RecentAccuracy([]bool{true, false, false, false}))
}

func TestPriority(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, 25, c.Priority(false, 0, 0))
	assert.Equal(t, 100+30+15, c.Priority(true, 3, 2))
	assert.Equal(t, 10, c.Priority(false, 1, 5))
	assert.Equal(t, 0, c.Priority(false, 0, 12))
	assert.Equal(t, c.Priority(false, 0, 0), c.Priority(false, 0, -3))
}

func TestApply_CorrectAnswers(t *testing.T) {
	c := NewClassifier()
	p := newTestPolicy()
	state := &models.StudentWord{Status: models.PlanPending, NextReviewAt: date(2024, 1, 2)}
	answeredAt := time.Date(2024, 1, 2, 19, 0, 0, 0, time.UTC)

	c.Apply(state, models.AnswerOutcome{Correct: true, AnsweredAt: answeredAt}, []bool{true}, models.DifficultyMedium, p)

	assert.Equal(t, 1, state.ReviewCount)
	assert.Equal(t, 1, state.ConsecutiveCorrect)
	assert.Equal(t, models.PlanActive, state.Status)
	assert.True(t, state.LastReviewAt.Valid)
	// stage 1 (2 days) with a perfect record: ceil(2*1.2) = 3
	assert.Equal(t, date(2024, 1, 5), state.NextReviewAt)

	for i := 0; i < 2; i++ {
		c.Apply(state, models.AnswerOutcome{Correct: true, AnsweredAt: answeredAt}, []bool{true, true, true}, models.DifficultyMedium, p)
	}
	assert.True(t, state.IsMastered)
	assert.Equal(t, models.PlanCompleted, state.Status)
}

func TestApply_WrongAnswerResetsStreak(t *testing.T) {
	c := NewClassifier()
	p := newTestPolicy()
	state := &models.StudentWord{
		ReviewCount:        3,
		ConsecutiveCorrect: 3,
		TotalWrongCount:    2,
		IsMastered:         true,
		Status:             models.PlanCompleted,
	}
	answeredAt := date(2024, 2, 1)

	c.Apply(state, models.AnswerOutcome{Correct: false, AnsweredAt: answeredAt}, []bool{false, true, true}, models.DifficultyHard, p)

	assert.Equal(t, 3, state.ReviewCount)
	assert.Equal(t, 0, state.ConsecutiveCorrect)
	assert.Equal(t, 3, state.TotalWrongCount)
	assert.False(t, state.IsMastered)
	assert.True(t, state.IsDifficult)
	assert.Equal(t, models.PlanActive, state.Status)
	assert.True(t, state.NextReviewAt.After(answeredAt))
}

func TestApply_ResumesInterruptedWord(t *testing.T) {
	c := NewClassifier()
	state := &models.StudentWord{ReviewCount: 1, Status: models.PlanInterrupted}

	c.Apply(state, models.AnswerOutcome{Correct: false, AnsweredAt: date(2024, 3, 1)}, []bool{false}, models.DifficultyMedium, newTestPolicy())

	assert.Equal(t, models.PlanActive, state.Status)
}

func TestInterrupt(t *testing.T) {
	tests := []struct {
		from    models.PlanStatus
		want    models.PlanStatus
		changed bool
	}{
		{models.PlanActive, models.PlanInterrupted, true},
		{models.PlanPending, models.PlanPending, false},
		{models.PlanCompleted, models.PlanCompleted, false},
		{models.PlanInterrupted, models.PlanInterrupted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			state := &models.StudentWord{Status: tt.from}
			assert.Equal(t, tt.changed, Interrupt(state))
			assert.Equal(t, tt.want, state.Status)
		})
	}
}
