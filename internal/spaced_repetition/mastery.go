package spaced_repetition

import (
	"database/sql"

	"github.com/example/vocabplan/pkg/models"
)

// Default classifier thresholds
const (
	DefaultMasteryThreshold   = 3
	DefaultDifficultThreshold = 3
	DefaultAccuracyWindow     = 10
)

// Classifier decides the mastered/difficult flags and the urgency of a word
type Classifier struct {
	MasteryThreshold   int // consecutive correct answers needed for mastery
	DifficultThreshold int // total wrong answers that mark a word difficult
	AccuracyWindow     int // number of most recent answers used for accuracy
}

// NewClassifier creates a classifier with the default thresholds
func NewClassifier() Classifier {
	return Classifier{
		MasteryThreshold:   DefaultMasteryThreshold,
		DifficultThreshold: DefaultDifficultThreshold,
		AccuracyWindow:     DefaultAccuracyWindow,
	}
}

// Classification holds the recomputed flags of a word
type Classification struct {
	IsMastered  bool
	IsDifficult bool
}

// IsMastered reports whether the streak reaches the mastery threshold
func (c Classifier) IsMastered(consecutiveCorrect int) bool {
	return consecutiveCorrect >= c.masteryThreshold()
}

// IsDifficult reports whether the word has been missed often enough
func (c Classifier) IsDifficult(totalWrongCount int) bool {
	return totalWrongCount >= c.difficultThreshold()
}

// Classify computes both flags
func (c Classifier) Classify(consecutiveCorrect, totalWrongCount int) Classification {
	return Classification{
		IsMastered:  c.IsMastered(consecutiveCorrect),
		IsDifficult: c.IsDifficult(totalWrongCount),
	}
}

// Accuracy returns the fraction of correct outcomes; an empty history scores 0
func (c Classifier) Accuracy(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(outcomes))
}

// RecentAccuracy is the accuracy of the newest AccuracyWindow outcomes.
// Outcomes are ordered most recent first. With no history the interval
// policy's neutral default of 1.0 is returned.
func (c Classifier) RecentAccuracy(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 1.0
	}
	if w := c.AccuracyWindow; w > 0 && len(outcomes) > w {
		outcomes = outcomes[:w]
	}
	return c.Accuracy(outcomes)
}

// Priority orders due words; higher is more urgent
func (c Classifier) Priority(isDifficult bool, daysOverdue, reviewCount int) int {
	p := 0
	if isDifficult {
		p += 100
	}
	if daysOverdue > 0 {
		p += 10 * daysOverdue
	}
	if reviewCount < 5 {
		p += 5 * (5 - max(reviewCount, 0))
	}
	return p
}

// Apply folds an answer into the word's state and reschedules it.
// recent must hold the latest outcomes, most recent first, including this one.
func (c Classifier) Apply(state *models.StudentWord, outcome models.AnswerOutcome, recent []bool, difficulty models.Difficulty, policy Policy) {
	if outcome.Correct {
		state.ReviewCount++
		state.ConsecutiveCorrect++
	} else {
		state.ConsecutiveCorrect = 0
		state.TotalWrongCount++
	}

	cls := c.Classify(state.ConsecutiveCorrect, state.TotalWrongCount)
	state.IsMastered = cls.IsMastered
	state.IsDifficult = cls.IsDifficult

	reviewedOn := policy.Clock.StartOfDay(outcome.AnsweredAt)
	state.LastReviewAt = sql.NullTime{Time: outcome.AnsweredAt, Valid: true}
	state.NextReviewAt = policy.NextReview(reviewedOn, state.ReviewCount, c.RecentAccuracy(recent), difficulty)

	if state.IsMastered {
		state.Status = models.PlanCompleted
	} else {
		state.Status = models.PlanActive
	}
}

// Interrupt marks an ACTIVE word whose study session went stale.
// It reports whether the state changed.
func Interrupt(state *models.StudentWord) bool {
	if state.Status != models.PlanActive {
		return false
	}
	state.Status = models.PlanInterrupted
	return true
}

func (c Classifier) masteryThreshold() int {
	if c.MasteryThreshold <= 0 {
		return DefaultMasteryThreshold
	}
	return c.MasteryThreshold
}

func (c Classifier) difficultThreshold() int {
	if c.DifficultThreshold <= 0 {
		return DefaultDifficultThreshold
	}
	return c.DifficultThreshold
}
