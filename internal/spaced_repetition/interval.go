package spaced_repetition

import (
	"math"
	"time"

	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/pkg/models"
)

// DefaultBaseIntervals are the review stages in days. The stage index is the
// review count, capped at the last entry.
var DefaultBaseIntervals = []int{1, 2, 4, 7, 15}

// Accuracy bands for the interval adjustment
const (
	LowAccuracy  = 0.6
	HighAccuracy = 0.9
)

var difficultyMultipliers = map[models.Difficulty]float64{
	models.DifficultyEasy:   1.2,
	models.DifficultyMedium: 1.0,
	models.DifficultyHard:   0.8,
}

// Policy computes the next review date of a word. It is total: malformed
// history is clamped rather than rejected.
type Policy struct {
	BaseIntervals []int
	Clock         reviewclock.Clock
}

// NewPolicy creates a policy with the default stage table
func NewPolicy(clock reviewclock.Clock) Policy {
	return Policy{BaseIntervals: DefaultBaseIntervals, Clock: clock}
}

// NextReview returns the start of the day the word should be reviewed again
func (p Policy) NextReview(lastReview time.Time, reviewCount int, recentAccuracy float64, difficulty models.Difficulty) time.Time {
	days := p.IntervalDays(reviewCount, recentAccuracy, difficulty)
	return p.Clock.AddDays(lastReview, days)
}

// IntervalDays returns the adjusted interval, never less than one day
func (p Policy) IntervalDays(reviewCount int, recentAccuracy float64, difficulty models.Difficulty) int {
	base := p.baseInterval(reviewCount)

	// Stage 0 has no history yet, so the default accuracy earns no bonus.
	days := base
	if reviewCount > 0 {
		days = adjustForAccuracy(base, clampAccuracy(recentAccuracy))
	}

	mult, ok := difficultyMultipliers[difficulty]
	if !ok {
		mult = difficultyMultipliers[models.DifficultyMedium]
	}
	days = ceilDays(float64(days) * mult)

	if days < 1 {
		days = 1
	}
	return days
}

func (p Policy) baseInterval(reviewCount int) int {
	table := p.BaseIntervals
	if len(table) == 0 {
		table = DefaultBaseIntervals
	}
	stage := reviewCount
	if stage < 0 {
		stage = 0
	}
	if stage >= len(table) {
		stage = len(table) - 1
	}
	return table[stage]
}

func adjustForAccuracy(base int, accuracy float64) int {
	switch {
	case accuracy < LowAccuracy:
		halved := base / 2
		if halved < 1 {
			halved = 1
		}
		return halved
	case accuracy >= HighAccuracy:
		return ceilDays(float64(base) * 1.2)
	default:
		return base
	}
}

func clampAccuracy(a float64) float64 {
	switch {
	case math.IsNaN(a):
		return 1.0
	case a < 0:
		return 0
	case a > 1:
		return 1
	default:
		return a
	}
}

// ceilDays rounds up, ignoring float noise such as 5*1.2 = 6.000000000000001
func ceilDays(x float64) int {
	return int(math.Ceil(math.Round(x*1e9) / 1e9))
}
