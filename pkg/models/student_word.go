package models

import (
	"database/sql"
	"time"
)

// PlanStatus is the lifecycle of one scheduled (student, word) occurrence
type PlanStatus string

const (
	PlanPending     PlanStatus = "PENDING"     // never reviewed
	PlanActive      PlanStatus = "ACTIVE"      // has a scheduled next review
	PlanCompleted   PlanStatus = "COMPLETED"   // mastered, no further scheduling
	PlanInterrupted PlanStatus = "INTERRUPTED" // a session was started but never submitted
)

// StudentWord tracks a student's progress with a specific word
type StudentWord struct {
	ID                 int64        `json:"id" db:"id"`
	StudentID          int64        `json:"student_id" db:"student_id"`
	WordID             int64        `json:"word_id" db:"word_id"`
	ReviewCount        int          `json:"review_count" db:"review_count"`               // Successful reviews so far
	ConsecutiveCorrect int          `json:"consecutive_correct" db:"consecutive_correct"` // Reset on any wrong answer
	TotalWrongCount    int          `json:"total_wrong_count" db:"total_wrong_count"`
	IsMastered         bool         `json:"is_mastered" db:"is_mastered"`
	IsDifficult        bool         `json:"is_difficult" db:"is_difficult"`
	NextReviewAt       time.Time    `json:"next_review_at" db:"next_review_at"` // Always 00:00 of its day
	LastReviewAt       sql.NullTime `json:"last_review_at" db:"last_review_at"`
	Status             PlanStatus   `json:"status" db:"status"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}
