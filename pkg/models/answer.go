package models

import "time"

// AnswerOutcome is a single graded answer fed to the classifier
type AnswerOutcome struct {
	Correct    bool
	AnsweredAt time.Time
}

// AnswerRecord is the persisted history of a student's answer
type AnswerRecord struct {
	ID           int64        `json:"id" db:"id"`
	StudentID    int64        `json:"student_id" db:"student_id"`
	WordID       int64        `json:"word_id" db:"word_id"`
	QuestionType QuestionType `json:"question_type" db:"question_type"`
	Correct      bool         `json:"correct" db:"correct"`
	AnsweredAt   time.Time    `json:"answered_at" db:"answered_at"`
}

// Outcome strips the record down to what the classifier needs
func (a AnswerRecord) Outcome() AnswerOutcome {
	return AnswerOutcome{Correct: a.Correct, AnsweredAt: a.AnsweredAt}
}
