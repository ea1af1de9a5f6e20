package models

import (
	"database/sql"
	"time"
)

// QuestionType is the form in which a word is asked
type QuestionType string

const (
	FillInBlank      QuestionType = "FILL_IN_BLANK"
	EnglishToChinese QuestionType = "ENGLISH_TO_CHINESE"
	ChineseToEnglish QuestionType = "CHINESE_TO_ENGLISH"
	Listening        QuestionType = "LISTENING"
)

// ChoiceTypes are the multiple-choice sub-types
var ChoiceTypes = []QuestionType{EnglishToChinese, ChineseToEnglish, Listening}

// IsChoice reports whether the type is answered by picking an option
func (q QuestionType) IsChoice() bool {
	return q == EnglishToChinese || q == ChineseToEnglish || q == Listening
}

// TaskStatus tracks whether a daily task has been answered
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"
)

// DailyTask is one word assigned to a student for a given day
type DailyTask struct {
	ID           int64        `json:"id" db:"id"`
	BatchID      string       `json:"batch_id" db:"batch_id"`
	StudentID    int64        `json:"student_id" db:"student_id"`
	WordID       int64        `json:"word_id" db:"word_id"`
	TaskDate     time.Time    `json:"task_date" db:"task_date"`
	QuestionType QuestionType `json:"question_type" db:"question_type"`
	Status       TaskStatus   `json:"status" db:"status"`
	CompletedAt  sql.NullTime `json:"completed_at" db:"completed_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// DailyTaskBatch is the set of tasks generated for one student on one day
type DailyTaskBatch struct {
	ID        string      `json:"id"`
	StudentID int64       `json:"student_id"`
	Date      time.Time   `json:"date"`
	Tasks     []DailyTask `json:"tasks"`
}

// Pending returns the tasks not yet answered, in batch order
func (b *DailyTaskBatch) Pending() []DailyTask {
	var pending []DailyTask
	for _, t := range b.Tasks {
		if t.Status != TaskCompleted {
			pending = append(pending, t)
		}
	}
	return pending
}
