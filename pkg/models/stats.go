package models

// StudentStats summarises a student's progress
type StudentStats struct {
	StudentID      int64 `json:"student_id" db:"student_id"`
	TotalWords     int   `json:"total_words" db:"total_words"`
	MasteredWords  int   `json:"mastered_words" db:"mastered_words"`
	DifficultWords int   `json:"difficult_words" db:"difficult_words"`
	DueToday       int   `json:"due_today" db:"due_today"`
	TotalAnswers   int   `json:"total_answers" db:"total_answers"`
	CorrectAnswers int   `json:"correct_answers" db:"correct_answers"`
}

// CompletionPercentage is the share of planned words already mastered
func (s StudentStats) CompletionPercentage() float64 {
	if s.TotalWords == 0 {
		return 0
	}
	return float64(s.MasteredWords) / float64(s.TotalWords) * 100
}
