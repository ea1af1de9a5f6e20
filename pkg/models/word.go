package models

import (
	"strings"
	"time"
)

// Difficulty is the catalog difficulty tier of a word
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ParseDifficulty maps free-form input (import files, admin commands) to a tier.
// Anything unrecognised becomes MEDIUM.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EASY", "E", "1", "2":
		return DifficultyEasy
	case "HARD", "H", "4", "5":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// Word represents an English word in the catalog
type Word struct {
	ID          int64      `json:"id" db:"id"`
	EnglishWord string     `json:"english_word" db:"english_word"`
	Translation string     `json:"translation" db:"translation"`
	Example     string     `json:"example" db:"example"`     // Example sentence used for fill-in-blank
	AudioURL    string     `json:"audio_url" db:"audio_url"` // Optional: pronunciation audio for listening
	ImageURL    string     `json:"image_url" db:"image_url"` // Optional: illustration
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
