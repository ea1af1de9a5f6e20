package models

import (
	"database/sql"
	"time"
)

// DefaultNotificationHour is when reminders go out unless a student picks another hour
const DefaultNotificationHour = 18

// Student represents a learner enrolled in a class
type Student struct {
	ID               int64         `json:"id" db:"id"`
	ClassID          int64         `json:"class_id" db:"class_id"`
	StudentNumber    string        `json:"student_number" db:"student_number"`
	Name             string        `json:"name" db:"name"`
	TelegramChatID   sql.NullInt64 `json:"telegram_chat_id" db:"telegram_chat_id"`
	WordsPerDay      int           `json:"words_per_day" db:"words_per_day"`
	NotificationHour int           `json:"notification_hour" db:"notification_hour"` // Hour of day for reminders (0-23)
	IsActive         bool          `json:"is_active" db:"is_active"`                 // false once archived
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}
