package database

import (
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Connect opens the database and makes sure the schema exists
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" || driver == "sqlite" {
		driver = DriverSQLite
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// schema is written for SQLite; postgres-specific types are substituted in
var schema = []string{
	`CREATE TABLE IF NOT EXISTS classes (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		created_at {{ts}} DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id {{pk}},
		class_id INTEGER NOT NULL REFERENCES classes(id),
		student_number TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		telegram_chat_id BIGINT UNIQUE,
		words_per_day INTEGER NOT NULL DEFAULT 20,
		notification_hour INTEGER NOT NULL DEFAULT 18,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id {{pk}},
		english_word TEXT NOT NULL UNIQUE,
		translation TEXT NOT NULL,
		example TEXT NOT NULL DEFAULT '',
		audio_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT 'MEDIUM',
		created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS student_words (
		id {{pk}},
		student_id INTEGER NOT NULL REFERENCES students(id),
		word_id INTEGER NOT NULL REFERENCES words(id),
		review_count INTEGER NOT NULL DEFAULT 0,
		consecutive_correct INTEGER NOT NULL DEFAULT 0,
		total_wrong_count INTEGER NOT NULL DEFAULT 0,
		is_mastered BOOLEAN NOT NULL DEFAULT FALSE,
		is_difficult BOOLEAN NOT NULL DEFAULT FALSE,
		next_review_at {{ts}} NOT NULL,
		last_review_at {{ts}},
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(student_id, word_id)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_tasks (
		id {{pk}},
		batch_id TEXT NOT NULL,
		student_id INTEGER NOT NULL REFERENCES students(id),
		word_id INTEGER NOT NULL REFERENCES words(id),
		task_date {{ts}} NOT NULL,
		question_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		completed_at {{ts}},
		created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(student_id, word_id, task_date)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_batches (
		id {{pk}},
		batch_id TEXT NOT NULL UNIQUE,
		student_id INTEGER NOT NULL REFERENCES students(id),
		batch_date {{ts}} NOT NULL,
		created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(student_id, batch_date)
	)`,
	`CREATE TABLE IF NOT EXISTS answers (
		id {{pk}},
		student_id INTEGER NOT NULL REFERENCES students(id),
		word_id INTEGER NOT NULL REFERENCES words(id),
		question_type TEXT NOT NULL,
		correct BOOLEAN NOT NULL,
		answered_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_answers_student_word ON answers(student_id, word_id, answered_at)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_tasks_student_date ON daily_tasks(student_id, task_date)`,
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	pk, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if db.DriverName() == DriverPostgres {
		pk, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	r := strings.NewReplacer("{{pk}}", pk, "{{ts}}", ts)

	for _, stmt := range schema {
		if _, err := db.Exec(r.Replace(stmt)); err != nil {
			return errors.Wrapf(err, "failed to initialize schema: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
