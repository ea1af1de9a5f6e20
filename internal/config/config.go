// Package config reads the process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBType      string // sqlite or postgres
	DBPath      string
	DatabaseURL string
	Timezone    string

	TelegramToken string
	AdminUserIDs  []int64

	OpenAIKey   string
	OpenAIModel string

	DailyTaskHour      int
	DefaultWordsPerDay int
	GenerateWorkers    int
	EnableScheduler    bool

	MasteryThreshold   int
	DifficultThreshold int
	AccuracyWindow     int

	LogDir   string
	LogLevel string
}

// Load reads .env when present, then the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBType:        strings.ToLower(getenvDefault("DB_TYPE", "sqlite")),
		DBPath:        getenvDefault("DB_PATH", "vocabplan.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Timezone:      getenvDefault("TIMEZONE", "UTC"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenvDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		LogDir:        getenvDefault("LOG_DIR", "logs"),
		LogLevel:      getenvDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.AdminUserIDs, err = getInt64List("ADMIN_USER_IDS"); err != nil {
		return nil, err
	}
	if cfg.DailyTaskHour, err = getInt("DAILY_TASK_HOUR", 7); err != nil {
		return nil, err
	}
	if cfg.DefaultWordsPerDay, err = getInt("DEFAULT_WORDS_PER_DAY", 20); err != nil {
		return nil, err
	}
	if cfg.GenerateWorkers, err = getInt("GENERATE_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.MasteryThreshold, err = getInt("MASTERY_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.DifficultThreshold, err = getInt("DIFFICULT_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.AccuracyWindow, err = getInt("ACCURACY_WINDOW", 10); err != nil {
		return nil, err
	}
	if cfg.EnableScheduler, err = getBool("ENABLE_SCHEDULER", true); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the data source for the configured driver
func (c *Config) DSN() string {
	if c.DBType == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// IsAdmin reports whether a Telegram user may run admin commands
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	switch c.DBType {
	case "sqlite", "sqlite3":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when DB_TYPE=postgres")
		}
	default:
		return fmt.Errorf("config: unsupported DB_TYPE %q", c.DBType)
	}
	if c.DailyTaskHour < 0 || c.DailyTaskHour > 23 {
		return fmt.Errorf("config: DAILY_TASK_HOUR=%d is out of range", c.DailyTaskHour)
	}
	return nil
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getInt(k string, fallback int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid integer: %w", k, v, err)
	}
	return n, nil
}

func getBool(k string, fallback bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a valid boolean: %w", k, v, err)
	}
	return b, nil
}

func getInt64List(k string) ([]int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: %s contains invalid id %q: %w", k, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
