package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Telegram users allowed to run admin commands
	AdminUserIDs []int64
	// How long an unanswered question stays open
	SessionTTL time.Duration
	// How often expired questions are swept
	SweepInterval time.Duration
	// Long polling timeout in seconds
	UpdateTimeout int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() BotConfig {
	return BotConfig{
		SessionTTL:    24 * time.Hour,
		SweepInterval: 10 * time.Minute,
		UpdateTimeout: 60,
	}
}

func (c BotConfig) isAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
