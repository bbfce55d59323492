package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken       string
	ChatID         int64
	GroupID        int64
	AdminIDs       []int64
	DBPath         string
	ServerPort     string
	WebhookBaseURL string
	WebhookSecret  string
	APIKey         string
	PollInterval   time.Duration
	PollWindow     time.Duration
	PrefetchOffset time.Duration
	TestMode       bool
}

func Load() *Config {
	return &Config{
		BotToken:       getEnv("BOT_TOKEN", ""),
		ChatID:         getEnvInt64("CHAT_ID", 0),
		GroupID:        getEnvInt64("GROUP_ID", 0),
		AdminIDs:       parseAdminIDs(getEnv("ADMIN_COMMANDS_ACCESS", "[]")),
		DBPath:         getEnv("DB_PATH", "db.sqlite3"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		APIKey:         getEnv("API_KEY", ""),
		PollInterval:   getEnvSeconds("POLL_CHECK_INTERVAL", 60),
		PollWindow:     getEnvSeconds("POLL_CLOSURE_WINDOW", 300),
		PrefetchOffset: getEnvSeconds("SCHEDULE_PREFETCH_OFFSET", 300),
		TestMode:       getEnvBool("TEST_MODE", false),
	}
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	val, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return val
}

func getEnvSeconds(key string, fallback int) time.Duration {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Second
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "t", "y", "yes":
		return true
	default:
		return false
	}
}

// parseAdminIDs reads the "[123, 456]" list form used in .env.
func parseAdminIDs(raw string) []int64 {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
