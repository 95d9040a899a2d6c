package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 服务运行配置，全部来自环境变量
type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	LogLevel      string
	LogFile       string
	CORSOrigins   []string

	Mentions MentionConfig

	MessageMaxLength         int
	NotificationListDefault  int
	NotificationListMax      int
	NotificationPollInterval time.Duration
	ChatPollInterval         time.Duration
}

// MentionConfig @提及的句柄规则
type MentionConfig struct {
	MinLength       int
	MaxLength       int
	LegacyMinLength int
	// LegacyHandles 早期注册、短于 MinLength 的句柄白名单
	LegacyHandles []string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=pinboard port=5432 sslmode=disable"),
		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", "server.log"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		Mentions: MentionConfig{
			MinLength:       getEnvInt("MENTION_MIN_LENGTH", 3),
			MaxLength:       getEnvInt("MENTION_MAX_LENGTH", 20),
			LegacyMinLength: getEnvInt("MENTION_LEGACY_MIN_LENGTH", 2),
			LegacyHandles:   splitList(getEnv("MENTION_LEGACY_HANDLES", "om")),
		},
		MessageMaxLength:         getEnvInt("MESSAGE_MAX_LENGTH", 2000),
		NotificationListDefault:  getEnvInt("NOTIFICATION_LIST_LIMIT", 50),
		NotificationListMax:      100,
		NotificationPollInterval: getEnvDuration("NOTIFICATION_POLL_INTERVAL", 9*time.Second),
		ChatPollInterval:         getEnvDuration("CHAT_POLL_INTERVAL", 8*time.Second),
	}
}

// DefaultMentions 未加载环境变量时使用的默认规则 (测试/CLI)
func DefaultMentions() MentionConfig {
	return MentionConfig{MinLength: 3, MaxLength: 20, LegacyMinLength: 2, LegacyHandles: []string{"om"}}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
