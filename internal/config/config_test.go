package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MENTION_LEGACY_HANDLES", "")
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.Mentions.MinLength)
	assert.Equal(t, 20, cfg.Mentions.MaxLength)
	assert.Equal(t, []string{"om"}, cfg.Mentions.LegacyHandles)
	assert.Equal(t, 2000, cfg.MessageMaxLength)
	assert.Equal(t, 9*time.Second, cfg.NotificationPollInterval)
	assert.Equal(t, 8*time.Second, cfg.ChatPollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MENTION_LEGACY_HANDLES", " OM, jo ,")
	t.Setenv("MENTION_MAX_LENGTH", "15")
	t.Setenv("CHAT_POLL_INTERVAL", "3s")
	t.Setenv("NOTIFICATION_POLL_INTERVAL", "bogus")
	cfg := Load()

	assert.Equal(t, []string{"om", "jo"}, cfg.Mentions.LegacyHandles)
	assert.Equal(t, 15, cfg.Mentions.MaxLength)
	assert.Equal(t, 3*time.Second, cfg.ChatPollInterval)
	assert.Equal(t, 9*time.Second, cfg.NotificationPollInterval)
}
