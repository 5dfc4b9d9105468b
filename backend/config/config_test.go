package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.RecentTopicsLimit)
	assert.Equal(t, "5 0 * * *", cfg.StreakExpiryCron)
	assert.Empty(t, cfg.AdminEmails)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("RECENT_TOPICS_LIMIT", "50")
	t.Setenv("ADMIN_EMAILS", " Root@Example.com, ,ops@example.com")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.RecentTopicsLimit)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("ROOT@example.com "))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLocationFallback(t *testing.T) {
	assert.Equal(t, time.Local, (&Config{Timezone: "Mars/Olympus"}).Location())
	assert.Equal(t, time.Local, (&Config{}).Location())

	var nilCfg *Config
	assert.Equal(t, time.Local, nilCfg.Location())
}
