package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_CLIENT_ID", "123")
	t.Setenv("DISCORD_GUILD_ID", "456")
	t.Setenv("INVITATION_FORUM_CHANNEL_ID", "789")
	t.Setenv("TICKET_CATEGORY_ID", "101")
	t.Setenv("STAFF_ROLE_ID", "202")
	t.Setenv("MEMBER_ROLE_ID", "303")
	t.Setenv("DATABASE_URL", "postgres://localhost/meetbot")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.DBPoolMin)
	assert.Equal(t, 10, cfg.DBPoolMax)
	assert.Equal(t, "0 * * * *", cfg.AutoCloseSchedule)
	assert.Equal(t, "0 9 * * *", cfg.ReminderSchedule)
	assert.Equal(t, 24*time.Hour, cfg.ReminderLead)
	assert.Equal(t, 5*time.Minute, cfg.TicketDeletionDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.OpsPort)
	assert.True(t, cfg.InvitationEnabled)
	assert.True(t, cfg.TicketEnabled)
	assert.True(t, cfg.AutoCloseEnabled)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FEATURE_REMINDER_ENABLED", "false")
	t.Setenv("TICKET_DELETION_DELAY_SECONDS", "60")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_POOL_MAX", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.ReminderEnabled)
	assert.Equal(t, time.Minute, cfg.TicketDeletionDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 25, cfg.DBPoolMax)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadLogLevel(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_POOL_MAX", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DBPoolMax)
}
