package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("PRIVATE_CHANNEL_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "subscriptions.db", cfg.Database.File)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Zero(t, cfg.Telegram.PrivateChannelID)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "42")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidAdminID(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "admin")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ChannelAndInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("PRIVATE_CHANNEL_ID", "-1001234567890")
	t.Setenv("SWEEP_INTERVAL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), cfg.Telegram.PrivateChannelID)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
}

func TestS3Config_Enabled(t *testing.T) {
	assert.False(t, S3Config{}.Enabled())
	assert.True(t, S3Config{Endpoint: "s3.example.com", Bucket: "exports"}.Enabled())
}
