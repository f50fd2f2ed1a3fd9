package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("GERRIT_URL", "https://review.example.com")
	t.Setenv("BOT_EMAIL", "automerge@example.com")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "gerrit-automerge", cfg.ServiceName)
	assert.Equal(t, "https://review.example.com", cfg.GerritURL)
	assert.Equal(t, "automerge@example.com", cfg.BotEmail)
	assert.Equal(t, 30*time.Second, cfg.GerritRequestTimeout)
	assert.Equal(t, 256, cfg.EventQueueSize)
	assert.False(t, cfg.GerritSSHEnabled)
	assert.True(t, cfg.DatabaseEnabled)
	assert.Empty(t, cfg.TemplateCantMerge)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("GERRIT_URL", "https://review.example.com")
	t.Setenv("BOT_EMAIL", "automerge@example.com")
	t.Setenv("TEMPLATE_CANT_MERGE", "/etc/automerge/cant_merge.txt")
	t.Setenv("GERRIT_SSH_ENABLED", "true")
	t.Setenv("GERRIT_SSH_RECONNECT_DELAY", "1m")
	t.Setenv("DATABASE_ENABLED", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/etc/automerge/cant_merge.txt", cfg.TemplateCantMerge)
	assert.True(t, cfg.GerritSSHEnabled)
	assert.Equal(t, time.Minute, cfg.GerritSSHReconnectDelay)
	assert.False(t, cfg.DatabaseEnabled)
}

func TestNewRequiresBotIdentity(t *testing.T) {
	t.Setenv("GERRIT_URL", "https://review.example.com")
	// register restore, then drop the variable entirely
	t.Setenv("BOT_EMAIL", "")
	require.NoError(t, os.Unsetenv("BOT_EMAIL"))

	_, err := New()
	assert.Error(t, err)
}
