package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Budget
		wantErr bool
	}{
		{name: "empty is unlimited", in: "", want: Budget{}},
		{name: "duration window", in: "5/1m", want: Budget{Count: 5, Window: time.Minute}},
		{name: "seconds window", in: "1/60", want: Budget{Count: 1, Window: 60 * time.Second}},
		{name: "spaces", in: " 3 / 2h ", want: Budget{Count: 3, Window: 2 * time.Hour}},
		{name: "missing slash", in: "5", wantErr: true},
		{name: "bad count", in: "x/1m", wantErr: true},
		{name: "bad window", in: "5/soon", wantErr: true},
		{name: "zero window", in: "5/0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBudget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("OPENAI_SECRET_KEY", "sk-test")
	t.Setenv("CHATGPT_CONVERSATION_TIME_LIMIT", "120")
	t.Setenv("CHATGPT_USER_LIMIT", "1/60")
	t.Setenv("CHATGPT_WHITELIST_USER_LIMIT", "10/1m")
	t.Setenv("CHATGPT_WHITELIST_USER_IDS", "u1, u2,,u3")
	t.Setenv("COMPONENT_CHANNEL_TIMEOUT", "30s")
	t.Setenv("CHATGPT_PERSONA", "critic")
	t.Setenv("CHATGPT_PERSONA_PARAMS", "server=Film Club,tone=dry")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Chat.Enabled())
	assert.Equal(t, 2*time.Minute, cfg.Chat.ConversationTTL())
	assert.Equal(t, Budget{Count: 1, Window: time.Minute}, cfg.Chat.UserLimit)
	assert.False(t, cfg.Chat.GuildLimit.Enabled())
	assert.Equal(t, Budget{Count: 10, Window: time.Minute}, cfg.Chat.WhitelistUserLimit)
	assert.Equal(t, []string{"u1", "u2", "u3"}, cfg.Chat.WhitelistUserIDs)
	assert.Equal(t, 30*time.Second, cfg.Component.ChannelTimeout)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Chat.Model)
	assert.Equal(t, "critic", cfg.Chat.Persona)
	assert.Equal(t, "personas", cfg.Chat.PersonaDir)
	assert.Equal(t, map[string]string{"server": "Film Club", "tone": "dry"}, cfg.Chat.PersonaParams)
}

func TestLoadDisablesFeaturesWhenUnset(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("OPENAI_SECRET_KEY", "")
	t.Setenv("CHATGPT_CONVERSATION_TIME_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Chat.Enabled())
	assert.Zero(t, cfg.Chat.ConversationTTL())
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cinebot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chat:
  provider: anthropic
  anthropic_api_key: ak-file
  model: claude-file
  guild_limit: 20/1h
movies:
  database_path: /tmp/file.db
`), 0o644))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("CHATGPT_MODEL", "claude-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Chat.Provider)
	assert.Equal(t, "ak-file", cfg.Chat.Credential())
	assert.Equal(t, "claude-env", cfg.Chat.Model)
	assert.Equal(t, Budget{Count: 20, Window: time.Hour}, cfg.Chat.GuildLimit)
	assert.Equal(t, "/tmp/file.db", cfg.Movies.DatabasePath)
	assert.Equal(t, 18790, cfg.Gateway.Port)
	assert.True(t, cfg.Gateway.Enabled)
	assert.Equal(t, "*/5 * * * *", cfg.Janitor.Schedule)
}

func TestLoadRejectsBadBudget(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("CHATGPT_USER_LIMIT", "lots")

	_, err := Load()
	assert.Error(t, err)
}
