// Package config loads CineBot configuration. Defaults come first, then an
// optional YAML file named by CINEBOT_CONFIG, then the environment; each
// layer overrides the one before it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the optional YAML file.
const ConfigPathEnv = "CINEBOT_CONFIG"

type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Chat      ChatConfig      `yaml:"chat"`
	Movies    MoviesConfig    `yaml:"movies"`
	Component ComponentConfig `yaml:"component"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Janitor   JanitorConfig   `yaml:"janitor"`
	Log       LogConfig       `yaml:"log"`
}

type DiscordConfig struct {
	Token   string `yaml:"token" env:"DISCORD_TOKEN"`
	GuildID string `yaml:"guild_id" env:"DISCORD_GUILD_ID"`
}

type ChatConfig struct {
	Provider     string `yaml:"provider" env:"CHATGPT_PROVIDER"`
	APIKey       string `yaml:"api_key" env:"OPENAI_SECRET_KEY"`
	AnthropicKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	APIBase      string `yaml:"api_base" env:"CHATGPT_API_BASE"`
	Model        string `yaml:"model" env:"CHATGPT_MODEL"`
	MaxTokens    int64  `yaml:"max_tokens" env:"CHATGPT_MAX_TOKENS"`
	SystemPrompt string `yaml:"system_prompt" env:"CHATGPT_SYSTEM_PROMPT"`

	// Persona, when set, names a YAML persona in PersonaDir whose prompt
	// replaces SystemPrompt.
	Persona       string            `yaml:"persona" env:"CHATGPT_PERSONA"`
	PersonaDir    string            `yaml:"persona_dir" env:"CHATGPT_PERSONA_DIR"`
	PersonaParams map[string]string `yaml:"persona_params" env:"CHATGPT_PERSONA_PARAMS" envSeparator:"," envKeyValSeparator:"="`

	// ConversationTTLSeconds of zero disables the conversation cache.
	ConversationTTLSeconds int           `yaml:"conversation_ttl_seconds" env:"CHATGPT_CONVERSATION_TIME_LIMIT"`
	SweepPeriod            time.Duration `yaml:"sweep_period" env:"CHATGPT_CONVERSATION_SWEEP"`

	UserLimit          Budget   `yaml:"user_limit" env:"CHATGPT_USER_LIMIT"`
	GuildLimit         Budget   `yaml:"guild_limit" env:"CHATGPT_GUILD_LIMIT"`
	WhitelistUserLimit Budget   `yaml:"whitelist_user_limit" env:"CHATGPT_WHITELIST_USER_LIMIT"`
	WhitelistUserIDs   []string `yaml:"whitelist_user_ids" env:"CHATGPT_WHITELIST_USER_IDS" envSeparator:","`
}

type MoviesConfig struct {
	OMDbAPIKey   string `yaml:"omdb_api_key" env:"OMBD_API_KEY"`
	OMDbAPIRoot  string `yaml:"omdb_api_root" env:"OMDB_API_ROOT"`
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"`
}

type ComponentConfig struct {
	ChannelTimeout time.Duration `yaml:"channel_timeout" env:"COMPONENT_CHANNEL_TIMEOUT"`
}

type GatewayConfig struct {
	Enabled bool   `yaml:"enabled" env:"API_ENABLED"`
	Host    string `yaml:"host" env:"API_HOST"`
	Port    int    `yaml:"port" env:"API_PORT"`
	// APIKey, when set, is required as a bearer token on every route but
	// /api/health.
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// JanitorConfig schedules the housekeeping sweeps with a cron expression.
type JanitorConfig struct {
	Schedule string `yaml:"schedule" env:"JANITOR_SCHEDULE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   1024,
			SweepPeriod: 10 * time.Minute,
			PersonaDir:  "personas",
		},
		Movies: MoviesConfig{
			OMDbAPIRoot:  "https://www.omdbapi.com",
			DatabasePath: "cinebot.db",
		},
		Component: ComponentConfig{
			ChannelTimeout: 15 * time.Minute,
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    18790,
		},
		Janitor: JanitorConfig{
			Schedule: "*/5 * * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Chat.WhitelistUserIDs = normalizeIDs(cfg.Chat.WhitelistUserIDs)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ConversationTTL is the inactivity window for cached conversations.
func (c ChatConfig) ConversationTTL() time.Duration {
	if c.ConversationTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ConversationTTLSeconds) * time.Second
}

// Credential returns the key for the selected provider.
func (c ChatConfig) Credential() string {
	if strings.EqualFold(c.Provider, "anthropic") {
		return c.AnthropicKey
	}
	return c.APIKey
}

// Enabled reports whether a backend credential is configured.
func (c ChatConfig) Enabled() bool {
	return c.Credential() != ""
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Budget value
// ---------------------------------------------------------------------------

// Budget is an attempt allowance per window, written "count/window", for
// example "5/1m" or "20/3600" (a bare window is seconds). The zero Budget
// is unlimited.
type Budget struct {
	Count  int
	Window time.Duration
}

// Enabled reports whether the budget limits anything.
func (b Budget) Enabled() bool {
	return b.Count > 0 && b.Window > 0
}

func (b Budget) String() string {
	if !b.Enabled() {
		return ""
	}
	return fmt.Sprintf("%d/%s", b.Count, b.Window)
}

// UnmarshalText implements encoding.TextUnmarshaler for env and YAML.
func (b *Budget) UnmarshalText(text []byte) error {
	parsed, err := ParseBudget(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBudget parses the "count/window" form. An empty string is the
// unlimited budget.
func ParseBudget(s string) (Budget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Budget{}, nil
	}
	countPart, windowPart, ok := strings.Cut(s, "/")
	if !ok {
		return Budget{}, fmt.Errorf("budget %q: want count/window", s)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil || count < 0 {
		return Budget{}, fmt.Errorf("budget %q: invalid count", s)
	}
	windowPart = strings.TrimSpace(windowPart)
	var window time.Duration
	if secs, err := strconv.Atoi(windowPart); err == nil {
		window = time.Duration(secs) * time.Second
	} else if window, err = time.ParseDuration(windowPart); err != nil {
		return Budget{}, fmt.Errorf("budget %q: invalid window: %w", s, err)
	}
	if window <= 0 {
		return Budget{}, fmt.Errorf("budget %q: window must be positive", s)
	}
	return Budget{Count: count, Window: window}, nil
}
