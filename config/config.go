package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Wizard  WizardConfig
	Session SessionConfig
	Discord DiscordConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins []string
	StagingDir         string
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

type WizardConfig struct {
	PollInterval      time.Duration
	PollMaxAttempts   int
	WaitForProcessing bool // false: upload advances straight to the test step
}

type SessionConfig struct {
	Store    string // "memory" or "redis"
	RedisURL string
	TTL      time.Duration
}

type DiscordConfig struct {
	Token         string
	CommandPrefix string
	ChatbotID     string
}

// Keys
const (
	KeyPort              = "port"
	KeyEnvironment       = "go_env"
	KeyLogFilePath       = "log_file_path"
	KeyCorsOrigins       = "cors_allowed_origins"
	KeyStagingDir        = "staging_dir"
	KeyBackendURL        = "backend_url"
	KeyHTTPTimeout       = "http_timeout"
	KeyPollInterval      = "poll_interval"
	KeyPollMaxAttempts   = "poll_max_attempts"
	KeyWaitForProcessing = "wait_for_processing"
	KeySessionStore      = "session_store"
	KeyRedisURL          = "redis_url"
	KeySessionTTL        = "session_ttl"
	KeyDiscordToken      = "discord_bot_token"
	KeyDiscordPrefix     = "discord_command_prefix"
	KeyDiscordChatbotID  = "discord_chatbot_id"
)

// NewViper returns a viper instance with defaults that reads matching
// upper-case environment variables (PORT, BACKEND_URL, ...).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyEnvironment, "development")
	v.SetDefault(KeyLogFilePath, "")
	v.SetDefault(KeyCorsOrigins, "*")
	v.SetDefault(KeyStagingDir, filepath.Join(os.TempDir(), "ragwizard-uploads"))
	v.SetDefault(KeyBackendURL, "http://localhost:5000")
	v.SetDefault(KeyHTTPTimeout, "120s")
	v.SetDefault(KeyPollInterval, "5s")
	v.SetDefault(KeyPollMaxAttempts, 60)
	v.SetDefault(KeyWaitForProcessing, true)
	v.SetDefault(KeySessionStore, "memory")
	v.SetDefault(KeyRedisURL, "redis://localhost:6379")
	v.SetDefault(KeySessionTTL, "2h")
	v.SetDefault(KeyDiscordToken, "")
	v.SetDefault(KeyDiscordPrefix, "!chat ")
	v.SetDefault(KeyDiscordChatbotID, "")
	v.AutomaticEnv()
	return v
}

// Load reads the resolved configuration out of v
func Load(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Port:               v.GetString(KeyPort),
			Environment:        v.GetString(KeyEnvironment),
			LogFilePath:        v.GetString(KeyLogFilePath),
			CorsAllowedOrigins: splitList(v.GetString(KeyCorsOrigins)),
			StagingDir:         v.GetString(KeyStagingDir),
		},
		Backend: BackendConfig{
			URL:     strings.TrimRight(v.GetString(KeyBackendURL), "/"),
			Timeout: v.GetDuration(KeyHTTPTimeout),
		},
		Wizard: WizardConfig{
			PollInterval:      v.GetDuration(KeyPollInterval),
			PollMaxAttempts:   v.GetInt(KeyPollMaxAttempts),
			WaitForProcessing: v.GetBool(KeyWaitForProcessing),
		},
		Session: SessionConfig{
			Store:    strings.ToLower(v.GetString(KeySessionStore)),
			RedisURL: v.GetString(KeyRedisURL),
			TTL:      v.GetDuration(KeySessionTTL),
		},
		Discord: DiscordConfig{
			Token:         v.GetString(KeyDiscordToken),
			CommandPrefix: v.GetString(KeyDiscordPrefix),
			ChatbotID:     v.GetString(KeyDiscordChatbotID),
		},
	}
}

// IsProduction reports whether GO_ENV selects production logging
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Addr returns the listen address with the colon prefix
func (c *Config) Addr() string {
	if strings.HasPrefix(c.App.Port, ":") {
		return c.App.Port
	}
	return ":" + c.App.Port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
