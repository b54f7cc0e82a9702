package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(NewViper())

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:5000", cfg.Backend.URL)
	assert.Equal(t, 5*time.Second, cfg.Wizard.PollInterval)
	assert.Equal(t, 60, cfg.Wizard.PollMaxAttempts)
	assert.True(t, cfg.Wizard.WaitForProcessing)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"*"}, cfg.App.CorsAllowedOrigins)
	assert.Equal(t, "!chat ", cfg.Discord.CommandPrefix)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("BACKEND_URL", "https://api.example.com/")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("POLL_MAX_ATTEMPTS", "12")
	t.Setenv("WAIT_FOR_PROCESSING", "false")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("GO_ENV", "production")

	cfg := Load(NewViper())

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "https://api.example.com", cfg.Backend.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Wizard.PollInterval)
	assert.Equal(t, 12, cfg.Wizard.PollMaxAttempts)
	assert.False(t, cfg.Wizard.WaitForProcessing)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.App.CorsAllowedOrigins)
	assert.True(t, cfg.IsProduction())
}
