package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "generator_scraper.log", cfg.Logger.LogFile)
	assert.Equal(t, "https://connectcloud.cummins.com", cfg.Portal.URL)
	assert.Equal(t, "SIGN IN", cfg.Portal.SignInText)
	assert.Equal(t, `input[name="username"]`, cfg.Portal.UserSelector)
	assert.Equal(t, "Battery Voltage (V)", cfg.Portal.LabelBattery)
	assert.Equal(t, 15*time.Second, cfg.Portal.WaitTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Portal.PollInterval)
	assert.True(t, cfg.Browser.Headless)

	require.NoError(t, cfg.Validate())
}

func TestCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("MY_USERNAME", "scraper-user")
	t.Setenv("MY_PASSWORD", "scraper-pass")
	t.Setenv("HA_USERNAME", "ha-user")
	t.Setenv("HA_PASSWORD", "ha-pass")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "scraper-user", cfg.Portal.Username)
	assert.Equal(t, "scraper-pass", cfg.Portal.Password)
	assert.Equal(t, "ha-user", cfg.MQTT.Username)
	assert.Equal(t, "ha-pass", cfg.MQTT.Password)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing portal URL", func(c *Config) { c.Portal.URL = "" }, "portal.url"},
		{"zero wait timeout", func(c *Config) { c.Portal.WaitTimeout = 0 }, "wait_timeout"},
		{"zero poll interval", func(c *Config) { c.Portal.PollInterval = 0 }, "poll_interval"},
		{"poll interval exceeds timeout", func(c *Config) { c.Portal.PollInterval = time.Minute }, "poll_interval"},
		{"zero navigation timeout", func(c *Config) { c.Browser.NavigationTimeout = 0 }, "navigation_timeout"},
		{"zero mqtt timeouts", func(c *Config) { c.MQTT.PublishTimeout = 0 }, "mqtt timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
