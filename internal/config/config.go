// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is built once at
// process start (see cmd/root.go) and passed by reference; no component reads
// the environment on its own.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	MQTT    MQTTConfig    `mapstructure:"mqtt" yaml:"mqtt"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// PortalConfig describes the vendor dashboard: where it lives, the text and
// selector anchors the extraction flow searches for, and the readiness
// timing. The anchors are configuration rather than code because they are the
// only thing that changes when the vendor redesigns a panel.
type PortalConfig struct {
	URL string `mapstructure:"url" yaml:"url"`

	// Sign-in and login page anchors.
	SignInText       string `mapstructure:"sign_in_text" yaml:"sign_in_text"`
	UserSelector     string `mapstructure:"user_selector" yaml:"user_selector"`
	PasswordSelector string `mapstructure:"password_selector" yaml:"password_selector"`
	SubmitSelector   string `mapstructure:"submit_selector" yaml:"submit_selector"`

	// Dashboard tabs and pulldowns.
	TabMaintenance   string `mapstructure:"tab_maintenance" yaml:"tab_maintenance"`
	TabGeneratorData string `mapstructure:"tab_generator_data" yaml:"tab_generator_data"`
	TabNotifications string `mapstructure:"tab_notifications" yaml:"tab_notifications"`
	TabEvents        string `mapstructure:"tab_events" yaml:"tab_events"`

	// Data labels.
	LabelBattery  string `mapstructure:"label_battery" yaml:"label_battery"`
	LabelRuntime  string `mapstructure:"label_runtime" yaml:"label_runtime"`
	LabelExercise string `mapstructure:"label_exercise" yaml:"label_exercise"`
	LabelUnits    string `mapstructure:"label_units" yaml:"label_units"`

	// Readiness waiting.
	WaitTimeout  time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// Credentials come exclusively from the environment (MY_USERNAME and
	// MY_PASSWORD). Never serialized.
	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`
}

// MQTTConfig tunes the publish side. Broker address, port and topic come from
// the publish command's arguments, not from here.
type MQTTConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
	ClientIDPrefix string        `mapstructure:"client_id_prefix" yaml:"client_id_prefix"`

	// Credentials come exclusively from the environment (HA_USERNAME and
	// HA_PASSWORD). Never serialized.
	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "genscope")
	v.SetDefault("logger.log_file", "generator_scraper.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	// A desktop-sized window avoids the portal's mobile layout, which lays the
	// data labels out differently.
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Portal --
	v.SetDefault("portal.url", "https://connectcloud.cummins.com")
	v.SetDefault("portal.sign_in_text", "SIGN IN")
	v.SetDefault("portal.user_selector", `input[name="username"]`)
	v.SetDefault("portal.password_selector", `input[name="password"]`)
	v.SetDefault("portal.submit_selector", "button.slds-button_brand")
	v.SetDefault("portal.tab_maintenance", "Maintenance")
	v.SetDefault("portal.tab_generator_data", "Generator Data")
	v.SetDefault("portal.tab_notifications", "Notifications")
	v.SetDefault("portal.tab_events", "Events")
	v.SetDefault("portal.label_battery", "Battery Voltage (V)")
	v.SetDefault("portal.label_runtime", "Engine Runtime")
	v.SetDefault("portal.label_exercise", "Genset exercise completed")
	v.SetDefault("portal.label_units", "Hours")
	v.SetDefault("portal.wait_timeout", "15s")
	v.SetDefault("portal.poll_interval", "250ms")

	// -- MQTT --
	v.SetDefault("mqtt.connect_timeout", "10s")
	v.SetDefault("mqtt.publish_timeout", "10s")
	v.SetDefault("mqtt.client_id_prefix", "genscope")
}

// NewFromViper creates a configuration instance from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data. These names are fixed by
	// the deployment contract, so they are bound explicitly rather than
	// through the prefixed AutomaticEnv mapping.
	v.BindEnv("portal.username", "MY_USERNAME")
	v.BindEnv("portal.password", "MY_PASSWORD")
	v.BindEnv("mqtt.username", "HA_USERNAME")
	v.BindEnv("mqtt.password", "HA_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.URL == "" {
		return fmt.Errorf("portal.url is a required configuration field")
	}
	if c.Portal.WaitTimeout <= 0 {
		return fmt.Errorf("portal.wait_timeout must be a positive duration")
	}
	if c.Portal.PollInterval <= 0 {
		return fmt.Errorf("portal.poll_interval must be a positive duration")
	}
	if c.Portal.PollInterval >= c.Portal.WaitTimeout {
		return fmt.Errorf("portal.poll_interval must be shorter than portal.wait_timeout")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.MQTT.ConnectTimeout <= 0 || c.MQTT.PublishTimeout <= 0 {
		return fmt.Errorf("mqtt timeouts must be positive durations")
	}
	return nil
}
