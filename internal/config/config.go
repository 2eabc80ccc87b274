package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Oura     OuraConfig     `yaml:"oura"`
	Discord  DiscordConfig  `yaml:"discord"`
	Notifier NotifierConfig `yaml:"notifier"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Mode     string `yaml:"mode"` // debug, release, test
	APIToken string `yaml:"api_token"`
}

type OuraConfig struct {
	AccessToken   string        `yaml:"access_token"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	RatePerMinute int           `yaml:"rate_per_minute"`
}

type DiscordConfig struct {
	WebhookURL    string        `yaml:"webhook_url"`
	BotToken      string        `yaml:"bot_token"`
	ApplicationID string        `yaml:"application_id"`
	PublicKey     string        `yaml:"public_key"` // hex encoded Ed25519 key for interactions
	Username      string        `yaml:"username"`
	APIBaseURL    string        `yaml:"api_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

type NotifierConfig struct {
	StepsGoal      int    `yaml:"steps_goal"`
	TargetWakeTime string `yaml:"target_wake_time"` // HH:MM
	Timezone       string `yaml:"timezone"`
	HolidayCountry string `yaml:"holiday_country"`
	SettingsPath   string `yaml:"settings_path"`
}

// ScheduleConfig holds cron expressions for the fixed-time reports.
// An empty expression disables the job.
type ScheduleConfig struct {
	Morning string `yaml:"morning"`
	Noon    string `yaml:"noon"`
	Night   string `yaml:"night"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console; empty means console at debug level
}

var (
	ErrMissingOuraToken  = errors.New("OURA_ACCESS_TOKEN is not set")
	ErrMissingWebhookURL = errors.New("DISCORD_WEBHOOK_URL is not set")
)

// Load reads an optional .env file, then the YAML config (defaults when the
// file does not exist) and finally applies environment overrides.
func Load(configPath string) (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "release",
		},
		Oura: OuraConfig{
			BaseURL:       "https://api.ouraring.com/v2/usercollection",
			Timeout:       10 * time.Second,
			MaxRetries:    3,
			RetryBackoff:  time.Second,
			RatePerMinute: 300,
		},
		Discord: DiscordConfig{
			Username:     "Oura Ring Bot",
			APIBaseURL:   "https://discord.com/api/v10",
			Timeout:      10 * time.Second,
			MaxRetries:   3,
			RetryBackoff: time.Second,
		},
		Notifier: NotifierConfig{
			StepsGoal:      8000,
			TargetWakeTime: "07:00",
			Timezone:       "Asia/Tokyo",
			HolidayCountry: "JP",
			SettingsPath:   filepath.Join("data", "settings.json"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) overrideFromEnv() error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if token := os.Getenv("API_TOKEN"); token != "" {
		c.Server.APIToken = token
	}
	if token := os.Getenv("OURA_ACCESS_TOKEN"); token != "" {
		c.Oura.AccessToken = token
	}
	if webhook := os.Getenv("DISCORD_WEBHOOK_URL"); webhook != "" {
		c.Discord.WebhookURL = webhook
	}
	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		c.Discord.BotToken = token
	}
	if appID := os.Getenv("DISCORD_APPLICATION_ID"); appID != "" {
		c.Discord.ApplicationID = appID
	}
	if key := os.Getenv("DISCORD_PUBLIC_KEY"); key != "" {
		c.Discord.PublicKey = key
	}
	if goal := os.Getenv("DAILY_STEPS_GOAL"); goal != "" {
		v, err := strconv.Atoi(goal)
		if err != nil {
			return fmt.Errorf("invalid DAILY_STEPS_GOAL %q: must be a whole number", goal)
		}
		c.Notifier.StepsGoal = v
	}
	if wake := os.Getenv("TARGET_WAKE_TIME"); wake != "" {
		c.Notifier.TargetWakeTime = wake
	}
	if tz := os.Getenv("TZ_NAME"); tz != "" {
		c.Notifier.Timezone = tz
	}
	if path := os.Getenv("SETTINGS_PATH"); path != "" {
		c.Notifier.SettingsPath = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
	return nil
}

// ValidateNotifier checks the values the one-shot notifier cannot run without.
func (c *Config) ValidateNotifier() error {
	if c.Oura.AccessToken == "" {
		return ErrMissingOuraToken
	}
	if c.Discord.WebhookURL == "" {
		return ErrMissingWebhookURL
	}
	return nil
}

// ValidateServer checks the values the long-running bot cannot run without.
func (c *Config) ValidateServer() error {
	if c.Oura.AccessToken == "" {
		return ErrMissingOuraToken
	}
	if c.Discord.WebhookURL == "" && c.Discord.BotToken == "" {
		return errors.New("either DISCORD_WEBHOOK_URL or DISCORD_BOT_TOKEN must be set")
	}
	return nil
}

// Location resolves the configured time zone, falling back to a fixed
// +09:00 zone when the tz database is unavailable.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Notifier.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("JST", 9*60*60)
}
