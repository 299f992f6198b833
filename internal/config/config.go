package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source modes reported by the status command.
const (
	ModeMock       = "mock"
	ModeProduction = "production"
)

// Config is the root configuration for the bounty bot.
type Config struct {
	PollingInterval time.Duration
	LogLevel        string // debug, info, warn or error
	Source          SourceConfig
	Store           StoreConfig
	Notification    NotificationConfig
	MockAPI         MockAPIConfig
}

// SourceConfig describes the upstream listing API.
type SourceConfig struct {
	URL        string
	APIKey     string // expanded from env var by Load, may be empty
	Mode       string // "mock" or "production"
	Timeout    time.Duration
	MaxRetries int // total attempts per fetch
	PageSize   int
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Type               string // "sqlite" or "redis"
	Path               string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ProcessedRetention time.Duration // zero keeps processed IDs forever
}

// NotificationConfig controls which sink is used and its settings.
type NotificationConfig struct {
	Type     string // "log" or "discord"
	Token    string // bot token, required if type is "discord"
	BaseURL  string
	MinDelay time.Duration // minimum gap between sends to one destination
}

// MockAPIConfig configures the built-in mock listing API.
type MockAPIConfig struct {
	Addr    string
	Count   int
	Refresh time.Duration
}

// Defaults applied to absent keys.
const (
	defaultPollingInterval = 60 * time.Second
	defaultSourceURL       = "http://localhost:8000/bounties"
	defaultSourceTimeout   = 10 * time.Second
	defaultMaxRetries      = 3
	defaultPageSize        = 50
	defaultStorePath       = "bot.db"
	defaultRedisAddr       = "localhost:6379"
	defaultDiscordBaseURL  = "https://discord.com/api/v10"
	defaultMinDelay        = time.Second
	defaultMockAddr        = ":8000"
	defaultMockCount       = 50
	defaultMockRefresh     = 5 * time.Minute
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollingInterval string           `yaml:"polling_interval"`
	LogLevel        string           `yaml:"log_level"`
	Source          rawSourceConfig  `yaml:"source"`
	Store           rawStoreConfig   `yaml:"store"`
	Notification    rawNotifyConfig  `yaml:"notification"`
	MockAPI         rawMockAPIConfig `yaml:"mock_api"`
}

type rawSourceConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Mode       string `yaml:"mode"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
	PageSize   int    `yaml:"page_size"`
}

type rawStoreConfig struct {
	Type               string `yaml:"type"`
	Path               string `yaml:"path"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
	ProcessedRetention string `yaml:"processed_retention"`
}

type rawNotifyConfig struct {
	Type     string `yaml:"type"`
	Token    string `yaml:"token"`
	BaseURL  string `yaml:"base_url"`
	MinDelay string `yaml:"min_delay"`
}

type rawMockAPIConfig struct {
	Addr    string `yaml:"addr"`
	Count   int    `yaml:"count"`
	Refresh string `yaml:"refresh"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when every key is absent.
func Defaults() *Config {
	cfg, _ := fromRaw(rawConfig{})
	return cfg
}

func fromRaw(raw rawConfig) (*Config, error) {
	interval, err := parseDuration("polling_interval", raw.PollingInterval, defaultPollingInterval)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("source.timeout", raw.Source.Timeout, defaultSourceTimeout)
	if err != nil {
		return nil, err
	}
	retention, err := parseDuration("store.processed_retention", raw.Store.ProcessedRetention, 0)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("notification.min_delay", raw.Notification.MinDelay, defaultMinDelay)
	if err != nil {
		return nil, err
	}
	refresh, err := parseDuration("mock_api.refresh", raw.MockAPI.Refresh, defaultMockRefresh)
	if err != nil {
		return nil, err
	}

	return &Config{
		PollingInterval: interval,
		LogLevel:        strings.ToLower(orDefault(raw.LogLevel, "info")),
		Source: SourceConfig{
			URL:        orDefault(raw.Source.URL, defaultSourceURL),
			APIKey:     raw.Source.APIKey,
			Mode:       strings.ToLower(orDefault(raw.Source.Mode, ModeMock)),
			Timeout:    timeout,
			MaxRetries: intOrDefault(raw.Source.MaxRetries, defaultMaxRetries),
			PageSize:   intOrDefault(raw.Source.PageSize, defaultPageSize),
		},
		Store: StoreConfig{
			Type:               strings.ToLower(orDefault(raw.Store.Type, "sqlite")),
			Path:               orDefault(raw.Store.Path, defaultStorePath),
			RedisAddr:          orDefault(raw.Store.RedisAddr, defaultRedisAddr),
			RedisPassword:      raw.Store.RedisPassword,
			RedisDB:            raw.Store.RedisDB,
			ProcessedRetention: retention,
		},
		Notification: NotificationConfig{
			Type:     strings.ToLower(orDefault(raw.Notification.Type, "log")),
			Token:    raw.Notification.Token,
			BaseURL:  orDefault(raw.Notification.BaseURL, defaultDiscordBaseURL),
			MinDelay: minDelay,
		},
		MockAPI: MockAPIConfig{
			Addr:    orDefault(raw.MockAPI.Addr, defaultMockAddr),
			Count:   intOrDefault(raw.MockAPI.Count, defaultMockCount),
			Refresh: refresh,
		},
	}, nil
}

// parseDuration accepts a Go duration ("90s", "5m") or a bare number of
// seconds. An empty value yields def.
func parseDuration(field, v string, def time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, v, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.PollingInterval <= 0 {
		return fmt.Errorf("polling_interval must be positive, got %v", cfg.PollingInterval)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	if cfg.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if cfg.Source.Mode != ModeMock && cfg.Source.Mode != ModeProduction {
		return fmt.Errorf("source.mode must be %q or %q, got %q", ModeMock, ModeProduction, cfg.Source.Mode)
	}
	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %v", cfg.Source.Timeout)
	}
	if cfg.Source.MaxRetries < 1 {
		return fmt.Errorf("source.max_retries must be at least 1, got %d", cfg.Source.MaxRetries)
	}
	if cfg.Source.PageSize < 1 || cfg.Source.PageSize > 100 {
		return fmt.Errorf("source.page_size must be between 1 and 100, got %d", cfg.Source.PageSize)
	}

	switch cfg.Store.Type {
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required when type is \"sqlite\"")
		}
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required when type is \"redis\"")
		}
	default:
		return fmt.Errorf("store.type must be \"sqlite\" or \"redis\", got %q", cfg.Store.Type)
	}
	if cfg.Store.ProcessedRetention < 0 {
		return fmt.Errorf("store.processed_retention must not be negative, got %v", cfg.Store.ProcessedRetention)
	}

	switch cfg.Notification.Type {
	case "log":
	case "discord":
		if cfg.Notification.Token == "" {
			return fmt.Errorf("notification.token is required when type is \"discord\"")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"discord\", got %q", cfg.Notification.Type)
	}
	if cfg.Notification.MinDelay < 0 {
		return fmt.Errorf("notification.min_delay must not be negative, got %v", cfg.Notification.MinDelay)
	}

	if cfg.MockAPI.Count < 1 {
		return fmt.Errorf("mock_api.count must be positive, got %d", cfg.MockAPI.Count)
	}
	if cfg.MockAPI.Refresh <= 0 {
		return fmt.Errorf("mock_api.refresh must be positive, got %v", cfg.MockAPI.Refresh)
	}

	return nil
}
