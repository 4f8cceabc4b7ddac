package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dailypost/backend/internal/novelty"
)

// Config holds the configuration for the post pipeline
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Feed      FeedConfig      `yaml:"feed"`
	Novelty   novelty.Config  `yaml:"novelty"`
	Generator GeneratorConfig `yaml:"generator"`
	LLM       LLMConfig       `yaml:"llm"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Server    ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// FeedConfig describes where posts live and how the site identifies itself
type FeedConfig struct {
	Path          string `yaml:"path"`
	AtomPath      string `yaml:"atom_path"`
	HistoryWindow int    `yaml:"history_window"`
	RemoteURL     string `yaml:"remote_url"`
	SiteTitle     string `yaml:"site_title"`
	BaseURL       string `yaml:"base_url"`
	Author        string `yaml:"author"`
	AuthorURI     string `yaml:"author_uri"`
}

// GeneratorConfig holds the retry loop policy
type GeneratorConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Topic       string        `yaml:"topic"`
	Angles      []string      `yaml:"angles"`
	Timeout     time.Duration `yaml:"timeout"`
	DryRun      bool          `yaml:"dry_run"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// FetcherConfig holds settings for reading remote pages and feeds
type FetcherConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	UserAgent           string        `yaml:"user_agent"`
	EnableRobotsCheck   bool          `yaml:"enable_robots_check"`
	RobotsCacheDuration time.Duration `yaml:"robots_cache_duration"`
	MinDelay            time.Duration `yaml:"min_delay"` // between requests to one host
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	WatchFeed bool   `yaml:"watch_feed"`
}

// DefaultAngles rotate through regeneration attempts
var DefaultAngles = []string{
	"a practical how-to with concrete steps",
	"common mistakes and how to avoid them",
	"a short case study from a realistic project",
	"a comparison of two competing approaches",
	"a myth-busting take on conventional wisdom",
	"a checklist readers can apply today",
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Feed: FeedConfig{
			Path:          "data/feed.json",
			AtomPath:      "data/feed.xml",
			HistoryWindow: 15,
			SiteTitle:     "Daily Post",
			BaseURL:       "http://localhost:8080/",
			Author:        "Daily Post",
		},
		Novelty: novelty.DefaultConfig(),
		Generator: GeneratorConfig{
			MaxAttempts: 5,
			Topic:       "software engineering practices",
			Angles:      append([]string(nil), DefaultAngles...),
			Timeout:     2 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "qwen3:1.7b",
			Temperature: 0.9,
			Timeout:     60 * time.Second,
		},
		Fetcher: FetcherConfig{
			Timeout:             15 * time.Second,
			UserAgent:           "DailyPost-Bot/1.0",
			EnableRobotsCheck:   true,
			RobotsCacheDuration: 24 * time.Hour,
			MinDelay:            1 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies environment
// overrides. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment. Missing files are skipped; existing
// variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the values that would otherwise break the pipeline at runtime
func (c *Config) Validate() error {
	if err := c.Novelty.Validate(); err != nil {
		return err
	}
	if c.Generator.MaxAttempts < 1 {
		return fmt.Errorf("generator max attempts must be at least 1, got %d", c.Generator.MaxAttempts)
	}
	if c.Feed.HistoryWindow < 0 {
		return fmt.Errorf("feed history window must not be negative, got %d", c.Feed.HistoryWindow)
	}
	if c.Feed.Path == "" {
		return errors.New("feed path is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = GetStringEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = GetStringEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Feed.Path = GetStringEnv("FEED_PATH", cfg.Feed.Path)
	cfg.Feed.AtomPath = GetStringEnv("FEED_ATOM_PATH", cfg.Feed.AtomPath)
	cfg.Feed.HistoryWindow = GetIntEnv("FEED_HISTORY_WINDOW", cfg.Feed.HistoryWindow)
	cfg.Feed.RemoteURL = GetStringEnv("FEED_URL", cfg.Feed.RemoteURL)
	cfg.Feed.SiteTitle = GetStringEnv("SITE_TITLE", cfg.Feed.SiteTitle)
	cfg.Feed.BaseURL = GetStringEnv("SITE_BASE_URL", cfg.Feed.BaseURL)
	cfg.Feed.Author = GetStringEnv("SITE_AUTHOR", cfg.Feed.Author)
	cfg.Feed.AuthorURI = GetStringEnv("SITE_AUTHOR_URI", cfg.Feed.AuthorURI)

	cfg.Novelty.CosineThreshold = GetFloatEnv("NOVELTY_COSINE_THRESHOLD", cfg.Novelty.CosineThreshold)
	cfg.Novelty.JaccardThreshold = GetFloatEnv("NOVELTY_JACCARD_THRESHOLD", cfg.Novelty.JaccardThreshold)
	cfg.Novelty.NGramSize = GetIntEnv("NOVELTY_NGRAM_SIZE", cfg.Novelty.NGramSize)

	cfg.Generator.MaxAttempts = GetIntEnv("GENERATOR_MAX_ATTEMPTS", cfg.Generator.MaxAttempts)
	cfg.Generator.Topic = GetStringEnv("GENERATOR_TOPIC", cfg.Generator.Topic)
	cfg.Generator.Angles = GetListEnv("GENERATOR_ANGLES", cfg.Generator.Angles)
	cfg.Generator.Timeout = GetDurationEnv("GENERATOR_TIMEOUT", cfg.Generator.Timeout)
	cfg.Generator.DryRun = GetBoolEnv("GENERATOR_DRY_RUN", cfg.Generator.DryRun)

	cfg.LLM.Provider = GetStringEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = GetStringEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = GetStringEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = GetStringEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Temperature = GetFloatEnv("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.Timeout = GetDurationEnv("LLM_TIMEOUT", cfg.LLM.Timeout)

	cfg.Fetcher.Timeout = GetDurationEnv("FETCHER_TIMEOUT", cfg.Fetcher.Timeout)
	cfg.Fetcher.UserAgent = GetStringEnv("FETCHER_USER_AGENT", cfg.Fetcher.UserAgent)
	cfg.Fetcher.EnableRobotsCheck = GetBoolEnv("FETCHER_ENABLE_ROBOTS_CHECK", cfg.Fetcher.EnableRobotsCheck)
	cfg.Fetcher.RobotsCacheDuration = GetDurationEnv("FETCHER_ROBOTS_CACHE_DURATION", cfg.Fetcher.RobotsCacheDuration)
	cfg.Fetcher.MinDelay = GetDurationEnv("FETCHER_MIN_DELAY", cfg.Fetcher.MinDelay)

	cfg.Server.Addr = GetStringEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.WatchFeed = GetBoolEnv("SERVER_WATCH_FEED", cfg.Server.WatchFeed)
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetListEnv splits a comma-separated variable, dropping blank entries
func GetListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
