// Package config handles configuration loading and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the daemon.
type Config struct {
	DetectionIntervalSeconds int `yaml:"detection_interval_seconds"`
	AnalysisIntervalSeconds  int `yaml:"analysis_interval_seconds"`

	StoragePath string `yaml:"storage_path"`

	// Extra document readers matched as title suffixes, e.g. "Calibre".
	ReaderApps []string `yaml:"reader_apps"`
	// Directories searched for detected PDFs to read their metadata.
	DocumentDirs []string `yaml:"document_dirs"`

	// Privacy: no screen capture while one of these apps is focused.
	BlockedApps []string `yaml:"blocked_apps"`

	// Store analyses taken while no session is open.
	PersistUnattachedAnalyses bool `yaml:"persist_unattached_analyses"`

	History       HistoryConfig       `yaml:"history"`
	Insights      InsightsConfig      `yaml:"insights"`
	AI            AIConfig            `yaml:"ai"`
	Cloud         CloudConfig         `yaml:"cloud"`
	Server        ServerConfig        `yaml:"server"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// HistoryConfig bounds the in-memory histories.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
	Retain   int `yaml:"retain"`
}

// InsightsConfig holds settings for insight generation.
type InsightsConfig struct {
	TTLMinutes           int `yaml:"ttl_minutes"`
	MinTotalAnalyses     int `yaml:"min_total_analyses"`
	MinWindowAnalyses    int `yaml:"min_window_analyses"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

// AIConfig holds settings for the OpenRouter client.
type AIConfig struct {
	OpenRouterKey  string `yaml:"openrouter_api_key"`
	OpenRouterBase string `yaml:"openrouter_base_url"`
	VisionModel    string `yaml:"vision_model"`
	ChatModel      string `yaml:"chat_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CloudConfig holds the signed-in backend and account settings. The
// cloud backend is used only when RedisAddr is set.
type CloudConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisUsername string `yaml:"redis_username"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	JWTSecret     string `yaml:"jwt_secret"`
	TokenPath     string `yaml:"token_path"`
}

// ServerConfig holds the local HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

// NotificationsConfig holds alert settings.
type NotificationsConfig struct {
	Desktop           bool    `yaml:"desktop"`
	LowScoreThreshold float64 `yaml:"low_score_threshold"`
	ExpireSeconds     int     `yaml:"expire_seconds"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}
	storage := filepath.Join(home, ".local", "share", "attentive")

	return &Config{
		DetectionIntervalSeconds: 3,
		AnalysisIntervalSeconds:  60,

		StoragePath:  storage,
		DocumentDirs: []string{filepath.Join(home, "Documents"), filepath.Join(home, "Downloads"), filepath.Join(home, "Zotero", "storage")},

		// sensitive apps
		BlockedApps: []string{
			"1password", "keepassxc", "bitwarden", "lastpass",
			"gnome-keyring", "seahorse", "wallet",
		},

		History: HistoryConfig{Capacity: 100, Retain: 50},

		Insights: InsightsConfig{
			TTLMinutes:           240,
			MinTotalAnalyses:     5,
			MinWindowAnalyses:    3,
			SweepIntervalMinutes: 30,
		},

		AI: AIConfig{
			OpenRouterBase: "https://openrouter.ai/api/v1",
			VisionModel:    "openai/gpt-4o-mini",
			ChatModel:      "deepseek/deepseek-chat",
			TimeoutSeconds: 60,
		},

		Cloud: CloudConfig{
			KeyPrefix: "att",
			TokenPath: filepath.Join(storage, "token"),
		},

		Server: ServerConfig{
			Addr: "127.0.0.1:7420",
			Mode: "release",
		},

		Notifications: NotificationsConfig{
			Desktop:           true,
			LowScoreThreshold: 4,
			ExpireSeconds:     8,
		},
	}
}

// Load reads the config at path, or searches the default locations when
// path is empty. A missing default file is not an error. Environment
// variables fill in secrets the file leaves empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else {
		for _, p := range searchPaths() {
			err := loadFromFile(cfg, p)
			if err == nil {
				break
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config %s: %w", p, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func searchPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "attentive", "config.yaml"),
		filepath.Join(home, ".local", "share", "attentive", "config.yaml"),
	}
}

// loadFromFile reads a YAML config file and merges it into cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	cfg.StoragePath = expandTilde(cfg.StoragePath)
	cfg.Cloud.TokenPath = expandTilde(cfg.Cloud.TokenPath)
	for i, dir := range cfg.DocumentDirs {
		cfg.DocumentDirs[i] = expandTilde(dir)
	}
	return nil
}

func (c *Config) applyEnv() {
	if c.AI.OpenRouterKey == "" {
		c.AI.OpenRouterKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if c.Cloud.RedisAddr == "" {
		c.Cloud.RedisAddr = os.Getenv("ATTENTIVE_REDIS_ADDR")
	}
	if c.Cloud.JWTSecret == "" {
		c.Cloud.JWTSecret = os.Getenv("ATTENTIVE_JWT_SECRET")
	}
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Save writes the config to ~/.config/attentive/config.yaml.
func (c *Config) Save() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return c.SaveTo(filepath.Join(home, ".config", "attentive", "config.yaml"))
}

// SaveTo writes the config to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureStorageDir creates the storage directory if it doesn't exist.
func (c *Config) EnsureStorageDir() error {
	return os.MkdirAll(c.StoragePath, 0700)
}

// DetectionInterval is the window polling cadence.
func (c *Config) DetectionInterval() time.Duration {
	return seconds(c.DetectionIntervalSeconds)
}

// AnalysisInterval is the capture cadence.
func (c *Config) AnalysisInterval() time.Duration {
	return seconds(c.AnalysisIntervalSeconds)
}

// InsightTTL is how long a generated insight stays cached.
func (c *Config) InsightTTL() time.Duration {
	return time.Duration(c.Insights.TTLMinutes) * time.Minute
}

// SweepInterval is the expired-insight cleanup cadence.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Insights.SweepIntervalMinutes) * time.Minute
}

// AITimeout bounds a single AI request.
func (c *Config) AITimeout() time.Duration {
	return seconds(c.AI.TimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// IsAppBlocked checks if an app should be blocked from capture.
func (c *Config) IsAppBlocked(appName string) bool {
	if appName == "" {
		return false
	}
	appLower := strings.ToLower(appName)
	for _, blocked := range c.BlockedApps {
		if strings.Contains(appLower, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}
