package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Directory holding the snapshot database and daemon state
	// Default: ~/.config/borahae
	DataDir string

	LastFM   LastFMConfig
	Timeline TimelineConfig
	Server   ServerConfig
	Daemon   DaemonConfig
	Log      LogConfig
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	RateLimit      float64
	Burst          int
	MaxRetries     int
}

// TimelineConfig controls timeline builds
type TimelineConfig struct {
	SampleWeeks   int
	Deadline      time.Duration
	StrictAliases bool
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr     string
	CacheTTL time.Duration
}

// DaemonConfig holds refresher configuration
type DaemonConfig struct {
	Users    []string
	Interval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
	File  string
}

const envPrefix = "BORAHAE"

// Load reads configuration from .env, the config file and environment
func Load() (*Config, error) {
	return load(getConfigDir())
}

func load(configDir string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("data_dir", configDir)
	v.SetDefault("lastfm.base_url", "https://ws.audioscrobbler.com/2.0/")
	v.SetDefault("lastfm.request_timeout", 15*time.Second)
	v.SetDefault("lastfm.rate_limit", 5.0)
	v.SetDefault("lastfm.burst", 5)
	v.SetDefault("lastfm.max_retries", 3)
	v.SetDefault("timeline.sample_weeks", 4)
	v.SetDefault("timeline.deadline", 2*time.Minute)
	v.SetDefault("timeline.strict_aliases", false)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.cache_ttl", 6*time.Hour)
	v.SetDefault("daemon.users", []string{})
	v.SetDefault("daemon.interval", 12*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables, e.g. BORAHAE_SERVER_ADDR
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("lastfm.api_key", envPrefix+"_LASTFM_API_KEY", "LASTFM_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key: %w", err)
	}

	// Map config to struct
	cfg := &Config{
		DataDir: v.GetString("data_dir"),
		LastFM: LastFMConfig{
			APIKey:         v.GetString("lastfm.api_key"),
			BaseURL:        v.GetString("lastfm.base_url"),
			RequestTimeout: v.GetDuration("lastfm.request_timeout"),
			RateLimit:      v.GetFloat64("lastfm.rate_limit"),
			Burst:          v.GetInt("lastfm.burst"),
			MaxRetries:     v.GetInt("lastfm.max_retries"),
		},
		Timeline: TimelineConfig{
			SampleWeeks:   v.GetInt("timeline.sample_weeks"),
			Deadline:      v.GetDuration("timeline.deadline"),
			StrictAliases: v.GetBool("timeline.strict_aliases"),
		},
		Server: ServerConfig{
			Addr:     v.GetString("server.addr"),
			CacheTTL: v.GetDuration("server.cache_ttl"),
		},
		Daemon: DaemonConfig{
			Users:    splitUsers(v.GetStringSlice("daemon.users")),
			Interval: v.GetDuration("daemon.interval"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports settings the rest of the program cannot work with
func (c *Config) Validate() error {
	var problems []string
	if c.LastFM.RateLimit <= 0 {
		problems = append(problems, "lastfm.rate_limit must be positive")
	}
	if c.LastFM.Burst <= 0 {
		problems = append(problems, "lastfm.burst must be positive")
	}
	if c.Timeline.SampleWeeks <= 0 {
		problems = append(problems, "timeline.sample_weeks must be positive")
	}
	if c.Daemon.Interval <= 0 {
		problems = append(problems, "daemon.interval must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// StorePath returns the snapshot database path
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "snapshots.db")
}

// StatePath returns the daemon state file path
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.json")
}

// splitUsers accepts both YAML lists and comma separated environment values
func splitUsers(raw []string) []string {
	users := []string{}
	for _, entry := range raw {
		for _, user := range strings.Split(entry, ",") {
			if user = strings.TrimSpace(user); user != "" {
				users = append(users, user)
			}
		}
	}
	return users
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "borahae")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}
