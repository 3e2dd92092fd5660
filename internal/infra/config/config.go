package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
}

type DownloadConfig struct {
	Dir           string `mapstructure:"dir" yaml:"dir"`
	TempDir       string `mapstructure:"temp_dir" yaml:"temp_dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
}

type QueueConfig struct {
	MaxConcurrentDownloads int `mapstructure:"max_concurrent_downloads" yaml:"max_concurrent_downloads"`
	Capacity               int `mapstructure:"capacity" yaml:"capacity"`
	UserJobLimit           int `mapstructure:"user_job_limit" yaml:"user_job_limit"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// MaxFileSizeBytes converts the configured MB limit for size checks.
func (c DownloadConfig) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func Load(path string) (*Config, error) {

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// FALLBACK: container deployments mount the config under /config
		if path == "config.yaml" {
			if _, errEx := os.Stat("/config/config.yaml"); errEx == nil {
				path = "/config/config.yaml"
			} else {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
		} else {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("download.dir", "./downloads")
	v.SetDefault("download.max_file_size_mb", 1900)
	v.SetDefault("queue.max_concurrent_downloads", 3)
	v.SetDefault("queue.capacity", 512)
	v.SetDefault("queue.user_job_limit", 5)
	v.SetDefault("log.path", "mediabot.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("store.sqlite_path", "./data/mediabot.db")

	// Read config File
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	// Support Environment Variables
	v.SetEnvPrefix("MEDIABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}

	if c.Queue.MaxConcurrentDownloads <= 0 {
		// Default to a sane value
		c.Queue.MaxConcurrentDownloads = 3
	}

	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 512
	}

	if c.Queue.UserJobLimit <= 0 {
		c.Queue.UserJobLimit = 5
	}

	if c.Download.MaxFileSizeMB <= 0 {
		return fmt.Errorf("download.max_file_size_mb must be positive, got %d", c.Download.MaxFileSizeMB)
	}

	if c.Download.Dir == "" {
		c.Download.Dir = "./downloads"
	}

	if c.Download.TempDir == "" {
		c.Download.TempDir = c.Download.Dir + "/tmp"
	}

	return nil
}
