// Package config provides configuration management for the drive-to-gong application
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DriveConfig holds Google Drive API authentication and connection settings
type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	FolderID        string `yaml:"folder_id" json:"folder_id"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
}

// GongConfig holds Gong API authentication and settings
type GongConfig struct {
	BaseURL         string `yaml:"base_url" json:"base_url"`
	AccessKey       string `yaml:"access_key" json:"access_key"`
	AccessSecret    string `yaml:"access_secret" json:"access_secret"`
	DefaultUserID   string `yaml:"default_user_id" json:"default_user_id"`
	DefaultUserName string `yaml:"default_user_name" json:"default_user_name"`
}

// PipelineConfig holds transfer pipeline settings
type PipelineConfig struct {
	Workers            int     `yaml:"workers" json:"workers"`
	MaxAttempts        int     `yaml:"max_attempts" json:"max_attempts"`
	MinDurationSeconds float64 `yaml:"min_duration_seconds" json:"min_duration_seconds"`
	WorkDir            string  `yaml:"work_dir" json:"work_dir"`
	DataDir            string  `yaml:"data_dir" json:"data_dir"`

	// Ledger and universe file locations. Empty values are derived from DataDir.
	UniverseFile  string `yaml:"universe_file" json:"universe_file"`
	CompletedFile string `yaml:"completed_file" json:"completed_file"`
	ShortFile     string `yaml:"short_file" json:"short_file"`
	ErrorFile     string `yaml:"error_file" json:"error_file"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	Console    bool   `yaml:"console" json:"console"`
	JSONFormat bool   `yaml:"json_format" json:"json_format"`
}

// IdentityConfig holds identity map settings
type IdentityConfig struct {
	File      string `yaml:"file" json:"file"`
	WatchFile bool   `yaml:"watch_file" json:"watch_file"`
}

// Config represents the complete application configuration
type Config struct {
	Drive    DriveConfig    `yaml:"drive" json:"drive"`
	Gong     GongConfig     `yaml:"gong" json:"gong"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Identity IdentityConfig `yaml:"identity" json:"identity"`
}

// LoadConfig loads configuration from a YAML file with defaults and environment variable overrides.
// A .env file in the working directory is loaded first so that local development
// credentials behave the same as real environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Load .env if present; a missing file is not an error
	_ = godotenv.Load()

	// Load from YAML file
	if err := config.loadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	// Apply defaults
	config.setDefaults()

	// Override with environment variables
	config.loadFromEnvironment()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func (c *Config) loadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// setDefaults applies default values for missing configuration
func (c *Config) setDefaults() {
	// Drive defaults
	if c.Drive.BaseURL == "" {
		c.Drive.BaseURL = "https://www.googleapis.com/drive/v3"
	}

	// Pipeline defaults
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 5
	}
	if c.Pipeline.MaxAttempts == 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.MinDurationSeconds == 0 {
		c.Pipeline.MinDurationSeconds = 60
	}
	if c.Pipeline.WorkDir == "" {
		c.Pipeline.WorkDir = "./dest"
	}
	if c.Pipeline.DataDir == "" {
		c.Pipeline.DataDir = "./data"
	}
	if c.Pipeline.UniverseFile == "" {
		c.Pipeline.UniverseFile = filepath.Join(c.Pipeline.DataDir, "file_list.csv")
	}
	if c.Pipeline.CompletedFile == "" {
		c.Pipeline.CompletedFile = filepath.Join(c.Pipeline.DataDir, "completed_list.csv")
	}
	if c.Pipeline.ShortFile == "" {
		c.Pipeline.ShortFile = filepath.Join(c.Pipeline.DataDir, "short_video_list.csv")
	}
	if c.Pipeline.ErrorFile == "" {
		c.Pipeline.ErrorFile = filepath.Join(c.Pipeline.DataDir, "error_video_list.csv")
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = "./drive-to-gong.log"
	}
	// Console defaults to true (if not explicitly configured)
	// Note: This will always set to true, override in YAML if false is desired
	c.Logging.Console = true

	// Identity defaults
	if c.Identity.File == "" {
		c.Identity.File = filepath.Join(c.Pipeline.DataDir, "user_list.csv")
	}
}

// loadFromEnvironment overrides configuration with environment variables
func (c *Config) loadFromEnvironment() {
	if val := os.Getenv("GOOGLE_FOLDER_ID"); val != "" {
		c.Drive.FolderID = val
	}
	if val := os.Getenv("DRIVE_CREDENTIALS_FILE"); val != "" {
		c.Drive.CredentialsFile = val
	}
	if val := os.Getenv("DRIVE_BASE_URL"); val != "" {
		c.Drive.BaseURL = val
	}

	if val := os.Getenv("GONG_API_URL"); val != "" {
		c.Gong.BaseURL = val
	}
	if val := os.Getenv("GONG_KEY"); val != "" {
		c.Gong.AccessKey = val
	}
	if val := os.Getenv("GONG_SECRET"); val != "" {
		c.Gong.AccessSecret = val
	}
	if val := os.Getenv("DEFAULT_USER_ID"); val != "" {
		c.Gong.DefaultUserID = val
	}
	if val := os.Getenv("DEFAULT_USER_NAME"); val != "" {
		c.Gong.DefaultUserName = val
	}

	if val := os.Getenv("PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil {
			c.Pipeline.Workers = workers
		}
	}
	if val := os.Getenv("PIPELINE_WORK_DIR"); val != "" {
		c.Pipeline.WorkDir = val
	}
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	// Validate required Gong configuration
	if c.Gong.BaseURL == "" {
		return fmt.Errorf("gong.base_url is required")
	}
	if c.Gong.AccessKey == "" {
		return fmt.Errorf("gong.access_key is required")
	}
	if c.Gong.AccessSecret == "" {
		return fmt.Errorf("gong.access_secret is required")
	}

	// Validate pipeline configuration
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1")
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be >= 1")
	}
	if c.Pipeline.MinDurationSeconds < 0 {
		return fmt.Errorf("pipeline.min_duration_seconds must be >= 0")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// GetGongConfig returns the Gong configuration
func (c *Config) GetGongConfig() GongConfig {
	return c.Gong
}
