package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings for the poster. Request-specific
// data (what to post, as what account) lives in Request instead.
type Config struct {
	// HTTP client behaviour
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Pacing between successive platform calls
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Image normalization settings
	Image ImageConfig `yaml:"image" json:"image"`

	// Remote image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Publisher selection
	Publisher PublisherConfig `yaml:"publisher" json:"publisher"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig paces the login/upload/configure sequence. It never
// retries anything; it only spaces requests out.
type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int    `yaml:"burst_size" json:"burst_size"`
	Limiter           string `yaml:"limiter" json:"limiter"`
}

// ImageConfig holds the constraints the processed image must satisfy
type ImageConfig struct {
	MaxDimension      int     `yaml:"max_dimension" json:"max_dimension"`
	JPEGQuality       int     `yaml:"jpeg_quality" json:"jpeg_quality"`
	MinAspectRatio    float64 `yaml:"min_aspect_ratio" json:"min_aspect_ratio"`
	MaxAspectRatio    float64 `yaml:"max_aspect_ratio" json:"max_aspect_ratio"`
	OutputSuffix      string  `yaml:"output_suffix" json:"output_suffix"`
	OutputDir         string  `yaml:"output_dir" json:"output_dir"`
	OverwriteExisting bool    `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// DownloadConfig applies only when image_path is a URL
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
}

// PublisherConfig selects the posting implementation
type PublisherConfig struct {
	// Mode is "api", "web" or "auto"
	Mode string `yaml:"mode" json:"mode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults. The image
// bounds follow Instagram's published feed constraints: aspect ratio
// between 4:5 and 1.91:1, longest edge 1080px, JPEG delivery.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         5,
			Limiter:           "token_bucket",
		},
		Image: ImageConfig{
			MaxDimension:      1080,
			JPEGQuality:       85,
			MinAspectRatio:    0.8,
			MaxAspectRatio:    1.91,
			OutputSuffix:      "_processed",
			OverwriteExisting: false,
		},
		Download: DownloadConfig{
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
		},
		Publisher: PublisherConfig{
			Mode: "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if userAgent := os.Getenv("IGPOSTER_USER_AGENT"); userAgent != "" {
		c.HTTP.UserAgent = userAgent
	}

	if rpm := os.Getenv("IGPOSTER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if maxDim := os.Getenv("IGPOSTER_MAX_DIMENSION"); maxDim != "" {
		var val int
		fmt.Sscanf(maxDim, "%d", &val)
		if val > 0 {
			c.Image.MaxDimension = val
		}
	}

	if mode := os.Getenv("IGPOSTER_PUBLISHER_MODE"); mode != "" {
		c.Publisher.Mode = strings.ToLower(mode)
	}

	if overwrite := os.Getenv("IGPOSTER_OVERWRITE_EXISTING"); overwrite != "" {
		c.Image.OverwriteExisting = strings.ToLower(overwrite) == "true"
	}

	if logLevel := os.Getenv("IGPOSTER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igposter.yaml",
		".igposter.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igposter", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igposter", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igposter.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.HTTP.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	switch strings.ToLower(c.RateLimit.Limiter) {
	case "token_bucket", "sliding_window":
	default:
		errs = append(errs, errors.New("limiter must be token_bucket or sliding_window"))
	}

	if c.Image.MaxDimension <= 0 {
		errs = append(errs, errors.New("max dimension must be positive"))
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		errs = append(errs, errors.New("jpeg quality must be between 1 and 100"))
	}
	if c.Image.MinAspectRatio <= 0 || c.Image.MaxAspectRatio <= 0 {
		errs = append(errs, errors.New("aspect ratio bounds must be positive"))
	}
	if c.Image.MinAspectRatio > c.Image.MaxAspectRatio {
		errs = append(errs, errors.New("min aspect ratio cannot exceed max aspect ratio"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("download retry attempts cannot be negative"))
	}

	switch strings.ToLower(c.Publisher.Mode) {
	case "api", "web", "auto":
	default:
		errs = append(errs, errors.New("publisher mode must be api, web or auto"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Publisher.Mode = strings.ToLower(mode)
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if overwrite, ok := flags["overwrite"].(bool); ok {
		c.Image.OverwriteExisting = overwrite
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Image.OutputDir = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igposter.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
