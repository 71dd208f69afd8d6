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

// Dump modes supported by the archiver
const (
	ModeDialogs = "dialogs"
	ModePosts   = "posts"
	ModeBoth    = "both"
)

// Export formats supported by the persister
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// Config holds all configuration options for the VK archiver
type Config struct {
	// VK API access
	VK VKConfig `yaml:"vk" json:"vk"`

	// Dump settings (mode, formats, limits)
	Dump DumpConfig `yaml:"dump" json:"dump"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Media cache settings
	Media MediaConfig `yaml:"media" json:"media"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// VKConfig holds VK-specific configuration
type VKConfig struct {
	Token      string        `yaml:"token" json:"token"`
	APIVersion string        `yaml:"api_version" json:"api_version"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// DumpConfig holds settings for what gets archived and how
type DumpConfig struct {
	Mode            string `yaml:"mode" json:"mode"`
	ExportFormat    string `yaml:"export_format" json:"export_format"`
	ThreadCount     int    `yaml:"thread_count" json:"thread_count"`
	MaxDialogs      int    `yaml:"max_dialogs" json:"max_dialogs"`
	CommunityID     string `yaml:"community_id" json:"community_id"`
	PostsCount      int    `yaml:"posts_count" json:"posts_count"`
	IncludeComments bool   `yaml:"include_comments" json:"include_comments"`
	IncludeLikes    bool   `yaml:"include_likes" json:"include_likes"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory    string `yaml:"base_directory" json:"base_directory"`
	DialogsDirectory string `yaml:"dialogs_directory" json:"dialogs_directory"`
	PostsDirectory   string `yaml:"posts_directory" json:"posts_directory"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// MediaConfig holds image cache settings for HTML export
type MediaConfig struct {
	CacheImages  bool          `yaml:"cache_images" json:"cache_images"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		VK: VKConfig{
			APIVersion: "5.131",
			Timeout:    30 * time.Second,
		},
		Dump: DumpConfig{
			Mode:            ModeDialogs,
			ExportFormat:    FormatJSON,
			ThreadCount:     4,
			MaxDialogs:      200,
			PostsCount:      100,
			IncludeComments: true,
			IncludeLikes:    true,
		},
		Output: OutputConfig{
			BaseDirectory:    "output",
			DialogsDirectory: "dialogs",
			PostsDirectory:   "posts",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 180,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
		},
		Media: MediaConfig{
			CacheImages:  true,
			FetchTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("VKDUMP_TOKEN"); token != "" {
		c.VK.Token = token
	}
	if mode := os.Getenv("VKDUMP_MODE"); mode != "" {
		c.Dump.Mode = mode
	}
	if format := os.Getenv("VKDUMP_EXPORT_FORMAT"); format != "" {
		c.Dump.ExportFormat = format
	}
	if threads := os.Getenv("VKDUMP_THREAD_COUNT"); threads != "" {
		var val int
		fmt.Sscanf(threads, "%d", &val)
		if val > 0 {
			c.Dump.ThreadCount = val
		}
	}
	if community := os.Getenv("VKDUMP_COMMUNITY_ID"); community != "" {
		c.Dump.CommunityID = community
	}
	if count := os.Getenv("VKDUMP_POSTS_COUNT"); count != "" {
		var val int
		fmt.Sscanf(count, "%d", &val)
		if val > 0 {
			c.Dump.PostsCount = val
		}
	}
	if maxDialogs := os.Getenv("VKDUMP_MAX_DIALOGS"); maxDialogs != "" {
		var val int
		fmt.Sscanf(maxDialogs, "%d", &val)
		if val > 0 {
			c.Dump.MaxDialogs = val
		}
	}
	if outputDir := os.Getenv("VKDUMP_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if rpm := os.Getenv("VKDUMP_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if comments := os.Getenv("VKDUMP_INCLUDE_COMMENTS"); comments != "" {
		c.Dump.IncludeComments = strings.ToLower(comments) == "true"
	}
	if likes := os.Getenv("VKDUMP_INCLUDE_LIKES"); likes != "" {
		c.Dump.IncludeLikes = strings.ToLower(likes) == "true"
	}
	if logLevel := os.Getenv("VKDUMP_LOG_LEVEL"); logLevel != "" {
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
		".vkdump.yaml",
		".vkdump.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "vkdump", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "vkdump", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".vkdump.yaml"),
		filepath.Join(os.Getenv("HOME"), ".vkdump.yml"),
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

	if c.Dump.Mode != ModeDialogs && c.Dump.Mode != ModePosts && c.Dump.Mode != ModeBoth {
		errs = append(errs, fmt.Errorf("invalid dump mode %q: must be dialogs, posts or both", c.Dump.Mode))
	}

	for _, format := range c.ExportFormats() {
		if format != FormatJSON && format != FormatHTML {
			errs = append(errs, fmt.Errorf("invalid export format %q: must be json or html", format))
		}
	}

	if c.Dump.ThreadCount < 1 || c.Dump.ThreadCount > 20 {
		errs = append(errs, errors.New("thread count must be between 1 and 20"))
	}

	if c.ShouldDumpPosts() {
		if c.Dump.CommunityID == "" {
			errs = append(errs, errors.New("community ID is required for posts mode"))
		} else if !IsValidCommunityID(c.Dump.CommunityID) {
			errs = append(errs, fmt.Errorf("invalid community ID %q: use a numeric ID or a domain name", c.Dump.CommunityID))
		}
		if c.Dump.PostsCount <= 0 {
			errs = append(errs, errors.New("posts count must be positive"))
		}
	}

	if c.ShouldDumpDialogs() && c.Dump.MaxDialogs <= 0 {
		errs = append(errs, errors.New("max dialogs must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
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

// IsValidCommunityID reports whether id looks like a numeric community ID
// (optionally negative) or a VK domain name.
func IsValidCommunityID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	numeric := strings.TrimPrefix(id, "-")
	isNumeric := numeric != ""
	for _, char := range numeric {
		if char < '0' || char > '9' {
			isNumeric = false
			break
		}
	}
	if isNumeric {
		return true
	}

	// Domain names: letters, digits, underscores and dots
	for _, char := range id {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '.') {
			return false
		}
	}
	return true
}

// ExportFormats returns the list of requested export formats
func (c *Config) ExportFormats() []string {
	parts := strings.Split(c.Dump.ExportFormat, ",")
	formats := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			formats = append(formats, trimmed)
		}
	}
	return formats
}

// HasFormat reports whether the given export format was requested
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.ExportFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// ShouldDumpDialogs reports whether the dialogs phase should run
func (c *Config) ShouldDumpDialogs() bool {
	return c.Dump.Mode == ModeDialogs || c.Dump.Mode == ModeBoth
}

// ShouldDumpPosts reports whether the posts phase should run
func (c *Config) ShouldDumpPosts() bool {
	return c.Dump.Mode == ModePosts || c.Dump.Mode == ModeBoth
}

// DialogsPath returns the full path for dialog output files
func (c *Config) DialogsPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.DialogsDirectory)
}

// PostsPath returns the full path for post output files
func (c *Config) PostsPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.PostsDirectory)
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
	if token, ok := flags["token"].(string); ok && token != "" {
		c.VK.Token = token
	}
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Dump.Mode = mode
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Dump.ExportFormat = format
	}
	if threads, ok := flags["threads"].(int); ok && threads > 0 {
		c.Dump.ThreadCount = threads
	}
	if community, ok := flags["community"].(string); ok && community != "" {
		c.Dump.CommunityID = community
	}
	if count, ok := flags["posts-count"].(int); ok && count > 0 {
		c.Dump.PostsCount = count
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".vkdump.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
