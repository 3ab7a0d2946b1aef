package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// EnvPrefix is prepended to every environment variable name
	EnvPrefix = "XU_RSD_"

	// DefaultEnvFile is loaded when present and no other env file is requested
	DefaultEnvFile = ".env"

	// overlayDefaultTag is a tag name no field carries, so overlay parsing
	// only applies variables that are actually set.
	overlayDefaultTag = "envOverlayDefault"
)

// Config represents the application configuration
type Config struct {
	Service    ServiceConfig    `json:"service"`
	Generation GenerationConfig `json:"generation"`
	Database   DatabaseConfig   `json:"database"`
	Cache      CacheConfig      `json:"cache"`
	Logging    LoggingConfig    `json:"logging"`
	Debug      DebugConfig      `json:"debug"`
}

// ServiceConfig describes how to reach the Xtract Universal metadata service
type ServiceConfig struct {
	BaseURL                  string  `json:"base_url"                   env:"BASE_URL"                   envDefault:"http://localhost:8065"`
	FilterDestinationType    string  `json:"filter_destination_type"    env:"FILTER_DESTINATION_TYPE"    envDefault:"HTTPJSON"`
	DestinationTypeParameter string  `json:"destination_type_parameter" env:"DESTINATION_TYPE_PARAMETER" envDefault:"http-json"`
	ForceDestinationType     bool    `json:"force_destination_type"     env:"FORCE_DESTINATION_TYPE"     envDefault:"false"`
	Timeout                  string  `json:"timeout"                    env:"TIMEOUT"                    envDefault:"30s"`
	RateLimit                float64 `json:"rate_limit"                 env:"RATE_LIMIT"                 envDefault:"10"` // requests per second
	UserAgent                string  `json:"user_agent"                 env:"USER_AGENT"                 envDefault:"xu-rsd-gen/1.0"`
}

// GenerationConfig controls RSD file generation
type GenerationConfig struct {
	Template       string     `json:"template"        env:"TEMPLATE"        envDefault:"TEMPLATE_JSON.rsd"`
	TargetFolder   string     `json:"target_folder"   env:"TARGET_FOLDER"   envDefault:"./OUTPUT"`
	SlidingDays    int        `json:"sliding_days"    env:"SLIDING_DAYS"    envDefault:"3"`
	SlidingColumns ColumnList `json:"sliding_columns" env:"SLIDING_COLUMNS" envDefault:"AEDAT"`
}

// DatabaseConfig represents the generation history database
type DatabaseConfig struct {
	Enabled      bool   `json:"enabled"       env:"DB_ENABLED"       envDefault:"true"`
	Path         string `json:"path"          env:"DB_PATH"          envDefault:"~/.config/xu-rsd-gen/history.db"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT" envDefault:"30s"`
}

// CacheConfig represents caching of metadata responses
type CacheConfig struct {
	Enabled   bool   `json:"enabled"     env:"CACHE_ENABLED"     envDefault:"false"`
	Directory string `json:"directory"   env:"CACHE_DIR"         envDefault:"~/.cache/xu-rsd-gen"`
	TTL       string `json:"ttl"         env:"CACHE_TTL"         envDefault:"1h"`
	MaxSizeMB int    `json:"max_size_mb" env:"CACHE_MAX_SIZE_MB" envDefault:"50"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`        // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`        // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"`      // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"./debug.log"` // log file path when output is file
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" env:"VERBOSE" envDefault:"false"`
}

// ColumnList is a set of column names read either from a JSON array
// (`["AEDAT","ERDAT"]`) or from a comma separated list (`AEDAT,ERDAT`).
type ColumnList []string

// UnmarshalText implements encoding.TextUnmarshaler for environment parsing
func (l *ColumnList) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*l = ColumnList{}
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return fmt.Errorf("invalid column list %q: %w", raw, err)
		}

		*l = normalizeColumns(names)

		return nil
	}

	*l = normalizeColumns(strings.Split(raw, ","))

	return nil
}

// UnmarshalJSON accepts both a JSON array and a string
func (l *ColumnList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		*l = normalizeColumns(names)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sliding columns must be an array or a string: %w", err)
	}

	return l.UnmarshalText([]byte(raw))
}

// Contains reports whether name is one of the configured columns
func (l ColumnList) Contains(name string) bool {
	for _, c := range l {
		if c == name {
			return true
		}
	}

	return false
}

func normalizeColumns(names []string) ColumnList {
	out := make(ColumnList, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}

	return out
}

// DefaultConfig returns a configuration populated only from envDefault tags
func DefaultConfig() *Config {
	cfg := &Config{}

	// An empty, non-nil environment keeps the process environment out.
	_ = env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{},
	})

	return cfg
}

// LoadConfig loads configuration from .env, file, environment variables and defaults
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence, lowest first: defaults, config file, environment (.env included), flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	envFile := DefaultEnvFile
	if v, ok := flagOverrides["env-file"].(string); ok && v != "" {
		envFile = v
	}

	if err := loadEnvFile(envFile, envFile != DefaultEnvFile); err != nil {
		return nil, err
	}

	config := DefaultConfig()

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadEnvFile loads variables from an env file without overriding the process
// environment. A missing default file is not an error.
func loadEnvFile(path string, required bool) error {
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}

// loadConfigFromFile loads configuration from a JSON file. Keys absent from
// the file keep their current values.
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides overlays variables that are set in the environment
func applyEnvironmentOverrides(config *Config) error {
	return env.ParseWithOptions(config, env.Options{
		Prefix:              EnvPrefix,
		DefaultValueTagName: overlayDefaultTag,
	})
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "base-url":
			if str, ok := value.(string); ok && str != "" {
				config.Service.BaseURL = str
			}
		case "filter":
			if str, ok := value.(string); ok {
				config.Service.FilterDestinationType = str
			}
		case "force-destination-type":
			if b, ok := value.(bool); ok {
				config.Service.ForceDestinationType = b
			}
		case "template":
			if str, ok := value.(string); ok && str != "" {
				config.Generation.Template = str
			}
		case "output-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Generation.TargetFolder = str
			}
		case "sliding-days":
			switch n := value.(type) {
			case int:
				config.Generation.SlidingDays = n
			case int64:
				config.Generation.SlidingDays = int(n)
			default:
				return fmt.Errorf("sliding-days must be an integer, got %T", value)
			}
		case "sliding-columns":
			if cols, ok := value.([]string); ok && len(cols) > 0 {
				config.Generation.SlidingColumns = normalizeColumns(cols)
			}
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "no-history":
			if b, ok := value.(bool); ok && b {
				config.Database.Enabled = false
			}
		case "cache-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Directory = str
				config.Cache.Enabled = true
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		}
	}

	return nil
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	// Validate log output
	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if config.Service.BaseURL == "" {
		return errors.New("service base url must not be empty")
	}

	if u, err := url.Parse(config.Service.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid service base url: %s", config.Service.BaseURL)
	}

	if config.Service.RateLimit < 0 {
		return fmt.Errorf("service rate limit must not be negative: %g", config.Service.RateLimit)
	}

	// Validate timeout durations
	if _, err := time.ParseDuration(config.Service.Timeout); err != nil {
		return fmt.Errorf("invalid service timeout: %s", config.Service.Timeout)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache ttl: %s", config.Cache.TTL)
	}

	if config.Generation.Template == "" {
		return errors.New("template path must not be empty")
	}

	if config.Generation.TargetFolder == "" {
		return errors.New("target folder must not be empty")
	}

	if config.Generation.SlidingDays < 0 {
		return fmt.Errorf("sliding days must not be negative: %d", config.Generation.SlidingDays)
	}

	if config.Cache.MaxSizeMB <= 0 {
		return fmt.Errorf("cache max size must be positive: %d", config.Cache.MaxSizeMB)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Fields returns the resolved settings worth logging at startup
func (c *Config) Fields() map[string]interface{} {
	return map[string]interface{}{
		"base_url":                   c.Service.BaseURL,
		"template":                   c.Generation.Template,
		"target_folder":              c.Generation.TargetFolder,
		"filter_destination_type":    c.Service.FilterDestinationType,
		"destination_type_parameter": c.Service.DestinationTypeParameter,
		"force_destination_type":     c.Service.ForceDestinationType,
		"sliding_days":               c.Generation.SlidingDays,
		"sliding_columns":            strings.Join(c.Generation.SlidingColumns, ","),
	}
}

// ServiceTimeout returns the parsed HTTP timeout
func (c *Config) ServiceTimeout() time.Duration {
	d, err := time.ParseDuration(c.Service.Timeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// CacheTTL returns the parsed cache TTL
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return time.Hour
	}

	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	// Check for custom config path from environment
	if configPath := os.Getenv(EnvPrefix + "CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Generation.Template = expandPath(c.Generation.Template)
	c.Generation.TargetFolder = expandPath(c.Generation.TargetFolder)
	c.Database.Path = expandPath(c.Database.Path)
	c.Cache.Directory = expandPath(c.Cache.Directory)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/xu-rsd-gen"
	}

	return filepath.Join(homeDir, ".config", "xu-rsd-gen")
}
