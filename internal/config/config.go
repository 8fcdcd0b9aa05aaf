/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Configuration
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package config loads the tool configuration. It is read once at start-up
// and never reloaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pgedge-nl2sql/internal/database"
	"pgedge-nl2sql/internal/extract"
	"pgedge-nl2sql/internal/llm"
	"pgedge-nl2sql/internal/logging"
	"pgedge-nl2sql/internal/prompt"
)

// Environment variables read by Load
const (
	EnvDBDriver     = "PGEDGE_NL2SQL_DB_DRIVER"
	EnvDBPath       = "PGEDGE_NL2SQL_DB_PATH"
	EnvLLMProvider  = "PGEDGE_LLM_PROVIDER"
	EnvLLMModel     = "PGEDGE_LLM_MODEL"
	EnvOllamaURL    = "OLLAMA_BASE_URL"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvNoColor      = "NO_COLOR"
)

// DefaultModelTimeout bounds each model call when llm.timeout is unset
const DefaultModelTimeout = 60 * time.Second

// DefaultConnectTimeout bounds the initial database ping
const DefaultConnectTimeout = 10 * time.Second

// Config holds all configuration for the tool
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Executor ExecutorConfig `yaml:"executor"`
	UI       UIConfig       `yaml:"ui"`

	// Extractor selects the SQL extraction strategy: keyword or fenced
	Extractor string `yaml:"extractor"`
	// ExamplesFile replaces the built-in few-shot examples
	ExamplesFile string `yaml:"examples_file"`
	// MetadataFile is the static table metadata used by the prompt command
	MetadataFile string `yaml:"metadata_file"`
	LogLevel     string `yaml:"log_level"`

	// Examples is filled by Validate from ExamplesFile or the defaults
	Examples []prompt.Example `yaml:"-"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite, sqlite3 or pgx
	Path     string `yaml:"path"`   // file path, or DSN for pgx
	Schema   string `yaml:"schema"` // PostgreSQL schema to introspect
	ReadOnly bool   `yaml:"read_only"`

	// ConnectTimeout bounds the initial connection check
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LLMConfig holds model service settings
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // ollama, openai or anthropic
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	APIKeyFile  string        `yaml:"api_key_file"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ExecutorConfig holds query execution settings
type ExecutorConfig struct {
	MaxRows int `yaml:"max_rows"` // 0 means unlimited
}

// UIConfig holds terminal settings
type UIConfig struct {
	NoColor     bool   `yaml:"no_color"`
	HistoryFile string `yaml:"history_file"`
}

// CLIFlags carries command line values and whether each was explicitly set
type CLIFlags struct {
	DBDriver    string
	DBDriverSet bool
	DBPath      string
	DBPathSet   bool

	Provider    string
	ProviderSet bool
	Model       string
	ModelSet    bool
	BaseURL     string
	BaseURLSet  bool
	Timeout     time.Duration
	TimeoutSet  bool

	Extractor    string
	ExtractorSet bool
	MaxRows      int
	MaxRowsSet   bool
	Examples     string
	ExamplesSet  bool
	Metadata     string
	MetadataSet  bool

	LogLevel    string
	LogLevelSet bool
	NoColor     bool
	NoColorSet  bool
}

// DefaultConfigPaths are searched in order when no config file is given
func DefaultConfigPaths() []string {
	paths := []string{".pgedge-nl2sql.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pgedge-nl2sql.yaml"))
	}
	return append(paths, "/etc/pgedge-nl2sql/config.yaml")
}

// Load builds the configuration with this priority, highest first:
//  1. command line flags
//  2. environment variables
//  3. configuration file
//  4. defaults
//
// The result has been validated and its examples loaded.
func Load(configPath string, flags CLIFlags) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, path := range DefaultConfigPaths() {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := loadConfigFile(path, cfg); err != nil {
				logging.Warn("config_file_ignored", "path", path, "error", err)
				continue
			}
			logging.Debug("config_file_loaded", "path", path)
			break
		}
	}

	applyEnvironmentVariables(cfg)
	applyCLIFlags(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: database.DriverSQLite,
			Schema: "public",
		},
		LLM: LLMConfig{
			Provider:  llm.ProviderOllama,
			MaxTokens: llm.DefaultMaxTokens,
			Timeout:   DefaultModelTimeout,
		},
		Extractor: "keyword",
		LogLevel:  "error",
	}
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

func applyEnvironmentVariables(cfg *Config) {
	setStringFromEnv(&cfg.Database.Driver, EnvDBDriver)
	setStringFromEnv(&cfg.Database.Path, EnvDBPath)
	setStringFromEnv(&cfg.LLM.Provider, EnvLLMProvider)
	setStringFromEnv(&cfg.LLM.Model, EnvLLMModel)
	setStringFromEnv(&cfg.LogLevel, logging.EnvLogLevel)

	if os.Getenv(EnvNoColor) != "" {
		cfg.UI.NoColor = true
	}
}

func applyCLIFlags(cfg *Config, flags CLIFlags) {
	if flags.DBDriverSet {
		cfg.Database.Driver = flags.DBDriver
	}
	if flags.DBPathSet {
		cfg.Database.Path = flags.DBPath
	}
	if flags.ProviderSet {
		cfg.LLM.Provider = flags.Provider
	}
	if flags.ModelSet {
		cfg.LLM.Model = flags.Model
	}
	if flags.BaseURLSet {
		cfg.LLM.BaseURL = flags.BaseURL
	}
	if flags.TimeoutSet {
		cfg.LLM.Timeout = flags.Timeout
	}
	if flags.ExtractorSet {
		cfg.Extractor = flags.Extractor
	}
	if flags.MaxRowsSet {
		cfg.Executor.MaxRows = flags.MaxRows
	}
	if flags.ExamplesSet {
		cfg.ExamplesFile = flags.Examples
	}
	if flags.MetadataSet {
		cfg.MetadataFile = flags.Metadata
	}
	if flags.LogLevelSet {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.NoColorSet {
		cfg.UI.NoColor = flags.NoColor
	}
}

// Validate fills provider defaults, resolves API keys, loads the few-shot
// examples and rejects invalid values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "":
		c.Database.Driver = database.DriverSQLite
	case database.DriverSQLite, database.DriverSQLite3, database.DriverPgx:
	default:
		return fmt.Errorf("invalid database driver: %s (must be %s, %s or %s)",
			c.Database.Driver, database.DriverSQLite, database.DriverSQLite3, database.DriverPgx)
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	switch c.LLM.Provider {
	case "", llm.ProviderOllama:
		c.LLM.Provider = llm.ProviderOllama
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = os.Getenv(EnvOllamaURL)
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = llm.DefaultOllamaURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = llm.DefaultOllamaModel
		}
	case llm.ProviderOpenAI:
		if err := c.resolveAPIKey(EnvOpenAIKey); err != nil {
			return err
		}
		if c.LLM.Model == "" {
			c.LLM.Model = llm.DefaultOpenAIModel
		}
	case llm.ProviderAnthropic:
		if err := c.resolveAPIKey(EnvAnthropicKey); err != nil {
			return err
		}
		if c.LLM.Model == "" {
			c.LLM.Model = llm.DefaultAnthropicModel
		}
	default:
		return fmt.Errorf("invalid llm provider: %s (must be ollama, openai or anthropic)", c.LLM.Provider)
	}

	if c.Database.ConnectTimeout < 0 {
		return fmt.Errorf("invalid database connect_timeout: %s", c.Database.ConnectTimeout)
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = DefaultConnectTimeout
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("invalid llm timeout: %s", c.LLM.Timeout)
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = DefaultModelTimeout
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = llm.DefaultMaxTokens
	}

	if c.Executor.MaxRows < 0 {
		return fmt.Errorf("invalid executor max_rows: %d (must be 0 or greater)", c.Executor.MaxRows)
	}
	if _, err := extract.New(c.Extractor); err != nil {
		return err
	}
	if c.LogLevel == "" {
		c.LogLevel = "error"
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.ExamplesFile != "" {
		examples, err := LoadExamples(c.ExamplesFile)
		if err != nil {
			return err
		}
		c.Examples = examples
	} else {
		c.Examples = DefaultExamples()
	}

	return nil
}

// resolveAPIKey uses the configured key, then the key file, then envKey
func (c *Config) resolveAPIKey(envKey string) error {
	if c.LLM.APIKey == "" && c.LLM.APIKeyFile != "" {
		key, err := readAPIKeyFromFile(c.LLM.APIKeyFile)
		if err != nil {
			return err
		}
		c.LLM.APIKey = key
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(envKey)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%s environment variable or llm.api_key config is required for %s", envKey, c.LLM.Provider)
	}
	return nil
}

// GeneratorConfig converts the LLM settings for llm.NewGenerator
func (c *Config) GeneratorConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
	}
}

// DatabaseOpenConfig converts the database settings for database.Open
func (c *Config) DatabaseOpenConfig() database.Config {
	return database.Config{
		Driver:         c.Database.Driver,
		Path:           c.Database.Path,
		ReadOnly:       c.Database.ReadOnly,
		ConnectTimeout: c.Database.ConnectTimeout,
	}
}

// readAPIKeyFromFile reads an API key from a file. A missing file yields an
// empty key, not an error.
func readAPIKeyFromFile(filePath string) (string, error) {
	filePath, err := expandHome(filePath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read API key file %s: %w", filePath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
