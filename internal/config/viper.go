// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/kakeibo/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. KAKEIBO_LOG_LEVEL.
const EnvPrefix = "KAKEIBO"

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig locates and unlocks the shared entity store.
type StoreConfig struct {
	Directory      string `mapstructure:"directory" yaml:"directory"`
	GroupID        string `mapstructure:"group_id" yaml:"group_id"`
	SchemaName     string `mapstructure:"schema_name" yaml:"schema_name"`
	Passphrase     string `mapstructure:"passphrase" yaml:"-"` // never serialized
	FetchBatchSize int    `mapstructure:"fetch_batch_size" yaml:"fetch_batch_size"`
	BusyTimeoutMS  int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// WorkersConfig sizes the repository worker pool.
type WorkersConfig struct {
	PoolSize         int           `mapstructure:"pool_size" yaml:"pool_size"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// ParsersConfig toggles parse strategies.
type ParsersConfig struct {
	RegexEnabled bool `mapstructure:"regex_enabled" yaml:"regex_enabled"`
}

// AIConfig configures the Gemini parse strategy.
type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Model          string `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// RequestsPerMinute caps calls to the Gemini API; 0 disables the limit.
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	APIKey            string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
}

// ChangefeedConfig configures change polling and the optional AMQP notifier.
type ChangefeedConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	AMQPURL      string        `mapstructure:"amqp_url" yaml:"amqp_url"`
	AMQPExchange string        `mapstructure:"amqp_exchange" yaml:"amqp_exchange"`
	AMQPQueue    string        `mapstructure:"amqp_queue" yaml:"amqp_queue"`
}

// BudgetsConfig points at the budget declarations.
type BudgetsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// Config represents the complete application configuration
type Config struct {
	// Context is the process context this invocation writes as.
	Context string `mapstructure:"context" yaml:"context"`

	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Workers    WorkersConfig    `mapstructure:"workers" yaml:"workers"`
	Parsers    ParsersConfig    `mapstructure:"parsers" yaml:"parsers"`
	AI         AIConfig         `mapstructure:"ai" yaml:"ai"`
	Changefeed ChangefeedConfig `mapstructure:"changefeed" yaml:"changefeed"`
	Budgets    BudgetsConfig    `mapstructure:"budgets" yaml:"budgets"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// InitializeConfig loads configuration from the default locations.
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load initializes Viper configuration with hierarchical loading. A
// non-empty configFile replaces the search of the default locations.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.kakeibo")
		v.AddConfigPath(".kakeibo")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. Handle special case for API key (always from env, not prefixed)
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY environment variable: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.File = v.ConfigFileUsed()

	// 6. Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Defaults returns the configuration with every default applied, without
// reading a file or the environment.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config) // defaults always decode
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("context", string(models.SourceApp))

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Store defaults; an empty directory means the user config dir
	v.SetDefault("store.directory", "")
	v.SetDefault("store.group_id", models.DefaultGroupIdentifier)
	v.SetDefault("store.schema_name", models.DefaultSchemaName)
	v.SetDefault("store.passphrase", "")
	v.SetDefault("store.fetch_batch_size", 20)
	v.SetDefault("store.busy_timeout_ms", 5000)

	// Worker defaults; 0 means one worker per CPU and no timeout
	v.SetDefault("workers.pool_size", 0)
	v.SetDefault("workers.operation_timeout", "0s")

	v.SetDefault("parsers.regex_enabled", true)

	// AI defaults
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.requests_per_minute", 60)

	v.SetDefault("changefeed.poll_interval", "2s")
	v.SetDefault("changefeed.amqp_url", "")
	v.SetDefault("changefeed.amqp_exchange", "kakeibo")
	v.SetDefault("changefeed.amqp_queue", "kakeibo.changes")

	v.SetDefault("budgets.file", "budgets.yaml")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if models.ParseTransactionSource(config.Context) != models.TransactionSource(config.Context) {
		return fmt.Errorf("invalid context: %s (must be 'app' or 'share_extension')", config.Context)
	}

	// Validate log level
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	// Validate log format
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if strings.TrimSpace(config.Store.GroupID) == "" {
		return fmt.Errorf("store.group_id must not be empty")
	}
	if strings.TrimSpace(config.Store.SchemaName) == "" {
		return fmt.Errorf("store.schema_name must not be empty")
	}
	if config.Store.FetchBatchSize < 1 {
		return fmt.Errorf("store.fetch_batch_size must be at least 1, got: %d", config.Store.FetchBatchSize)
	}
	if config.Store.BusyTimeoutMS < 0 {
		return fmt.Errorf("store.busy_timeout_ms must not be negative, got: %d", config.Store.BusyTimeoutMS)
	}

	if config.Workers.PoolSize < 0 {
		return fmt.Errorf("workers.pool_size must not be negative, got: %d", config.Workers.PoolSize)
	}
	if config.Workers.OperationTimeout < 0 {
		return fmt.Errorf("workers.operation_timeout must not be negative, got: %s", config.Workers.OperationTimeout)
	}

	// Validate AI configuration
	if config.AI.Enabled {
		if config.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
		}
		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
		if config.AI.RequestsPerMinute < 0 {
			return fmt.Errorf("ai.requests_per_minute must not be negative, got: %d", config.AI.RequestsPerMinute)
		}
	}

	if config.Changefeed.PollInterval <= 0 {
		return fmt.Errorf("changefeed.poll_interval must be positive, got: %s", config.Changefeed.PollInterval)
	}
	if config.Changefeed.AMQPURL != "" &&
		(config.Changefeed.AMQPExchange == "" || config.Changefeed.AMQPQueue == "") {
		return fmt.Errorf("changefeed.amqp_exchange and changefeed.amqp_queue are required with changefeed.amqp_url")
	}

	return nil
}

// Validate checks every section, e.g. after a command-line override.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Source returns the configured process context.
func (c *Config) Source() models.TransactionSource {
	return models.TransactionSource(c.Context)
}

// BusyTimeout returns store.busy_timeout_ms as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// AITimeout returns ai.timeout_seconds as a duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
