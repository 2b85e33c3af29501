package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfig_Defaults(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "app", config.Context)
	assert.Equal(t, models.SourceApp, config.Source())
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, "", config.Store.Directory)
	assert.Equal(t, models.DefaultGroupIdentifier, config.Store.GroupID)
	assert.Equal(t, models.DefaultSchemaName, config.Store.SchemaName)
	assert.Equal(t, 20, config.Store.FetchBatchSize)
	assert.Equal(t, 5*time.Second, config.BusyTimeout())
	assert.Equal(t, 0, config.Workers.PoolSize)
	assert.Equal(t, time.Duration(0), config.Workers.OperationTimeout)
	assert.True(t, config.Parsers.RegexEnabled)
	assert.False(t, config.AI.Enabled)
	assert.Equal(t, "gemini-1.5-flash", config.AI.Model)
	assert.Equal(t, 30*time.Second, config.AITimeout())
	assert.Equal(t, 60, config.AI.RequestsPerMinute)
	assert.Empty(t, config.File)
	assert.Equal(t, 2*time.Second, config.Changefeed.PollInterval)
	assert.Equal(t, "", config.Changefeed.AMQPURL)
	assert.Equal(t, "kakeibo", config.Changefeed.AMQPExchange)
	assert.Equal(t, "kakeibo.changes", config.Changefeed.AMQPQueue)
	assert.Equal(t, "budgets.yaml", config.Budgets.File)
}

func TestDefaults(t *testing.T) {
	clearTestEnvVars(t)
	t.Setenv("KAKEIBO_LOG_LEVEL", "debug")

	config := Defaults()
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, 2*time.Second, config.Changefeed.PollInterval)
	assert.Equal(t, 20, config.Store.FetchBatchSize)
	assert.Empty(t, config.File)

	config.Store.Passphrase = "secret"
	assert.NoError(t, config.Validate())
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	testEnvVars := map[string]string{
		"KAKEIBO_CONTEXT":                   "share_extension",
		"KAKEIBO_LOG_LEVEL":                 "debug",
		"KAKEIBO_LOG_FORMAT":                "json",
		"KAKEIBO_STORE_PASSPHRASE":          "secret",
		"KAKEIBO_STORE_FETCH_BATCH_SIZE":    "50",
		"KAKEIBO_WORKERS_POOL_SIZE":         "4",
		"KAKEIBO_WORKERS_OPERATION_TIMEOUT": "3s",
		"KAKEIBO_AI_ENABLED":                "true",
		"KAKEIBO_AI_MODEL":                  "gemini-1.5-pro",
		"KAKEIBO_CHANGEFEED_POLL_INTERVAL":  "500ms",
		"GEMINI_API_KEY":                    "test-api-key",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, models.SourceShareExtension, config.Source())
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "secret", config.Store.Passphrase)
	assert.Equal(t, 50, config.Store.FetchBatchSize)
	assert.Equal(t, 4, config.Workers.PoolSize)
	assert.Equal(t, 3*time.Second, config.Workers.OperationTimeout)
	assert.True(t, config.AI.Enabled)
	assert.Equal(t, "gemini-1.5-pro", config.AI.Model)
	assert.Equal(t, 500*time.Millisecond, config.Changefeed.PollInterval)
	assert.Equal(t, "test-api-key", config.AI.APIKey)
}

func TestInitializeConfig_ConfigFile(t *testing.T) {
	clearTestEnvVars(t)

	tempDir := t.TempDir()
	configContent := `
log:
  level: "warn"
  format: "json"
store:
  directory: "/tmp/kakeibo"
  busy_timeout_ms: 1500
workers:
  pool_size: 2
budgets:
  file: "config/budgets.yaml"
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0600))
	t.Chdir(tempDir)

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "/tmp/kakeibo", config.Store.Directory)
	assert.Equal(t, 1500*time.Millisecond, config.BusyTimeout())
	assert.Equal(t, 2, config.Workers.PoolSize)
	assert.Equal(t, "config/budgets.yaml", config.Budgets.File)
	assert.Equal(t, "config.yaml", filepath.Base(config.File))
}

func TestLoad_ExplicitFile(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("context: share_extension\n"), 0600))

	config, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, models.SourceShareExtension, config.Source())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInitializeConfig_HierarchicalPrecedence(t *testing.T) {
	clearTestEnvVars(t)

	tempDir := t.TempDir()
	configContent := `
log:
  level: "warn"
workers:
  pool_size: 2
store:
  schema_name: "FromFile"
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0600))

	t.Setenv("KAKEIBO_LOG_LEVEL", "error")
	t.Setenv("KAKEIBO_WORKERS_POOL_SIZE", "8")
	t.Chdir(tempDir)

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level)           // env var wins
	assert.Equal(t, 8, config.Workers.PoolSize)          // env var wins
	assert.Equal(t, "FromFile", config.Store.SchemaName) // config file value
}

func validConfig() *Config {
	return &Config{
		Context:    "app",
		Log:        LogConfig{Level: "info", Format: "text"},
		Store:      StoreConfig{GroupID: "g", SchemaName: "s", FetchBatchSize: 20, BusyTimeoutMS: 5000},
		AI:         AIConfig{TimeoutSeconds: 30},
		Changefeed: ChangefeedConfig{PollInterval: time.Second, AMQPExchange: "x", AMQPQueue: "q"},
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	assert.NoError(t, validateConfig(validConfig()))
}

func TestConfig_Validate(t *testing.T) {
	config := validConfig()
	config.Context = "share_extension"
	assert.NoError(t, config.Validate())

	config.Context = "watch"
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  string
	}{
		{"invalid context", func(c *Config) { c.Context = "widget" }, "invalid context"},
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, "invalid log level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "invalid" }, "invalid log format"},
		{"empty group id", func(c *Config) { c.Store.GroupID = " " }, "store.group_id must not be empty"},
		{"empty schema", func(c *Config) { c.Store.SchemaName = "" }, "store.schema_name must not be empty"},
		{"zero batch size", func(c *Config) { c.Store.FetchBatchSize = 0 }, "store.fetch_batch_size must be at least 1"},
		{"negative busy timeout", func(c *Config) { c.Store.BusyTimeoutMS = -1 }, "store.busy_timeout_ms must not be negative"},
		{"negative pool size", func(c *Config) { c.Workers.PoolSize = -1 }, "workers.pool_size must not be negative"},
		{"negative op timeout", func(c *Config) { c.Workers.OperationTimeout = -time.Second }, "workers.operation_timeout must not be negative"},
		{
			"AI enabled without API key",
			func(c *Config) { c.AI.Enabled = true },
			"GEMINI_API_KEY required when AI is enabled",
		},
		{
			"invalid timeout seconds",
			func(c *Config) {
				c.AI.Enabled = true
				c.AI.APIKey = "test-key"
				c.AI.TimeoutSeconds = 0
			},
			"ai.timeout_seconds must be between 1 and 300",
		},
		{
			"negative requests per minute",
			func(c *Config) {
				c.AI.Enabled = true
				c.AI.APIKey = "test-key"
				c.AI.RequestsPerMinute = -1
			},
			"ai.requests_per_minute must not be negative",
		},
		{"zero poll interval", func(c *Config) { c.Changefeed.PollInterval = 0 }, "changefeed.poll_interval must be positive"},
		{
			"amqp without queue",
			func(c *Config) {
				c.Changefeed.AMQPURL = "amqp://localhost"
				c.Changefeed.AMQPQueue = ""
			},
			"changefeed.amqp_exchange and changefeed.amqp_queue are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewLoggerWithOutput(t *testing.T) {
	var buf bytes.Buffer
	config := validConfig()
	config.Log.Format = "json"

	logger := NewLoggerWithOutput(config, &buf)
	logger.Info("hello", logging.Field{Key: logging.FieldOperation, Value: "test"})

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"operation":"test"`)
	assert.NotNil(t, NewLogger(config))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KAKEIBO_TEST_FROM_DOTENV=yes\n"), 0600))
	t.Chdir(dir)
	t.Setenv("KAKEIBO_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("KAKEIBO_TEST_FROM_DOTENV"))

	logger := logging.NewMockLogger()
	LoadEnv(logger)

	assert.Equal(t, "yes", os.Getenv("KAKEIBO_TEST_FROM_DOTENV"))
	assert.True(t, logger.HasEntry("DEBUG", "Loaded environment variables"))
}

func TestLoadEnv_KeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KAKEIBO_STORE_GROUP_ID=from-dotenv\n"), 0600))
	t.Chdir(dir)
	clearTestEnvVars(t)
	t.Setenv("KAKEIBO_STORE_GROUP_ID", "from-shell")

	LoadEnv(logging.NewMockLogger())

	cfg, err := InitializeConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-shell", cfg.Store.GroupID)
}

// clearTestEnvVars unsets every variable the tests read, restoring them
// afterwards.
func clearTestEnvVars(t *testing.T) {
	envVars := []string{
		"KAKEIBO_CONTEXT",
		"KAKEIBO_LOG_LEVEL",
		"KAKEIBO_LOG_FORMAT",
		"KAKEIBO_STORE_DIRECTORY",
		"KAKEIBO_STORE_GROUP_ID",
		"KAKEIBO_STORE_SCHEMA_NAME",
		"KAKEIBO_STORE_PASSPHRASE",
		"KAKEIBO_STORE_FETCH_BATCH_SIZE",
		"KAKEIBO_STORE_BUSY_TIMEOUT_MS",
		"KAKEIBO_WORKERS_POOL_SIZE",
		"KAKEIBO_WORKERS_OPERATION_TIMEOUT",
		"KAKEIBO_PARSERS_REGEX_ENABLED",
		"KAKEIBO_AI_ENABLED",
		"KAKEIBO_AI_MODEL",
		"KAKEIBO_AI_TIMEOUT_SECONDS",
		"KAKEIBO_AI_REQUESTS_PER_MINUTE",
		"KAKEIBO_AI_API_KEY",
		"KAKEIBO_CHANGEFEED_POLL_INTERVAL",
		"KAKEIBO_CHANGEFEED_AMQP_URL",
		"KAKEIBO_BUDGETS_FILE",
		"GEMINI_API_KEY",
	}
	for _, envVar := range envVars {
		t.Setenv(envVar, "")
		require.NoError(t, os.Unsetenv(envVar))
	}
}
