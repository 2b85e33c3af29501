package config

import (
	"io"
	"os"
	"path/filepath"

	"fjacquet/kakeibo/internal/logging"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from a .env file in the current or
// parent directory, if one exists. Variables already set are kept.
func LoadEnv(logger logging.Logger) {
	logger = logging.OrDefault(logger)

	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			logger.Debug("No .env file found, using environment variables")
			return
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.WithError(err).Warn("Error loading .env file")
		return
	}
	logger.Debug("Loaded environment variables", logging.Field{Key: logging.FieldFile, Value: envFile})
}

// NewLogger builds the logrus-backed logger described by the log section.
func NewLogger(cfg *Config) logging.Logger {
	return logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
}

// NewLoggerWithOutput is NewLogger writing to w.
func NewLoggerWithOutput(cfg *Config, w io.Writer) logging.Logger {
	return logging.NewLogrusAdapterWithOutput(cfg.Log.Level, cfg.Log.Format, w)
}
