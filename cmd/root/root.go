// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"os"
	"sync"

	"fjacquet/kakeibo/internal/config"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
	"fjacquet/kakeibo/internal/repoerror"
	"fjacquet/kakeibo/internal/validation"

	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log = logging.GetLogger()

	// AppConfig is loaded before any subcommand runs.
	AppConfig *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "kakeibo",
		Short: "A household ledger for expenses entered by hand or shared as text.",
		Long: `kakeibo records expenses in an encrypted store shared by the app and the
share extension. Shared payment text is turned into an amount, date and memo
by a pipeline of parsers, and budgets are checked against recorded spending.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to kakeibo!")
			Log.Info("Use --help to see available commands")
		},
	}

	// ConfigFile replaces the search of the default config locations.
	ConfigFile string
	// ContextName overrides the configured process context.
	ContextName string
	// LogLevel overrides log.level.
	LogLevel string

	initOnce sync.Once
)

// Init initializes the root command and all flags
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "Config file (default: config.yaml in $HOME/.kakeibo, .kakeibo or .)")
		Cmd.PersistentFlags().StringVar(&ContextName, "context", "", "Process context to write as: app or share_extension")
		Cmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	})
}

// setup loads .env and the configuration, then applies the flag overrides.
func setup(cmd *cobra.Command, _ []string) error {
	config.LoadEnv(Log)

	cfg, err := config.Load(ConfigFile)
	if err != nil {
		return err
	}
	if ContextName != "" {
		cfg.Context = ContextName
	}
	if LogLevel != "" {
		cfg.Log.Level = LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	Log = config.NewLoggerWithOutput(cfg, cmd.ErrOrStderr())
	logging.SetLogger(Log)

	if cfg.File != "" {
		if info, err := os.Stat(cfg.File); err == nil {
			if err := validation.IsValidFilePermissions(info.Mode().Perm()); err != nil {
				Log.Warn("Config file is readable by other users",
					logging.Field{Key: logging.FieldFile, Value: cfg.File})
			}
		}
	}

	AppConfig = cfg
	Log.Debug("Configuration loaded",
		logging.Field{Key: logging.FieldAuthor, Value: cfg.Context},
		logging.Field{Key: logging.FieldFile, Value: cfg.File})
	return nil
}

// OpenContainer wires the application from AppConfig. The caller closes it.
func OpenContainer(ctx context.Context) (*container.Container, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return container.NewContainer(ctx, AppConfig, container.WithLogger(Log))
}

// OpenContainerAs is OpenContainer writing as source regardless of the
// configured context.
func OpenContainerAs(ctx context.Context, source models.TransactionSource) (*container.Container, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	cfg := *AppConfig
	cfg.Context = string(source)
	return container.NewContainer(ctx, &cfg, container.WithLogger(Log))
}

// Execute runs the command tree and returns the process exit code. Errors
// are reported as one line on stderr.
func Execute(ctx context.Context) int {
	if err := Cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(Cmd.ErrOrStderr(), repoerror.UserMessage(err))
		return 1
	}
	return 0
}
