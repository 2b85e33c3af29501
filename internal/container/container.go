// Package container provides dependency injection for kakeibo.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/kakeibo/internal/budget"
	"fjacquet/kakeibo/internal/changefeed"
	"fjacquet/kakeibo/internal/config"
	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/repository"
	"fjacquet/kakeibo/internal/store"
	"fjacquet/kakeibo/internal/textparser"
	"fjacquet/kakeibo/internal/worker"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger logging.Logger
	config *config.Config

	notifier    *changefeed.Notifier // nil unless changefeed.amqp_url is set
	entityStore *entitystore.Store
	pool        *worker.Pool
	repo        *repository.Service
	useCases    *repository.UseCases
	generator   *textparser.GeminiGenerator // nil unless AI is enabled
	pipeline    *textparser.Pipeline
	calculator  *budget.Calculator
	budgets     *store.BudgetStore
}

// Option adjusts how a Container is built.
type Option func(*buildOptions)

type buildOptions struct {
	logger    logging.Logger
	generator textparser.TextGenerator
}

// WithLogger replaces the logger built from the log section.
func WithLogger(logger logging.Logger) Option {
	return func(o *buildOptions) { o.logger = logger }
}

// WithTextGenerator supplies the Gemini backend instead of dialing the API.
func WithTextGenerator(g textparser.TextGenerator) Option {
	return func(o *buildOptions) { o.generator = g }
}

// NewContainer creates and wires all application dependencies. Resources
// acquired before a failure are released before returning.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	logger := bo.logger
	if logger == nil {
		logger = config.NewLogger(cfg)
	}
	logging.SetLogger(logger)

	c := &Container{logger: logger, config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	self := cfg.Source()

	var onCommit func(context.Context, entitystore.Change)
	if cfg.Changefeed.AMQPURL != "" {
		c.notifier, err = changefeed.NewNotifier(cfg.Changefeed.AMQPURL,
			cfg.Changefeed.AMQPExchange, cfg.Changefeed.AMQPQueue, self, logger)
		if err != nil {
			return nil, fmt.Errorf("change notifier: %w", err)
		}
		onCommit = changefeed.CommitHook(c.notifier, logger)
	}

	c.entityStore, err = entitystore.Open(ctx, entitystore.Options{
		Directory:   cfg.Store.Directory,
		GroupID:     cfg.Store.GroupID,
		SchemaName:  cfg.Store.SchemaName,
		Passphrase:  cfg.Store.Passphrase,
		Author:      self,
		BusyTimeout: cfg.BusyTimeout(),
		Logger:      logger,
		OnCommit:    onCommit,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	c.pool = worker.NewPool(cfg.Workers.PoolSize, cfg.Workers.OperationTimeout, logger)
	c.repo = repository.New(c.entityStore, c.pool, logger,
		repository.WithBatchSize(cfg.Store.FetchBatchSize))
	c.useCases = repository.NewUseCases(c.repo)

	c.pipeline = textparser.NewPipeline(logger)
	if cfg.Parsers.RegexEnabled {
		c.pipeline.Register(textparser.NewRegexParser(logger))
	}
	if cfg.AI.Enabled {
		gen := bo.generator
		if gen == nil {
			c.generator, err = textparser.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
			if err != nil {
				return nil, fmt.Errorf("gemini client: %w", err)
			}
			gen = c.generator
		}
		c.pipeline.Register(textparser.NewGeminiParser(gen, logger,
			textparser.WithTimeout(cfg.AITimeout()),
			textparser.WithRateLimit(cfg.AI.RequestsPerMinute)))
	}

	c.calculator = budget.NewCalculator(c.repo, logger, c.pool.Size())
	c.budgets = store.NewBudgetStore(cfg.Budgets.File, logger)

	logger.Debug("Container initialized",
		logging.Field{Key: logging.FieldStorePath, Value: c.entityStore.Path()},
		logging.Field{Key: logging.FieldAuthor, Value: string(self)},
		logging.Field{Key: "parsers_count", Value: len(c.pipeline.Strategies())},
		logging.Field{Key: "ai_enabled", Value: cfg.AI.Enabled},
		logging.Field{Key: "amqp_enabled", Value: c.notifier != nil})

	return c, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetRepository returns the transaction repository.
func (c *Container) GetRepository() *repository.Service {
	return c.repo
}

// GetUseCases returns the use cases the CLI commands call.
func (c *Container) GetUseCases() *repository.UseCases {
	return c.useCases
}

// GetPipeline returns the text parsing pipeline.
func (c *Container) GetPipeline() *textparser.Pipeline {
	return c.pipeline
}

// GetCalculator returns the budget calculator.
func (c *Container) GetCalculator() *budget.Calculator {
	return c.calculator
}

// GetBudgetStore returns the budgets.yaml loader.
func (c *Container) GetBudgetStore() *store.BudgetStore {
	return c.budgets
}

// GetEntityStore returns the shared store handle.
func (c *Container) GetEntityStore() *entitystore.Store {
	return c.entityStore
}

// GetNotifier returns the AMQP notifier, or nil when not configured.
func (c *Container) GetNotifier() *changefeed.Notifier {
	return c.notifier
}

// NewPoller returns a change poller for this process context.
func (c *Container) NewPoller(opts ...changefeed.Option) *changefeed.Poller {
	opts = append([]changefeed.Option{
		changefeed.WithInterval(c.config.Changefeed.PollInterval),
		changefeed.WithBatchSize(c.config.Store.FetchBatchSize),
	}, opts...)
	return changefeed.NewPoller(c.entityStore, c.config.Source(), c.logger, opts...)
}

// Close releases resources in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	if c.generator != nil {
		errs = append(errs, c.generator.Close())
		c.generator = nil
	}
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	if c.entityStore != nil {
		errs = append(errs, c.entityStore.Close())
		c.entityStore = nil
	}
	if c.notifier != nil {
		errs = append(errs, c.notifier.Close())
		c.notifier = nil
	}
	c.logger.Debug("Container closed")
	return errors.Join(errs...)
}
