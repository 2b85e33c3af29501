// Package changefeed delivers writes committed by the other process context.
//
// The Poller reads the store's change history from a cursor and hands every
// foreign change to its handlers. An optional AMQP notifier wakes the poller
// as soon as the peer commits instead of waiting for the next tick.
package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 2 * time.Second

// Source is the change history a Poller reads. *entitystore.Store
// satisfies it.
type Source interface {
	ChangesSince(ctx context.Context, afterSeq int64, limit int) ([]entitystore.Change, error)
	LatestSeq(ctx context.Context) (int64, error)
}

// Handler receives one foreign change. A returned error stops the current
// poll; the next poll retries the change starting at the failing handler, so
// handlers that already accepted it do not see it again.
type Handler func(ctx context.Context, c entitystore.Change) error

// Poller tails the change history.
type Poller struct {
	source    Source
	self      models.TransactionSource
	interval  time.Duration
	batchSize int
	logger    logging.Logger

	mu       sync.Mutex
	cursor   int64
	handlers []Handler

	// partialSeq is the change whose delivery stopped at handler partialNext.
	partialSeq  int64
	partialNext int

	wake chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithBatchSize sets how many changes are read per query.
func WithBatchSize(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithCursor starts the poller after seq instead of at the beginning.
func WithCursor(seq int64) Option {
	return func(p *Poller) {
		p.cursor = seq
	}
}

// NewPoller creates a poller for the context self; changes authored by self
// are skipped.
func NewPoller(source Source, self models.TransactionSource, logger logging.Logger, opts ...Option) *Poller {
	p := &Poller{
		source:    source,
		self:      self,
		interval:  DefaultPollInterval,
		batchSize: entitystore.DefaultBatchSize,
		logger:    logging.OrDefault(logger),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe adds a handler. Handlers run in registration order.
func (p *Poller) Subscribe(h Handler) {
	p.mu.Lock()
	p.handlers = append(p.handlers, h)
	p.mu.Unlock()
}

// Cursor returns the sequence number of the last processed change.
func (p *Poller) Cursor() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// SkipToLatest moves the cursor to the newest change without delivering
// anything.
func (p *Poller) SkipToLatest(ctx context.Context) error {
	seq, err := p.source.LatestSeq(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if seq > p.cursor {
		p.cursor = seq
		p.partialSeq, p.partialNext = 0, 0
	}
	p.mu.Unlock()
	return nil
}

// Notify wakes a running poller. It never blocks.
func (p *Poller) Notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Poll drains every pending change and returns how many foreign changes
// were delivered.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delivered := 0
	for {
		changes, err := p.source.ChangesSince(ctx, p.cursor, p.batchSize)
		if err != nil {
			return delivered, fmt.Errorf("poll changes after %d: %w", p.cursor, err)
		}
		for _, c := range changes {
			if c.Author != p.self {
				if err := p.deliver(ctx, c); err != nil {
					return delivered, err
				}
				delivered++
			}
			p.cursor = c.Seq
		}
		if len(changes) < p.batchSize {
			break
		}
	}

	if delivered > 0 {
		p.logger.Debug("Delivered foreign changes",
			logging.Field{Key: logging.FieldCount, Value: delivered},
			logging.Field{Key: logging.FieldSeq, Value: p.cursor})
	}
	return delivered, nil
}

// deliver hands c to every handler it has not yet reached. Callers hold p.mu.
func (p *Poller) deliver(ctx context.Context, c entitystore.Change) error {
	first := 0
	if c.Seq == p.partialSeq {
		first = p.partialNext
	}
	for i := first; i < len(p.handlers); i++ {
		if err := p.handlers[i](ctx, c); err != nil {
			p.partialSeq, p.partialNext = c.Seq, i
			p.logger.WithError(err).Warn("Change handler failed",
				logging.Field{Key: logging.FieldSeq, Value: c.Seq},
				logging.Field{Key: logging.FieldTransactionID, Value: c.RecordID.String()})
			return fmt.Errorf("handle change %d: %w", c.Seq, err)
		}
	}
	p.partialSeq, p.partialNext = 0, 0
	return nil
}

// Run polls on every tick and on every Notify until ctx is done. Poll
// failures are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Change feed started",
		logging.Field{Key: logging.FieldAuthor, Value: string(p.self)},
		logging.Field{Key: logging.FieldSeq, Value: p.Cursor()})

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.WithError(err).Warn("Change feed poll failed")
		}
		select {
		case <-ctx.Done():
			p.logger.Info("Change feed stopped")
			return nil
		case <-ticker.C:
		case <-p.wake:
		}
	}
}
