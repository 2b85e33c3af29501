// Package watch follows the writes made by the other process context.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/internal/changefeed"
	"fjacquet/kakeibo/internal/container"
	"fjacquet/kakeibo/internal/currencyutils"
	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/repository"

	"github.com/spf13/cobra"
)

var (
	interval time.Duration

	// Cmd represents the watch command
	Cmd = &cobra.Command{
		Use:   "watch",
		Short: "Print changes made by the other context",
		Long: `Follow the shared store and print every transaction added, updated or
deleted by the other process context until interrupted. When
changefeed.amqp_url is set, notifications wake the watcher immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.OpenContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			_, err = Run(cmd.Context(), c, cmd.OutOrStdout(), interval)
			return err
		},
	}
)

func init() {
	Cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (default: changefeed.poll_interval)")
}

// Run prints foreign changes as they arrive until ctx is done. It returns
// the view it kept current along the way.
func Run(ctx context.Context, c *container.Container, out io.Writer, every time.Duration) (*changefeed.View, error) {
	logger := c.GetLogger()

	var opts []changefeed.Option
	if every > 0 {
		opts = append(opts, changefeed.WithInterval(every))
	}
	poller := c.NewPoller(opts...)
	if err := poller.SkipToLatest(ctx); err != nil {
		return nil, fmt.Errorf("read change history: %w", err)
	}

	current, err := c.GetRepository().FetchAll(ctx, repository.Filter{})
	if err != nil {
		return nil, err
	}
	view := changefeed.NewView(current)
	poller.Subscribe(view.Apply)
	poller.Subscribe(printChange(out))

	if n := c.GetNotifier(); n != nil {
		go func() {
			if err := n.Consume(ctx, changefeed.WakeOnMessage(poller)); err != nil {
				logger.WithError(err).Warn("Change notifications stopped")
			}
		}()
	}

	fmt.Fprintf(out, "%d件の取引を監視しています (Ctrl-C で終了)\n", view.Len())
	logger.Debug("Watching changes", logging.Field{Key: logging.FieldSeq, Value: poller.Cursor()})

	if err := poller.Run(ctx); err != nil {
		return view, err
	}
	return view, nil
}

func printChange(out io.Writer) changefeed.Handler {
	return func(_ context.Context, ch entitystore.Change) error {
		tx := ch.Record
		memo := "-"
		if tx.Memo != nil {
			memo = *tx.Memo
		}
		_, err := fmt.Fprintf(out, "%s %-6s %s %s %s %s (%s)\n",
			ch.CommittedAt.Local().Format("15:04:05"),
			ch.Op,
			common.ShortID(tx),
			tx.Date.Format("2006-01-02"),
			currencyutils.FormatOptionalYen(tx.Amount),
			memo,
			ch.Author)
		return err
	}
}
