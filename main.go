package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/kakeibo/cmd/add"
	"fjacquet/kakeibo/cmd/budget"
	"fjacquet/kakeibo/cmd/categories"
	"fjacquet/kakeibo/cmd/importcsv"
	"fjacquet/kakeibo/cmd/list"
	"fjacquet/kakeibo/cmd/remove"
	"fjacquet/kakeibo/cmd/root"
	"fjacquet/kakeibo/cmd/share"
	"fjacquet/kakeibo/cmd/show"
	"fjacquet/kakeibo/cmd/total"
	"fjacquet/kakeibo/cmd/update"
	"fjacquet/kakeibo/cmd/watch"
)

func init() {
	// 1. Register the persistent flags; configuration and logging are set
	// up in the root PersistentPreRunE once flags are parsed.
	root.Init()

	// 2. Add all subcommands
	root.Cmd.AddCommand(add.Cmd)
	root.Cmd.AddCommand(share.Cmd)
	root.Cmd.AddCommand(list.Cmd)
	root.Cmd.AddCommand(show.Cmd)
	root.Cmd.AddCommand(update.Cmd)
	root.Cmd.AddCommand(remove.Cmd)
	root.Cmd.AddCommand(total.Cmd)
	root.Cmd.AddCommand(budget.Cmd)
	root.Cmd.AddCommand(categories.Cmd)
	root.Cmd.AddCommand(importcsv.Cmd)
	root.Cmd.AddCommand(watch.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := root.Execute(ctx)
	stop()
	os.Exit(code)
}
