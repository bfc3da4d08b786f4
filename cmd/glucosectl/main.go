package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Caooin/DigiGlucose-Insight/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.RootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
