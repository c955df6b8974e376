// Command tempcache inspects and maintains cache directories written by
// package cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/furechan/tempcache/internal/command"
	"github.com/furechan/tempcache/observe/exporters"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Keep stdout for command output.
	exporters.Output = os.Stderr

	app := command.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, command.ErrUnhealthy) {
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}
