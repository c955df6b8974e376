package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/furechan/tempcache/cache"
)

// SweepCommand deletes expired items, or every item with --all.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "delete expired items",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "delete every item regardless of age",
				HideDefault: true,
			},
			&cli.BoolFlag{
				Name:        "async",
				Usage:       "sweep in the background and wait for the result",
				HideDefault: true,
			},
		},
		Action: withStore(sweepAction),
	}
}

func sweepAction(ctx context.Context, cmd *cli.Command, s *cache.Store) error {
	purgeAll := cmd.Bool("all")

	var (
		n   int
		err error
	)
	if cmd.Bool("async") {
		select {
		case res := <-s.SweepAsync(ctx, purgeAll):
			n, err = res.Removed, res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		n, err = s.Sweep(ctx, purgeAll)
	}

	fmt.Fprintf(stdout(cmd), "removed %d %s from %s\n", n, plural(n, "item", "items"), s.Root())
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
