package command

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/furechan/tempcache/cache"
	"github.com/furechan/tempcache/health"
)

// HealthCommand runs the store checks and fails when any is unhealthy.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check that the cache directory is usable",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the reports as JSON",
				HideDefault: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "overall time allowed for the checks",
				Value: health.DefaultTimeout,
			},
		},
		Action: withStore(healthAction),
	}
}

func healthAction(ctx context.Context, cmd *cli.Command, s *cache.Store) error {
	agg := health.NewAggregator(cmd.Duration("timeout"))
	agg.Register(s.Checker())

	reports := agg.CheckAll(ctx)
	overall := health.Overall(reports)

	out := stdout(cmd)
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Status  health.Status   `json:"status"`
			Reports []health.Report `json:"reports"`
		}{overall, reports}); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Result.Status, r.Result.Message)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if overall == health.StatusUnhealthy {
		return ErrUnhealthy
	}
	return nil
}
