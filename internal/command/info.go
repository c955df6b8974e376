package command

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/furechan/tempcache/cache"
	"github.com/furechan/tempcache/config"
)

// InfoCommand prints the store settings and a summary of its items.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:   "info",
		Usage:  "show the cache location, policy and item totals",
		Action: withStore(infoAction),
	}
}

func infoAction(_ context.Context, cmd *cli.Command, s *cache.Store) error {
	st, err := s.Stats()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	row := func(k string, v any) { fmt.Fprintf(w, "%s:\t%v\n", k, v) }

	row("name", s.Name())
	row("root", s.Root())
	row("max age", config.Duration(s.MaxAge()))
	if s.Prefix() != "" {
		row("prefix", s.Prefix())
	}
	if s.Source() != "" {
		row("source", s.Source())
	}
	row("items", st.Items)
	row("size", humanize.Bytes(uint64(st.Bytes)))
	row("expired", st.Expired)
	row("oldest", when(st.Oldest))
	row("newest", when(st.Newest))
	row("breaker", s.BreakerState())

	return w.Flush()
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
