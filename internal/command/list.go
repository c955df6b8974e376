package command

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/furechan/tempcache/cache"
)

// ListCommand prints one line per item, oldest first.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "list cached items",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "expired",
				Usage:       "only list expired items",
				HideDefault: true,
			},
		},
		Action: withStore(listAction),
	}
}

type listing struct {
	name    string
	size    int64
	mtime   time.Time
	expired bool
}

func listAction(_ context.Context, cmd *cli.Command, s *cache.Store) error {
	items, err := s.Items()
	if err != nil {
		return err
	}

	expiry := s.Expiry()
	rows := make([]listing, 0, len(items))
	for _, it := range items {
		mtime, err := it.ModTime()
		if err != nil {
			continue
		}
		size, err := it.Size()
		if err != nil {
			continue
		}
		l := listing{
			name:    filepath.Base(it.Path()),
			size:    size,
			mtime:   mtime,
			expired: it.OlderThan(expiry),
		}
		if cmd.Bool("expired") && !l.expired {
			continue
		}
		rows = append(rows, l)
	}
	slices.SortFunc(rows, func(a, b listing) int {
		return a.mtime.Compare(b.mtime)
	})

	w := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tSIZE\tWRITTEN\tSTATE")
	for _, l := range rows {
		state := "fresh"
		if l.expired {
			state = "expired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.name, humanize.Bytes(uint64(l.size)), humanize.Time(l.mtime), state)
	}
	return w.Flush()
}
