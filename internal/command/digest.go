package command

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/furechan/tempcache/cache"
)

// DigestCommand prints the item that a key maps to. Without --func the key is
// the list of values; with --func it is a call of that function with the
// values bound to --param names, matching cache.Wrap and cache.Memoize.
func DigestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "show the item file for a key",
		ArgsUsage: "<value>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "func",
				Usage: "function name the values are arguments of",
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: `parameter names for --func, in order (default "arg" for a single value)`,
			},
		},
		Action: withStore(digestAction),
	}
}

func digestAction(ctx context.Context, cmd *cli.Command, s *cache.Store) error {
	values := cmd.Args().Slice()
	if len(values) == 0 {
		return errors.New("digest: at least one value is required")
	}

	digest, err := keyDigest(s, cmd.String("func"), cmd.StringSlice("param"), values)
	if err != nil {
		return err
	}

	it, err := s.ItemForDigest(ctx, digest)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "digest:\t%s\n", digest)
	fmt.Fprintf(w, "path:\t%s\n", it.Path())
	if !it.Exists() {
		fmt.Fprintf(w, "state:\t%s\n", "missing")
		return w.Flush()
	}
	fmt.Fprintf(w, "state:\t%s\n", "fresh")
	if size, err := it.Size(); err == nil {
		fmt.Fprintf(w, "size:\t%s\n", humanize.Bytes(uint64(size)))
	}
	if mtime, err := it.ModTime(); err == nil {
		fmt.Fprintf(w, "written:\t%s\n", humanize.Time(mtime))
	}
	return w.Flush()
}

func keyDigest(s *cache.Store, fn string, params, values []string) (string, error) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}

	if fn == "" {
		if len(params) > 0 {
			return "", errors.New("digest: --param requires --func")
		}
		if len(values) == 1 {
			return s.Keyer().Digest(values[0])
		}
		return s.Keyer().Digest(values)
	}

	if len(params) == 0 && len(values) == 1 {
		params = []string{"arg"}
	}
	if len(params) != len(values) {
		return "", fmt.Errorf("digest: %d values for %d parameters", len(values), len(params))
	}
	ps := make([]cache.Param, len(params))
	for i, name := range params {
		ps[i] = cache.Required(name)
	}
	return cache.DigestCall(s.Keyer(), cache.NewSignature(fn, ps...), args, nil)
}
