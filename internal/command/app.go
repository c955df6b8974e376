package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/furechan/tempcache/cache"
	"github.com/furechan/tempcache/config"
	"github.com/furechan/tempcache/observe"
)

// Version is reported by --version.
var Version = "dev"

// ServiceName identifies the tool in telemetry.
const ServiceName = "tempcache"

// ErrUnhealthy is returned by the health command when a check fails.
var ErrUnhealthy = errors.New("tempcache: unhealthy")

// NewApp builds the root command. Command output goes to stdout.
func NewApp(stdout, stderr io.Writer) *cli.Command {
	app := &cli.Command{
		Name:      "tempcache",
		Usage:     "inspect and maintain a tempcache directory",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     GlobalFlags(),
	}

	app.Commands = append(app.Commands,
		InfoCommand(),
		ListCommand(),
		SweepCommand(),
		DigestCommand(),
		HealthCommand(),
	)

	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}

// GlobalFlags are accepted before or after any subcommand.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "configuration file (default: $" + config.EnvConfig + " or the user config directory)",
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "cache directory (default: <tmp>/<name>)",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "cache name, used when no directory is given",
		},
		&cli.StringFlag{
			Name:  "max-age",
			Usage: "item lifetime, e.g. 36h, 7d or seconds",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "item file prefix",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "digest salt, must match the program that wrote the items",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
	}
}

// session is an opened store plus the telemetry behind it.
type session struct {
	store *cache.Store
	obs   observe.Observer
}

func (s *session) Close(ctx context.Context) error {
	return s.obs.Shutdown(ctx)
}

// settings resolves configuration: defaults, the config file, TEMPCACHE_*
// variables and finally flags given on the command line. A file named with
// --config must exist; the default path may be absent.
func settings(cmd *cli.Command) (config.File, error) {
	var (
		f   config.File
		err error
	)
	if cmd.IsSet("config") {
		f, err = config.Load(cmd.String("config"))
	} else {
		f, err = config.LoadOptional(config.DefaultPath())
	}
	if err != nil {
		return config.File{}, err
	}
	if err := f.ApplyEnv(nil); err != nil {
		return config.File{}, err
	}

	if cmd.IsSet("dir") {
		f.Cache.Dir = cmd.String("dir")
	}
	if cmd.IsSet("name") {
		f.Cache.Name = cmd.String("name")
	}
	if cmd.IsSet("max-age") {
		d, err := config.ParseDuration(cmd.String("max-age"))
		if err != nil {
			return config.File{}, fmt.Errorf("--max-age: %w", err)
		}
		f.Cache.MaxAge = config.Duration(d)
	}
	if cmd.IsSet("prefix") {
		f.Cache.Prefix = cmd.String("prefix")
	}
	if cmd.IsSet("source") {
		f.Cache.Source = cmd.String("source")
	}
	if cmd.IsSet("log-level") {
		f.Observe.LogLevel = cmd.String("log-level")
	}
	return f, nil
}

func openSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	f, err := settings(cmd)
	if err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, f.ObserveConfig(ServiceName))
	if err != nil {
		return nil, err
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	cfg, err := f.CacheConfig()
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	cfg.Observer = mw

	store, err := cache.Open(cfg)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return &session{store: store, obs: obs}, nil
}

// withStore adapts a store action to a cli action, closing the session
// afterwards.
func withStore(fn func(context.Context, *cli.Command, *cache.Store) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		sess, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, sess.Close(ctx))
		}()
		return fn(ctx, cmd, sess.store)
	}
}

func stdout(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}
