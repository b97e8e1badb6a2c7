// Command stockctl inspects and edits a stockroom data store from the shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"stockroom/internal/blob"
	"stockroom/internal/config"
	"stockroom/internal/core"
	"stockroom/internal/logging"
	"stockroom/internal/metrics"
	"stockroom/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// handler runs one parsed command.
type handler func(ctx context.Context, s *session) error

// command registers a command group on app and returns its handlers keyed by
// full command name.
type command func(app *kingpin.Application) map[string]handler

var commands = []command{
	itemsCommand,
	stockCommand,
	ordersCommand,
	requisitionsCommand,
	salesCommand,
	logsCommand,
	backupCommand,
}

func cli(args []string, stdout, stderr io.Writer) int {
	app := kingpin.New("stockctl", "Inventory record store maintenance.")
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)
	exited := false
	app.Terminate(func(int) { exited = true })
	envFile := app.Flag("env-file", "dotenv file read before the environment").Default(".env").String()
	actingUser := app.Flag("as", "username recorded on audit entries").String()

	handlers := make(map[string]handler)
	for _, register := range commands {
		for name, h := range register(app) {
			handlers[name] = h
		}
	}

	selected, err := app.Parse(args)
	if exited {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "stockctl: %v\n", err)
		return 2
	}
	h, ok := handlers[selected]
	if !ok {
		fmt.Fprintf(stderr, "stockctl: unknown command %q\n", selected)
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "stockctl: %v\n", err)
		return 2
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "stockctl: %v\n", err)
		return 2
	}
	s := &session{cfg: cfg, logger: logger.With("command", selected), out: stdout, actingUser: *actingUser}
	if cfg.MetricsFile != "" {
		s.metrics = metrics.NewRecorder()
	}
	err = s.run(context.Background(), h)
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(stderr, "stockctl: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		return 3
	case errors.Is(err, domain.ErrNotFound):
		return 4
	case errors.Is(err, domain.ErrBusy):
		return 5
	default:
		return 1
	}
}

// session holds what a command needs; the store and registry open lazily so
// backup commands can work on tables without loading them.
type session struct {
	cfg        config.Config
	logger     *logging.Logger
	metrics    *metrics.Recorder
	out        io.Writer
	actingUser string

	store domain.TableStore
	reg   *core.Registry
}

func (s *session) run(ctx context.Context, h handler) error {
	err := h(ctx, s)
	if s.metrics != nil {
		if werr := s.metrics.WriteTextfile(s.cfg.MetricsFile); werr != nil {
			s.logger.Warn("metrics textfile not written", "path", s.cfg.MetricsFile, "error", werr)
		}
	}
	return err
}

func (s *session) tables(ctx context.Context) (domain.TableStore, error) {
	if s.store != nil {
		return s.store, nil
	}
	store, err := core.OpenTableStore(ctx, s.cfg.StorageOptions())
	if err != nil {
		return nil, err
	}
	s.store = store
	return store, nil
}

// registry opens the record store and attaches the acting user to ctx.
func (s *session) registry(ctx context.Context) (context.Context, *core.Registry, error) {
	if s.reg == nil {
		store, err := s.tables(ctx)
		if err != nil {
			return ctx, nil, err
		}
		opts := append(s.cfg.RegistryOptions(), core.WithLogger(s.logger))
		if s.metrics != nil {
			opts = append(opts, core.WithMetrics(s.metrics))
		}
		reg, err := core.Open(ctx, store, opts...)
		if err != nil {
			return ctx, nil, err
		}
		s.reg = reg
	}
	if s.actingUser == "" {
		return ctx, s.reg, nil
	}
	u, err := s.reg.Users().ByUsername(ctx, strings.TrimSpace(s.actingUser))
	if err != nil {
		return ctx, nil, fmt.Errorf("--as %s: %w", s.actingUser, err)
	}
	return core.WithActor(ctx, domain.ActorFor(u)), s.reg, nil
}

func (s *session) blobs(ctx context.Context) (blob.Store, error) {
	return blob.Open(ctx, s.cfg.BlobConfig())
}

func (s *session) close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
