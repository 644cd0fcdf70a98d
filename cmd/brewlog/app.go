package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/config"
	"github.com/sakif/brewlog/internal/feed"
	"github.com/sakif/brewlog/internal/local"
	"github.com/sakif/brewlog/internal/publisher"
	"github.com/sakif/brewlog/internal/rpc"
	"github.com/sakif/brewlog/internal/store"
	redisStore "github.com/sakif/brewlog/internal/store/redis"
	sqliteStore "github.com/sakif/brewlog/internal/store/sqlite"
	"github.com/sakif/brewlog/internal/ux"
)

// cli carries the global flags and the lazily opened app.
type cli struct {
	configPath string
	jsonOut    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// ui renders results on out; status renders prompts and progress on
	// errOut so JSON output stays clean.
	ui     *ux.Printer
	status *ux.Printer

	app *app
}

// app is everything a command can reach, scoped to the cached user.
type app struct {
	cfg    *config.Client
	logger *slog.Logger
	closer io.Closer

	prompter  *linePrompter
	remote    *rpc.Client
	session   *local.SessionService
	records   *local.RecordService
	beans     *local.InventoryService
	devices   *local.DeviceService
	feed      *feed.Cache
	publisher *publisher.Publisher
}

// open returns the app, opening it on first use.
func (c *cli) open(cmd *cobra.Command) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}

	cfg, err := config.LoadClient(c.configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	ctx := cmd.Context()
	st, closer, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		closer:   closer,
		prompter: &linePrompter{in: bufio.NewReader(c.in), ui: c.status},
	}

	// The client reads its token from the session, which in turn logs in
	// through the client.
	a.remote = rpc.NewClient(cfg.Remote.ServerURL, cfg.Remote.Timeout, rpc.TokenFunc(func(ctx context.Context) (string, error) {
		return a.session.Token(ctx)
	}), logger)
	a.session = local.NewSessionService(st, a.remote, a.prompter, logger)

	userID := a.session.OpenID(ctx)
	a.records = local.NewRecordService(st, userID, logger)
	a.beans = local.NewInventoryService(st, userID, logger)
	a.devices = local.NewDeviceService(st, userID, logger)
	a.feed = feed.NewCache(a.remote, cfg.Feed.PageSize, logger)
	a.publisher = publisher.New(a.records, a.session, a.remote, a.feed, logger)

	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app == nil {
		return
	}
	c.app.session.Wait()
	if err := c.app.closer.Close(); err != nil {
		c.app.logger.Warn("closing store failed", slog.String("error", err.Error()))
	}
	c.app = nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		st, err := redisStore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.DriverSQLite:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
		st, err := sqliteStore.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
