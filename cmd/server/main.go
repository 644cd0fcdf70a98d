// Command server runs the brewlog feed server.
//
//	server                   serve using CONFIG_PATH or ./config.yaml
//	server hash-import-key   print the bcrypt hash to put in import.key_hash
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/auth"
	"github.com/sakif/brewlog/internal/config"
	sqliteRepo "github.com/sakif/brewlog/internal/repository/sqlite"
	"github.com/sakif/brewlog/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Run the brewlog feed server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(newHashImportKeyCmd())
	return root
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func serve() error {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return err
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			return err
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		return err
	}

	if cfg.Import.KeyHash == "" {
		logger.Warn("import.key_hash not set, batchPublishRecords is disabled")
	}
	if cfg.Auth.DevLogin {
		logger.Warn("dev login is enabled, any code logs in")
	}

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		db.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func newHashImportKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-import-key [key]",
		Short: "Hash a bulk import key for import.key_hash",
		Long:  "Hash a bulk import key. With no argument the key is read from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading key from stdin: %w", err)
				}
				key = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashImportKey(key, cost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", auth.DefaultKeyCost, "bcrypt cost")
	return cmd
}
