package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/atm_ledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/atm_ledger/internal/adapters/database/sqlite"
	portsrepo "github.com/SscSPs/atm_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/atm_ledger/internal/core/services"
	"github.com/SscSPs/atm_ledger/internal/handlers"
	"github.com/SscSPs/atm_ledger/internal/platform/config"
	"github.com/SscSPs/atm_ledger/internal/platform/logging"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("atm", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadConfig(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	// Logs go to stderr so they do not interleave with the menus on stdout.
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := logging.WithLogger(context.Background(), logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ATM stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("Error closing ledger store", slog.String("error", cerr.Error()))
		}
	}()

	logger.Info("Running database migrations...", slog.String("driver", cfg.LedgerDriver))
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	container := services.NewServiceContainer(cfg, portsrepo.RepositoryProvider{Ledger: store})
	console := handlers.NewConsoleHandler(container, os.Stdin, os.Stdout)

	logger.Info("ATM ready")
	return console.Run(ctx)
}

func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.LedgerStore, error) {
	switch cfg.LedgerDriver {
	case config.DriverPostgres:
		store, err := pgsql.Open(ctx, cfg.DatabaseURL, pgsql.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres ledger: %w", err)
		}
		logger.Info("Database connection pool established.")
		return store, nil
	default:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		logger.Info("Ledger file opened.", slog.String("path", cfg.SQLitePath))
		return store, nil
	}
}
