package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi"
	"github.com/heartmarshall/stockroom/internal/config"
	"github.com/heartmarshall/stockroom/internal/service/ledger"
	"github.com/heartmarshall/stockroom/internal/service/selection"
	"github.com/heartmarshall/stockroom/internal/service/stocktake"
	"github.com/heartmarshall/stockroom/internal/tui"
)

// Options are the command-line inputs of the client.
type Options struct {
	ConfigPath string
	// OpenStocktake, when set, starts on that session's reconciliation screen.
	OpenStocktake uuid.UUID
}

// Run is the client entry point. It loads configuration, opens the log
// output, wires the API client into the controllers and runs the terminal
// UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	out, err := OpenLogOutput(cfg.Log)
	if err != nil {
		return err
	}
	defer out.Close()

	logger := NewLogger(cfg.Log, out)
	logger.Info("starting stockroom",
		slog.String("version", BuildVersion()),
		slog.String("api", cfg.API.BaseURL),
		slog.String("log_level", cfg.Log.Level),
	)

	policy, err := stocktake.ParseCountPolicy(cfg.Stocktake.CountPolicy)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	client := inventoryapi.NewClient(inventoryapi.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		RetryDelay: cfg.API.RetryDelay,
	}, logger)

	deps := tui.Deps{
		API:       client,
		Selection: selection.NewController(logger, client, cfg.Ledger.HistoryLimit),
		Feed:      ledger.NewFeed(logger, client, cfg.Ledger.PageSize),
		Stocktake: stocktake.Options{
			Policy:           policy,
			Locale:           cfg.Stocktake.Locale,
			MaxParallelEdits: cfg.Stocktake.MaxParallelEdits,
		},
		Logger:        logger,
		OpenStocktake: opts.OpenStocktake,
	}

	if err := tui.Run(ctx, deps); err != nil {
		logger.Error("terminal ui failed", slog.String("error", err.Error()))
		return err
	}

	logger.Info("stockroom stopped")
	return nil
}
