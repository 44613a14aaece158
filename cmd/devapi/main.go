// Command devapi serves the inventory API on the configured address, for
// local development of the stockroom client. State lives in memory or, with
// devapi.storage set to postgres, in the database named by database.dsn
// (migrations are applied on start). An empty store can be seeded with demo
// stock and an open stocktake.
//
// Flags:
//
//	-config   path to a YAML config file (default: $CONFIG_PATH or ./config.yaml)
//	-addr     listen address, overriding devapi.host and devapi.port
//	-seed     seed demo data into an empty store (overrides devapi.seed)
//	-storage  memory or postgres (overrides devapi.storage)
//
// Logs go to stderr regardless of log.output.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/heartmarshall/stockroom/internal/app"
	"github.com/heartmarshall/stockroom/internal/app/devapi"
	"github.com/heartmarshall/stockroom/internal/config"
)

func main() {
	configFlag := flag.String("config", "", "path to YAML config file")
	addrFlag := flag.String("addr", "", "listen address host:port")
	seedFlag := flag.Bool("seed", true, "seed demo data into an empty store")
	storageFlag := flag.String("storage", "", "memory or postgres")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// CLI flags override config.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.DevAPI.Seed = *seedFlag
		}
	})
	if *storageFlag != "" {
		cfg.DevAPI.Storage = *storageFlag
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid -storage: %v", err)
		}
	}
	if *addrFlag != "" {
		host, port, err := net.SplitHostPort(*addrFlag)
		if err != nil {
			log.Fatalf("invalid -addr: %v", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Fatalf("invalid -addr port: %v", err)
		}
		cfg.DevAPI.Host, cfg.DevAPI.Port = host, p
	}

	logger := app.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dev api failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backend, closeBackend, err := devapi.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	return devapi.New(cfg.DevAPI, backend, logger, app.BuildVersion()).Run(ctx)
}
