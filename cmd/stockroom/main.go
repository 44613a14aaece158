// Command stockroom is the terminal client for the inventory service:
// stock levels, the transaction ledger and stocktake reconciliation.
//
// Flags:
//
//	-config     path to a YAML config file (default: $CONFIG_PATH or ./config.yaml)
//	-stocktake  id of a stocktake session to open at start
//	-version    print the version and exit
//	-env-help   list the environment variables and exit
//
// Exit codes: 0 = success, 1 = error, 2 = bad flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/internal/app"
	"github.com/heartmarshall/stockroom/internal/config"
)

func main() {
	configFlag := flag.String("config", "", "path to YAML config file")
	stocktakeFlag := flag.String("stocktake", "", "stocktake session id to open at start")
	versionFlag := flag.Bool("version", false, "print version and exit")
	envHelpFlag := flag.Bool("env-help", false, "list environment variables and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("stockroom", app.BuildVersion())
		return
	}
	if *envHelpFlag {
		usage, err := config.Usage()
		if err != nil {
			log.Fatalf("describe environment: %v", err)
		}
		fmt.Println(usage)
		return
	}

	opts := app.Options{ConfigPath: *configFlag}
	if *stocktakeFlag != "" {
		id, err := uuid.Parse(*stocktakeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -stocktake %q: %v\n", *stocktakeFlag, err)
			os.Exit(2)
		}
		opts.OpenStocktake = id
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, opts); err != nil {
		stop()
		log.Fatalf("stockroom: %v", err)
	}
}
