package main

import (
	"context"
	"fmt"
	"os"

	"codeberg.org/mutker/wattlog/internal/config"
	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/report"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"github.com/spf13/pflag"
)

func main() {
	var asJSON bool

	cfg, _, err := config.Load(os.Args[1:], config.WithFlags(func(fs *pflag.FlagSet) {
		fs.BoolVar(&asJSON, "json", false, "Print readings in the upload format")
	}))
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Log lines go to stdout alongside the table, so keep them quiet.
	if err := logger.Init(string(config.LogLevelError), logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	store, err := telemetry.NewRepository(cfg.StoreConfig(true), logger.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	format := report.FormatTable
	if asJSON {
		format = report.FormatJSON
	}

	if err := report.Write(context.Background(), os.Stdout, store, format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query readings: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}
