package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/wattlog/internal/config"
	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/server"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, _, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel.String(), logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	srv := server.New(cfg.ServerConfig(), logger.Default())

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info().Msg("Received termination signal.")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down collector")
		}
	}()

	if err := srv.Listen(); err != nil {
		logger.Fatal().Err(err).Msg("Collector stopped")
	}
	logger.Info().Msg("Exiting...")
}
