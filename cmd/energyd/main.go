package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/wattlog/internal/clock"
	"codeberg.org/mutker/wattlog/internal/collector"
	"codeberg.org/mutker/wattlog/internal/config"
	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/pid"
	"codeberg.org/mutker/wattlog/internal/sensor"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"codeberg.org/mutker/wattlog/internal/uplink"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, _, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel.String(), logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	log := logger.Default()
	log.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")

	pidFile := pid.New(cfg.PIDDir)
	if err := pidFile.Write(); err != nil {
		logError(log, err, "Failed to write PID file")
		return 1
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logError(log, err, "Failed to remove PID file")
		}
	}()

	store, err := telemetry.NewRepository(cfg.StoreConfig(false), log)
	if err != nil {
		logError(log, err, "Error opening database")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logError(log, err, "Failed to close database")
		}
	}()

	sampler, err := sensor.NewSampler(cfg.Thresholds(), cfg.Sensor.Ceiling,
		rand.New(rand.NewSource(time.Now().UnixNano())), clock.System{}, log)
	if err != nil {
		logError(log, err, "Failed to initialize sampler")
		return 1
	}

	ucfg := cfg.UplinkConfig()
	transport, err := uplink.NewTransport(ucfg)
	if err != nil {
		logError(log, err, "Failed to initialize uplink transport")
		return 1
	}
	client, err := uplink.NewClient(transport, ucfg.Policy(), log)
	if err != nil {
		logError(log, err, "Failed to initialize uplink")
		return 1
	}
	defer client.Close()

	loop, err := collector.New(cfg.LoopConfig(), sampler, store, client, log)
	if err != nil {
		logError(log, err, "Failed to initialize collection loop")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := loop.Run(ctx); err != nil {
		logError(log, err, "Error in collection loop")
		return 1
	}

	log.Info().Msg("Exiting...")
	return 0
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	awaitShutdown(sigs, cancel)
}

// awaitShutdown cancels on the first signal and unregisters sigs, so a second
// signal takes the default action and kills a cycle stuck in delivery.
func awaitShutdown(sigs chan os.Signal, cancel context.CancelFunc) {
	<-sigs
	signal.Stop(sigs)
	logger.Info().Msg("Received termination signal, finishing current cycle. Signal again to force exit.")
	cancel()
}

func logError(log logger.Logger, err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		log.ErrorWithCode(appErr).Msg(msg)
		return
	}
	log.Error().Err(err).Msg(msg)
}
