package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/infrastructure/config"
	"github.com/GriffinCanCode/horizon/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sysmoduled: %v\n", err)
		os.Exit(2)
	}

	// Flags override the environment.
	manifestPath := flag.String("manifest", cfg.Runtime.ManifestPath, "Service manifest (.toml, .yaml)")
	diagAddr := flag.String("diag-addr", cfg.Diagnostics.Addr, "Diagnostics listen address")
	noDiag := flag.Bool("no-diag", !cfg.Diagnostics.Enabled, "Disable the diagnostics server")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging (console, debug level)")
	selftest := flag.Bool("selftest", false, "Call every echo service once after startup")
	once := flag.Bool("once", false, "Exit after the self-test")
	flag.Parse()

	cfg.Runtime.ManifestPath = *manifestPath
	cfg.Diagnostics.Addr = *diagAddr
	cfg.Diagnostics.Enabled = !*noDiag
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Process:     "sysmoduled",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sysmoduled: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	manifest, err := config.LoadManifest(cfg.Runtime.ManifestPath)
	if err != nil {
		logger.Fatal("Failed to load manifest", zap.Error(err))
	}

	d, err := newDaemon(cfg, manifest, logger)
	if err != nil {
		logger.Fatal("Failed to start daemon", zap.Error(err))
	}
	defer d.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.run(ctx, runOptions{selftest: *selftest || *once, once: *once}); err != nil {
		logger.Error("Daemon stopped", zap.Error(err))
		d.close()
		os.Exit(1)
	}
	logger.Info("Shut down cleanly")
}
