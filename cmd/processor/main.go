// Command processor runs the reconstruction pipeline over the ingested
// tables: load, clean, panel expansion, export.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"custodyetl/internal/config"
	"custodyetl/internal/infrastructure"
	"custodyetl/internal/operations"
	"custodyetl/pkg/contracts"
)

func main() {
	workers := flag.Int("workers", 0, "panel expansion workers (0 = use config)")
	skipCSV := flag.Bool("no-csv", false, "skip the CSV panel artifact")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.GetVersionString())
		return
	}

	if err := run(*workers, *skipCSV); err != nil {
		fmt.Fprintf(os.Stderr, "processor: %v\n", err)
		os.Exit(1)
	}
}

func run(workers int, skipCSV bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Paths.EnsureDirectories(); err != nil {
		return err
	}

	logger, cleanup, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer cleanup()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := infrastructure.InitTracing(ctx, cfg.Pipeline.EnableTracing, logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	runID := uuid.NewString()
	ctx = infrastructure.WithRunID(ctx, runID)
	logger.InfoContext(ctx, "processor starting", "run_id", runID)

	if workers < 1 {
		workers = cfg.Pipeline.ExpandWorkers
	}
	writeCSV := cfg.Pipeline.WriteCSV && !skipCSV

	metrics := operations.NewMetrics()
	manager := operations.NewManager(logger, metrics,
		&operations.LoadStage{Paths: &cfg.Paths, Logger: logger, Metrics: metrics},
		&operations.CleanStage{Paths: &cfg.Paths, Logger: logger, Metrics: metrics},
		&operations.PanelStage{Workers: workers, Logger: logger, Metrics: metrics},
		&operations.ExportStage{Paths: &cfg.Paths, WriteCSV: writeCSV, Logger: logger},
	)

	state := &operations.State{RunID: runID}
	if err := manager.Run(ctx, state); err != nil {
		return err
	}

	if cfg.Pipeline.MetricsFile != "" {
		path := cfg.Paths.MetricsPath(cfg.Pipeline.MetricsFile)
		if err := metrics.WriteTextfile(path); err != nil {
			logger.WarnContext(ctx, "metrics textfile write failed", "error", err)
		}
	}

	logger.InfoContext(ctx, "processor finished",
		"panel_rows", len(state.Panel),
		"inverted_dropped", state.InvertedDropped)
	return nil
}
