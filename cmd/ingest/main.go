// Command ingest downloads the detentions and facilities workbooks, parses
// them and writes the raw parquet tables consumed by the processor.
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
	"custodyetl/internal/exporter"
	"custodyetl/internal/infrastructure"
	"custodyetl/internal/ingest"
	"custodyetl/pkg/contracts"
)

func main() {
	detentionsOnly := flag.Bool("detentions-only", false, "skip the facilities workbook")
	facilitiesOnly := flag.Bool("facilities-only", false, "skip the detentions workbook")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.GetVersionString())
		return
	}

	if err := run(*detentionsOnly, *facilitiesOnly); err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
}

func run(detentionsOnly, facilitiesOnly bool) error {
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

	runID := uuid.NewString()
	ctx = infrastructure.WithRunID(ctx, runID)
	logger.InfoContext(ctx, "ingest starting", "run_id", runID)

	downloader := ingest.NewDownloader(cfg.Ingest.HTTPTimeout)

	if !facilitiesOnly {
		if err := ingestDetentions(ctx, cfg, downloader, logger); err != nil {
			return err
		}
	}
	if !detentionsOnly {
		if err := ingestFacilities(ctx, cfg, downloader, logger); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "ingest finished")
	return nil
}

func ingestDetentions(ctx context.Context, cfg *config.Config, d *ingest.Downloader, logger *slog.Logger) error {
	logger.InfoContext(ctx, "downloading detentions workbook")
	body, err := d.FetchFromURLFile(ctx, cfg.Ingest.DetentionsURLFile)
	if err != nil {
		return err
	}

	events, err := ingest.ParseDetentions(body, cfg.Ingest.HeaderRow, logger)
	if err != nil {
		return err
	}
	return exporter.WriteEvents(cfg.Paths.EventsPath(), events)
}

func ingestFacilities(ctx context.Context, cfg *config.Config, d *ingest.Downloader, logger *slog.Logger) error {
	logger.InfoContext(ctx, "downloading facilities workbook")
	body, err := d.FetchFromURLFile(ctx, cfg.Ingest.FacilitiesURLFile)
	if err != nil {
		return err
	}

	facilities, err := ingest.ParseFacilities(body, logger)
	if err != nil {
		return err
	}
	return exporter.WriteFacilities(cfg.Paths.FacilitiesPath(), facilities)
}
