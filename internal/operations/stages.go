package operations

import (
	"context"
	"log/slog"

	"custodyetl/internal/config"
	apperrors "custodyetl/internal/errors"
	"custodyetl/internal/exporter"
	"custodyetl/internal/panel"
	"custodyetl/internal/reconstruct"
)

// LoadStage reads the harmonized event and facility tables produced by the
// ingest binary.
type LoadStage struct {
	Paths   *config.PathsConfig
	Logger  *slog.Logger
	Metrics *Metrics
}

func (s *LoadStage) ID() string   { return StageIDLoad }
func (s *LoadStage) Name() string { return "Load raw tables" }

func (s *LoadStage) Run(ctx context.Context, state *State) error {
	events, err := exporter.ReadEvents(s.Paths.EventsPath())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "read events table")
	}
	facilities, err := exporter.ReadFacilities(s.Paths.FacilitiesPath())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "read facilities table")
	}

	state.Events = events
	state.Facilities = facilities
	if s.Metrics != nil {
		s.Metrics.SetEventRows("loaded", len(events))
	}
	s.Logger.InfoContext(ctx, "tables loaded",
		"events", len(events),
		"facilities", len(facilities))
	return nil
}

// CleanStage runs the reconstruction rules over the loaded events and
// persists the surviving table.
type CleanStage struct {
	Paths   *config.PathsConfig
	Logger  *slog.Logger
	Metrics *Metrics
}

func (s *CleanStage) ID() string   { return StageIDClean }
func (s *CleanStage) Name() string { return "Reconstruct custody histories" }

func (s *CleanStage) Run(ctx context.Context, state *State) error {
	res := reconstruct.Clean(ctx, state.Events, state.Facilities, s.Logger)
	state.Events = res.Events
	state.Exclusions = res.Exclusions

	if s.Metrics != nil {
		s.Metrics.SetEventRows("cleaned", len(res.Events))
		counts := make([]RuleCount, 0, len(res.Exclusions.Results()))
		for _, r := range res.Exclusions.Results() {
			counts = append(counts, RuleCount{Rule: r.Rule, Removed: r.Events})
		}
		s.Metrics.RecordExclusions(counts)
	}

	if err := exporter.WriteEvents(s.Paths.CleanPath(), res.Events); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "write clean table")
	}
	return nil
}

// PanelStage expands the reconstructed detentions into the person-day panel.
type PanelStage struct {
	Workers int
	Logger  *slog.Logger
	Metrics *Metrics
}

func (s *PanelStage) ID() string   { return StageIDPanel }
func (s *PanelStage) Name() string { return "Expand person-day panel" }

func (s *PanelStage) Run(ctx context.Context, state *State) error {
	res, err := panel.Build(ctx, state.Events, panel.Options{Workers: s.Workers}, s.Logger)
	if err != nil {
		return err
	}
	state.Panel = res.Rows
	state.InvertedDropped = res.InvertedDropped
	if s.Metrics != nil {
		s.Metrics.SetPanelRows(len(res.Rows))
	}
	return nil
}

// ExportStage writes the panel artifacts: parquet always, CSV when enabled.
type ExportStage struct {
	Paths    *config.PathsConfig
	WriteCSV bool
	Logger   *slog.Logger
}

func (s *ExportStage) ID() string   { return StageIDExport }
func (s *ExportStage) Name() string { return "Export panel" }

func (s *ExportStage) Run(ctx context.Context, state *State) error {
	if err := exporter.WritePanel(s.Paths.PanelPath(), state.Panel); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "write panel parquet")
	}
	if s.WriteCSV {
		if err := exporter.WritePanelCSV(s.Paths.PanelCSVPath(), state.Panel); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorageFailed, "write panel csv")
		}
	}
	s.Logger.InfoContext(ctx, "panel exported",
		"rows", len(state.Panel),
		"csv", s.WriteCSV)
	return nil
}
