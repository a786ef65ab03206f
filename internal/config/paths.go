package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names, fixed so downstream tooling can rely on them.
const (
	EventsFile     = "detentions_raw.parquet"
	FacilitiesFile = "facilities_raw.parquet"
	CleanFile      = "detentions_clean.parquet"
	PanelFile      = "detentions_panel.parquet"
	PanelCSVFile   = "detentions_panel.csv"
)

// EnsureDirectories creates every configured directory.
func (p *PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.IntermediateDir, p.ProcessedDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// EventsPath is the raw booking-events parquet produced by cmd/ingest.
func (p *PathsConfig) EventsPath() string {
	return filepath.Join(p.DataDir, EventsFile)
}

// FacilitiesPath is the facility reference parquet produced by cmd/ingest.
func (p *PathsConfig) FacilitiesPath() string {
	return filepath.Join(p.DataDir, FacilitiesFile)
}

// CleanPath is the reconstructed events parquet written after cleaning.
func (p *PathsConfig) CleanPath() string {
	return filepath.Join(p.IntermediateDir, CleanFile)
}

// PanelPath is the daily panel parquet, the terminal output artifact.
func (p *PathsConfig) PanelPath() string {
	return filepath.Join(p.ProcessedDir, PanelFile)
}

// PanelCSVPath is the optional CSV rendering of the panel.
func (p *PathsConfig) PanelCSVPath() string {
	return filepath.Join(p.ProcessedDir, PanelCSVFile)
}

// LogPath resolves a log file name inside the logs directory.
func (p *PathsConfig) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}

// MetricsPath resolves the metrics textfile inside the processed directory.
func (p *PathsConfig) MetricsPath(name string) string {
	return filepath.Join(p.ProcessedDir, name)
}
