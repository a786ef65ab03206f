// Package exporter persists the pipeline's tabular artifacts: parquet for
// the stable on-disk contract, CSV as an optional human-readable rendering.
package exporter

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	perrors "custodyetl/internal/errors"
	"custodyetl/pkg/contracts/domain"
)

// WriteEvents writes booking events to a parquet file.
func WriteEvents(path string, events []domain.DetentionEvent) error {
	return writeParquet(path, events)
}

// ReadEvents loads booking events from a parquet file.
func ReadEvents(path string) ([]domain.DetentionEvent, error) {
	return readParquet[domain.DetentionEvent](path)
}

// WriteFacilities writes the facility reference table to a parquet file.
func WriteFacilities(path string, facilities []domain.Facility) error {
	return writeParquet(path, facilities)
}

// ReadFacilities loads the facility reference table from a parquet file.
func ReadFacilities(path string) ([]domain.Facility, error) {
	return readParquet[domain.Facility](path)
}

// WritePanel writes the daily panel, the terminal output artifact.
func WritePanel(path string, rows []domain.PanelRow) error {
	return writeParquet(path, rows)
}

// ReadPanel loads a previously written daily panel.
func ReadPanel(path string) ([]domain.PanelRow, error) {
	return readParquet[domain.PanelRow](path)
}

func writeParquet[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "create directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "create %s", path)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[T](file, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "write %s", path)
	}
	if err := writer.Close(); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "finalize %s", path)
	}
	if err := file.Close(); err != nil {
		return perrors.Wrap(err, perrors.CodeStorageFailed, "close %s", path)
	}

	slog.Info("parquet file written",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return nil
}

func readParquet[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeStorageFailed, "read %s", path)
	}
	return rows, nil
}
