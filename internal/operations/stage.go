// Package operations orchestrates the reconstruction pipeline: a fixed,
// sequential list of stages, each consuming the state produced by the
// previous one. There is no streaming or partial mode; a stage failure
// aborts the run and no partial panel is emitted.
package operations

import (
	"context"

	"custodyetl/internal/reconstruct"
	"custodyetl/pkg/contracts/domain"
)

// Stage identifiers.
const (
	StageIDLoad   = "load"
	StageIDClean  = "clean"
	StageIDPanel  = "panel"
	StageIDExport = "export"
)

// Stage is one unit of the pipeline. Run reads and replaces parts of the
// shared state; a stage must never leave partially-updated state visible to
// the next stage on success.
type Stage interface {
	// ID is the stable machine identifier for logs and metrics.
	ID() string

	// Name is the human-readable stage name.
	Name() string

	// Run executes the stage against the pipeline state.
	Run(ctx context.Context, state *State) error
}

// State is the data handed from stage to stage. Each stage owns the tables
// it writes and fully replaces them.
type State struct {
	RunID string

	Events     []domain.DetentionEvent
	Facilities []domain.Facility

	Exclusions      *reconstruct.Exclusions
	Panel           []domain.PanelRow
	InvertedDropped int
}
