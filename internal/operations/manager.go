package operations

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "custodyetl/internal/errors"
	"custodyetl/internal/infrastructure"
)

// Manager runs stages in order and records timing and metrics for each.
type Manager struct {
	stages  []Stage
	logger  *slog.Logger
	metrics *Metrics
}

// NewManager builds a manager over the given stages. The stage order is the
// execution order. metrics may be nil when no collection is wanted.
func NewManager(logger *slog.Logger, metrics *Metrics, stages ...Stage) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		stages:  stages,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes every stage sequentially. The first stage error aborts the
// run and is returned wrapped with the stage id.
func (m *Manager) Run(ctx context.Context, state *State) error {
	ctx = infrastructure.WithRunID(ctx, state.RunID)
	tracer := otel.Tracer(infrastructure.TracerName)

	runStart := time.Now()
	m.logger.InfoContext(ctx, "pipeline starting", "stages", len(m.stages))

	for _, stage := range m.stages {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStageFailed, "pipeline canceled before stage "+stage.ID())
		}

		stageCtx, span := tracer.Start(ctx, "stage."+stage.ID(),
			trace.WithAttributes(attribute.String("stage.name", stage.Name())))

		start := time.Now()
		m.logger.InfoContext(stageCtx, "stage starting", "stage", stage.ID())

		err := stage.Run(stageCtx, state)
		elapsed := time.Since(start)

		if m.metrics != nil {
			m.metrics.ObserveStage(stage.ID(), elapsed, err == nil)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			m.logger.ErrorContext(stageCtx, "stage failed",
				"stage", stage.ID(),
				"duration_ms", elapsed.Milliseconds(),
				"error", err)
			return apperrors.Wrap(err, apperrors.CodeStageFailed, "stage "+stage.ID()+" failed")
		}

		span.SetStatus(codes.Ok, "")
		span.End()
		m.logger.InfoContext(stageCtx, "stage completed",
			"stage", stage.ID(),
			"duration_ms", elapsed.Milliseconds())
	}

	m.logger.InfoContext(ctx, "pipeline completed",
		"duration_ms", time.Since(runStart).Milliseconds())
	return nil
}
