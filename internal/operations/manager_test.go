package operations

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "custodyetl/internal/errors"
)

type fakeStage struct {
	id  string
	err error
	ran *[]string
}

func (f *fakeStage) ID() string   { return f.id }
func (f *fakeStage) Name() string { return f.id }

func (f *fakeStage) Run(ctx context.Context, state *State) error {
	*f.ran = append(*f.ran, f.id)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerRunsStagesInOrder(t *testing.T) {
	var ran []string
	m := NewManager(discardLogger(), nil,
		&fakeStage{id: "a", ran: &ran},
		&fakeStage{id: "b", ran: &ran},
		&fakeStage{id: "c", ran: &ran},
	)

	err := m.Run(context.Background(), &State{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ran)
}

func TestManagerStopsOnFirstFailure(t *testing.T) {
	var ran []string
	boom := apperrors.New(apperrors.CodeParseFailed, "bad input")
	m := NewManager(discardLogger(), NewMetrics(),
		&fakeStage{id: "a", ran: &ran},
		&fakeStage{id: "b", ran: &ran, err: boom},
		&fakeStage{id: "c", ran: &ran},
	)

	err := m.Run(context.Background(), &State{RunID: "run-2"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStageFailed))
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestManagerHonorsCanceledContext(t *testing.T) {
	var ran []string
	m := NewManager(discardLogger(), nil, &fakeStage{id: "a", ran: &ran})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Run(ctx, &State{RunID: "run-3"})
	require.Error(t, err)
	assert.Empty(t, ran)
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.SetEventRows("loaded", 120)
	m.SetEventRows("cleaned", 98)
	m.SetPanelRows(4200)
	m.RecordExclusions([]RuleCount{
		{Rule: "null_person", Removed: 7},
		{Rule: "duplicate_detention", Removed: 3},
	})

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `custodyetl_exclusions_total{rule="null_person"} 7`)
	assert.Contains(t, text, `custodyetl_event_rows{point="loaded"} 120`)
	assert.Contains(t, text, "custodyetl_panel_rows 4200")
}

func TestMetricsExclusionsAccumulate(t *testing.T) {
	m := NewMetrics()
	m.RecordExclusions([]RuleCount{{Rule: "null_person", Removed: 2}})
	m.RecordExclusions([]RuleCount{{Rule: "null_person", Removed: 5}})

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `rule="null_person"} 7`))
}
