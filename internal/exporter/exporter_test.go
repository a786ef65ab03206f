package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodyetl/pkg/contracts/domain"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func sampleEvents() []domain.DetentionEvent {
	out := time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC)
	outDate := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return []domain.DetentionEvent{
		{
			PersonID:           "p-1",
			FacilityCode:       "FAC1",
			BookInDateTime:     time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
			BookOutDateTime:    &out,
			BookOutDate:        &outDate,
			ReleaseReason:      strPtr("Bonded Out"),
			StayBookInDateTime: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
			BookInDate:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			StayBookInDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			DetentionID:        "det-1",
			StayID:             "stay-1",
			StayNumber:         1,
			TotalStays:         1,
			FirstStay:          true,
		},
		{
			PersonID:           "p-2",
			FacilityCode:       "FAC2",
			BookInDateTime:     time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
			StayBookInDateTime: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
			BookInDate:         time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			StayBookInDate:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestEventsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.parquet")
	want := sampleEvents()

	require.NoError(t, WriteEvents(path, want))
	got, err := ReadEvents(path)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "p-1", got[0].PersonID)
	require.NotNil(t, got[0].BookOutDateTime)
	assert.True(t, got[0].BookOutDateTime.Equal(*want[0].BookOutDateTime))
	require.NotNil(t, got[0].ReleaseReason)
	assert.Equal(t, "Bonded Out", *got[0].ReleaseReason)

	// Nullable fields survive as nulls, not zero values.
	assert.Nil(t, got[1].BookOutDateTime)
	assert.Nil(t, got[1].ReleaseReason)
	assert.Nil(t, got[1].BirthYear)
}

func TestFacilitiesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facilities.parquet")
	want := []domain.Facility{
		{Code: "FAC1", Latitude: floatPtr(29.76), Longitude: floatPtr(-95.36), City: strPtr("Houston")},
		{Code: "FAC2"},
	}

	require.NoError(t, WriteFacilities(path, want))
	got, err := ReadFacilities(path)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].Located())
	assert.False(t, got[1].Located())
}

func TestPanelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.parquet")
	want := []domain.PanelRow{{
		PersonID:      "p-1",
		DetentionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DateID:        20240301,
		StayID:        "stay-1",
		DetentionID:   "det-1",
		FacilityCode:  "FAC1",
		City:          strPtr("Houston"),
		DistanceKM:    floatPtr(361.25),
		InDetention:   true,
		StayNumber:    1,
		TotalStays:    1,
		FirstStay:     true,
	}}

	require.NoError(t, WritePanel(path, want))
	got, err := ReadPanel(path)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, int32(20240301), got[0].DateID)
	require.NotNil(t, got[0].DistanceKM)
	assert.InDelta(t, 361.25, *got[0].DistanceKM, 1e-9)
	assert.Nil(t, got[0].NextFacilityCode)
}

func TestWritePanelCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.csv")
	rows := []domain.PanelRow{{
		PersonID:               "p-1",
		DetentionDate:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DateID:                 20240301,
		StayID:                 "stay-1",
		DetentionID:            "det-1",
		FacilityCode:           "FAC1",
		City:                   strPtr("Houston"),
		DistanceKM:             floatPtr(361.251),
		DaysInCurrentDetention: 3,
		DaysInCurrentStay:      3,
		InDetention:            true,
		StayNumber:             1,
		TotalStays:             1,
		FirstStay:              true,
	}}

	require.NoError(t, WritePanelCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header := records[0]
	assert.Equal(t, panelHeaders, header)

	rec := records[1]
	require.Len(t, rec, len(panelHeaders))
	assert.Equal(t, "p-1", rec[0])
	assert.Equal(t, "2024-03-01", rec[1])
	assert.Equal(t, "20240301", rec[2])
	assert.Equal(t, "361.251", rec[13])
	assert.Equal(t, "true", rec[16])
	assert.Equal(t, "", rec[10], "null next facility renders empty")
}

func TestReadEventsMissingFile(t *testing.T) {
	_, err := ReadEvents(filepath.Join(t.TempDir(), "absent.parquet"))
	require.Error(t, err)
}
