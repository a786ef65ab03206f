package reconstruct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodyetl/pkg/contracts/domain"
)

func testFacilities() []domain.Facility {
	lat1, lon1 := 29.76, -95.36
	lat2, lon2 := 32.77, -96.79
	return []domain.Facility{
		{Code: "FAC1", Latitude: &lat1, Longitude: &lon1, City: strPtr("Houston"), State: strPtr("TX")},
		{Code: "FAC2", Latitude: &lat2, Longitude: &lon2, City: strPtr("Dallas"), State: strPtr("TX")},
	}
}

func TestCleanEndToEnd(t *testing.T) {
	events := []domain.DetentionEvent{
		// p-merge: a transfer chain that collapses into one stay.
		makeEvent(eventSpec{person: "p-merge", fac: "FAC1", in: "2024-01-01 10:00:00",
			out: "2024-01-05 08:00:00", reason: "Transferred",
			stayIn: "2024-01-01 10:00:00", stayOut: "2024-01-05 08:00:00", stayRsn: "Transferred"}),
		makeEvent(eventSpec{person: "p-merge", fac: "FAC2", in: "2024-01-05 09:00:00",
			out: "2024-01-20 12:00:00", reason: "Removed",
			stayIn: "2024-01-05 09:00:00", stayOut: "2024-01-20 12:00:00", stayRsn: "Removed"}),
		// Null person identifier.
		makeEvent(eventSpec{person: "", fac: "FAC1", in: "2024-01-01 10:00:00"}),
		// Zero-duration booking.
		makeEvent(eventSpec{person: "p-zero", fac: "FAC1", in: "2024-02-01 10:00:00",
			out:    "2024-02-01 10:00:00",
			stayIn: "2024-02-01 10:00:00", stayOut: "2024-02-01 10:00:00"}),
	}

	res := Clean(context.Background(), events, testFacilities(), testLogger())

	require.Len(t, res.Events, 2)
	for i := range res.Events {
		e := &res.Events[i]
		assert.Equal(t, "p-merge", e.PersonID)
		assert.Equal(t, res.Events[0].StayID, e.StayID)
		require.NotNil(t, e.StayReleaseReason)
		assert.Equal(t, "Removed", *e.StayReleaseReason)
		assert.Equal(t, int32(1), e.StayNumber)
		assert.Equal(t, int32(1), e.TotalStays)
	}

	// Facility reference join.
	require.NotNil(t, res.Events[0].City)
	assert.Equal(t, "Houston", *res.Events[0].City)
	require.NotNil(t, res.Events[1].City)
	assert.Equal(t, "Dallas", *res.Events[1].City)

	assert.Equal(t, 2, res.Exclusions.TotalEvents())
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	events := []domain.DetentionEvent{
		makeEvent(eventSpec{person: "p-1", fac: "FAC1", in: "2024-01-01 10:00:30",
			out:    "2024-01-05 08:00:45",
			stayIn: "2024-01-01 10:00:30", stayOut: "2024-01-05 08:00:45"}),
	}

	_ = Clean(context.Background(), events, nil, testLogger())

	// Seconds survive on the caller's copy even though the pipeline
	// truncates to minutes.
	assert.Equal(t, ts("2024-01-01 10:00:30"), events[0].BookInDateTime)
	assert.Empty(t, events[0].DetentionID)
}

func TestCleanIsIdempotent(t *testing.T) {
	events := []domain.DetentionEvent{
		makeEvent(eventSpec{person: "p-1", fac: "FAC1", in: "2024-01-01 10:00:00",
			out: "2024-01-05 08:00:00", reason: "Bonded Out",
			stayIn: "2024-01-01 10:00:00", stayOut: "2024-01-05 08:00:00", stayRsn: "Bonded Out"}),
		makeEvent(eventSpec{person: "p-2", fac: "FAC2", in: "2024-02-01 10:00:00",
			stayIn: "2024-02-01 10:00:00"}),
	}

	first := Clean(context.Background(), events, testFacilities(), testLogger())
	second := Clean(context.Background(), first.Events, testFacilities(), testLogger())

	require.Equal(t, len(first.Events), len(second.Events))
	assert.Equal(t, 0, second.Exclusions.TotalEvents())
	for i := range first.Events {
		assert.Equal(t, first.Events[i].DetentionID, second.Events[i].DetentionID)
		assert.Equal(t, first.Events[i].StayID, second.Events[i].StayID)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	res := Clean(context.Background(), nil, nil, testLogger())

	assert.Empty(t, res.Events)
	assert.Equal(t, 0, res.Exclusions.TotalEvents())
}
