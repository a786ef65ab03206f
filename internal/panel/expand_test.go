package panel

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodyetl/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func tsPtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := ts(s)
	return &t
}

func strPtr(s string) *string { return &s }

// detention builds a reconstructed event the way the cleaning stage hands
// them over: identifiers assigned, dates projected, facility joined.
type detention struct {
	person   string
	fac      string
	stayID   string
	in, out  string
	stayIn   string
	stayOut  string
	lat, lon *float64
	city     string
}

func makeDetention(d detention) domain.DetentionEvent {
	if d.stayIn == "" {
		d.stayIn = d.in
	}
	e := domain.DetentionEvent{
		PersonID:           d.person,
		FacilityCode:       d.fac,
		DetentionID:        d.person + "/" + d.fac + "/" + d.in,
		StayID:             d.stayID,
		BookInDateTime:     ts(d.in),
		BookOutDateTime:    tsPtr(d.out),
		StayBookInDateTime: ts(d.stayIn),
		Latitude:           d.lat,
		Longitude:          d.lon,
		StayNumber:         1,
		TotalStays:         1,
		FirstStay:          true,
	}
	if d.city != "" {
		e.City = strPtr(d.city)
	}
	e.BookInDate = domain.DateOf(e.BookInDateTime)
	e.StayBookInDate = domain.DateOf(e.StayBookInDateTime)
	if e.BookOutDateTime != nil {
		dd := domain.DateOf(*e.BookOutDateTime)
		e.BookOutDate = &dd
	}
	if d.stayOut != "" {
		e.StayBookOutDateTime = tsPtr(d.stayOut)
		dd := domain.DateOf(*e.StayBookOutDateTime)
		e.StayBookOutDate = &dd
	}
	return e
}

func coord(v float64) *float64 { return &v }

// anchor pins the observation window at the given book-out day.
func anchorEvent(out string) domain.DetentionEvent {
	return makeDetention(detention{
		person: "a-000", fac: "FAC9", stayID: "stay-a",
		in: "2024-01-01 00:00:00", out: out,
		stayOut: out,
	})
}

func TestBuildTransferScenario(t *testing.T) {
	// One merged stay: FAC1 2024-03-01 → 03-05, then FAC2 (same stay)
	// 03-05 → 03-10. The same-day re-entry means 03-05 belongs to FAC2.
	events := []domain.DetentionEvent{
		anchorEvent("2024-03-01 00:00:00"),
		makeDetention(detention{
			person: "p-1", fac: "FAC1", stayID: "stay-1",
			in: "2024-03-01 10:00:00", out: "2024-03-05 08:00:00",
			stayIn: "2024-03-01 10:00:00", stayOut: "2024-03-10 12:00:00",
			lat: coord(29.76), lon: coord(-95.36), city: "Houston",
		}),
		makeDetention(detention{
			person: "p-1", fac: "FAC2", stayID: "stay-1",
			in: "2024-03-05 09:00:00", out: "2024-03-10 12:00:00",
			stayIn: "2024-03-01 10:00:00", stayOut: "2024-03-10 12:00:00",
			lat: coord(32.77), lon: coord(-96.79), city: "Dallas",
		}),
	}

	res, err := Build(context.Background(), events, Options{Workers: 2}, testLogger())
	require.NoError(t, err)

	var rows []domain.PanelRow
	for _, r := range res.Rows {
		if r.PersonID == "p-1" {
			rows = append(rows, r)
		}
	}

	// 03-01..03-04 at FAC1, 03-05..03-10 at FAC2.
	require.Len(t, rows, 10)
	for i, r := range rows {
		want := domain.AddDays(domain.DateOf(ts("2024-03-01 00:00:00")), i)
		assert.Equal(t, want, r.DetentionDate)
		assert.Equal(t, int32(i), r.DaysInCurrentStay)
		assert.Equal(t, "stay-1", r.StayID)
		assert.False(t, r.InDetention)
	}

	first := rows[0]
	assert.Equal(t, "FAC1", first.FacilityCode)
	assert.Equal(t, int32(20240301), first.DateID)
	require.NotNil(t, first.NextFacilityCode)
	assert.Equal(t, "FAC2", *first.NextFacilityCode)
	require.NotNil(t, first.NextCity)
	assert.Equal(t, "Dallas", *first.NextCity)
	require.NotNil(t, first.DistanceKM)
	assert.InDelta(t, 361, *first.DistanceKM, 5)

	assert.Equal(t, "FAC1", rows[3].FacilityCode)
	assert.Equal(t, "FAC2", rows[4].FacilityCode)
	assert.Equal(t, int32(0), rows[4].DaysInCurrentDetention)
	assert.Nil(t, rows[4].NextFacilityCode)
	assert.Nil(t, rows[9].DistanceKM)
}

func TestBuildClipsDaysBeforeWindowStart(t *testing.T) {
	// The earliest book-out in the data opens the observation window;
	// days detained before it are unobservable and emitted for no one.
	events := []domain.DetentionEvent{
		anchorEvent("2024-03-03 00:00:00"),
		makeDetention(detention{
			person: "p-1", fac: "FAC1", stayID: "stay-1",
			in: "2024-02-20 10:00:00", out: "2024-03-06 08:00:00",
			stayOut: "2024-03-06 08:00:00",
		}),
	}

	res, err := Build(context.Background(), events, Options{}, testLogger())
	require.NoError(t, err)

	var days []int32
	for _, r := range res.Rows {
		if r.PersonID == "p-1" {
			days = append(days, r.DateID)
		}
	}
	assert.Equal(t, []int32{20240303, 20240304, 20240305, 20240306}, days)
}

func TestBuildDropsInvertedSameDayReentry(t *testing.T) {
	// Booked in, out and back in on the same day: the morning booking's
	// last day computes to the day before its book-in and is discarded.
	events := []domain.DetentionEvent{
		anchorEvent("2024-03-01 00:00:00"),
		makeDetention(detention{
			person: "p-1", fac: "FAC1", stayID: "stay-1",
			in: "2024-03-05 08:00:00", out: "2024-03-05 11:00:00",
			stayIn: "2024-03-05 08:00:00", stayOut: "2024-03-08 09:00:00",
		}),
		makeDetention(detention{
			person: "p-1", fac: "FAC2", stayID: "stay-1",
			in: "2024-03-05 14:00:00", out: "2024-03-08 09:00:00",
			stayIn: "2024-03-05 08:00:00", stayOut: "2024-03-08 09:00:00",
		}),
	}

	res, err := Build(context.Background(), events, Options{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, res.InvertedDropped)

	for _, r := range res.Rows {
		if r.PersonID == "p-1" {
			assert.Equal(t, "FAC2", r.FacilityCode)
		}
	}
}

func TestBuildDestinationSkipsDroppedMember(t *testing.T) {
	// Stay FAC1 → FAC2 → FAC3 where the FAC2 leg is a same-day book-in/out
	// artifact. Once FAC2 is dropped as inverted, FAC1's destination is the
	// next surviving member, FAC3.
	events := []domain.DetentionEvent{
		anchorEvent("2024-03-01 00:00:00"),
		makeDetention(detention{
			person: "p-1", fac: "FAC1", stayID: "stay-1",
			in: "2024-03-01 10:00:00", out: "2024-03-05 08:00:00",
			stayIn: "2024-03-01 10:00:00", stayOut: "2024-03-08 09:00:00",
			lat: coord(29.76), lon: coord(-95.36), city: "Houston",
		}),
		makeDetention(detention{
			person: "p-1", fac: "FAC2", stayID: "stay-1",
			in: "2024-03-05 09:00:00", out: "2024-03-05 11:00:00",
			stayIn: "2024-03-01 10:00:00", stayOut: "2024-03-08 09:00:00",
			lat: coord(31.76), lon: coord(-106.49), city: "El Paso",
		}),
		makeDetention(detention{
			person: "p-1", fac: "FAC3", stayID: "stay-1",
			in: "2024-03-05 14:00:00", out: "2024-03-08 09:00:00",
			stayIn: "2024-03-01 10:00:00", stayOut: "2024-03-08 09:00:00",
			lat: coord(32.77), lon: coord(-96.79), city: "Dallas",
		}),
	}

	res, err := Build(context.Background(), events, Options{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, res.InvertedDropped)

	origin := 0
	for _, r := range res.Rows {
		if r.PersonID != "p-1" || r.FacilityCode != "FAC1" {
			continue
		}
		origin++
		require.NotNil(t, r.NextFacilityCode)
		assert.Equal(t, "FAC3", *r.NextFacilityCode)
		require.NotNil(t, r.NextCity)
		assert.Equal(t, "Dallas", *r.NextCity)
		require.NotNil(t, r.DistanceKM)
		assert.InDelta(t, 361, *r.DistanceKM, 5)
	}
	// 03-01 through 03-04 at the origin facility.
	assert.Equal(t, 4, origin)
}

func TestBuildCapsOpenDetentionAtHorizon(t *testing.T) {
	// p-open has no book-out; the panel runs to the latest book-out seen
	// anywhere in the data and the person is flagged still detained.
	events := []domain.DetentionEvent{
		anchorEvent("2024-03-01 00:00:00"),
		makeDetention(detention{
			person: "p-closed", fac: "FAC1", stayID: "stay-c",
			in: "2024-03-01 10:00:00", out: "2024-03-10 09:00:00",
			stayOut: "2024-03-10 09:00:00",
		}),
		makeDetention(detention{
			person: "p-open", fac: "FAC2", stayID: "stay-o",
			in: "2024-03-08 10:00:00",
		}),
	}

	res, err := Build(context.Background(), events, Options{}, testLogger())
	require.NoError(t, err)

	var open []domain.PanelRow
	for _, r := range res.Rows {
		if r.PersonID == "p-open" {
			open = append(open, r)
		}
	}
	// 03-08 through the horizon 03-10.
	require.Len(t, open, 3)
	for _, r := range open {
		assert.True(t, r.InDetention)
		assert.Nil(t, r.ReleaseReason)
	}
	assert.Equal(t, int32(20240310), open[2].DateID)
}

func TestBuildOrdersByPersonThenDate(t *testing.T) {
	events := []domain.DetentionEvent{
		makeDetention(detention{
			person: "p-2", fac: "FAC1", stayID: "stay-2",
			in: "2024-03-01 10:00:00", out: "2024-03-03 09:00:00",
			stayOut: "2024-03-03 09:00:00",
		}),
		makeDetention(detention{
			person: "p-1", fac: "FAC1", stayID: "stay-1",
			in: "2024-03-01 10:00:00", out: "2024-03-04 09:00:00",
			stayOut: "2024-03-04 09:00:00",
		}),
	}

	res, err := Build(context.Background(), events, Options{Workers: 4}, testLogger())
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)

	for i := 1; i < len(res.Rows); i++ {
		prev, cur := res.Rows[i-1], res.Rows[i]
		if prev.PersonID == cur.PersonID {
			assert.False(t, cur.DetentionDate.Before(prev.DetentionDate))
		} else {
			assert.Less(t, prev.PersonID, cur.PersonID)
		}
	}
}

func TestBuildEmptyInput(t *testing.T) {
	res, err := Build(context.Background(), nil, Options{}, testLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestTransferDistanceKM(t *testing.T) {
	km := transferDistanceKM(coord(29.76), coord(-95.36), coord(32.77), coord(-96.79))
	require.NotNil(t, km)
	assert.InDelta(t, 361, *km, 5)

	assert.Nil(t, transferDistanceKM(nil, coord(-95.36), coord(32.77), coord(-96.79)))
	assert.Nil(t, transferDistanceKM(coord(29.76), coord(-95.36), nil, nil))

	same := transferDistanceKM(coord(29.76), coord(-95.36), coord(29.76), coord(-95.36))
	require.NotNil(t, same)
	assert.InDelta(t, 0, *same, 1e-9)
}
