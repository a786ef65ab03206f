// Package panel expands repaired detention intervals into the daily panel:
// one row per person per detained calendar day, with facility geolocation,
// transfer distance and elapsed-day counters.
package panel

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"custodyetl/pkg/contracts/domain"
)

// Options configures the expansion.
type Options struct {
	// Workers bounds the number of person partitions expanded concurrently.
	// Values below 1 mean sequential.
	Workers int
}

// Result carries the panel and the expansion-stage bookkeeping.
type Result struct {
	Rows []domain.PanelRow
	// InvertedDropped counts detentions discarded because their computed
	// last detention day fell before their book-in date (booked in, out and
	// in again the same day).
	InvertedDropped int
}

// interval is one detention resolved against its neighbors: the filled
// book-out, the computed last detained day, and the destination facility
// fields shifted in from the next detention of the same stay.
type interval struct {
	ev   *domain.DetentionEvent
	out  time.Time // book-out date, capped at the data horizon when open
	last time.Time // last detained day after the same-day re-entry rule

	nextFacilityCode *string
	nextCity         *string
	nextState        *string
	distanceKM       *float64
}

// partition is one person's slice of the work, kept in stable person order
// so the output is deterministic regardless of worker count.
type partition struct {
	person    string
	events    []*domain.DetentionEvent
	intervals []*interval
	rows      []domain.PanelRow
}

// Build expands the reconstructed events into the daily panel. The input is
// not mutated. Windowed computations are scoped per person (and per stay
// inside a person), so partitions expand independently; rows come out
// ordered by person identifier then date.
func Build(ctx context.Context, events []domain.DetentionEvent, opts Options, logger *slog.Logger) (*Result, error) {
	if len(events) == 0 {
		return &Result{}, nil
	}

	latestOut := latestBookOut(events)
	parts := partitionByPerson(events)

	// Resolve every interval first: the same-day re-entry rule and the
	// inverted-interval drop must settle before the observation window's
	// start is known, because dropped detentions do not anchor the window.
	res := &Result{}
	for _, p := range parts {
		res.InvertedDropped += resolveIntervals(p, latestOut)
	}

	earliestOut, any := earliestResolvedOut(parts)
	if !any {
		logger.InfoContext(ctx, "panel expansion finished", slog.Int("rows", 0),
			slog.Int("inverted_dropped", res.InvertedDropped))
		return res, nil
	}

	logger.InfoContext(ctx, "panel expansion started",
		slog.Int("events", len(events)),
		slog.Int("persons", len(parts)),
		slog.Time("window_start", earliestOut),
		slog.Time("window_end", latestOut))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.rows = expandIntervals(p.intervals, earliestOut)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p.rows)
	}
	res.Rows = make([]domain.PanelRow, 0, total)
	for _, p := range parts {
		res.Rows = append(res.Rows, p.rows...)
	}

	logger.InfoContext(ctx, "panel expansion finished",
		slog.Int("rows", len(res.Rows)),
		slog.Int("inverted_dropped", res.InvertedDropped))
	return res, nil
}

// latestBookOut is the data horizon: the latest observed book-out date, or
// the latest book-in when no detention anywhere has closed.
func latestBookOut(events []domain.DetentionEvent) time.Time {
	var latest time.Time
	found := false
	for i := range events {
		if d := events[i].BookOutDate; d != nil && (!found || d.After(latest)) {
			latest = *d
			found = true
		}
	}
	if !found {
		for i := range events {
			if d := events[i].BookInDate; d.After(latest) {
				latest = d
			}
		}
	}
	return latest
}

// earliestResolvedOut is the observation window's start: the earliest
// book-out date among surviving intervals.
func earliestResolvedOut(parts []*partition) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, p := range parts {
		for _, iv := range p.intervals {
			if !found || iv.out.Before(earliest) {
				earliest = iv.out
				found = true
			}
		}
	}
	return earliest, found
}

func partitionByPerson(events []domain.DetentionEvent) []*partition {
	byPerson := make(map[string]*partition)
	for i := range events {
		e := &events[i]
		p, ok := byPerson[e.PersonID]
		if !ok {
			p = &partition{person: e.PersonID}
			byPerson[e.PersonID] = p
		}
		p.events = append(p.events, e)
	}

	parts := make([]*partition, 0, len(byPerson))
	for _, p := range byPerson {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(a, b int) bool { return parts[a].person < parts[b].person })
	return parts
}

// resolveIntervals applies the person-scoped temporal rules to one
// partition and returns the number of inverted intervals dropped.
func resolveIntervals(p *partition, latestOut time.Time) int {
	byDate := make([]*domain.DetentionEvent, len(p.events))
	copy(byDate, p.events)
	sort.SliceStable(byDate, func(a, b int) bool {
		return byDate[a].BookInDate.Before(byDate[b].BookInDate)
	})

	kept := make(map[*domain.DetentionEvent]*interval, len(byDate))
	dropped := 0
	for pos, e := range byDate {
		// Open detentions are capped at the data horizon.
		out := latestOut
		if e.BookOutDate != nil {
			out = *e.BookOutDate
		}

		// Same-day re-entry: when the person's next booking begins on the
		// book-out date, the person did not end that day in this facility;
		// the last detained day is the day before. Otherwise (overnight
		// transfer or later admission) the book-out date itself counts.
		last := out
		if pos+1 < len(byDate) && byDate[pos+1].BookInDate.Equal(out) {
			last = domain.AddDays(out, -1)
		}

		if last.Before(e.BookInDate) {
			// Booked in, out and in again the same day: inverted interval.
			dropped++
			continue
		}
		kept[e] = &interval{ev: e, out: out, last: last}
	}

	attachDestinations(kept)

	p.intervals = make([]*interval, 0, len(kept))
	for _, e := range byDate {
		if iv, ok := kept[e]; ok {
			p.intervals = append(p.intervals, iv)
		}
	}
	return dropped
}

// attachDestinations shifts the next detention's facility attributes onto
// each interval within the same stay (ordered by book-in time) and computes
// the transfer distance. Only surviving intervals participate: a detention
// dropped as inverted is not anyone's destination, so its neighbors link
// across it.
func attachDestinations(intervals map[*domain.DetentionEvent]*interval) {
	stays := make(map[string][]*interval)
	for _, iv := range intervals {
		stays[iv.ev.StayID] = append(stays[iv.ev.StayID], iv)
	}
	for _, members := range stays {
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].ev.BookInDateTime.Before(members[b].ev.BookInDateTime)
		})
		for pos := 0; pos+1 < len(members); pos++ {
			iv := members[pos]
			next := members[pos+1].ev
			code := next.FacilityCode
			iv.nextFacilityCode = &code
			iv.nextCity = cloneString(next.City)
			iv.nextState = cloneString(next.State)
			iv.distanceKM = transferDistanceKM(
				iv.ev.Latitude, iv.ev.Longitude,
				next.Latitude, next.Longitude,
			)
		}
	}
}

// expandIntervals explodes each interval into one row per calendar day.
// Start dates before the observation window are clipped forward; an
// interval entirely before the window contributes nothing.
func expandIntervals(intervals []*interval, earliestOut time.Time) []domain.PanelRow {
	var rows []domain.PanelRow
	for _, iv := range intervals {
		start := iv.ev.BookInDate
		if start.Before(earliestOut) {
			start = earliestOut
		}
		for d := start; !d.After(iv.last); d = domain.AddDays(d, 1) {
			rows = append(rows, newRow(iv, d))
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].DetentionDate.Before(rows[b].DetentionDate)
	})
	return rows
}

// newRow materializes one (person, day) observation. Rows are never mutated
// after creation.
func newRow(iv *interval, day time.Time) domain.PanelRow {
	e := iv.ev
	return domain.PanelRow{
		PersonID:      e.PersonID,
		DetentionDate: day,
		DateID:        domain.DateID(day),

		StayID:      e.StayID,
		DetentionID: e.DetentionID,

		FacilityCode: e.FacilityCode,
		City:         cloneString(e.City),
		State:        cloneString(e.State),
		TypeDetailed: cloneString(e.TypeDetailed),
		TypeGrouped:  cloneString(e.TypeGrouped),

		NextFacilityCode: cloneString(iv.nextFacilityCode),
		NextCity:         cloneString(iv.nextCity),
		NextState:        cloneString(iv.nextState),
		DistanceKM:       cloneFloat(iv.distanceKM),

		DaysInCurrentDetention: int32(domain.DaysBetween(e.BookInDate, day)),
		DaysInCurrentStay:      int32(domain.DaysBetween(e.StayBookInDate, day)),
		InDetention:            e.StayBookOutDate == nil,

		StayNumber:        e.StayNumber,
		TotalStays:        e.TotalStays,
		FirstStay:         e.FirstStay,
		PreviouslyRemoved: e.PreviouslyRemoved,

		ReleaseReason:     cloneString(e.ReleaseReason),
		StayReleaseReason: cloneString(e.StayReleaseReason),

		BirthYear:     cloneInt32(e.BirthYear),
		Ethnicity:     cloneString(e.Ethnicity),
		Gender:        cloneString(e.Gender),
		MaritalStatus: cloneString(e.MaritalStatus),
		Religion:      cloneString(e.Religion),
		FinalCharge:   cloneString(e.FinalCharge),
		MSCChargeCode: cloneString(e.MSCChargeCode),
		FinalOrder:    e.FinalOrder,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneInt32(v *int32) *int32 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
