package reconstruct

import (
	"context"
	"log/slog"
	"time"

	"custodyetl/pkg/contracts/domain"
)

// Result is the outcome of a reconstruction run: the surviving, repaired
// event table plus the exclusion ledger.
type Result struct {
	Events     []domain.DetentionEvent
	Exclusions *Exclusions
}

// Clean runs the full reconstruction over the harmonized booking events:
// identity assignment, the ordered consistency rules, the transfer-chain
// merge, attribute propagation and interval repair. The rule order is a
// fixed contract; later rules depend on identifiers and merges established
// by earlier ones. Input is not mutated.
func Clean(ctx context.Context, events []domain.DetentionEvent, facilities []domain.Facility, logger *slog.Logger) *Result {
	evs := make([]domain.DetentionEvent, len(events))
	copy(evs, events)

	x := NewExclusions()
	logger.InfoContext(ctx, "reconstruction started", slog.Int("events", len(evs)))

	normalizeEvents(evs)

	AssignDetentionIDs(evs)
	evs = dropAmbiguousStayBoundaries(evs, x)
	AssignStayIDs(evs)
	evs = dropNullPersons(evs, x)
	evs = dropAmbiguousStays(evs, x)
	evs = dropOverlappingStayPersons(evs, x)
	evs = dedupeDetentions(evs, x)
	evs = dropZeroDurationDetentions(evs, x)

	rankStays(evs)
	joinFacilities(evs, facilities)

	backfillStayReleaseReason(evs)
	markPreviouslyRemoved(evs)
	evs = dropMultipleOpenStayPersons(evs, x)
	evs = dropMultipleTransferPersons(evs, x)

	computeTotalStays(evs)
	mergeTransferChains(evs)
	recomputeStayAggregates(evs)
	recomputeStayNumbers(evs)
	propagateTerminalReason(evs)
	evs = dropInteriorOpenDetentions(evs, x)

	clipSameStayOverlaps(evs)
	evs = dropCrossStayOverlapPersons(evs, x)

	normalizeFinalCharge(evs)
	evs = dropMultiBirthYearPersons(evs, x)
	propagateEthnicity(evs)
	propagateMaritalStatus(evs)
	normalizeReligion(evs)

	for _, r := range x.Results() {
		logger.InfoContext(ctx, "exclusion rule applied",
			slog.String("rule", r.Rule),
			slog.Int("keys", r.Keys),
			slog.Int("events", r.Events))
	}
	logger.InfoContext(ctx, "reconstruction finished",
		slog.Int("events_in", len(events)),
		slog.Int("events_out", len(evs)),
		slog.Int("events_excluded", x.TotalEvents()))

	return &Result{Events: evs, Exclusions: x}
}

// normalizeEvents prepares raw rows: empty optional strings become null,
// timestamps are truncated to minute precision, and the calendar-date
// projections are derived. Idempotent, so re-runs over already-normalized
// data are no-ops.
func normalizeEvents(events []domain.DetentionEvent) {
	for i := range events {
		e := &events[i]

		nilIfEmpty(&e.ReleaseReason)
		nilIfEmpty(&e.StayReleaseReason)
		nilIfEmpty(&e.Ethnicity)
		nilIfEmpty(&e.Gender)
		nilIfEmpty(&e.MaritalStatus)
		nilIfEmpty(&e.Religion)
		nilIfEmpty(&e.FinalCharge)
		nilIfEmpty(&e.MSCChargeCode)

		e.BookInDateTime = e.BookInDateTime.Truncate(time.Minute)
		e.StayBookInDateTime = e.StayBookInDateTime.Truncate(time.Minute)
		if e.BookOutDateTime != nil {
			t := e.BookOutDateTime.Truncate(time.Minute)
			e.BookOutDateTime = &t
		}
		if e.StayBookOutDateTime != nil {
			t := e.StayBookOutDateTime.Truncate(time.Minute)
			e.StayBookOutDateTime = &t
		}

		e.BookInDate = domain.DateOf(e.BookInDateTime)
		e.StayBookInDate = domain.DateOf(e.StayBookInDateTime)
		if e.BookOutDateTime != nil {
			d := domain.DateOf(*e.BookOutDateTime)
			e.BookOutDate = &d
		} else {
			e.BookOutDate = nil
		}
		if e.StayBookOutDateTime != nil {
			d := domain.DateOf(*e.StayBookOutDateTime)
			e.StayBookOutDate = &d
		} else {
			e.StayBookOutDate = nil
		}
	}
}

func nilIfEmpty(s **string) {
	if *s != nil && **s == "" {
		*s = nil
	}
}

// joinFacilities attaches facility reference attributes by facility code.
// Unknown facilities yield null geolocation fields, not failures.
func joinFacilities(events []domain.DetentionEvent, facilities []domain.Facility) {
	byCode := make(map[string]*domain.Facility, len(facilities))
	for i := range facilities {
		f := &facilities[i]
		if _, ok := byCode[f.Code]; !ok {
			byCode[f.Code] = f
		}
	}
	for i := range events {
		e := &events[i]
		f, ok := byCode[e.FacilityCode]
		if !ok {
			continue
		}
		e.Latitude = cloneFloat(f.Latitude)
		e.Longitude = cloneFloat(f.Longitude)
		e.City = cloneString(f.City)
		e.State = cloneString(f.State)
		e.TypeDetailed = cloneString(f.TypeDetailed)
		e.TypeGrouped = cloneString(f.TypeGrouped)
	}
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
