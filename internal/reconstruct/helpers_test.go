package reconstruct

import (
	"io"
	"log/slog"
	"time"

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

func int32Ptr(v int32) *int32 { return &v }

// eventSpec is a compact fixture description; empty timestamp strings mean
// null.
type eventSpec struct {
	person  string
	fac     string
	in      string
	out     string
	reason  string
	stayIn  string
	stayOut string
	stayRsn string
}

func makeEvent(s eventSpec) domain.DetentionEvent {
	if s.stayIn == "" {
		s.stayIn = s.in
	}
	e := domain.DetentionEvent{
		PersonID:           s.person,
		FacilityCode:       s.fac,
		BookInDateTime:     ts(s.in),
		BookOutDateTime:    tsPtr(s.out),
		StayBookInDateTime: ts(s.stayIn),
	}
	if s.reason != "" {
		e.ReleaseReason = strPtr(s.reason)
	}
	if s.stayOut != "" {
		e.StayBookOutDateTime = tsPtr(s.stayOut)
	}
	if s.stayRsn != "" {
		e.StayReleaseReason = strPtr(s.stayRsn)
	}
	project(&e)
	return e
}

// project fills the calendar-date fields the same way normalization does.
func project(e *domain.DetentionEvent) {
	e.BookInDate = domain.DateOf(e.BookInDateTime)
	e.StayBookInDate = domain.DateOf(e.StayBookInDateTime)
	if e.BookOutDateTime != nil {
		d := domain.DateOf(*e.BookOutDateTime)
		e.BookOutDate = &d
	}
	if e.StayBookOutDateTime != nil {
		d := domain.DateOf(*e.StayBookOutDateTime)
		e.StayBookOutDate = &d
	}
}

// withIDs assigns detention and stay identifiers the way the pipeline does
// before the identifier-dependent rules run.
func withIDs(events []domain.DetentionEvent) []domain.DetentionEvent {
	AssignDetentionIDs(events)
	AssignStayIDs(events)
	return events
}

func personIDs(events []domain.DetentionEvent) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].PersonID
	}
	return out
}
