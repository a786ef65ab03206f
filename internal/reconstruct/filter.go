package reconstruct

import (
	"sort"
	"time"

	"custodyetl/pkg/contracts/domain"
)

// keep filters events in place-order, returning the surviving slice and the
// number removed.
func keep(events []domain.DetentionEvent, pred func(*domain.DetentionEvent) bool) ([]domain.DetentionEvent, int) {
	out := events[:0:len(events)]
	for i := range events {
		if pred(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out, len(events) - len(out)
}

// dropPersons anti-joins a set of disqualified person identifiers out of the
// event table and records the rule's contribution.
func dropPersons(events []domain.DetentionEvent, persons map[string]struct{}, rule string, x *Exclusions) []domain.DetentionEvent {
	out, removed := keep(events, func(e *domain.DetentionEvent) bool {
		_, excluded := persons[e.PersonID]
		return !excluded
	})
	x.Record(rule, len(persons), removed)
	return out
}

// dropStays anti-joins a set of disqualified stay identifiers out of the
// event table.
func dropStays(events []domain.DetentionEvent, stays map[string]struct{}, rule string, x *Exclusions) []domain.DetentionEvent {
	out, removed := keep(events, func(e *domain.DetentionEvent) bool {
		_, excluded := stays[e.StayID]
		return !excluded
	})
	x.Record(rule, len(stays), removed)
	return out
}

// dropNullPersons removes events whose person identifier is missing; they
// cannot be resolved to anyone.
func dropNullPersons(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	out, removed := keep(events, func(e *domain.DetentionEvent) bool {
		return e.PersonID != ""
	})
	x.Record(RuleNullPerson, 0, removed)
	return out
}

// dropAmbiguousStayBoundaries removes every person who has a stay start date
// with more than one distinct stay book-out timestamp: the stay boundary is
// ambiguous and nothing about that person can be trusted. A null book-out
// counts as a distinct value.
func dropAmbiguousStayBoundaries(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	type stayKey struct {
		person string
		start  time.Time
	}
	groups := groupIndices(len(events), func(i int) stayKey {
		return stayKey{events[i].PersonID, events[i].StayBookInDate}
	})

	persons := make(map[string]struct{})
	for k, idx := range groups {
		n := distinctCount(idx, func(i int) (int64, bool) {
			return timeKey(events[i].StayBookOutDateTime)
		})
		if n > 1 {
			persons[k.person] = struct{}{}
		}
	}
	return dropPersons(events, persons, RuleAmbiguousStayBoundary, x)
}

// dropAmbiguousStays removes stays whose members disagree on the stay
// book-out date. Unlike the boundary rule this disqualifies the stay, not
// the whole person.
func dropAmbiguousStays(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	groups := groupIndices(len(events), func(i int) string { return events[i].StayID })

	stays := make(map[string]struct{})
	for stayID, idx := range groups {
		if stayID == "" {
			continue
		}
		n := distinctCount(idx, func(i int) (int64, bool) {
			return timeKey(events[i].StayBookOutDate)
		})
		if n > 1 {
			stays[stayID] = struct{}{}
		}
	}
	return dropStays(events, stays, RuleAmbiguousStayEndDate, x)
}

// stayWindow is one distinct (book-in, book-out) stay boundary pair.
// Timestamps are flattened to nanoseconds so the struct is a usable map key.
type stayWindow struct {
	in   int64
	out  int64
	open bool
}

// dropOverlappingStayPersons removes persons with two stays whose windows
// overlap: a stay's book-out strictly after the chronologically next stay's
// book-in is irreconcilable concurrency. An open stay never triggers the
// rule on its own.
func dropOverlappingStayPersons(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	perPerson := make(map[string]map[stayWindow]struct{})
	for i := range events {
		e := &events[i]
		w := stayWindow{in: e.StayBookInDateTime.UnixNano(), open: e.StayBookOutDateTime == nil}
		if !w.open {
			w.out = e.StayBookOutDateTime.UnixNano()
		}
		if perPerson[e.PersonID] == nil {
			perPerson[e.PersonID] = make(map[stayWindow]struct{})
		}
		perPerson[e.PersonID][w] = struct{}{}
	}

	persons := make(map[string]struct{})
	for person, windowSet := range perPerson {
		windows := make([]stayWindow, 0, len(windowSet))
		for w := range windowSet {
			windows = append(windows, w)
		}
		sort.Slice(windows, func(a, b int) bool { return windows[a].in < windows[b].in })
		for i := 0; i+1 < len(windows); i++ {
			if !windows[i].open && windows[i].out > windows[i+1].in {
				persons[person] = struct{}{}
				break
			}
		}
	}
	return dropPersons(events, persons, RuleOverlappingStays, x)
}

// dedupeDetentions keeps one event per detention identifier. An open
// (null book-out) duplicate wins over closed ones; among closed duplicates
// the latest book-out wins. Events whose identifier could not be derived
// are left alone.
func dedupeDetentions(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	groups := groupIndices(len(events), func(i int) string { return events[i].DetentionID })

	chosen := make(map[int]struct{}, len(groups))
	dupGroups := 0
	for id, idx := range groups {
		if id == "" {
			for _, i := range idx {
				chosen[i] = struct{}{}
			}
			continue
		}
		if len(idx) > 1 {
			dupGroups++
		}
		best := idx[0]
		for _, i := range idx[1:] {
			if laterBookOut(&events[i], &events[best]) {
				best = i
			}
		}
		chosen[best] = struct{}{}
	}

	result := events[:0:len(events)]
	for i := range events {
		if _, ok := chosen[i]; ok {
			result = append(result, events[i])
		}
	}
	x.Record(RuleDuplicateDetention, dupGroups, len(events)-len(result))
	return result
}

// laterBookOut reports whether a should replace b as the surviving
// duplicate: open beats closed, otherwise the later book-out wins.
func laterBookOut(a, b *domain.DetentionEvent) bool {
	switch {
	case a.BookOutDateTime == nil && b.BookOutDateTime == nil:
		return false
	case a.BookOutDateTime == nil:
		return true
	case b.BookOutDateTime == nil:
		return false
	default:
		return a.BookOutDateTime.After(*b.BookOutDateTime)
	}
}

// dropZeroDurationDetentions removes events booked out the instant they were
// booked in; a zero-length interval carries no custody information.
func dropZeroDurationDetentions(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	out, removed := keep(events, func(e *domain.DetentionEvent) bool {
		return e.BookOutDateTime == nil || !e.BookOutDateTime.Equal(e.BookInDateTime)
	})
	x.Record(RuleZeroDuration, 0, removed)
	return out
}

// dropMultipleOpenStayPersons removes persons with more than one stay
// lacking a book-out: at most one "currently detained" stay is valid.
func dropMultipleOpenStayPersons(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	openStarts := make(map[string]map[time.Time]struct{})
	for i := range events {
		e := &events[i]
		if e.StayBookOutDate != nil {
			continue
		}
		if openStarts[e.PersonID] == nil {
			openStarts[e.PersonID] = make(map[time.Time]struct{})
		}
		openStarts[e.PersonID][e.StayBookInDate] = struct{}{}
	}

	persons := make(map[string]struct{})
	for person, starts := range openStarts {
		if len(starts) > 1 {
			persons[person] = struct{}{}
		}
	}
	return dropPersons(events, persons, RuleMultipleOpenStays, x)
}

// dropMultipleTransferPersons removes persons with more than one stay whose
// release reason is "Transferred". This runs before the merge, which is what
// lets the merge resolve in a single reassignment pass.
func dropMultipleTransferPersons(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	transferStays := make(map[string]map[string]struct{})
	for i := range events {
		e := &events[i]
		if !e.StayReasonIs(domain.ReasonTransferred) {
			continue
		}
		if transferStays[e.PersonID] == nil {
			transferStays[e.PersonID] = make(map[string]struct{})
		}
		transferStays[e.PersonID][e.StayID] = struct{}{}
	}

	persons := make(map[string]struct{})
	for person, stays := range transferStays {
		if len(stays) > 1 {
			persons[person] = struct{}{}
		}
	}
	return dropPersons(events, persons, RuleMultipleTransferStays, x)
}

// dropInteriorOpenDetentions removes stays containing a non-final detention
// with no book-out: an open interval in the middle of a stay cannot be
// repaired.
func dropInteriorOpenDetentions(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	groups := groupIndices(len(events), func(i int) string { return events[i].StayID })

	stays := make(map[string]struct{})
	for stayID, idx := range groups {
		if stayID == "" {
			continue
		}
		sortStable(idx, byBookIn(events))
		// Every member except the most recent must be closed.
		for _, i := range idx[:len(idx)-1] {
			if events[i].BookOutDateTime == nil {
				stays[stayID] = struct{}{}
				break
			}
		}
	}
	return dropStays(events, stays, RuleInteriorOpenDetention, x)
}

// dropCrossStayOverlapPersons removes persons whose next booking (in any
// stay) begins strictly before the current detention's book-out.
func dropCrossStayOverlapPersons(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	groups := groupIndices(len(events), func(i int) string { return events[i].PersonID })

	persons := make(map[string]struct{})
	for person, idx := range groups {
		sortStable(idx, byBookIn(events))
		for pos := 0; pos+1 < len(idx); pos++ {
			cur := &events[idx[pos]]
			next := &events[idx[pos+1]]
			if cur.BookOutDateTime != nil && next.BookInDateTime.Before(*cur.BookOutDateTime) {
				persons[person] = struct{}{}
				break
			}
		}
	}
	return dropPersons(events, persons, RuleCrossStayOverlap, x)
}

// dropMultiBirthYearPersons removes persons with more than one distinct
// birth year across events; a missing year counts as a distinct value.
func dropMultiBirthYearPersons(events []domain.DetentionEvent, x *Exclusions) []domain.DetentionEvent {
	groups := groupIndices(len(events), func(i int) string { return events[i].PersonID })

	persons := make(map[string]struct{})
	for person, idx := range groups {
		n := distinctCount(idx, func(i int) (int32, bool) {
			if events[i].BirthYear == nil {
				return 0, false
			}
			return *events[i].BirthYear, true
		})
		if n > 1 {
			persons[person] = struct{}{}
		}
	}
	return dropPersons(events, persons, RuleMultipleBirthYears, x)
}
