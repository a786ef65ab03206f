package reconstruct

import (
	"regexp"
	"strings"

	"custodyetl/pkg/contracts/domain"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s{2,}`)
	unknownPattern = regexp.MustCompile(`(?i)(un|not|none|relig|known)`)
)

// backfillStayReleaseReason substitutes the last non-"Transferred", non-null
// member release reason (ordered by book-in time) for a stay-level reason
// that is null or "Transferred". When every member reason is "Transferred"
// there is no substantive outcome and the stay-level reason is left for the
// merge to resolve.
func backfillStayReleaseReason(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].StayID })
	for _, idx := range groups {
		sortStable(idx, byBookIn(events))
		substantive := lastNonNilString(idx, func(i int) *string {
			if events[i].ReleaseReason == nil || events[i].ReasonIs(domain.ReasonTransferred) {
				return nil
			}
			return events[i].ReleaseReason
		})
		if substantive == nil {
			continue
		}
		for _, i := range idx {
			e := &events[i]
			if e.StayReleaseReason == nil || e.StayReasonIs(domain.ReasonTransferred) {
				e.StayReleaseReason = cloneString(substantive)
			}
		}
	}
}

// markPreviouslyRemoved flags every stay strictly after a stay that ended in
// "Removed": a running maximum of the removal indicator, shifted by one stay.
func markPreviouslyRemoved(events []domain.DetentionEvent) {
	type personStay struct {
		person string
		number int32
	}
	removed := make(map[personStay]bool)
	for i := range events {
		e := &events[i]
		key := personStay{e.PersonID, e.StayNumber}
		if e.StayReasonIs(domain.ReasonRemoved) {
			removed[key] = true
		} else if _, ok := removed[key]; !ok {
			removed[key] = false
		}
	}

	groups := groupIndices(len(events), func(i int) string { return events[i].PersonID })
	for person, idx := range groups {
		sortStable(idx, byStayNumber(events))
		everRemoved := false
		lastNumber := int32(0)
		for _, i := range idx {
			e := &events[i]
			if e.StayNumber != lastNumber {
				// Crossing into the next stay: removals observed so far
				// (excluding this stay) determine the flag.
				if removed[personStay{person, lastNumber}] {
					everRemoved = true
				}
				lastNumber = e.StayNumber
			}
			e.PreviouslyRemoved = everRemoved
		}
	}
}

// propagateEthnicity resolves ethnicity to the person's most recently
// observed non-null value, ordered by detention book-in date.
func propagateEthnicity(events []domain.DetentionEvent) {
	propagatePerGroup(events,
		func(i int, e *domain.DetentionEvent) string { return e.PersonID },
		func(e *domain.DetentionEvent) *string { return e.Ethnicity },
		func(e *domain.DetentionEvent, v *string) { e.Ethnicity = v },
	)
}

// propagateMaritalStatus first normalizes "Unknown" to null, then resolves
// marital status to the most recent non-null value within the stay.
func propagateMaritalStatus(events []domain.DetentionEvent) {
	for i := range events {
		e := &events[i]
		if e.MaritalStatus != nil && *e.MaritalStatus == "Unknown" {
			e.MaritalStatus = nil
		}
	}
	propagatePerGroup(events,
		func(i int, e *domain.DetentionEvent) string { return e.StayID },
		func(e *domain.DetentionEvent) *string { return e.MaritalStatus },
		func(e *domain.DetentionEvent, v *string) { e.MaritalStatus = v },
	)
}

// propagatePerGroup broadcasts the last non-null observation of a field,
// ordered by book-in date, to every event in the group. Groups with no
// observation are left untouched.
func propagatePerGroup(
	events []domain.DetentionEvent,
	key func(int, *domain.DetentionEvent) string,
	get func(*domain.DetentionEvent) *string,
	set func(*domain.DetentionEvent, *string),
) {
	groups := groupIndices(len(events), func(i int) string { return key(i, &events[i]) })
	for _, idx := range groups {
		sortStable(idx, byBookInDate(events))
		last := lastNonNilString(idx, func(i int) *string { return get(&events[i]) })
		if last == nil {
			continue
		}
		for _, i := range idx {
			set(&events[i], cloneString(last))
		}
	}
}

// normalizeReligion lowercases the free-text religion field, collapses runs
// of whitespace, and nulls values matching the unknown/none/not-specified
// pattern.
func normalizeReligion(events []domain.DetentionEvent) {
	for i := range events {
		e := &events[i]
		if e.Religion == nil {
			continue
		}
		v := strings.ToLower(*e.Religion)
		v = whitespaceRuns.ReplaceAllString(v, " ")
		if unknownPattern.MatchString(v) {
			e.Religion = nil
			continue
		}
		e.Religion = &v
	}
}

// normalizeFinalCharge lowercases the charge description except substrings
// enclosed in parentheses, which are case-sensitive codes preserved
// verbatim.
func normalizeFinalCharge(events []domain.DetentionEvent) {
	for i := range events {
		e := &events[i]
		if e.FinalCharge == nil {
			continue
		}
		v := lowerOutsideParens(*e.FinalCharge)
		e.FinalCharge = &v
	}
}

// lowerOutsideParens lowercases only characters at parenthesis depth zero.
func lowerOutsideParens(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
			b.WriteRune(r)
		case ')':
			if depth > 0 {
				depth--
			}
			b.WriteRune(r)
		default:
			if depth == 0 {
				b.WriteString(strings.ToLower(string(r)))
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
