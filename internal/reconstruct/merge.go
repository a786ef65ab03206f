package reconstruct

import (
	"sort"
	"time"

	"custodyetl/pkg/contracts/domain"
)

// rankStays assigns the 1-based chronological stay sequence number per
// person (dense, so same-day duplicates rank equally) and the first-stay
// flag. Ranks are over the stay start date.
func rankStays(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].PersonID })
	for _, idx := range groups {
		sortStable(idx, func(a, b int) bool {
			return events[a].StayBookInDate.Before(events[b].StayBookInDate)
		})
		ranks := denseRanks(idx, func(a, b int) bool {
			return events[a].StayBookInDate.Equal(events[b].StayBookInDate)
		})
		for pos, i := range idx {
			events[i].StayNumber = ranks[pos]
			events[i].FirstStay = ranks[pos] == 1
		}
	}
}

// computeTotalStays sets the per-person stay count on every event.
func computeTotalStays(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].PersonID })
	for _, idx := range groups {
		var max int32
		for _, i := range idx {
			if events[i].StayNumber > max {
				max = events[i].StayNumber
			}
		}
		for _, i := range idx {
			events[i].TotalStays = max
		}
	}
}

// nextStayIDs maps each stay identifier to the person's chronologically next
// stay identifier. Stays are deduplicated first because a stay spans many
// events.
func nextStayIDs(events []domain.DetentionEvent) map[string]string {
	type stayRef struct {
		id     string
		number int32
	}
	perPerson := make(map[string]map[stayRef]struct{})
	for i := range events {
		e := &events[i]
		ref := stayRef{e.StayID, e.StayNumber}
		if perPerson[e.PersonID] == nil {
			perPerson[e.PersonID] = make(map[stayRef]struct{})
		}
		perPerson[e.PersonID][ref] = struct{}{}
	}

	next := make(map[string]string)
	for _, refSet := range perPerson {
		refs := make([]stayRef, 0, len(refSet))
		for r := range refSet {
			refs = append(refs, r)
		}
		sort.Slice(refs, func(a, b int) bool { return refs[a].number < refs[b].number })
		for i := 0; i+1 < len(refs); i++ {
			next[refs[i].id] = refs[i+1].id
		}
	}
	return next
}

// mergeTransferChains performs the transfer-chain merge. A stay ending in
// "Transferred" that is the person's final stay has its release reason
// nulled (there is no subsequent stay to receive the transfer); any other
// transferred stay is reassigned the identifier of the immediately following
// stay, attributing its events to the surviving stay. The pre-merge
// multiple-transfer exclusion guarantees at most one transferred stay per
// person, so one pass reaches the fixpoint.
func mergeTransferChains(events []domain.DetentionEvent) {
	next := nextStayIDs(events)
	for i := range events {
		e := &events[i]
		if !e.StayReasonIs(domain.ReasonTransferred) {
			continue
		}
		if e.StayNumber == e.TotalStays {
			e.StayReleaseReason = nil
			continue
		}
		if id, ok := next[e.StayID]; ok {
			e.StayID = id
		}
	}
}

// recomputeStayAggregates rebuilds the stay-level boundary fields over the
// post-merge grouping: stay book-in is the earliest member book-in; stay
// book-out and release reason come from the highest original stay-number
// member, null included (an open final member legitimately nulls the
// aggregate).
func recomputeStayAggregates(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].StayID })
	for _, idx := range groups {
		sortStable(idx, byStayNumber(events))

		minInDate := events[idx[0]].StayBookInDate
		minInDT := events[idx[0]].StayBookInDateTime
		for _, i := range idx[1:] {
			if events[i].StayBookInDate.Before(minInDate) {
				minInDate = events[i].StayBookInDate
			}
			if events[i].StayBookInDateTime.Before(minInDT) {
				minInDT = events[i].StayBookInDateTime
			}
		}

		last := idx[len(idx)-1]
		outDate := cloneTime(events[last].StayBookOutDate)
		outDT := cloneTime(events[last].StayBookOutDateTime)
		reason := cloneString(events[last].StayReleaseReason)

		for _, i := range idx {
			events[i].StayBookInDate = minInDate
			events[i].StayBookInDateTime = minInDT
			events[i].StayBookOutDate = cloneTime(outDate)
			events[i].StayBookOutDateTime = cloneTime(outDT)
			events[i].StayReleaseReason = cloneString(reason)
		}
	}
}

// recomputeStayNumbers re-ranks stays per person after merging (dense rank
// of the merged stay book-in timestamp), refreshes the first-stay flag and
// the per-person stay count.
func recomputeStayNumbers(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].PersonID })
	for _, idx := range groups {
		sortStable(idx, func(a, b int) bool {
			return events[a].StayBookInDateTime.Before(events[b].StayBookInDateTime)
		})
		ranks := denseRanks(idx, func(a, b int) bool {
			return events[a].StayBookInDateTime.Equal(events[b].StayBookInDateTime)
		})
		for pos, i := range idx {
			events[i].StayNumber = ranks[pos]
			events[i].FirstStay = ranks[pos] == 1
		}
	}
	computeTotalStays(events)
}

// propagateTerminalReason copies the stay's resolved release reason down to
// the stay's most recent detention event, unless that resolved reason is
// "Transferred" (which only the merge may consume).
func propagateTerminalReason(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].StayID })
	for _, idx := range groups {
		sortStable(idx, byBookIn(events))
		last := idx[len(idx)-1]
		e := &events[last]
		if e.StayReleaseReason != nil && !e.StayReasonIs(domain.ReasonTransferred) {
			e.ReleaseReason = cloneString(e.StayReleaseReason)
		}
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
