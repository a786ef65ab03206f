package reconstruct

import (
	"custodyetl/pkg/contracts/domain"
)

// clipSameStayOverlaps repairs overlapping intervals within a stay: when the
// next detention (ordered by book-in time) begins before the current
// detention's recorded book-out, the book-out is clipped to the next book-in.
// The premature book-out timestamp is superseded by the next actual booking.
// Date and datetime are clipped independently, each only when inverted.
func clipSameStayOverlaps(events []domain.DetentionEvent) {
	groups := groupIndices(len(events), func(i int) string { return events[i].StayID })
	for _, idx := range groups {
		sortStable(idx, byBookIn(events))
		for pos := 0; pos+1 < len(idx); pos++ {
			cur := &events[idx[pos]]
			next := &events[idx[pos+1]]

			if cur.BookOutDate != nil && next.BookInDate.Before(*cur.BookOutDate) {
				d := next.BookInDate
				cur.BookOutDate = &d
			}
			if cur.BookOutDateTime != nil && next.BookInDateTime.Before(*cur.BookOutDateTime) {
				t := next.BookInDateTime
				cur.BookOutDateTime = &t
			}
		}
	}
}
