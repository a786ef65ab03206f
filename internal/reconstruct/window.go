// Package reconstruct implements the entity-resolution and temporal-
// reconstruction engine: stable identity assignment, consistency filtering,
// transfer-chain merging, attribute propagation and interval repair over
// booking events. Every windowed computation is an explicit grouped-iterator
// operation: group by key, sort within the group, scan.
package reconstruct

import (
	"sort"
	"time"

	"custodyetl/pkg/contracts/domain"
)

// groupIndices partitions the indices [0, n) by key, preserving input order
// within each group.
func groupIndices[K comparable](n int, key func(int) K) map[K][]int {
	groups := make(map[K][]int)
	for i := 0; i < n; i++ {
		k := key(i)
		groups[k] = append(groups[k], i)
	}
	return groups
}

// sortStable sorts an index slice with a stable order so that ties keep
// their input position, matching sequential per-row evaluation.
func sortStable(idx []int, less func(a, b int) bool) {
	sort.SliceStable(idx, func(x, y int) bool { return less(idx[x], idx[y]) })
}

// denseRanks assigns 1-based dense ranks to the sorted index slice: equal
// ordering keys share a rank and ranks have no gaps.
func denseRanks(idx []int, equal func(a, b int) bool) []int32 {
	ranks := make([]int32, len(idx))
	rank := int32(0)
	for pos, i := range idx {
		if pos == 0 || !equal(idx[pos-1], i) {
			rank++
		}
		ranks[pos] = rank
	}
	return ranks
}

// lastNonNilString scans the sorted index slice and returns the last non-nil
// value, or nil when every value is nil.
func lastNonNilString(idx []int, value func(int) *string) *string {
	var last *string
	for _, i := range idx {
		if v := value(i); v != nil {
			last = v
		}
	}
	return last
}

// distinctCount counts distinct values over a group, with nil counted as its
// own value (matching null-inclusive distinct semantics of the upstream
// grouping rules).
func distinctCount[T comparable](idx []int, value func(int) (T, bool)) int {
	seen := make(map[T]struct{})
	sawNil := false
	for _, i := range idx {
		v, ok := value(i)
		if !ok {
			sawNil = true
			continue
		}
		seen[v] = struct{}{}
	}
	n := len(seen)
	if sawNil {
		n++
	}
	return n
}

// timeKey converts a nullable timestamp into a comparable key for
// distinctCount.
func timeKey(t *time.Time) (int64, bool) {
	if t == nil {
		return 0, false
	}
	return t.UnixNano(), true
}

// byBookIn orders events by detention book-in timestamp.
func byBookIn(events []domain.DetentionEvent) func(a, b int) bool {
	return func(a, b int) bool {
		return events[a].BookInDateTime.Before(events[b].BookInDateTime)
	}
}

// byBookInDate orders events by detention book-in calendar date.
func byBookInDate(events []domain.DetentionEvent) func(a, b int) bool {
	return func(a, b int) bool {
		return events[a].BookInDate.Before(events[b].BookInDate)
	}
}

// byStayNumber orders events by their stay sequence number.
func byStayNumber(events []domain.DetentionEvent) func(a, b int) bool {
	return func(a, b int) bool {
		return events[a].StayNumber < events[b].StayNumber
	}
}
