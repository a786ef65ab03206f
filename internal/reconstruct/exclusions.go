package reconstruct

// Exclusion rule names, in contract order. These key the exclusion log and
// the exclusions_total metric.
const (
	RuleAmbiguousStayBoundary = "ambiguous_stay_boundary"
	RuleNullPerson            = "null_person"
	RuleAmbiguousStayEndDate  = "ambiguous_stay_end_date"
	RuleOverlappingStays      = "overlapping_stays"
	RuleDuplicateDetention    = "duplicate_detention"
	RuleZeroDuration          = "zero_duration_detention"
	RuleMultipleOpenStays     = "multiple_open_stays"
	RuleMultipleTransferStays = "multiple_transfer_stays"
	RuleInteriorOpenDetention = "interior_open_detention"
	RuleCrossStayOverlap      = "cross_stay_overlap"
	RuleMultipleBirthYears    = "multiple_birth_years"
)

// RuleResult is one rule's contribution to the total exclusions: how many
// events it removed and how many distinct keys (persons, stays or detention
// ids, depending on the rule's granularity) were disqualified.
type RuleResult struct {
	Rule   string `json:"rule"`
	Keys   int    `json:"keys"`
	Events int    `json:"events"`
}

// Exclusions accumulates per-rule removals so each rule's contribution is
// independently inspectable. Failure mode is exclusion, not error: nothing
// recorded here aborts the run.
type Exclusions struct {
	order   []string
	results map[string]*RuleResult
}

// NewExclusions returns an empty accumulator.
func NewExclusions() *Exclusions {
	return &Exclusions{results: make(map[string]*RuleResult)}
}

// Record adds a rule's removals. Recording the same rule twice accumulates.
func (x *Exclusions) Record(rule string, keys, events int) {
	r, ok := x.results[rule]
	if !ok {
		r = &RuleResult{Rule: rule}
		x.results[rule] = r
		x.order = append(x.order, rule)
	}
	r.Keys += keys
	r.Events += events
}

// Results returns the per-rule results in the order rules ran.
func (x *Exclusions) Results() []RuleResult {
	out := make([]RuleResult, 0, len(x.order))
	for _, rule := range x.order {
		out = append(out, *x.results[rule])
	}
	return out
}

// TotalEvents is the number of events removed across all rules.
func (x *Exclusions) TotalEvents() int {
	total := 0
	for _, r := range x.results {
		total += r.Events
	}
	return total
}
