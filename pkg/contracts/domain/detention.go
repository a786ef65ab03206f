package domain

import (
	"time"
)

// Release reason values with pipeline-level meaning. Any other reason is an
// opaque terminal outcome carried through unchanged.
const (
	ReasonTransferred = "Transferred"
	ReasonRemoved     = "Removed"
)

// DetentionEvent is one booking episode at one facility: the unit record the
// reconstruction pipeline consumes, enriches and filters. Raw fields come
// straight from the harmonized booking workbook; derived fields are filled in
// by the pipeline stages. Nullable fields are pointers.
type DetentionEvent struct {
	// Raw booking fields.
	PersonID        string     `json:"person_id" parquet:"person_id"`
	FacilityCode    string     `json:"facility_code" parquet:"facility_code"`
	BookInDateTime  time.Time  `json:"detention_book_in_date_time" parquet:"detention_book_in_date_time"`
	BookOutDateTime *time.Time `json:"detention_book_out_date_time,omitempty" parquet:"detention_book_out_date_time,optional"`
	ReleaseReason   *string    `json:"detention_release_reason,omitempty" parquet:"detention_release_reason,optional"`

	// Stay-level fields as reported on the raw row (recomputed after merging).
	StayBookInDateTime  time.Time  `json:"stay_book_in_date_time" parquet:"stay_book_in_date_time"`
	StayBookOutDateTime *time.Time `json:"stay_book_out_date_time,omitempty" parquet:"stay_book_out_date_time,optional"`
	StayReleaseReason   *string    `json:"stay_release_reason,omitempty" parquet:"stay_release_reason,optional"`

	// Demographic snapshot fields.
	BirthYear     *int32  `json:"birth_year,omitempty" parquet:"birth_year,optional"`
	Ethnicity     *string `json:"ethnicity,omitempty" parquet:"ethnicity,optional"`
	Gender        *string `json:"gender,omitempty" parquet:"gender,optional"`
	MaritalStatus *string `json:"marital_status,omitempty" parquet:"marital_status,optional"`
	Religion      *string `json:"religion,omitempty" parquet:"religion,optional"`

	// Case fields.
	FinalCharge   *string `json:"final_charge,omitempty" parquet:"final_charge,optional"`
	MSCChargeCode *string `json:"msc_charge_code,omitempty" parquet:"msc_charge_code,optional"`
	FinalOrder    bool    `json:"final_order" parquet:"final_order"`

	// Calendar-date projections of the timestamps above (UTC midnight).
	BookInDate      time.Time  `json:"detention_book_in_date" parquet:"detention_book_in_date"`
	BookOutDate     *time.Time `json:"detention_book_out_date,omitempty" parquet:"detention_book_out_date,optional"`
	StayBookInDate  time.Time  `json:"stay_book_in_date" parquet:"stay_book_in_date"`
	StayBookOutDate *time.Time `json:"stay_book_out_date,omitempty" parquet:"stay_book_out_date,optional"`

	// Identity and ordering, assigned by the pipeline. Empty string means
	// the identifier could not be derived (a natural-key component was null).
	DetentionID string `json:"detention_id" parquet:"detention_id"`
	StayID      string `json:"stay_id" parquet:"stay_id"`
	StayNumber  int32  `json:"stay_number" parquet:"stay_number"`
	TotalStays  int32  `json:"total_num_stays" parquet:"total_num_stays"`
	FirstStay   bool   `json:"first_stay" parquet:"first_stay"`

	// True when an earlier stay for this person ended in "Removed".
	PreviouslyRemoved bool `json:"previously_removed" parquet:"previously_removed"`

	// Facility reference fields, joined by facility code. Null when the
	// facility is unknown.
	Latitude     *float64 `json:"latitude,omitempty" parquet:"latitude,optional"`
	Longitude    *float64 `json:"longitude,omitempty" parquet:"longitude,optional"`
	City         *string  `json:"city,omitempty" parquet:"city,optional"`
	State        *string  `json:"state,omitempty" parquet:"state,optional"`
	TypeDetailed *string  `json:"type_detailed,omitempty" parquet:"type_detailed,optional"`
	TypeGrouped  *string  `json:"type_grouped,omitempty" parquet:"type_grouped,optional"`
}

// Open reports whether the detention has no recorded book-out.
func (e *DetentionEvent) Open() bool {
	return e.BookOutDateTime == nil
}

// StayOpen reports whether the enclosing stay has no recorded book-out.
func (e *DetentionEvent) StayOpen() bool {
	return e.StayBookOutDateTime == nil
}

// ReasonIs reports whether the detention-level release reason equals r.
// A nil reason never matches.
func (e *DetentionEvent) ReasonIs(r string) bool {
	return e.ReleaseReason != nil && *e.ReleaseReason == r
}

// StayReasonIs reports whether the stay-level release reason equals r.
func (e *DetentionEvent) StayReasonIs(r string) bool {
	return e.StayReleaseReason != nil && *e.StayReleaseReason == r
}
