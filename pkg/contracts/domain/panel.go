package domain

import (
	"time"
)

// PanelRow is one (person, calendar day) observation of the daily panel: the
// terminal output artifact. Rows are created only by the panel expander from
// a validated, repaired detention interval and are never mutated afterwards.
type PanelRow struct {
	PersonID      string    `json:"person_id" parquet:"person_id"`
	DetentionDate time.Time `json:"detention_date" parquet:"detention_date"`
	DateID        int32     `json:"date_id" parquet:"date_id"`

	StayID      string `json:"stay_id" parquet:"stay_id"`
	DetentionID string `json:"detention_id" parquet:"detention_id"`

	// Facility occupied on this day.
	FacilityCode string  `json:"detention_facility_code" parquet:"detention_facility_code"`
	City         *string `json:"city,omitempty" parquet:"city,optional"`
	State        *string `json:"state,omitempty" parquet:"state,optional"`
	TypeDetailed *string `json:"type_detailed,omitempty" parquet:"type_detailed,optional"`
	TypeGrouped  *string `json:"type_grouped,omitempty" parquet:"type_grouped,optional"`

	// Destination facility when the detention ends in a transfer within the
	// same stay; null otherwise.
	NextFacilityCode *string  `json:"next_detention_facility_code,omitempty" parquet:"next_detention_facility_code,optional"`
	NextCity         *string  `json:"next_city,omitempty" parquet:"next_city,optional"`
	NextState        *string  `json:"next_state,omitempty" parquet:"next_state,optional"`
	DistanceKM       *float64 `json:"distance_km,omitempty" parquet:"distance_km,optional"`

	DaysInCurrentDetention int32 `json:"days_in_current_detention" parquet:"days_in_current_detention"`
	DaysInCurrentStay      int32 `json:"days_in_current_stay" parquet:"days_in_current_stay"`
	InDetention            bool  `json:"in_detention" parquet:"in_detention"`

	StayNumber        int32 `json:"stay_number" parquet:"stay_number"`
	TotalStays        int32 `json:"total_num_stays" parquet:"total_num_stays"`
	FirstStay         bool  `json:"first_stay" parquet:"first_stay"`
	PreviouslyRemoved bool  `json:"previously_removed" parquet:"previously_removed"`

	ReleaseReason     *string `json:"detention_release_reason,omitempty" parquet:"detention_release_reason,optional"`
	StayReleaseReason *string `json:"stay_release_reason,omitempty" parquet:"stay_release_reason,optional"`

	BirthYear     *int32  `json:"birth_year,omitempty" parquet:"birth_year,optional"`
	Ethnicity     *string `json:"ethnicity,omitempty" parquet:"ethnicity,optional"`
	Gender        *string `json:"gender,omitempty" parquet:"gender,optional"`
	MaritalStatus *string `json:"marital_status,omitempty" parquet:"marital_status,optional"`
	Religion      *string `json:"religion,omitempty" parquet:"religion,optional"`
	FinalCharge   *string `json:"final_charge,omitempty" parquet:"final_charge,optional"`
	MSCChargeCode *string `json:"msc_charge_code,omitempty" parquet:"msc_charge_code,optional"`
	FinalOrder    bool    `json:"final_order" parquet:"final_order"`
}
