package domain

// Facility is one row of the facility reference table, keyed by facility
// code. Coordinates are nullable: an unlocated facility still joins, it just
// yields null geolocation fields downstream.
type Facility struct {
	Code         string   `json:"detention_facility_code" parquet:"detention_facility_code"`
	Latitude     *float64 `json:"latitude,omitempty" parquet:"latitude,optional"`
	Longitude    *float64 `json:"longitude,omitempty" parquet:"longitude,optional"`
	City         *string  `json:"city,omitempty" parquet:"city,optional"`
	State        *string  `json:"state,omitempty" parquet:"state,optional"`
	TypeDetailed *string  `json:"type_detailed,omitempty" parquet:"type_detailed,optional"`
	TypeGrouped  *string  `json:"type_grouped,omitempty" parquet:"type_grouped,optional"`
}

// Located reports whether both coordinates are present.
func (f *Facility) Located() bool {
	return f.Latitude != nil && f.Longitude != nil
}
