package panel

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// transferDistanceKM computes the great-circle distance in kilometers
// between the origin and destination facility coordinates. Any missing
// coordinate yields nil.
func transferDistanceKM(lat, lon, nextLat, nextLon *float64) *float64 {
	if lat == nil || lon == nil || nextLat == nil || nextLon == nil {
		return nil
	}
	from := orb.Point{*lon, *lat}
	to := orb.Point{*nextLon, *nextLat}
	km := geo.DistanceHaversine(from, to) / 1000.0
	return &km
}
