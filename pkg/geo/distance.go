package geo

import "math"

// EarthRadiusKilometers is Earth's radius used by the Haversine formula.
const EarthRadiusKilometers = 6371.0088

// LatLng is a latitude/longitude pair in decimal degrees.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// HaversineKilometers calculates the great-circle distance between two points
// on Earth in kilometers.
func HaversineKilometers(from, to LatLng) float64 {
	const degToRad = math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * degToRad
	dLng := (to.Longitude - from.Longitude) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(from.Latitude*degToRad)*math.Cos(to.Latitude*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKilometers * c
}
