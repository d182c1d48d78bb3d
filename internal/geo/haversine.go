// Package geo provides great-circle distance calculations for proximity
// matching. Naive Euclidean degree differences are not usable here because
// longitude degrees shrink towards the poles.
package geo

import "math"

// EarthRadiusMetres is the mean Earth radius used for haversine distances.
const EarthRadiusMetres = 6371000.0

// Distance returns the haversine distance in metres between two points
// given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMetres * c
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
