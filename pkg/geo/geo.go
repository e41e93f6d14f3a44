// Package geo provides the distance, bearing and dispersion primitives
// shared by the tracking and classification components.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used for great-circle math.
const EarthRadiusMiles = 3959.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceMiles computes the haversine great-circle distance between two
// coordinates in statute miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Distance computes the great-circle distance between two points in miles.
func Distance(p1, p2 Point) float64 {
	return DistanceMiles(p1.Lat, p1.Lon, p2.Lat, p2.Lon)
}

// BearingDegrees computes the forward azimuth from point 1 to point 2,
// normalized to [0, 360).
func BearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) -
		math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Centroid returns the arithmetic mean of the given coordinates. The flat
// average is an acceptable approximation at the spatial scales the monitor
// works with (under ~100 miles). Callers must pass at least one point.
func Centroid(points []Point) Point {
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: lat / n, Lon: lon / n}
}

// Mean returns the arithmetic mean of vs. Callers must pass at least one
// value.
func Mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// Variance returns the population variance of vs. Callers must pass at
// least one value.
func Variance(vs []float64) float64 {
	mean := Mean(vs)
	var sum float64
	for _, v := range vs {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(vs))
}

// HeadingDelta returns the signed smallest rotation from heading h1 to h2
// in degrees, in (-180, 180].
func HeadingDelta(h1, h2 float64) float64 {
	d := math.Mod(h2-h1, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
