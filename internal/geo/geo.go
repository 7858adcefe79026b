// Package geo holds the planar distance approximation and unit conversions
// shared by the route and kinematics packages.
package geo

import "math"

// KmPerDegree is the length of one degree of latitude used by Distance.
const KmPerDegree = 111.12

const (
	mphToKmh = 1.609
	msToKmh  = 3.6
)

// Distance returns the equirectangular distance in km between two points.
// Longitude difference is scaled by the cosine of the midpoint latitude.
// It is not geodesically exact and must stay that way for result parity.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	difLat := (lat1 - lat2) * KmPerDegree
	difLon := (lon1 - lon2) * math.Cos(degToRad((lat1+lat2)/2)) * KmPerDegree
	return math.Sqrt(difLat*difLat + difLon*difLon)
}

// MphToKmh converts a speed in mph to km/h, rounded to a whole number.
func MphToKmh(mph float64) float64 {
	return math.Round(mph * mphToKmh)
}

func KmhToMs(kmh float64) float64 { return kmh / msToKmh }

func MsToKmh(ms float64) float64 { return ms * msToKmh }

func degToRad(d float64) float64 { return d * math.Pi / 180 }
