// Package summary integrates a planned trajectory into travel time, average
// and maximum speed.
package summary

import "train-route-analyzer/internal/schedule"

// Stats summarizes one trip. Speeds are km/h, TravelTime is minutes and
// Integral is the area under the speed-over-distance curve (km·km/h).
type Stats struct {
	AverageSpeed float64
	MaxSpeed     float64
	TravelTime   float64
	Integral     float64
}

// Compute integrates tr with the trapezoid rule over distance. The first
// point is counted twice, which adds nothing to the area.
//
// TravelTime is distance²/Integral·60, i.e. distance/AverageSpeed in
// minutes. A zero distance or area yields zero average and travel time.
func Compute(tr schedule.Trajectory, distance float64) Stats {
	var s Stats
	if len(tr) == 0 {
		return s
	}
	prev := tr[0]
	for _, p := range tr {
		s.Integral += (p.Distance - prev.Distance) * (prev.Speed + p.Speed) / 2
		if p.Speed > s.MaxSpeed {
			s.MaxSpeed = p.Speed
		}
		prev = p
	}
	if distance <= 0 || s.Integral <= 0 {
		return s
	}
	s.AverageSpeed = s.Integral / distance
	s.TravelTime = distance * distance / s.Integral * 60
	return s
}
