package schedule

import "github.com/rs/zerolog/log"

// Point is a speed at a route distance.
type Point struct {
	Distance float64
	Speed    float64
}

// Trajectory is the planned speed over distance. Between two points the speed
// changes linearly with distance.
type Trajectory []Point

// NewTrajectory expands events into their start and end points. Cleared
// events and repeated points are dropped. Distances never decrease and
// speeds never go below zero.
func NewTrajectory(events []Event) Trajectory {
	var tr Trajectory
	for _, e := range events {
		if e.Cleared() {
			continue
		}
		for _, p := range [2]Point{{e.Start, e.StartSpeed}, {e.End, e.EndSpeed}} {
			if p.Speed < 0 {
				log.Debug().Float64("distance", p.Distance).Float64("speed", p.Speed).Msg("clamped negative speed")
				p.Speed = 0
			}
			if p.Distance < 0 {
				p.Distance = 0
			}
			if n := len(tr); n > 0 {
				last := tr[n-1]
				if p.Distance < last.Distance {
					log.Debug().Float64("distance", p.Distance).Float64("previous", last.Distance).Msg("clamped backwards trajectory point")
					p.Distance = last.Distance
				}
				if p == last {
					continue
				}
			}
			tr = append(tr, p)
		}
	}
	return tr
}

// MaxSpeed is the highest speed on the trajectory.
func (tr Trajectory) MaxSpeed() float64 {
	var m float64
	for _, p := range tr {
		if p.Speed > m {
			m = p.Speed
		}
	}
	return m
}
