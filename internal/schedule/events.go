// Package schedule places the braking and acceleration manoeuvres a train
// needs to follow a speed-limit profile and merges them into one trajectory.
//
// Distances are km from the route start, speeds km/h. The profile given to
// the planner is preceded by a standstill at the origin, so every trip starts
// and ends at rest.
package schedule

import (
	"train-route-analyzer/internal/kinematics"
	"train-route-analyzer/internal/speed"
)

type Kind int

const (
	Accelerate Kind = iota
	Brake
)

func (k Kind) String() string {
	if k == Brake {
		return "brake"
	}
	return "accelerate"
}

// Event is a speed change between Start and End.
type Event struct {
	Start      float64
	End        float64
	StartSpeed float64
	EndSpeed   float64
	Kind       Kind
}

// Cleared reports an event that reconciliation removed.
func (e Event) Cleared() bool {
	return e.Start == 0 && e.End == 0 && e.StartSpeed == 0 && e.EndSpeed == 0
}

func (e *Event) clear() {
	*e = Event{Kind: e.Kind}
}

func withOrigin(p speed.Profile) speed.Profile {
	out := make(speed.Profile, 0, len(p)+1)
	out = append(out, speed.Segment{Exact: true})
	return append(out, p...)
}

// BrakingEvents finds, for every drop in the limit, where braking has to
// begin. The scan walks back over faster segments until the braking distance
// fits; a drop that never fits is skipped. Events never start before the
// start of the previously placed one.
func BrakingEvents(p speed.Profile, d kinematics.Dynamics) []Event {
	segs := withOrigin(p)
	var (
		events   []Event
		boundary float64 // start of segment i
		maxpoint float64
	)
	for i := 1; i < len(segs); i++ {
		boundary += segs[i-1].Length
		var room float64
		for j := i - 1; j >= 0; j-- {
			room += segs[j].Length
			if segs[j].Limit <= segs[i].Limit || boundary <= maxpoint {
				break
			}
			dist := d.BrakingDistance(segs[j].Limit, segs[i].Limit)
			if dist < room {
				events = append(events, Event{
					Start:      boundary - dist,
					End:        boundary,
					StartSpeed: segs[j].Limit,
					EndSpeed:   segs[i].Limit,
					Kind:       Brake,
				})
				maxpoint = boundary - dist
				break
			}
		}
	}
	return events
}

// AccelerationEvents finds, for every rise in the limit, where the train
// reaches the higher speed. The scan walks forward over faster segments until
// the acceleration distance fits. Acceleration events do not overlap.
func AccelerationEvents(p speed.Profile, d kinematics.Dynamics) []Event {
	segs := withOrigin(p)
	var (
		events   []Event
		end      float64 // end of segment i
		maxpoint float64
	)
	for i := 0; i < len(segs); i++ {
		end += segs[i].Length
		var room float64
		for j := i + 1; j < len(segs); j++ {
			room += segs[j].Length
			if segs[j].Limit <= segs[i].Limit || end < maxpoint {
				break
			}
			dist := d.AccelerationDistance(segs[i].Limit, segs[j].Limit)
			if dist <= room {
				events = append(events, Event{
					Start:      end,
					End:        end + dist,
					StartSpeed: segs[i].Limit,
					EndSpeed:   segs[j].Limit,
					Kind:       Accelerate,
				})
				maxpoint = end + dist
				break
			}
		}
	}
	return events
}

// Plan computes and reconciles all events for a stop-segmented profile.
func Plan(p speed.Profile, d kinematics.Dynamics) []Event {
	brakes := BrakingEvents(p, d)
	accels := AccelerationEvents(p, d)
	events := make([]Event, 0, len(brakes)+len(accels))
	events = append(events, brakes...)
	events = append(events, accels...)
	return Reconcile(events)
}
