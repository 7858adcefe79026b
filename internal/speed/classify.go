// Package speed turns the assembled route into a speed-limit profile: one
// limit per way, run-length encoded into segments, split at every stop.
package speed

import (
	"math"
	"strconv"
	"strings"

	"train-route-analyzer/internal/geo"
	"train-route-analyzer/internal/railway"
	"train-route-analyzer/internal/route"
)

// Limit is the permitted speed on a way in km/h. Min and Max bound the value
// for heuristic guesses and equal Value when the way is tagged.
type Limit struct {
	Value float64
	Min   float64
	Max   float64
	Exact bool
}

func (l Limit) clamp(vmax float64) Limit {
	l.Value = math.Min(l.Value, vmax)
	l.Min = math.Min(l.Min, vmax)
	l.Max = math.Min(l.Max, vmax)
	return l
}

// Classify returns the speed limit a train with top speed vmax meets on w
// when travelling in dir.
func Classify(w railway.Way, dir route.Direction, vmax float64) Limit {
	if v, ok := tagged(w.Tags, dir); ok {
		return Limit{Value: v, Min: v, Max: v, Exact: true}.clamp(vmax)
	}
	return estimate(w.Tags).clamp(vmax)
}

func tagged(t railway.Tags, dir route.Direction) (float64, bool) {
	switch dir {
	case route.Forward:
		if v, ok := ParseMaxspeed(t.MaxspeedForward); ok {
			return v, true
		}
	case route.Backward:
		if v, ok := ParseMaxspeed(t.MaxspeedBackward); ok {
			return v, true
		}
	}
	return ParseMaxspeed(t.Maxspeed)
}

// ParseMaxspeed reads a maxspeed value in km/h. Values suffixed with "mph"
// are converted; anything else that is not a plain number is rejected.
func ParseMaxspeed(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	mph := strings.HasSuffix(raw, "mph")
	if mph {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "mph"))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if mph {
		v = geo.MphToKmh(v)
	}
	return v, true
}

// estimate guesses a limit for ways without a usable maxspeed tag from the
// kind of track, its usage and its train protection.
func estimate(t railway.Tags) Limit {
	highspeedMax := 250.0
	if t.Highspeed == "no" {
		highspeedMax = 200
	}

	switch {
	case t.Railway == "tram" || t.Railway == "subway":
		switch {
		case t.IsServiceTrack():
			return Limit{Value: 30, Min: 15, Max: 40}
		case t.HasTrainProtection():
			return Limit{Value: 80, Min: 15, Max: 90}
		}
		return Limit{Value: 50, Min: 15, Max: 70}

	case t.Railway == "light_rail":
		if t.IsServiceTrack() {
			return Limit{Value: 30, Min: 25, Max: 60}
		}
		return Limit{Value: 80, Min: 30, Max: 120}

	case t.Highspeed == "yes":
		return Limit{Value: 250, Min: 200, Max: 320}

	case t.Usage == "main":
		v := 140.0
		if t.HasHighSpeedProtection() {
			v = 200
		}
		return Limit{Value: v, Min: 40, Max: highspeedMax}

	case t.Usage == "branch":
		return Limit{Value: 50, Min: 20, Max: 100}

	case t.IsServiceTrack():
		return Limit{Value: 60, Min: 20, Max: 120}
	}
	return Limit{Value: 100, Min: 20, Max: highspeedMax}
}
