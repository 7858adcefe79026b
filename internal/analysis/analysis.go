// Package analysis runs the whole pipeline for one route relation: assembly,
// speed profile, stops, planning and summary.
package analysis

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"

	"train-route-analyzer/internal/kinematics"
	"train-route-analyzer/internal/railway"
	"train-route-analyzer/internal/route"
	"train-route-analyzer/internal/schedule"
	"train-route-analyzer/internal/speed"
	"train-route-analyzer/internal/summary"
)

// ErrNoTrack is returned for a valid relation without any usable rail way.
var ErrNoTrack = errors.New("route has no rail track")

type Status int

const (
	Success Status = iota
	// Partial means the result was computed from incomplete or gapped data.
	Partial
	Failure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Partial:
		return "partial"
	default:
		return "failure"
	}
}

// StopInfo is a stop as shown to users.
type StopInfo struct {
	Name      string
	Distance  float64
	Located   bool
	HasCoords bool
	Lat       float64
	Lon       float64
}

// Result is the outcome of one analysis. It is built once and not modified
// afterwards.
type Result struct {
	Status  Status
	Err     error
	RouteID osm.RelationID

	Ref       string
	Name      string
	From      string
	To        string
	Operator  string
	RouteType string
	Train     kinematics.Train

	Distance     float64
	Gaps         int
	MissingWays  int
	MissingNodes int
	Aggregates   route.Aggregates
	Bounds       orb.Bound
	Path         []orb.Point

	Profile    speed.Profile
	MaxLimit   float64
	Events     []schedule.Event
	Trajectory schedule.Trajectory
	Stops      []StopInfo
	Stats      summary.Stats
}

// Option adjusts how a route is analyzed.
type Option func(*kinematics.Dynamics)

// WithPassengers sets the load used for acceleration distances.
func WithPassengers(n int) Option {
	return func(d *kinematics.Dynamics) { d.Passengers = n }
}

// Analyze computes the speed profile of the relation in in for train. It never
// panics on bad map data; unusable input is reported through Status and Err.
func Analyze(in railway.Input, train kinematics.Train, opts ...Option) Result {
	rel := in.Relation
	id := in.RouteID
	if id == 0 {
		id = rel.ID
	}
	res := Result{
		RouteID:   id,
		Ref:       rel.Tags.Ref,
		Name:      rel.Tags.Name,
		From:      rel.Tags.From,
		To:        rel.Tags.To,
		Operator:  rel.Tags.Operator,
		RouteType: rel.RouteType(),
		Train:     train,
	}
	if err := rel.Validate(); err != nil {
		return failed(res, err)
	}

	asm := route.Assemble(in)
	res.Distance = asm.Distance
	res.Gaps = asm.Gaps
	res.MissingWays = asm.MissingWays
	res.MissingNodes = asm.MissingNodes
	res.Aggregates = asm.Aggregates
	res.Bounds = asm.Bounds
	res.Path = asm.Path
	if len(asm.Ways) == 0 {
		return failed(res, fmt.Errorf("relation %d: %w", id, ErrNoTrack))
	}

	stops := asm.Stops(in)
	profile := speed.BuildProfile(asm.Ways, train.MaxSpeed)
	res.MaxLimit = profile.MaxLimit()
	res.Profile = speed.InsertStops(profile, stops)
	dyn := train.Scaled()
	for _, o := range opts {
		o(&dyn)
	}
	res.Events = schedule.Plan(res.Profile, dyn)
	res.Trajectory = schedule.NewTrajectory(res.Events)
	res.Stats = summary.Compute(res.Trajectory, res.Distance)

	res.Stops = make([]StopInfo, 0, len(stops))
	for _, s := range stops {
		res.Stops = append(res.Stops, StopInfo{
			Name:      s.Name,
			Distance:  s.Distance,
			Located:   s.Located,
			HasCoords: s.HasCoords,
			Lat:       s.Lat,
			Lon:       s.Lon,
		})
	}

	res.Status = Success
	if asm.Gaps > 0 || asm.MissingWays > 0 || asm.MissingNodes > 0 {
		res.Status = Partial
	}

	log.Debug().
		Int64("relation", int64(id)).
		Str("train", train.Ref).
		Float64("distance_km", res.Distance).
		Int("segments", len(res.Profile)).
		Int("events", len(res.Events)).
		Float64("travel_time_min", res.Stats.TravelTime).
		Str("status", res.Status.String()).
		Msg("route analyzed")
	return res
}

func failed(res Result, err error) Result {
	res.Status = Failure
	res.Err = err
	return res
}
