// Package railway defines the parsed OSM input the analyzer works on: nodes,
// ways, the route relation and its members, all with a closed tag schema.
package railway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/osm"
)

// ErrUnusableRoute is returned when the relation is not a rail route.
var ErrUnusableRoute = errors.New("relation is not a usable rail route")

type Node struct {
	ID   osm.NodeID
	Lat  float64
	Lon  float64
	Tags Tags
}

type Way struct {
	ID    osm.WayID
	Nodes []osm.NodeID
	Tags  Tags
}

// Member is a relation member in document order.
type Member struct {
	Type osm.Type
	Ref  int64
	Role string
}

// IsStop reports a stop member (role "stop", "stop_exit_only", ...).
func (m Member) IsStop() bool {
	return m.Role == "stop" || strings.Contains(m.Role, "stop_")
}

// IsTrack reports whether a way member is part of the travelled track, i.e.
// not a stop position or platform.
func (m Member) IsTrack() bool {
	return m.Type == osm.TypeWay && !strings.Contains(m.Role, "stop") && !strings.Contains(m.Role, "platform")
}

type Relation struct {
	ID      osm.RelationID
	Tags    Tags
	Members []Member
}

// Input is everything one analysis needs, restricted to a single relation.
type Input struct {
	RouteID  osm.RelationID
	Relation Relation
	Ways     map[osm.WayID]Way
	Nodes    map[osm.NodeID]Node
}

// Stops returns the stop members in relation order.
func (r Relation) Stops() []Member {
	var stops []Member
	for _, m := range r.Members {
		if m.IsStop() {
			stops = append(stops, m)
		}
	}
	return stops
}

// Validate checks that the relation describes a rail route the analyzer can run on.
func (r Relation) Validate() error {
	if r.Tags.Type != "route" {
		return fmt.Errorf("relation %d: type %q: %w", r.ID, r.Tags.Type, ErrUnusableRoute)
	}
	switch r.Tags.Route {
	case "train", "tram", "light_rail", "subway", "rail":
		return nil
	}
	return fmt.Errorf("relation %d: route %q: %w", r.ID, r.Tags.Route, ErrUnusableRoute)
}

// RouteType classifies the service for display and persistence.
func (r Relation) RouteType() string {
	switch r.Tags.Route {
	case "train":
		switch r.Tags.Service {
		case "high_speed", "long_distance", "night", "car", "car_shuttle", "regional", "commuter":
			return r.Tags.Service
		}
		return "unknown"
	case "light_rail", "subway":
		return r.Tags.Route
	case "tram":
		return "tram"
	}
	return "unknown"
}
