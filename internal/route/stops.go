package route

import (
	"github.com/paulmach/osm"

	"train-route-analyzer/internal/railway"
)

// UnknownStopName labels stops without a usable name.
const UnknownStopName = "Unknown stop"

// Stop is a stop member of the relation. Distance is only meaningful when
// Located is set, i.e. the stop node lies on the assembled track.
type Stop struct {
	Distance  float64
	Located   bool
	Node      osm.NodeID
	Lat       float64
	Lon       float64
	HasCoords bool
	Name      string
}

// Stops lists the relation's stop members in relation order with their
// display names and, where known, their distance from the route start.
func (a Assembly) Stops(in railway.Input) []Stop {
	members := in.Relation.Stops()
	stops := make([]Stop, 0, len(members))
	for _, m := range members {
		s := Stop{Name: UnknownStopName}
		switch m.Type {
		case osm.TypeNode:
			s.Node = osm.NodeID(m.Ref)
			if n, ok := in.Nodes[s.Node]; ok {
				s.Lat, s.Lon, s.HasCoords = n.Lat, n.Lon, true
				switch {
				case n.Tags.Name != "":
					s.Name = n.Tags.Name
				case n.Tags.Description != "":
					s.Name = n.Tags.Description
				}
			}
			s.Distance, s.Located = a.NodeDistance[s.Node]
		case osm.TypeWay:
			if w, ok := in.Ways[osm.WayID(m.Ref)]; ok && w.Tags.Name != "" {
				s.Name = w.Tags.Name
			}
		}
		stops = append(stops, s)
	}
	return stops
}

// Located filters stops down to those with a known route distance.
func Located(stops []Stop) []Stop {
	var out []Stop
	for _, s := range stops {
		if s.Located {
			out = append(out, s)
		}
	}
	return out
}
