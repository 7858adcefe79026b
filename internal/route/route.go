// Package route rebuilds the travelled track of a route relation from its
// ordered way members: travel direction per way, gap detection, distance
// from the start for every node, tag aggregates and map geometry.
package route

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"

	"train-route-analyzer/internal/geo"
	"train-route-analyzer/internal/railway"
)

type Direction int

const (
	Unknown Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// RouteWay is a way placed on the route.
type RouteWay struct {
	railway.Way
	Direction     Direction
	Length        float64 // km
	StartDistance float64 // km from route start to the way's travel start
}

// Assembly is the result of walking the relation's ways in order.
type Assembly struct {
	Ways         []RouteWay
	NodeDistance map[osm.NodeID]float64
	Distance     float64
	Gaps         int
	MissingWays  int
	MissingNodes int
	Aggregates   Aggregates
	Bounds       orb.Bound
	// Path holds the map polyline in travel order. A zero point marks a gap.
	Path []orb.Point
}

// tracker carries the endpoints of the last accepted way between steps.
type tracker struct {
	started bool
	first   osm.NodeID
	last    osm.NodeID
}

// step infers the direction of w relative to the last accepted way and
// returns the tracker advanced to w.
func (t tracker) step(w railway.Way) (Direction, tracker) {
	first, last := w.Nodes[0], w.Nodes[len(w.Nodes)-1]
	dir := Unknown
	switch {
	case !t.started:
	case first == t.last || first == t.first:
		dir = Forward
	case last == t.last || last == t.first:
		dir = Backward
	}
	return dir, tracker{started: true, first: first, last: last}
}

// Assemble walks the relation's track members in order. Members missing from
// the input and ways that are not rail track are skipped; neither moves the
// adjacency tracking.
func Assemble(in railway.Input) Assembly {
	a := Assembly{
		NodeDistance: make(map[osm.NodeID]float64),
		Aggregates:   newAggregates(),
	}
	var (
		t         tracker
		hasBounds bool
	)

	for _, m := range in.Relation.Members {
		if !m.IsTrack() {
			continue
		}
		w, ok := in.Ways[osm.WayID(m.Ref)]
		if !ok || len(w.Nodes) == 0 {
			a.MissingWays++
			continue
		}
		if !w.Tags.IsRailTrack() {
			continue
		}

		var dir Direction
		wasStarted := t.started
		dir, t = t.step(w)
		if dir == Unknown && wasStarted {
			a.Gaps++
		}

		offsets, missing := wayOffsets(w, in.Nodes)
		a.MissingNodes += missing
		rw := RouteWay{Way: w, Direction: dir, Length: offsets.length, StartDistance: a.Distance}

		for i, id := range w.Nodes {
			d, ok := offsets.at[id]
			if !ok {
				continue
			}
			if _, seen := a.NodeDistance[id]; seen && i == 0 {
				continue
			}
			if dir == Backward {
				d = rw.Length - d
			}
			a.NodeDistance[id] = rw.StartDistance + d
		}

		if dir == Unknown && wasStarted {
			a.Path = append(a.Path, orb.Point{0, 0})
		}
		for _, p := range travelPoints(w, dir, in.Nodes) {
			a.Path = append(a.Path, p)
			if !hasBounds {
				a.Bounds = orb.Bound{Min: p, Max: p}
				hasBounds = true
				continue
			}
			a.Bounds = a.Bounds.Extend(p)
		}

		a.Aggregates.add(w.Tags, rw.Length)
		a.Distance += rw.Length
		a.Ways = append(a.Ways, rw)
	}

	if a.MissingWays > 0 || a.MissingNodes > 0 {
		log.Debug().
			Int64("relation", int64(in.Relation.ID)).
			Int("missing_ways", a.MissingWays).
			Int("missing_nodes", a.MissingNodes).
			Msg("route geometry incomplete")
	}
	return a
}

type offsets struct {
	length float64
	at     map[osm.NodeID]float64
}

// wayOffsets measures the distance of every known node from the way's first
// node. Unknown nodes are left out of the geometry.
func wayOffsets(w railway.Way, nodes map[osm.NodeID]railway.Node) (offsets, int) {
	o := offsets{at: make(map[osm.NodeID]float64, len(w.Nodes))}
	missing := 0
	var prev *railway.Node
	for _, id := range w.Nodes {
		n, ok := nodes[id]
		if !ok {
			missing++
			continue
		}
		if prev != nil {
			o.length += geo.Distance(prev.Lat, prev.Lon, n.Lat, n.Lon)
		}
		o.at[id] = o.length
		prev = &n
	}
	return o, missing
}

func travelPoints(w railway.Way, dir Direction, nodes map[osm.NodeID]railway.Node) []orb.Point {
	points := make([]orb.Point, 0, len(w.Nodes))
	for _, id := range w.Nodes {
		if n, ok := nodes[id]; ok {
			points = append(points, orb.Point{n.Lon, n.Lat})
		}
	}
	if dir == Backward {
		for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
			points[i], points[j] = points[j], points[i]
		}
	}
	return points
}
