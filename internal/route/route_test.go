package route

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-route-analyzer/internal/geo"
	"train-route-analyzer/internal/railway"
)

// step is the distance between two consecutive fixture nodes.
var step = geo.Distance(0, 0, 0.01, 0)

// lineNodes places nodes 1..n northwards along the prime meridian, 0.01° apart.
func lineNodes(n int) map[osm.NodeID]railway.Node {
	nodes := make(map[osm.NodeID]railway.Node, n)
	for i := 1; i <= n; i++ {
		nodes[osm.NodeID(i)] = railway.Node{ID: osm.NodeID(i), Lat: float64(i-1) / 100}
	}
	return nodes
}

func rail(id osm.WayID, nodes ...osm.NodeID) railway.Way {
	return railway.Way{ID: id, Nodes: nodes, Tags: railway.Tags{Railway: "rail"}}
}

func input(nodes map[osm.NodeID]railway.Node, ways ...railway.Way) railway.Input {
	in := railway.Input{
		RouteID:  1,
		Relation: railway.Relation{ID: 1, Tags: railway.Tags{Type: "route", Route: "train"}},
		Ways:     make(map[osm.WayID]railway.Way),
		Nodes:    nodes,
	}
	for _, w := range ways {
		in.Ways[w.ID] = w
		in.Relation.Members = append(in.Relation.Members, railway.Member{Type: osm.TypeWay, Ref: int64(w.ID)})
	}
	return in
}

func directions(a Assembly) []Direction {
	dirs := make([]Direction, len(a.Ways))
	for i, w := range a.Ways {
		dirs[i] = w.Direction
	}
	return dirs
}

func TestAssembleDirections(t *testing.T) {
	t.Run("forward chain", func(t *testing.T) {
		a := Assemble(input(lineNodes(3), rail(10, 1, 2), rail(11, 2, 3)))
		assert.Equal(t, []Direction{Unknown, Forward}, directions(a))
		assert.Equal(t, 0, a.Gaps)
		assert.InDelta(t, 2*step, a.Distance, 1e-9)
	})

	t.Run("backward way", func(t *testing.T) {
		a := Assemble(input(lineNodes(3), rail(10, 1, 2), rail(11, 3, 2)))
		assert.Equal(t, []Direction{Unknown, Backward}, directions(a))
		assert.InDelta(t, step, a.NodeDistance[2], 1e-9)
		assert.InDelta(t, 2*step, a.NodeDistance[3], 1e-9)
	})

	t.Run("first way reversed", func(t *testing.T) {
		// the second way starts at the first way's first node
		a := Assemble(input(lineNodes(3), rail(10, 2, 1), rail(11, 2, 3)))
		assert.Equal(t, []Direction{Unknown, Forward}, directions(a))
		assert.Equal(t, 0, a.Gaps)
	})

	t.Run("disconnected ways count one gap", func(t *testing.T) {
		a := Assemble(input(lineNodes(4), rail(10, 1, 2), rail(11, 3, 4)))
		assert.Equal(t, []Direction{Unknown, Unknown}, directions(a))
		assert.Equal(t, 1, a.Gaps)
	})
}

func TestAssembleSkipsNonRailWays(t *testing.T) {
	nodes := lineNodes(5)
	road := railway.Way{ID: 20, Nodes: []osm.NodeID{2, 5}, Tags: railway.Tags{Unrecognized: map[string]string{"highway": "primary"}}}
	a := Assemble(input(nodes, rail(10, 1, 2), road, rail(11, 2, 3)))

	require.Len(t, a.Ways, 2)
	assert.Equal(t, osm.WayID(11), a.Ways[1].ID)
	assert.Equal(t, Forward, a.Ways[1].Direction)
	assert.Equal(t, 0, a.Gaps)
	assert.InDelta(t, 2*step, a.Distance, 1e-9)
	_, ok := a.NodeDistance[5]
	assert.False(t, ok)
}

func TestAssembleMissingData(t *testing.T) {
	nodes := lineNodes(3)
	delete(nodes, 2)
	in := input(nodes, rail(10, 1, 2, 3))
	in.Relation.Members = append(in.Relation.Members, railway.Member{Type: osm.TypeWay, Ref: 99})

	a := Assemble(in)
	assert.Equal(t, 1, a.MissingWays)
	assert.Equal(t, 1, a.MissingNodes)
	require.Len(t, a.Ways, 1)
	assert.InDelta(t, 2*step, a.Ways[0].Length, 1e-9)
}

func TestAssembleIgnoresStopAndPlatformMembers(t *testing.T) {
	in := input(lineNodes(3), rail(10, 1, 2))
	platform := railway.Way{ID: 30, Nodes: []osm.NodeID{2, 3}, Tags: railway.Tags{Railway: "rail"}}
	in.Ways[platform.ID] = platform
	in.Relation.Members = append(in.Relation.Members,
		railway.Member{Type: osm.TypeWay, Ref: 30, Role: "platform"},
		railway.Member{Type: osm.TypeNode, Ref: 2, Role: "stop"},
	)

	a := Assemble(in)
	require.Len(t, a.Ways, 1)
	assert.InDelta(t, step, a.Distance, 1e-9)
}

func TestAssembleNodeDistances(t *testing.T) {
	a := Assemble(input(lineNodes(5), rail(10, 1, 2, 3), rail(11, 5, 4, 3)))

	require.Len(t, a.Ways, 2)
	assert.Equal(t, Backward, a.Ways[1].Direction)
	assert.InDelta(t, 2*step, a.Ways[1].StartDistance, 1e-9)

	for id, want := range map[osm.NodeID]float64{1: 0, 2: step, 3: 2 * step, 4: 3 * step, 5: 4 * step} {
		assert.InDelta(t, want, a.NodeDistance[id], 1e-9, "node %d", id)
	}

	// distances never exceed the route length
	for _, d := range a.NodeDistance {
		assert.LessOrEqual(t, d, a.Distance+1e-9)
	}
}

func TestAssemblePathAndBounds(t *testing.T) {
	nodes := lineNodes(4)
	a := Assemble(input(nodes, rail(10, 1, 2), rail(11, 3, 4), rail(12, 2, 3)))

	// second way is a gap, third way continues backward from way 11's first node
	assert.Equal(t, []Direction{Unknown, Unknown, Backward}, directions(a))
	assert.Equal(t, []orb.Point{
		{0, 0}, {0, 0.01},
		{0, 0},
		{0, 0.02}, {0, 0.03},
		{0, 0.02}, {0, 0.01},
	}, a.Path)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 0.03}}, a.Bounds)
}

func TestStops(t *testing.T) {
	nodes := lineNodes(3)
	named := nodes[2]
	named.Tags = railway.Tags{Name: "Mitte"}
	nodes[2] = named
	described := nodes[3]
	described.Tags = railway.Tags{Description: "End of line"}
	nodes[3] = described

	in := input(nodes, rail(10, 1, 2, 3))
	in.Ways[40] = railway.Way{ID: 40, Tags: railway.Tags{Name: "Bahnsteig 1"}}
	in.Relation.Members = append(in.Relation.Members,
		railway.Member{Type: osm.TypeNode, Ref: 2, Role: "stop"},
		railway.Member{Type: osm.TypeNode, Ref: 3, Role: "stop_exit_only"},
		railway.Member{Type: osm.TypeWay, Ref: 40, Role: "stop"},
		railway.Member{Type: osm.TypeNode, Ref: 77, Role: "stop"},
	)

	a := Assemble(in)
	stops := a.Stops(in)
	require.Len(t, stops, 4)
	assert.Equal(t, "Mitte", stops[0].Name)
	assert.True(t, stops[0].Located)
	assert.InDelta(t, step, stops[0].Distance, 1e-9)
	assert.Equal(t, "End of line", stops[1].Name)
	assert.Equal(t, "Bahnsteig 1", stops[2].Name)
	assert.False(t, stops[2].Located)
	assert.Equal(t, UnknownStopName, stops[3].Name)
	assert.False(t, stops[3].HasCoords)

	assert.Len(t, Located(stops), 2)
}
