package route

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-route-analyzer/internal/railway"
)

func TestAggregates(t *testing.T) {
	ways := []railway.Way{
		{ID: 10, Nodes: []osm.NodeID{1, 2}, Tags: railway.Tags{
			Railway: "rail", Operator: "DB Netz", TrafficMode: "mixed",
			Electrified: "contact_line", Voltage: "15000", Frequency: "16.7", Bridge: "yes",
		}},
		{ID: 11, Nodes: []osm.NodeID{2, 3}, Tags: railway.Tags{
			Railway: "tram", Electrified: "contact_line", Tunnel: "yes", Embankment: "no",
		}},
		{ID: 12, Nodes: []osm.NodeID{3, 4}, Tags: railway.Tags{
			Railway: "rail", Operator: "DB Netz", TrafficMode: "shunting", Electrified: "no",
		}},
	}
	a := Assemble(input(lineNodes(4), ways...)).Aggregates

	assert.InDelta(t, 2*step, a.Operators["DB Netz"], 1e-9)
	assert.InDelta(t, 2*step, a.OperatorDistance, 1e-9)

	assert.InDelta(t, step, a.TrafficModes["mixed"], 1e-9)
	assert.InDelta(t, step, a.TrafficModes["passenger"], 1e-9)
	assert.InDelta(t, step, a.TrafficModes["shunting"], 1e-9)
	assert.InDelta(t, 3*step, a.TrafficModeDistance, 1e-9)
	assert.InDelta(t, 2*step, a.ValidTrafficModeDistance(), 1e-9)
	assert.NotContains(t, a.ValidTrafficModes(), "shunting")
	assert.Len(t, a.ValidTrafficModes(), 2)

	assert.InDelta(t, step, a.Electrification["15000;16.7"], 1e-9)
	assert.InDelta(t, step, a.Electrification["N/A;N/A"], 1e-9)
	assert.InDelta(t, step, a.Electrification["no"], 1e-9)
	assert.InDelta(t, 3*step, a.ElectrifiedDistance, 1e-9)

	assert.InDelta(t, step, a.Structures["bridge"], 1e-9)
	assert.InDelta(t, step, a.Structures["tunnel"], 1e-9)
	assert.NotContains(t, a.Structures, "embankment")
	assert.InDelta(t, 2*step, a.BuildingDistance, 1e-9)
}

func TestBreakdown(t *testing.T) {
	shares := Breakdown(map[string]float64{"A": 30, "B": 50}, 80, 100)
	require.Len(t, shares, 3)
	assert.Equal(t, Share{Key: "B", Distance: 50, Percent: 50}, shares[0])
	assert.Equal(t, Share{Key: "A", Distance: 30, Percent: 30}, shares[1])
	assert.Equal(t, Share{Key: NotAvailable, Distance: 20, Percent: 20}, shares[2])

	assert.Len(t, Breakdown(map[string]float64{"A": 10}, 10, 10), 1)
	assert.Nil(t, Breakdown(nil, 0, 0))
}
