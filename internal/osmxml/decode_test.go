package osmxml

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-route-analyzer/internal/railway"
)

func TestDecode(t *testing.T) {
	f, err := os.Open("testdata/route.osm")
	require.NoError(t, err)
	defer f.Close()

	in, err := Decode(context.Background(), f, 7)
	require.NoError(t, err)

	assert.Equal(t, osm.RelationID(7), in.RouteID)
	assert.Len(t, in.Nodes, 3)
	assert.Len(t, in.Ways, 2)

	assert.Equal(t, "Mitte", in.Nodes[2].Tags.Name)
	assert.InDelta(t, 52.51, in.Nodes[2].Lat, 1e-9)

	w := in.Ways[100]
	assert.Equal(t, []osm.NodeID{1, 2}, w.Nodes)
	assert.Equal(t, "80 mph", w.Tags.Maxspeed)
	assert.Equal(t, "DB Netz", w.Tags.Operator)

	rel := in.Relation
	require.NoError(t, rel.Validate())
	assert.Equal(t, "RE 5", rel.Tags.Ref)
	assert.Equal(t, "Nord", rel.Tags.From)
	// inherited from the route master, which is listed first
	assert.Equal(t, "Regio AG", rel.Tags.Operator)
	assert.Equal(t, "red", rel.Tags.Unrecognized["colour"])

	// only the first copy of the relation provides members
	assert.Equal(t, []railway.Member{
		{Type: osm.TypeWay, Ref: 100},
		{Type: osm.TypeNode, Ref: 2, Role: "stop"},
		{Type: osm.TypeWay, Ref: 101, Role: "forward"},
		{Type: osm.TypeWay, Ref: 555},
	}, rel.Members)
}

func TestDecodeMissingRelation(t *testing.T) {
	doc := `<osm version="0.6"><node id="1" lat="1" lon="2"/></osm>`
	_, err := Decode(context.Background(), strings.NewReader(doc), 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRelationNotFound))
}
