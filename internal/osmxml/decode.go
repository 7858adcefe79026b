// Package osmxml reads an OSM XML document, as returned by the Overpass API,
// into the analyzer's input model for a single route relation.
package osmxml

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/osm"
	osmscan "github.com/paulmach/osm/osmxml"

	"train-route-analyzer/internal/railway"
)

// ErrRelationNotFound is returned when the document lacks the requested relation.
var ErrRelationNotFound = errors.New("relation not found in document")

// Decode reads all nodes and ways of the document and the members of relation
// id. Tags of every route and route_master relation in the document are
// merged into the route's tags, first value wins; a route_master never
// contributes its type.
func Decode(ctx context.Context, r io.Reader, id osm.RelationID) (railway.Input, error) {
	in := railway.Input{
		RouteID:  id,
		Relation: railway.Relation{ID: id},
		Ways:     make(map[osm.WayID]railway.Way),
		Nodes:    make(map[osm.NodeID]railway.Node),
	}
	found := false

	scanner := osmscan.New(ctx, r)
	defer scanner.Close()

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			in.Nodes[o.ID] = railway.Node{ID: o.ID, Lat: o.Lat, Lon: o.Lon, Tags: railway.ParseTags(o.Tags.Map())}
		case *osm.Way:
			in.Ways[o.ID] = railway.Way{ID: o.ID, Nodes: o.Nodes.NodeIDs(), Tags: railway.ParseTags(o.Tags.Map())}
		case *osm.Relation:
			mergeRouteTags(&in.Relation.Tags, o.Tags)
			if o.ID != id || found {
				continue
			}
			found = true
			for _, m := range o.Members {
				in.Relation.Members = append(in.Relation.Members, railway.Member{Type: m.Type, Ref: m.Ref, Role: m.Role})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return railway.Input{}, fmt.Errorf("decode osm xml: %w", err)
	}
	if !found {
		return railway.Input{}, fmt.Errorf("relation %d: %w", id, ErrRelationNotFound)
	}
	return in, nil
}

func mergeRouteTags(dst *railway.Tags, tags osm.Tags) {
	kind := tags.Find("type")
	if kind != "route" && kind != "route_master" {
		return
	}
	for _, t := range tags {
		if _, set := dst.Lookup(t.Key); set {
			continue
		}
		if t.Key == "type" && t.Value != "route" {
			continue
		}
		dst.Set(t.Key, t.Value)
	}
}
