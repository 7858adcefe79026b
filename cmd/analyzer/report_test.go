package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-route-analyzer/internal/analysis"
	"train-route-analyzer/internal/kinematics"
	"train-route-analyzer/internal/route"
	"train-route-analyzer/internal/summary"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		Status:    analysis.Success,
		RouteID:   7,
		Ref:       "RE 5",
		From:      "Nord",
		To:        "Süd",
		RouteType: "regional",
		Train:     kinematics.Train{Ref: "BR425", Name: "Quietschie"},
		Distance:  20,
		MaxLimit:  160,
		Stats:     summary.Stats{AverageSpeed: 72.4, MaxSpeed: 160, TravelTime: 16.6},
		Stops: []analysis.StopInfo{
			{Name: "Nord", Distance: 0, Located: true},
			{Name: "Mitte", Distance: 9.5, Located: true},
			{Name: "Bahnsteig 2"},
		},
		Aggregates: route.Aggregates{
			Operators:        map[string]float64{"DB Netz": 15},
			OperatorDistance: 15,
		},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "RE 5 (relation 7)")
	assert.Contains(t, out, "Nord / Süd")
	assert.Contains(t, out, "17 min")
	assert.Contains(t, out, "72.4 km/h")
	assert.Contains(t, out, "9.5 km")
	assert.Contains(t, out, "Bahnsteig 2")
	assert.Contains(t, out, "DB Netz")
	assert.Contains(t, out, "75.0 %")
	assert.Contains(t, out, "25.0 %")
	assert.NotContains(t, out, "Incomplete")
}

func TestWriteReportTrafficModes(t *testing.T) {
	res := sampleResult()
	res.Distance = 10
	res.Aggregates = route.Aggregates{
		TrafficModes:        map[string]float64{"passenger": 4, "bogus": 6},
		TrafficModeDistance: 10,
	}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "Traffic modes")
	assert.Regexp(t, `passenger\s+4\.0 km\s+40\.0 %`, out)
	assert.Regexp(t, `N/A\s+6\.0 km\s+60\.0 %`, out)
	assert.NotContains(t, out, "bogus")
}

func TestWriteReportFailure(t *testing.T) {
	var buf bytes.Buffer
	res := analysis.Result{Status: analysis.Failure, RouteID: 3, Err: errors.New("relation 3: no track")}
	require.NoError(t, writeReport(&buf, res))

	assert.Contains(t, buf.String(), "failure")
	assert.Contains(t, buf.String(), "relation 3: no track")
	assert.NotContains(t, buf.String(), "Travel time")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, sampleResult()))

	var msg map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
	assert.Equal(t, "RE 5", msg["ref"])
	assert.Equal(t, "success", msg["status"])
	assert.Len(t, msg["stops"], 3)
}

func TestWriteTrains(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTrains(&buf, kinematics.DefaultCatalog().All()))

	assert.Contains(t, buf.String(), "BR425 (default)")
	assert.Contains(t, buf.String(), "BR403")
}
