package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"train-route-analyzer/internal/analysis"
	"train-route-analyzer/internal/kinematics"
	"train-route-analyzer/internal/publisher"
	"train-route-analyzer/internal/route"
)

func writeJSON(w io.Writer, res analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(publisher.NewRouteMessage(res, time.Now()))
}

func writeReport(w io.Writer, res analysis.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Route\t%s (relation %d)\n", orDash(res.Ref), res.RouteID)
	if res.From != "" || res.To != "" {
		fmt.Fprintf(tw, "From / to\t%s / %s\n", orDash(res.From), orDash(res.To))
	}
	fmt.Fprintf(tw, "Status\t%s\n", res.Status)
	if res.Status == analysis.Failure {
		fmt.Fprintf(tw, "Error\t%v\n", res.Err)
		return tw.Flush()
	}
	fmt.Fprintf(tw, "Type\t%s\n", res.RouteType)
	fmt.Fprintf(tw, "Train\t%s %s\n", res.Train.Ref, res.Train.Name)
	fmt.Fprintf(tw, "Distance\t%.1f km\n", res.Distance)
	fmt.Fprintf(tw, "Travel time\t%.0f min\n", res.Stats.TravelTime)
	fmt.Fprintf(tw, "Average speed\t%.1f km/h\n", res.Stats.AverageSpeed)
	fmt.Fprintf(tw, "Max speed\t%.0f km/h (limit %.0f km/h)\n", res.Stats.MaxSpeed, res.MaxLimit)
	if res.Gaps > 0 || res.MissingWays > 0 || res.MissingNodes > 0 {
		fmt.Fprintf(tw, "Incomplete\t%d gaps, %d ways and %d nodes missing\n", res.Gaps, res.MissingWays, res.MissingNodes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Stops) > 0 {
		fmt.Fprintln(w, "\nStops")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, s := range res.Stops {
			if s.Located {
				fmt.Fprintf(tw, "%.1f km\t  %s\t\n", s.Distance, s.Name)
			} else {
				fmt.Fprintf(tw, "-\t  %s\t\n", s.Name)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	a := res.Aggregates
	sections := []struct {
		title   string
		values  map[string]float64
		covered float64
	}{
		{"Operators", a.Operators, a.OperatorDistance},
		{"Traffic modes", a.ValidTrafficModes(), a.ValidTrafficModeDistance()},
		{"Electrification", a.Electrification, a.ElectrifiedDistance},
		{"Structures", a.Structures, a.BuildingDistance},
	}
	for _, sec := range sections {
		shares := route.Breakdown(sec.values, sec.covered, res.Distance)
		if len(shares) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", sec.title)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, s := range shares {
			fmt.Fprintf(tw, "  %s\t%.1f km\t%.1f %%\n", s.Key, s.Distance, s.Percent)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func writeTrains(w io.Writer, trains []kinematics.Train) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tNAME\tTYPE\tVMAX\tSEATS")
	for _, t := range trains {
		def := ""
		if t.Ref == kinematics.DefaultRef {
			def = " (default)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%.0f km/h\t%d\n", t.Ref, def, t.Name, t.Type, t.MaxSpeed, t.Seats)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
