package route

import (
	"math"
	"sort"

	"train-route-analyzer/internal/railway"
)

// NotAvailable stands in for voltage or frequency values that are not tagged.
const NotAvailable = "N/A"

// Aggregates sums way lengths (km) per tag value. Every *Distance field is the
// length covered by the tag at all, so the untagged rest is Distance minus it.
type Aggregates struct {
	Operators        map[string]float64
	OperatorDistance float64

	TrafficModes        map[string]float64
	TrafficModeDistance float64

	Electrification     map[string]float64
	ElectrifiedDistance float64

	Structures       map[string]float64
	BuildingDistance float64
}

func newAggregates() Aggregates {
	return Aggregates{
		Operators:       make(map[string]float64),
		TrafficModes:    make(map[string]float64),
		Electrification: make(map[string]float64),
		Structures:      make(map[string]float64),
	}
}

func (a *Aggregates) add(t railway.Tags, length float64) {
	if t.Operator != "" {
		a.Operators[t.Operator] += length
		a.OperatorDistance += length
	}

	mode := t.TrafficMode
	if mode == "" {
		switch t.Railway {
		case "tram", "light_rail", "subway":
			mode = "passenger"
		}
	}
	if mode != "" {
		a.TrafficModes[mode] += length
		a.TrafficModeDistance += length
	}

	if t.Electrified != "" {
		a.Electrification[electrificationClass(t)] += length
		a.ElectrifiedDistance += length
	}

	for _, kind := range t.Structures() {
		a.Structures[kind] += length
		a.BuildingDistance += length
	}
}

func electrificationClass(t railway.Tags) string {
	if t.Electrified == "no" {
		return "no"
	}
	voltage, frequency := t.Voltage, t.Frequency
	if voltage == "" {
		voltage = NotAvailable
	}
	if frequency == "" {
		frequency = NotAvailable
	}
	return voltage + ";" + frequency
}

// ValidTrafficMode reports the traffic modes the analyzer knows how to label.
func ValidTrafficMode(mode string) bool {
	switch mode {
	case "mixed", "passenger", "freight":
		return true
	}
	return false
}

// ValidTrafficModes returns TrafficModes without the modes ValidTrafficMode
// rejects.
func (a Aggregates) ValidTrafficModes() map[string]float64 {
	out := make(map[string]float64, len(a.TrafficModes))
	for mode, length := range a.TrafficModes {
		if ValidTrafficMode(mode) {
			out[mode] = length
		}
	}
	return out
}

// ValidTrafficModeDistance is the traffic-mode coverage without modes outside
// mixed, passenger and freight. Each invalid mode is subtracted once.
func (a Aggregates) ValidTrafficModeDistance() float64 {
	d := a.TrafficModeDistance
	for mode, length := range a.TrafficModes {
		if !ValidTrafficMode(mode) {
			d -= length
		}
	}
	return math.Max(d, 0)
}

// Share is one entry of a percentage breakdown.
type Share struct {
	Key      string
	Distance float64
	Percent  float64
}

// Breakdown turns per-value sums into shares of total, largest first. When
// the covered distance is below total the remainder is reported as N/A.
func Breakdown(values map[string]float64, covered, total float64) []Share {
	if total <= 0 {
		return nil
	}
	shares := make([]Share, 0, len(values)+1)
	for k, v := range values {
		shares = append(shares, Share{Key: k, Distance: v, Percent: percent(v, total)})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Distance != shares[j].Distance {
			return shares[i].Distance > shares[j].Distance
		}
		return shares[i].Key < shares[j].Key
	})
	if rest := total - covered; covered < total {
		shares = append(shares, Share{Key: NotAvailable, Distance: rest, Percent: percent(rest, total)})
	}
	return shares
}

func percent(part, total float64) float64 {
	return math.Round(part/total*1000) / 10
}
