// Package kinematics models the traction and braking of a rail vehicle.
//
// Catalog values are SI (m/s², t, kN, kW). Route planning works in km and
// km/h, so every quantity is multiplied once by Scale, which turns m/s² into
// km/h². Mass, torque and power share the factor, so their ratios keep their
// SI meaning: torque/mass is m/s² and power/torque is m/s.
package kinematics

import "math"

// Scale converts m/s² to km/h² (3600 s/h × 3.6 km/h per m/s).
const Scale = 3600 * 3.6

const (
	// MinBrake is the comfort floor for service braking, m/s².
	MinBrake = 0.7
	// PassengerMass is the average mass of one passenger, t.
	PassengerMass = 0.080
	// ReferencePassengers is the nominal load used for route planning.
	ReferencePassengers = 200
)

// Train is a vehicle profile as stored in the catalog.
type Train struct {
	Ref          string  `yaml:"ref" json:"ref"`
	Name         string  `yaml:"name" json:"name"`
	Type         string  `yaml:"type" json:"type"`
	MaxSpeed     float64 `yaml:"max_speed" json:"maxSpeed"`        // km/h
	Acceleration float64 `yaml:"acceleration" json:"acceleration"` // m/s², informational
	Brake        float64 `yaml:"brake" json:"brake"`               // service deceleration, m/s²
	MassEmpty    float64 `yaml:"mass_empty" json:"massEmpty"`      // t
	Torque       float64 `yaml:"torque" json:"torque"`             // starting tractive effort, kN
	Power        float64 `yaml:"power" json:"power"`               // kW
	Seats        int     `yaml:"seats" json:"seats"`
	Length       float64 `yaml:"length" json:"length"` // m
}

// Dynamics holds a train's quantities in planning units.
type Dynamics struct {
	MaxSpeed            float64 // km/h
	NominalAcceleration float64 // km/h², catalog value
	Brake               float64 // km/h²
	Mass                float64
	Torque              float64
	Power               float64
	Passengers          int // load used by AccelerationDistance
}

// Scaled applies Scale to the physical quantities and floors the brake at
// MinBrake.
func (t Train) Scaled() Dynamics {
	return Dynamics{
		MaxSpeed:            t.MaxSpeed,
		NominalAcceleration: t.Acceleration * Scale,
		Brake:               math.Max(t.Brake, MinBrake) * Scale,
		Mass:                t.MassEmpty * Scale,
		Torque:              t.Torque * Scale,
		Power:               t.Power * Scale,
		Passengers:          ReferencePassengers,
	}
}

// CriticalSpeed is the speed (m/s) above which traction is power limited.
func (d Dynamics) CriticalSpeed() float64 {
	if d.Torque == 0 {
		return 0
	}
	return d.Power / d.Torque
}

// Acceleration returns the mean acceleration in km/h² when going from v1 to
// v2 km/h with the given number of passengers on board. Below the critical
// speed the tractive effort is constant; above it the power is, so a falls
// with 1/v and the mean over the speed range is a logarithm.
func (d Dynamics) Acceleration(v1, v2 float64, passengers int) float64 {
	if v1 == v2 {
		return 0
	}
	mass := d.Mass + float64(passengers)*PassengerMass*Scale
	if mass <= 0 || d.Torque <= 0 {
		return 0
	}
	aMax := d.Torque / mass
	ms1, ms2 := v1/3.6, v2/3.6
	vk := d.CriticalSpeed()
	// mean of P/(m·v) between a and b
	powerMean := func(a, b float64) float64 {
		return d.Power / mass * math.Log(a/b) / (a - b)
	}

	var a float64
	switch {
	case ms1 <= vk && ms2 <= vk:
		a = aMax
	case ms1 >= vk && ms2 >= vk:
		a = powerMean(ms1, ms2)
	case ms1 < vk:
		a = (powerMean(ms2, vk)*(ms2-vk) + aMax*(vk-ms1)) / (ms2 - ms1)
	default:
		a = (powerMean(ms1, vk)*(ms1-vk) + aMax*(vk-ms2)) / (ms1 - ms2)
	}
	return a * Scale
}

// BrakingDistance returns the distance in km needed to slow from v1 to v2 km/h.
func (d Dynamics) BrakingDistance(v1, v2 float64) float64 {
	if d.Brake <= 0 {
		return math.Inf(1)
	}
	return (v1*v1 - v2*v2) / (2 * d.Brake)
}

// AccelerationDistance returns the distance in km needed to speed up from v1
// to v2 km/h carrying d.Passengers.
func (d Dynamics) AccelerationDistance(v1, v2 float64) float64 {
	a := d.Acceleration(v1, v2, d.Passengers)
	if a <= 0 {
		return math.Inf(1)
	}
	return (v2*v2 - v1*v1) / (2 * a)
}
