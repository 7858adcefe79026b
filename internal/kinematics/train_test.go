package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var br425 = Train{Ref: "BR425", MaxSpeed: 160, Acceleration: 1.0, Brake: 0.9, MassEmpty: 114, Torque: 160, Power: 2350}

func TestScaled(t *testing.T) {
	assert.Equal(t, 12960.0, float64(Scale))

	d := br425.Scaled()
	assert.Equal(t, 160.0, d.MaxSpeed)
	assert.InDelta(t, 1.0*Scale, d.NominalAcceleration, 1e-9)
	assert.Equal(t, ReferencePassengers, d.Passengers)
	assert.Positive(t, d.Acceleration(0, 40, d.Passengers))
	assert.InDelta(t, 0.9*Scale, d.Brake, 1e-9)
	assert.InDelta(t, 114*Scale, d.Mass, 1e-9)
	assert.InDelta(t, 2350.0/160.0, d.CriticalSpeed(), 1e-12)

	weak := br425
	weak.Brake = 0.5
	assert.InDelta(t, MinBrake*Scale, weak.Scaled().Brake, 1e-9)
}

func TestAcceleration(t *testing.T) {
	d := br425.Scaled()
	vk := d.CriticalSpeed() * 3.6 // km/h

	t.Run("no speed change", func(t *testing.T) {
		for _, v := range []float64{0, 40, vk, 140} {
			assert.Zero(t, d.Acceleration(v, v, ReferencePassengers))
		}
	})

	t.Run("torque limited below critical speed", func(t *testing.T) {
		assert.InDelta(t, 160.0/114.0*Scale, d.Acceleration(0, 40, 0), 1e-6)
		assert.InDelta(t, 160.0/130.0*Scale, d.Acceleration(0, 40, 200), 1e-6)
	})

	t.Run("power limited above critical speed", func(t *testing.T) {
		v1, v2 := 80/3.6, 120/3.6
		want := 2350.0 / 130.0 * math.Log(v1/v2) / (v1 - v2) * Scale
		assert.InDelta(t, want, d.Acceleration(80, 120, 200), 1e-6)
		assert.Greater(t, d.Acceleration(60, 80, 200), d.Acceleration(120, 140, 200))
	})

	t.Run("continuous at critical speed", func(t *testing.T) {
		const eps = 1e-6
		below := d.Acceleration(0, vk-eps, 200)
		above := d.Acceleration(0, vk+eps, 200)
		assert.InEpsilon(t, below, above, 1e-6)

		high := d.Acceleration(vk-eps, 140, 200)
		exact := d.Acceleration(vk, 140, 200)
		assert.InEpsilon(t, high, exact, 1e-6)
	})

	t.Run("straddling blends both regimes", func(t *testing.T) {
		a := d.Acceleration(0, 100, 200)
		assert.Less(t, a, 160.0/130.0*Scale)
		assert.Greater(t, a, d.Acceleration(vk, 100, 200))
		assert.InDelta(t, a, d.Acceleration(100, 0, 200), 1e-9)
	})
}

func TestDistances(t *testing.T) {
	d := Dynamics{Brake: Scale, Mass: 100 * Scale, Torque: 100 * Scale, Power: 100000 * Scale, Passengers: ReferencePassengers}

	assert.InDelta(t, 100.0*100.0/(2*Scale), d.BrakingDistance(100, 0), 1e-12)
	assert.InDelta(t, (100.0*100.0-60.0*60.0)/(2*Scale), d.BrakingDistance(100, 60), 1e-12)

	// critical speed 1000 m/s keeps everything torque limited
	a := d.Acceleration(0, 100, ReferencePassengers)
	assert.InDelta(t, 100.0/116.0*Scale, a, 1e-6)
	assert.InDelta(t, 100.0*100.0/(2*a), d.AccelerationDistance(0, 100), 1e-12)

	empty := d
	empty.Passengers = 0
	assert.Less(t, empty.AccelerationDistance(0, 100), d.AccelerationDistance(0, 100))

	assert.True(t, math.IsInf(Dynamics{}.BrakingDistance(50, 0), 1))
	assert.True(t, math.IsInf(d.AccelerationDistance(50, 50), 1))
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()

	tr, ok := c.Lookup("BR403")
	require.True(t, ok)
	assert.Equal(t, 300.0, tr.MaxSpeed)

	for _, ref := range []string{"", "does-not-exist"} {
		tr, ok := c.Lookup(ref)
		assert.False(t, ok)
		assert.Equal(t, DefaultRef, tr.Ref)
	}

	all := c.All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Ref, all[i].Ref)
	}
}

func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  string
	}{
		{"ok", `
trains:
  - {ref: BR425, name: A, max_speed: 160, mass_empty: 114, torque: 160, power: 2350}
`, ""},
		{"missing default", `
trains:
  - {ref: X, max_speed: 160, mass_empty: 114, torque: 160, power: 2350}
`, "default train"},
		{"duplicate", `
trains:
  - {ref: BR425, max_speed: 160, mass_empty: 114, torque: 160, power: 2350}
  - {ref: BR425, max_speed: 160, mass_empty: 114, torque: 160, power: 2350}
`, "duplicate"},
		{"zero power", `
trains:
  - {ref: BR425, max_speed: 160, mass_empty: 114, torque: 160}
`, "must be positive"},
		{"not yaml", "trains: [", "parse train catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadCatalog([]byte(tt.data))
			if tt.err == "" {
				require.NoError(t, err)
				assert.Len(t, c.All(), 1)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}
