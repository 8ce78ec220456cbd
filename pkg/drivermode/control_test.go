package drivermode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

func TestDeadband(t *testing.T) {
	for v := -127; v <= 127; v++ {
		got := Deadband(v, 15)
		if v > -15 && v < 15 {
			assert.Equal(t, 0, got, "input %d", v)
		} else {
			assert.Equal(t, v, got, "input %d", v)
		}
	}
	assert.Equal(t, 0, Deadband(10, 15))
	assert.Equal(t, 20, Deadband(20, 15))
	assert.Equal(t, 15, Deadband(15, 15))
	assert.Equal(t, 1, Deadband(1, 0))
}

func TestToggleParity(t *testing.T) {
	for _, initial := range []bool{false, true} {
		tog := NewToggle(initial)
		for presses := 1; presses <= 7; presses++ {
			// Held for several ticks, then released for a couple.
			for i := 0; i < 5; i++ {
				tog.Update(true)
			}
			tog.Update(false)
			tog.Update(false)
			assert.Equal(t, initial != (presses%2 == 1), tog.State, "initial %v after %d presses", initial, presses)
		}
	}
}

func TestToggleHeldDoesNotRetrigger(t *testing.T) {
	tog := NewToggle(false)
	assert.True(t, tog.Update(true))
	for i := 0; i < 100; i++ {
		assert.True(t, tog.Update(true))
	}
	assert.True(t, tog.Update(false))
	assert.False(t, tog.Update(true))
}

func TestCatapultBand(t *testing.T) {
	cfg := DefaultConfig()

	// Trigger held: always full power, whatever the angle or sensor.
	for _, a := range []float64{0, 55, 100, 349, 359} {
		assert.Equal(t, 127, cfg.CatapultCommand(true, a, nil))
	}
	assert.Equal(t, 127, cfg.CatapultCommand(true, 0, hardware.ErrSensorFault))

	// Released, winding up through the band...
	up := []float64{0, 30, 54.9, 55, 55.1, 200, 349.9, 350, 355}
	wantUp := []int{127, 127, 127, 127, 0, 0, 0, 127, 127}
	for i, a := range up {
		assert.Equal(t, wantUp[i], cfg.CatapultCommand(false, a, nil), "angle %v", a)
	}
	// ...and coming back down through it.
	for i := len(up) - 1; i >= 0; i-- {
		assert.Equal(t, wantUp[i], cfg.CatapultCommand(false, up[i], nil), "angle %v", up[i])
	}

	// Released with a faulty sensor: stop.
	assert.Equal(t, 0, cfg.CatapultCommand(false, 0, hardware.SensorFault("rotation", assert.AnError)))
}

func TestIntakeMappings(t *testing.T) {
	type step struct {
		l1, l2 bool
		want   int
	}
	for _, tc := range []struct {
		mapping IntakeMapping
		steps   []step
	}{
		{IntakeCrossGated, []step{
			{false, false, 0},
			{false, true, 127},
			{true, true, 127}, // both held: keep previous
			{true, false, -127},
			{true, true, -127},
			{false, false, 0},
		}},
		{IntakeSelfGated, []step{
			{false, false, 0},
			{true, false, 0},
			{false, true, 0},
			{true, true, 0},
		}},
		{IntakeDirect, []step{
			{true, false, 127},
			{false, true, -127},
			{true, true, 0},
			{false, false, 0},
		}},
	} {
		t.Run(string(tc.mapping), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.IntakeMapping = tc.mapping
			prev := 0
			for i, s := range tc.steps {
				prev = cfg.IntakeCommand(s.l1, s.l2, prev)
				assert.Equal(t, s.want, prev, "step %d", i)
			}
		})
	}
}

func TestSelfGatedKeepsPreviousWhenBothHeld(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IntakeMapping = IntakeSelfGated
	assert.Equal(t, 55, cfg.IntakeCommand(true, true, 55))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Deadband = 200
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.CatapultOpenLow, bad.CatapultOpenHigh = 350, 55
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.IntakeMapping = "sideways"
	assert.Error(t, bad.Validate())
}

// The scenario: deadband 15, two presses of A, and the catapult rotation
// sweeping 10, 60, 300, 400 degrees with the trigger released.
func TestDriverControlScenario(t *testing.T) {
	cfg := DefaultConfig()
	s := NewDriverControlState(cfg, false, false)

	out := s.Update(Input{LeftY: 10}, 10, nil)
	assert.Equal(t, 0, out.Left)
	assert.Equal(t, 127, out.Catapult, "angle 10: outside the band, keep winding")

	out = s.Update(Input{LeftY: 20, A: true}, 60, nil)
	assert.Equal(t, 20, out.Left)
	assert.True(t, out.Wings)
	assert.Equal(t, 0, out.Catapult, "angle 60: inside the band, stop")

	out = s.Update(Input{LeftY: 20, A: true}, 300, nil)
	assert.True(t, out.Wings, "held, no new edge")
	assert.Equal(t, 0, out.Catapult, "angle 300: still inside")

	out = s.Update(Input{}, 400, nil)
	assert.True(t, out.Wings)
	assert.Equal(t, 127, out.Catapult, "angle 400: outside again, wind")

	out = s.Update(Input{A: true}, 400, nil)
	assert.False(t, out.Wings, "second press")
	assert.False(t, out.Blocker)
}
