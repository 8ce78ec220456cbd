package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPDDerivativeIsPerUpdate(t *testing.T) {
	pd := &PD{KP: 10, KD: 30}
	// No derivative on the first update.
	assert.Equal(t, 100.0, pd.Update(10))
	assert.Equal(t, 80.0-30.0*2, pd.Update(8))
	pd.Reset()
	assert.Equal(t, 80.0, pd.Update(8))
}

func TestSlew(t *testing.T) {
	assert.Equal(t, 20.0, Slew(127, 0, 20))
	assert.Equal(t, -20.0, Slew(-127, 0, 20))
	assert.Equal(t, 5.0, Slew(5, 0, 20))
	assert.Equal(t, 127.0, Slew(127, 0, 0), "zero means unlimited")
}

func TestExitCondition(t *testing.T) {
	start := time.Unix(1000, 0)
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }
	e := &ExitCondition{Range: 1, Timeout: 100 * time.Millisecond}

	assert.False(t, e.Update(5, at(0)))
	assert.False(t, e.Update(0.5, at(10)))
	assert.False(t, e.Update(0.5, at(100)))
	// Leaving the range restarts the clock.
	assert.False(t, e.Update(2, at(105)))
	assert.False(t, e.Update(-0.9, at(110)))
	assert.False(t, e.Update(0.1, at(200)))
	assert.True(t, e.Update(0.1, at(210)))
	// Once done, stays done.
	assert.True(t, e.Update(50, at(220)))
	e.Reset()
	assert.False(t, e.Done())
}

func TestExitConditionDisabled(t *testing.T) {
	e := &ExitCondition{Range: 0, Timeout: 0}
	assert.False(t, e.Update(0, time.Now()))
}

func TestSettlerEitherBand(t *testing.T) {
	start := time.Unix(1000, 0)
	s := NewSettler(DefaultLinearSettings())

	// Hovering at 2 inches never satisfies the small band but satisfies
	// the large one after 500ms.
	for ms := 0; ms < 500; ms += 10 {
		assert.False(t, s.Update(2, start.Add(time.Duration(ms)*time.Millisecond)), "at %dms", ms)
	}
	assert.True(t, s.Update(2, start.Add(500*time.Millisecond)))

	s = NewSettler(DefaultLinearSettings())
	assert.False(t, s.Update(0.5, start))
	assert.True(t, s.Update(0.5, start.Add(100*time.Millisecond)))
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultLinearSettings().Validate())
	assert.NoError(t, DefaultAngularSettings().Validate())
	s := DefaultLinearSettings()
	s.KD = -1
	assert.Error(t, s.Validate())
	s = DefaultAngularSettings()
	s.LargeErrorTimeout = -time.Second
	assert.Error(t, s.Validate())

	assert.NoError(t, DefaultDrivetrain().Validate())
	dt := DefaultDrivetrain()
	dt.TrackWidth = 0
	assert.Error(t, dt.Validate())
}

func TestInchesPerMotorDegree(t *testing.T) {
	dt := DefaultDrivetrain()
	// One wheel turn is 5/3 motor turns on a 360rpm wheel with a 600rpm
	// cartridge.
	assert.InDelta(t, 3.25*3.14159265, dt.InchesPerMotorDegree()*360*600/360, 1e-6)
}
