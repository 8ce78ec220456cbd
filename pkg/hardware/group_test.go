package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenMotor struct{ DummyMotor }

func (b *brokenMotor) Position() (float64, error) { return 0, assert.AnError }

func TestMotorGroupFansOut(t *testing.T) {
	d := NewDummy()
	require.NoError(t, d.LeftDrive.Move(200))
	for _, m := range d.LeftMotors {
		assert.Equal(t, MaxVelocity, m.Velocity())
	}
	require.NoError(t, d.RightDrive.SetBrakeMode(BrakeHold))
	for _, m := range d.RightMotors {
		assert.Equal(t, BrakeHold, m.BrakeMode())
	}
}

func TestMotorGroupPositionAverages(t *testing.T) {
	a, b := &DummyMotor{}, &DummyMotor{}
	a.SetPosition(90)
	b.SetPosition(270)
	g := NewMotorGroup(a, b, &brokenMotor{})
	p, err := g.Position()
	require.NoError(t, err)
	assert.Equal(t, 180.0, p)

	_, err = NewMotorGroup(&brokenMotor{}).Position()
	assert.ErrorIs(t, err, ErrSensorFault)
}

func TestStopMotors(t *testing.T) {
	d := NewDummy()
	require.NoError(t, d.Intake.Move(127))
	require.NoError(t, d.Catapult.Move(-50))
	d.StopMotors()
	for _, m := range append(append(d.LeftMotors, d.RightMotors...), d.IntakeMotor, d.CatapultMotor) {
		assert.Equal(t, 0, m.Velocity())
	}
}
