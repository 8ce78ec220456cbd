package testmode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

func TestRunChecksEveryDevice(t *testing.T) {
	d := hardware.NewDummy()
	d.Rotation.SetError(assert.AnError)
	m := New(d.RobotHardware)
	m.SpinTime = time.Millisecond

	results := m.Run(context.Background())
	// Six drive motors, intake, catapult, two pneumatics, two sensors.
	require.Len(t, results, 12)

	failed := map[string]bool{}
	for _, r := range results {
		if r.Err != nil {
			failed[r.Device] = true
		}
	}
	assert.Equal(t, map[string]bool{"catapult rotation": true}, failed)

	// Every motor was driven then zeroed.
	for _, dm := range append(append(d.LeftMotors, d.RightMotors...), d.IntakeMotor, d.CatapultMotor) {
		assert.Equal(t, []int{DefaultTestPower, 0, 0}, dm.History(), dm.Name)
	}
	// Pneumatics end where they started.
	assert.Equal(t, []bool{true, false}, d.WingsOut.History())
	assert.False(t, d.Wings.Value())
}

func TestStopInterrupts(t *testing.T) {
	d := hardware.NewDummy()
	m := New(d.RobotHardware)
	m.SpinTime = time.Hour

	m.Start(context.Background())
	assert.Eventually(t, func() bool { return d.LeftMotors[0].Velocity() == DefaultTestPower }, time.Second, time.Millisecond)
	m.Stop()
	assert.Equal(t, 0, d.LeftMotors[0].Velocity())
	assert.Less(t, len(m.Results()), 12)
}
