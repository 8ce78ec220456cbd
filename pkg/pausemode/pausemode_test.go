package pausemode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

func TestStartZeroesMotors(t *testing.T) {
	d := hardware.NewDummy()
	for _, m := range d.AllMotors() {
		_ = m.Move(100)
	}
	_ = d.Wings.Set(true)

	m := &PauseMode{Hardware: d.RobotHardware}
	m.Start(context.Background())
	m.Stop()

	for _, dm := range append(append(d.LeftMotors, d.RightMotors...), d.IntakeMotor, d.CatapultMotor) {
		assert.Equal(t, 0, dm.Velocity(), dm.Name)
	}
	assert.True(t, d.Wings.Value())
}
