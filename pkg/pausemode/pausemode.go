package pausemode

import (
	"context"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

// PauseMode is the disabled phase: every motor is held at zero and the
// pneumatics keep their state.
type PauseMode struct {
	Hardware *hardware.RobotHardware
}

func (t *PauseMode) Name() string {
	return "Disabled"
}

func (t *PauseMode) StartupSound() string {
	return ""
}

func (t *PauseMode) Start(ctx context.Context) {
	t.Hardware.StopMotors()
}

func (t *PauseMode) Stop() {
}
